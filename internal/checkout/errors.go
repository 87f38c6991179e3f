package checkout

import (
	"errors"
)

var (
	ErrNotReady             = errors.New("checkout is not open")
	ErrSubmitInProgress     = errors.New("order submission in progress")
	ErrOutOfStock           = errors.New("product is out of stock")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	ErrConfirmationClosed   = errors.New("order confirmation is closed")
	ErrPaymentInProgress    = errors.New("payment handoff in progress")
	ErrSessionNotFound      = errors.New("checkout session not found")
	ErrNoConfirmation       = errors.New("no order awaiting payment")
)

// Notices shown when a remote call fails without a usable message
const (
	noticeOrderFailed   = "Error placing order. Please try again."
	noticePaymentFailed = "Error proceeding to payment. Please try again."
)

// userMessager is implemented by errors that carry a message fit for the
// buyer, such as a backend rejection reason.
type userMessager interface {
	UserMessage() string
}

// SubmissionError reports a failed remote call. Notice is what the buyer
// is shown; Err is the underlying cause.
type SubmissionError struct {
	Notice string
	Err    error
}

func (e *SubmissionError) Error() string {
	return e.Notice + ": " + e.Err.Error()
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

func noticeFor(err error, fallback string) string {
	var um userMessager
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}
