package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Lixing-Zhang/account-storefront/internal/models"
	"github.com/Lixing-Zhang/account-storefront/internal/pricing"
	"github.com/Lixing-Zhang/account-storefront/internal/vendor"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// State is a step of the checkout workflow
type State string

const (
	StateIdle           State = "idle"
	StateVendorsLoading State = "vendors_loading"
	StateVendorsReady   State = "vendors_ready"
	StateSubmitting     State = "submitting"
	StateConfirmed      State = "confirmed"
	StateError          State = "error"
)

// OrderCreator creates orders on the backend. idempotencyKey is stable for
// one opened checkout so a manual re-submit cannot create a second order.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req models.OrderRequest, idempotencyKey string) (*models.Order, error)
}

// TransitionFunc observes state changes
type TransitionFunc func(from, to State)

// Workflow drives one checkout: vendor choice, form edits, pricing,
// validation and the single order-creation call.
//
// The mutex is never held across the backend call; the Submitting state is
// what keeps a second submit or a close from racing the first.
type Workflow struct {
	mu sync.Mutex

	creator      OrderCreator
	log          *slog.Logger
	onTransition TransitionFunc

	state          State
	product        *models.Product
	selector       *vendor.Selector
	form           models.CheckoutForm
	total          decimal.Decimal
	errors         ValidationErrors
	notice         string
	idempotencyKey string
	attempted      *models.OrderRequest
	order          *models.Order
}

// NewWorkflow creates an idle workflow
func NewWorkflow(creator OrderCreator, log *slog.Logger) *Workflow {
	return &Workflow{
		creator: creator,
		log:     log,
		state:   StateIdle,
		form:    models.DefaultCheckoutForm(),
		errors:  ValidationErrors{},
	}
}

// OnTransition registers fn to be called on every state change
func (w *Workflow) OnTransition(fn TransitionFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.onTransition = fn
}

// State returns the current state
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.state
}

// Open starts a checkout for product: offers are generated, the first one
// is selected and the form is reset.
func (w *Workflow) Open(product models.Product) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateSubmitting {
		return ErrSubmitInProgress
	}
	if !product.InStock() {
		return fmt.Errorf("open checkout for product %d: %w", product.ID, ErrOutOfStock)
	}

	w.reset()
	w.transition(StateVendorsLoading)

	p := product
	w.product = &p
	w.selector = vendor.NewSelector(vendor.GenerateOffers(product))
	w.idempotencyKey = uuid.NewString()
	w.recompute()

	w.transition(StateVendorsReady)
	w.log.Debug("checkout opened", "product_id", product.ID, "idempotency_key", w.idempotencyKey)
	return nil
}

// Close discards the checkout and returns to Idle. It is refused while an
// order is being submitted.
func (w *Workflow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateSubmitting {
		return ErrSubmitInProgress
	}
	w.reset()
	return nil
}

// SetEmail edits the email field
func (w *Workflow) SetEmail(email string) error {
	return w.edit(FieldEmail, func() error {
		w.form.Email = email
		return nil
	})
}

// SetQuantity edits the quantity. Out-of-range values are kept and
// reported by validation on submit.
func (w *Workflow) SetQuantity(quantity int) error {
	return w.edit(FieldQuantity, func() error {
		w.form.Quantity = quantity
		return nil
	})
}

// SetPaymentMethod edits the payment method; it must be a known method
func (w *Workflow) SetPaymentMethod(method string) error {
	return w.edit("paymentMethod", func() error {
		if !models.IsPaymentMethod(method) {
			return fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, method)
		}
		w.form.PaymentMethod = method
		return nil
	})
}

// SetCouponCode edits the coupon code
func (w *Workflow) SetCouponCode(code string) error {
	return w.edit("couponCode", func() error {
		w.form.CouponCode = code
		return nil
	})
}

// SetAgreeTerms edits the terms checkbox
func (w *Workflow) SetAgreeTerms(agree bool) error {
	return w.edit(FieldAgreeTerms, func() error {
		w.form.AgreeTerms = agree
		return nil
	})
}

// SetSubscribeNewsletter edits the newsletter checkbox
func (w *Workflow) SetSubscribeNewsletter(subscribe bool) error {
	return w.edit("subscribeNewsletter", func() error {
		w.form.SubscribeNewsletter = subscribe
		return nil
	})
}

// SelectVendor makes the offer with id active. Unknown ids are ignored.
// The quantity is never clamped to the new vendor's stock.
func (w *Workflow) SelectVendor(id int64) error {
	return w.edit(FieldVendor, func() error {
		if !w.selector.Select(id) {
			w.log.Debug("ignoring unknown vendor", "vendor_id", id)
		}
		return nil
	})
}

// Apply performs a batch of edits atomically: if any edit is rejected
// nothing changes.
func (w *Workflow) Apply(patch models.FormPatch) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(); err != nil {
		return err
	}
	if patch.PaymentMethod != nil && !models.IsPaymentMethod(*patch.PaymentMethod) {
		return fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, *patch.PaymentMethod)
	}

	if patch.Email != nil {
		w.form.Email = *patch.Email
		delete(w.errors, FieldEmail)
	}
	if patch.Quantity != nil {
		w.form.Quantity = *patch.Quantity
		delete(w.errors, FieldQuantity)
	}
	if patch.PaymentMethod != nil {
		w.form.PaymentMethod = *patch.PaymentMethod
	}
	if patch.CouponCode != nil {
		w.form.CouponCode = *patch.CouponCode
	}
	if patch.AgreeTerms != nil {
		w.form.AgreeTerms = *patch.AgreeTerms
		delete(w.errors, FieldAgreeTerms)
	}
	if patch.SubscribeNewsletter != nil {
		w.form.SubscribeNewsletter = *patch.SubscribeNewsletter
	}
	if patch.VendorID != nil {
		w.selector.Select(*patch.VendorID)
		delete(w.errors, FieldVendor)
	}

	w.recompute()
	return nil
}

// Submit validates the form and, when it passes, sends exactly one order
// creation request. Validation failures return *ValidationError and leave
// the workflow ready for corrections; backend failures return
// *SubmissionError and also leave it ready, with a notice. There is no
// automatic retry.
func (w *Workflow) Submit(ctx context.Context) (*models.Order, error) {
	w.mu.Lock()
	switch w.state {
	case StateVendorsReady:
	case StateSubmitting:
		w.mu.Unlock()
		return nil, ErrSubmitInProgress
	default:
		w.mu.Unlock()
		return nil, ErrNotReady
	}

	selected := w.selector.Selected()
	errs := Validate(w.form, selected, w.total)
	if len(errs) > 0 {
		w.errors = errs
		w.mu.Unlock()
		return nil, &ValidationError{Fields: errs.Clone()}
	}

	req := models.OrderRequest{
		ProductID:           w.product.ID,
		VendorID:            selected.ID,
		Email:               w.form.Email,
		Quantity:            w.form.Quantity,
		PaymentMethod:       w.form.PaymentMethod,
		CouponCode:          w.form.CouponCode,
		TotalPrice:          w.total,
		Status:              models.OrderStatusPending,
		SubscribeNewsletter: w.form.SubscribeNewsletter,
	}
	// A key only ever covers one payload; a changed re-submit is a new order.
	if w.attempted != nil && !sameRequest(*w.attempted, req) {
		w.idempotencyKey = uuid.NewString()
	}
	w.attempted = &req
	key := w.idempotencyKey
	w.errors = ValidationErrors{}
	w.notice = ""
	w.transition(StateSubmitting)
	w.mu.Unlock()

	order, err := w.creator.CreateOrder(ctx, req, key)
	if err == nil && order == nil {
		err = errors.New("backend returned no order")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		notice := noticeFor(err, noticeOrderFailed)
		w.transition(StateError)
		w.notice = notice
		w.transition(StateVendorsReady)
		w.log.Warn("order submission failed",
			"product_id", req.ProductID,
			"vendor_id", req.VendorID,
			"error", err,
		)
		return nil, &SubmissionError{Notice: notice, Err: err}
	}

	w.order = order
	w.form = models.DefaultCheckoutForm()
	w.recompute()
	w.transition(StateConfirmed)
	w.log.Info("order submitted",
		"order_id", order.ID,
		"product_id", req.ProductID,
		"vendor_id", req.VendorID,
		"total_price", req.TotalPrice.String(),
	)
	return order, nil
}

// DismissNotice clears the last submission notice
func (w *Workflow) DismissNotice() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.notice = ""
}

// Order returns the confirmed order, if any
func (w *Workflow) Order() *models.Order {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.order == nil {
		return nil
	}
	o := *w.order
	return &o
}

// Snapshot is a serializable view of the workflow
type Snapshot struct {
	State            State                `json:"state"`
	Product          *models.Product      `json:"product,omitempty"`
	Offers           []models.VendorOffer `json:"offers"`
	SelectedVendorID int64                `json:"selected_vendor_id,omitempty"`
	Form             models.CheckoutForm  `json:"form"`
	TotalPrice       decimal.Decimal      `json:"total_price"`
	Errors           ValidationErrors     `json:"errors"`
	Notice           string               `json:"notice,omitempty"`
	DiscountApplied  bool                 `json:"discount_applied"`
	BelowMinimum     bool                 `json:"below_minimum"`
	CanSubmit        bool                 `json:"can_submit"`
}

// Snapshot returns the current view of the workflow
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Snapshot{
		State:           w.state,
		Offers:          []models.VendorOffer{},
		Form:            w.form,
		TotalPrice:      w.total,
		Errors:          w.errors.Clone(),
		Notice:          w.notice,
		DiscountApplied: pricing.DiscountApplied(w.form.CouponCode),
	}
	if w.product != nil {
		p := *w.product
		s.Product = &p
	}
	if w.selector != nil {
		s.Offers = w.selector.Offers()
		if sel := w.selector.Selected(); sel != nil {
			s.SelectedVendorID = sel.ID
		}
		s.BelowMinimum = !pricing.MeetsMinimum(w.total)
		s.CanSubmit = w.state == StateVendorsReady && !s.BelowMinimum
	}
	return s
}

// edit applies one field change, clears that field's error and recomputes
// the total.
func (w *Workflow) edit(field string, apply func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(); err != nil {
		return err
	}
	if err := apply(); err != nil {
		return err
	}
	delete(w.errors, field)
	w.recompute()
	return nil
}

func (w *Workflow) editable() error {
	switch w.state {
	case StateVendorsReady:
		return nil
	case StateSubmitting:
		return ErrSubmitInProgress
	default:
		return ErrNotReady
	}
}

func (w *Workflow) recompute() {
	if w.selector == nil {
		w.total = decimal.Zero
		return
	}
	sel := w.selector.Selected()
	if sel == nil {
		w.total = decimal.Zero
		return
	}
	w.total = pricing.ComputeTotal(sel.Price, w.form.Quantity, w.form.CouponCode)
}

func (w *Workflow) reset() {
	w.product = nil
	w.selector = nil
	w.form = models.DefaultCheckoutForm()
	w.total = decimal.Zero
	w.errors = ValidationErrors{}
	w.notice = ""
	w.idempotencyKey = ""
	w.attempted = nil
	w.order = nil
	w.transition(StateIdle)
}

func sameRequest(a, b models.OrderRequest) bool {
	return a.ProductID == b.ProductID &&
		a.VendorID == b.VendorID &&
		a.Email == b.Email &&
		a.Quantity == b.Quantity &&
		a.PaymentMethod == b.PaymentMethod &&
		a.CouponCode == b.CouponCode &&
		a.SubscribeNewsletter == b.SubscribeNewsletter &&
		a.TotalPrice.Equal(b.TotalPrice)
}

func (w *Workflow) transition(to State) {
	from := w.state
	if from == to {
		return
	}
	w.state = to
	if w.onTransition != nil {
		w.onTransition(from, to)
	}
}
