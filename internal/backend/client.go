// Package backend is the storefront's client for the order backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Lixing-Zhang/account-storefront/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// IdempotencyHeader carries the per-checkout idempotency key
const IdempotencyHeader = "Idempotency-Key"

// unexpectedResponse is shown when the backend answers with something that
// cannot be read
const unexpectedResponse = "Unexpected response from server"

// ErrNotFound is returned when the backend has no such resource
var ErrNotFound = errors.New("not found")

// Error is a failed backend call. Message is the backend's own explanation
// when it gave one.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("backend ")
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		b.WriteString(": status ")
		b.WriteString(strconv.Itoa(e.StatusCode))
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage is the message the buyer can be shown
func (e *Error) UserMessage() string {
	return e.Message
}

// envelope is the backend's response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Client talks to the order backend over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a client for the backend at baseURL. Requests are
// traced through an otelhttp transport.
func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: log,
	}
}

// GetProduct fetches one product from the catalog
func (c *Client) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	path := "/api/products/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, "get product", http.MethodGet, path, nil, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateOrder sends one order creation request. No retry is attempted.
func (c *Client) CreateOrder(ctx context.Context, req models.OrderRequest, idempotencyKey string) (*models.Order, error) {
	headers := http.Header{}
	if idempotencyKey != "" {
		headers.Set(IdempotencyHeader, idempotencyKey)
	}

	var order models.Order
	if err := c.do(ctx, "create order", http.MethodPost, "/api/orders", headers, req, &order); err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, &Error{Op: "create order", Message: unexpectedResponse, Err: errors.New("order has no id")}
	}
	return &order, nil
}

// StartPayment asks the backend to hand order over to the payment gateway
func (c *Client) StartPayment(ctx context.Context, order models.Order) (*models.PaymentHandoff, error) {
	var handoff models.PaymentHandoff
	path := "/api/orders/" + url.PathEscape(order.ID) + "/payment"
	if err := c.do(ctx, "start payment", http.MethodPost, path, nil, nil, &handoff); err != nil {
		return nil, err
	}
	if handoff.PaymentURL == "" {
		return nil, &Error{Op: "start payment", Message: unexpectedResponse, Err: errors.New("no payment url")}
	}
	return &handoff, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, headers http.Header, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("backend request failed", "op", op, "error", err)
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("backend request",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := &Error{Op: op, StatusCode: resp.StatusCode}
		if decodeErr == nil {
			e.Message = env.Message
		}
		if resp.StatusCode == http.StatusNotFound {
			e.Err = ErrNotFound
		}
		return e
	}

	if decodeErr != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: unexpectedResponse, Err: decodeErr}
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = unexpectedResponse
		}
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: unexpectedResponse, Err: errors.New("response has no data")}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: unexpectedResponse, Err: err}
	}
	return nil
}
