package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_Publish(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	w := &recordingWriter{}
	p := NewProducerWithWriter(w, "orders.created")

	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	err := p.Publish(ctx, "ord_1", map[string]any{"order_id": "ord_1", "quantity": 12})
	span.End()
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "ord_1" {
		t.Errorf("key = %q", msg.Key)
	}
	var body map[string]any
	if err := json.Unmarshal(msg.Value, &body); err != nil {
		t.Fatalf("value is not JSON: %v", err)
	}
	if body["order_id"] != "ord_1" {
		t.Errorf("body = %v", body)
	}
	if newHeaderCarrier(&msg).Get("traceparent") == "" {
		t.Error("trace context not propagated in headers")
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Error("Close() did not close the writer")
	}
}

func TestProducer_PublishError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := NewProducerWithWriter(w, "orders.created")

	if err := p.Publish(context.Background(), "k", struct{}{}); err == nil {
		t.Error("expected error")
	}
}

func TestHeaderCarrier(t *testing.T) {
	msg := &kafka.Message{}
	c := newHeaderCarrier(msg)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("a", "3")

	if c.Get("a") != "3" || c.Get("b") != "2" || c.Get("missing") != "" {
		t.Errorf("headers = %v", msg.Headers)
	}
	if keys := c.Keys(); len(keys) != 2 {
		t.Errorf("Keys() = %v", keys)
	}
}
