package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lixing-Zhang/account-storefront/pkg/logger"
)

func TestRegistry_Lifecycle(t *testing.T) {
	reg := NewRegistry(&fakeCreator{}, &fakeGateway{}, logger.Discard())

	s, err := reg.Open(testProduct("1"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", reg.Len())
	}

	got, err := reg.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if _, err := reg.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}

	// An open checkout is not released.
	if reg.Release(s.ID) {
		t.Error("released a session with an open checkout")
	}
	if err := s.Workflow().Close(); err != nil {
		t.Fatal(err)
	}
	if !reg.Release(s.ID) {
		t.Error("closed session not released")
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d after release", reg.Len())
	}
}

func TestRegistry_OpenOutOfStock(t *testing.T) {
	reg := NewRegistry(&fakeCreator{}, &fakeGateway{}, logger.Discard())
	p := testProduct("1")
	p.StockQuantity = 0

	if _, err := reg.Open(p); !errors.Is(err, ErrOutOfStock) {
		t.Errorf("Open() error = %v, want ErrOutOfStock", err)
	}
	if reg.Len() != 0 {
		t.Error("out-of-stock session registered")
	}
}

func TestSession_SubmitOpensConfirmation(t *testing.T) {
	reg := NewRegistry(&fakeCreator{}, &fakeGateway{}, logger.Discard())
	var transitions int
	reg.OnTransition(func(from, to State) { transitions++ })

	s, err := reg.Open(testProduct("1"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Confirmation(); !errors.Is(err, ErrNoConfirmation) {
		t.Errorf("Confirmation() before submit error = %v", err)
	}

	fillValid(t, s.Workflow(), 12)
	order, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	conf, err := s.Confirmation()
	if err != nil {
		t.Fatalf("Confirmation() error = %v", err)
	}
	v, err := conf.View()
	if err != nil || v.OrderID != order.ID {
		t.Errorf("View() = %+v, %v", v, err)
	}
	if s.Done() {
		t.Error("session with open confirmation reported done")
	}
	if transitions == 0 {
		t.Error("transition hook not wired")
	}

	if _, err := conf.ContinueToPayment(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !s.Done() {
		t.Error("session not done after payment handoff")
	}
	if !reg.Release(s.ID) {
		t.Error("finished session not released")
	}
}

func TestRegistry_Sweep(t *testing.T) {
	creator := &fakeCreator{release: make(chan struct{}), started: make(chan struct{}, 1)}
	reg := NewRegistry(creator, &fakeGateway{}, logger.Discard())

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	idle, err := reg.Open(testProduct("1"))
	if err != nil {
		t.Fatal(err)
	}
	busy, err := reg.Open(testProduct("1"))
	if err != nil {
		t.Fatal(err)
	}
	fillValid(t, busy.Workflow(), 12)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = busy.Submit(context.Background())
	}()
	<-creator.started

	now = now.Add(time.Hour)
	fresh, err := reg.Open(testProduct("1"))
	if err != nil {
		t.Fatal(err)
	}

	if n := reg.Sweep(30 * time.Minute); n != 1 {
		t.Errorf("Sweep() removed %d, want 1", n)
	}
	if _, err := reg.Get(idle.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("idle session survived sweep")
	}
	if _, err := reg.Get(busy.ID); err != nil {
		t.Error("submitting session swept")
	}
	if _, err := reg.Get(fresh.ID); err != nil {
		t.Error("fresh session swept")
	}

	close(creator.release)
	<-done
}

func TestSession_NotReleasedWhileSubmitting(t *testing.T) {
	creator := &fakeCreator{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	reg := NewRegistry(creator, &fakeGateway{}, logger.Discard())
	s, err := reg.Open(testProduct("1"))
	if err != nil {
		t.Fatal(err)
	}
	fillValid(t, s.Workflow(), 20)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()
	<-creator.started

	if reg.Release(s.ID) {
		t.Fatal("released a session with a submit in flight")
	}
	if n := reg.Sweep(0); n != 0 {
		t.Fatalf("Sweep() removed %d sessions with a submit in flight", n)
	}

	close(creator.release)
	if err := <-done; err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := s.Confirmation(); err != nil {
		t.Fatalf("Confirmation() error = %v", err)
	}
	if reg.Release(s.ID) {
		t.Error("released a session with an unpaid order")
	}
}

func TestSession_ConfirmedWorkflowWithoutConfirmationIsNotDone(t *testing.T) {
	reg := NewRegistry(&fakeCreator{}, &fakeGateway{}, logger.Discard())
	s, err := reg.Open(testProduct("1"))
	if err != nil {
		t.Fatal(err)
	}
	fillValid(t, s.Workflow(), 20)

	// The workflow confirms before the session attaches the confirmation.
	s.mu.Lock()
	s.submitting++
	s.mu.Unlock()
	if _, err := s.Workflow().Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Workflow().State() != StateConfirmed {
		t.Fatalf("state = %s, want confirmed", s.Workflow().State())
	}

	if s.Done() {
		t.Error("Done() = true before the confirmation was attached")
	}
	if reg.Release(s.ID) {
		t.Error("released a session whose order has no confirmation yet")
	}
}
