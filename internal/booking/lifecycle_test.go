package booking

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCancel_RefundsCharge(t *testing.T) {
	engine, _, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)
	created := mustCreate(t, engine, defaultCreate(1))

	cancelled, err := engine.Cancel(context.Background(), created.ID, 1)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if cancelled.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
	if cancelled.PaymentStatus != PaymentRefunded {
		t.Errorf("payment_status = %s, want refunded", cancelled.PaymentStatus)
	}
	if got := creditsBalance(t, database, 1); got != 100 {
		t.Errorf("credits balance = %d, want 100 after refund", got)
	}

	// The slot is free again for someone else.
	seedCredits(t, database, 2, 100)
	mustCreate(t, engine, defaultCreate(2))
}

func TestCancel_UnpaidMovesNoMoney(t *testing.T) {
	engine, _, database := newTestEngine(t)

	params := defaultCreate(1)
	params.PaymentMethod = MethodBankTransfer
	created := mustCreate(t, engine, params)

	cancelled, err := engine.Cancel(context.Background(), created.ID, 1)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.PaymentStatus != PaymentAwaitingProof {
		t.Errorf("payment_status = %s, want awaiting_proof untouched", cancelled.PaymentStatus)
	}
	if got := creditsBalance(t, database, 1); got != 0 {
		t.Errorf("credits balance = %d, want 0", got)
	}
}

func TestCancel_AfterStartRejected(t *testing.T) {
	engine, clk, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)
	created := mustCreate(t, engine, defaultCreate(1))

	clk.Set(time.Date(2025, 7, 16, 14, 0, 1, 0, bangkok))

	_, err := engine.Cancel(context.Background(), created.ID, 1)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancel_TerminalRejected(t *testing.T) {
	engine, _, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)
	created := mustCreate(t, engine, defaultCreate(1))

	if _, err := engine.Cancel(context.Background(), created.ID, 1); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	_, err := engine.Cancel(context.Background(), created.ID, 1)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second cancel, got %v", err)
	}
}

func TestCancel_WrongUserNotFound(t *testing.T) {
	engine, _, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)
	created := mustCreate(t, engine, defaultCreate(1))

	_, err := engine.Cancel(context.Background(), created.ID, 99)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_LazyCompleted(t *testing.T) {
	engine, clk, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)
	created := mustCreate(t, engine, defaultCreate(1)) // 14:00-16:00 on the 16th

	clk.Set(time.Date(2025, 7, 16, 15, 59, 0, 0, bangkok))
	b, err := engine.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b.Status != StatusConfirmed {
		t.Errorf("status before end = %s, want confirmed", b.Status)
	}

	clk.Set(time.Date(2025, 7, 16, 16, 0, 0, 0, bangkok))
	b, err = engine.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b.Status != StatusCompleted {
		t.Errorf("status after end = %s, want completed", b.Status)
	}
}

func TestDecidePaymentProof_Approve(t *testing.T) {
	engine, _, database := newTestEngine(t)

	params := defaultCreate(1)
	params.PaymentMethod = MethodBankTransfer
	created := mustCreate(t, engine, params)

	decided, err := engine.DecidePaymentProof(context.Background(), created.ID, true)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.Status != StatusConfirmed {
		t.Errorf("status = %s, want confirmed", decided.Status)
	}
	if decided.PaymentStatus != PaymentPaid {
		t.Errorf("payment_status = %s, want paid", decided.PaymentStatus)
	}
	if got := pointsBalance(t, database, 1); got != 20 {
		t.Errorf("points balance = %d, want 20", got)
	}
}

func TestDecidePaymentProof_Reject(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	params := defaultCreate(1)
	params.PaymentMethod = MethodBankTransfer
	created := mustCreate(t, engine, params)

	decided, err := engine.DecidePaymentProof(context.Background(), created.ID, false)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", decided.Status)
	}
}

func TestDecidePaymentProof_ConfirmedRejected(t *testing.T) {
	engine, _, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)
	created := mustCreate(t, engine, defaultCreate(1)) // already confirmed

	_, err := engine.DecidePaymentProof(context.Background(), created.ID, true)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	// An administrative rejection of a charged booking refunds it.
	decided, err := engine.DecidePaymentProof(context.Background(), created.ID, false)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if decided.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", decided.Status)
	}
	if got := creditsBalance(t, database, 1); got != 100 {
		t.Errorf("credits balance = %d, want 100 after refund", got)
	}
}

func TestExpireStale_AwaitingProof(t *testing.T) {
	engine, clk, _ := newTestEngine(t)

	params := defaultCreate(1)
	params.PaymentMethod = MethodBankTransfer
	params.Date = "2025-07-20" // far enough out that expiry precedes the start
	created := mustCreate(t, engine, params)

	// Inside the 24h proof TTL nothing happens.
	clk.Advance(23 * time.Hour)
	expired, err := engine.ExpireStale(context.Background())
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if expired != 0 {
		t.Fatalf("expired %d bookings inside TTL", expired)
	}

	clk.Advance(2 * time.Hour)
	expired, err = engine.ExpireStale(context.Background())
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}

	b, err := engine.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", b.Status)
	}
}
