package booking

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/arenahq/courtledger/internal/ledger"
)

func TestCreate_CreditsChargeAndConfirm(t *testing.T) {
	engine, _, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)

	created := mustCreate(t, engine, defaultCreate(1))

	if created.Status != StatusConfirmed {
		t.Errorf("status = %s, want confirmed", created.Status)
	}
	if created.PaymentStatus != PaymentPaid {
		t.Errorf("payment_status = %s, want paid", created.PaymentStatus)
	}
	if created.TotalPrice != 24 { // 12/hour x 2h x 1 court
		t.Errorf("total_price = %d, want 24", created.TotalPrice)
	}
	if got := creditsBalance(t, database, 1); got != 76 {
		t.Errorf("credits balance = %d, want 76", got)
	}
	if got := pointsBalance(t, database, 1); got != 20 { // 10/hour x 2h
		t.Errorf("points balance = %d, want 20", got)
	}
}

func TestCreate_MultiCourtPrice(t *testing.T) {
	engine, _, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)

	params := defaultCreate(1)
	params.CourtIDs = []int64{1, 2}
	created := mustCreate(t, engine, params)

	if created.TotalPrice != 48 {
		t.Errorf("total_price = %d, want 48", created.TotalPrice)
	}
	if len(created.CourtIDs) != 2 {
		t.Errorf("court count = %d, want 2", len(created.CourtIDs))
	}
	if got := creditsBalance(t, database, 1); got != 52 {
		t.Errorf("credits balance = %d, want 52", got)
	}
}

func TestCreate_InsufficientFundsLeavesNothing(t *testing.T) {
	engine, _, database := newTestEngine(t)
	seedCredits(t, database, 1, 10)

	_, err := engine.Create(context.Background(), defaultCreate(1))
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// The whole transaction rolled back: no booking holds the slot and
	// no credits moved.
	if got := creditsBalance(t, database, 1); got != 10 {
		t.Errorf("credits balance = %d, want 10", got)
	}
	slots, err := engine.ComputeSlots(context.Background(), SlotQuery{
		Sport: "badminton",
		Date:  "2025-07-16",
	})
	if err != nil {
		t.Fatalf("compute slots: %v", err)
	}
	if slot := slotByHour(t, slots, 14); slot.FreeCount != 4 {
		t.Errorf("slot should still be fully free, got %d free courts", slot.FreeCount)
	}
}

func TestCreate_BankTransferStaysPending(t *testing.T) {
	engine, _, database := newTestEngine(t)

	params := defaultCreate(1)
	params.PaymentMethod = MethodBankTransfer
	created := mustCreate(t, engine, params)

	if created.Status != StatusPending {
		t.Errorf("status = %s, want pending", created.Status)
	}
	if created.PaymentStatus != PaymentAwaitingProof {
		t.Errorf("payment_status = %s, want awaiting_proof", created.PaymentStatus)
	}
	if got := creditsBalance(t, database, 1); got != 0 {
		t.Errorf("no credits should move, balance = %d", got)
	}
}

func TestCreate_SlotConflict(t *testing.T) {
	engine, _, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)
	seedCredits(t, database, 2, 100)

	mustCreate(t, engine, defaultCreate(1))

	_, err := engine.Create(context.Background(), defaultCreate(2))
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}
}

func TestCreate_OverlapConflict(t *testing.T) {
	engine, _, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)
	seedCredits(t, database, 2, 100)

	mustCreate(t, engine, defaultCreate(1)) // 14:00-16:00

	params := defaultCreate(2)
	params.StartHour = 15 // overlaps the second hour
	_, err := engine.Create(context.Background(), params)
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict for overlapping span, got %v", err)
	}
}

func TestCreate_ConcurrentSameSlot(t *testing.T) {
	engine, _, database := newTestEngine(t)

	const attempts = 8
	for i := int64(1); i <= attempts; i++ {
		seedCredits(t, database, i, 100)
	}

	var successes, conflicts atomic.Int64
	var g errgroup.Group
	for i := int64(1); i <= attempts; i++ {
		userID := i
		g.Go(func() error {
			_, err := engine.Create(context.Background(), defaultCreate(userID))
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrSlotConflict):
				conflicts.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	if successes.Load() != 1 {
		t.Errorf("successes = %d, want exactly 1", successes.Load())
	}
	if conflicts.Load() != attempts-1 {
		t.Errorf("conflicts = %d, want %d", conflicts.Load(), attempts-1)
	}
}

func TestCreate_RejectsIllegalSlots(t *testing.T) {
	engine, clk, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)

	tests := []struct {
		name   string
		mutate func(*CreateParams)
	}{
		{"past date", func(p *CreateParams) { p.Date = "2025-07-14" }},
		{"overruns closing", func(p *CreateParams) { p.StartHour = 21 }},
		{"before opening", func(p *CreateParams) { p.StartHour = 7 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := defaultCreate(1)
			tc.mutate(&params)
			if _, err := engine.Create(context.Background(), params); !errors.Is(err, ErrSlotIllegal) {
				t.Fatalf("expected ErrSlotIllegal, got %v", err)
			}
		})
	}

	// Inside the 30min advance buffer on the facility-local today.
	clk.Set(baseNow)
	params := defaultCreate(1)
	params.Date = "2025-07-15"
	params.StartHour = 10
	if _, err := engine.Create(context.Background(), params); !errors.Is(err, ErrSlotIllegal) {
		t.Fatalf("expected ErrSlotIllegal inside buffer, got %v", err)
	}
}

func TestCreate_ValidatesInput(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	tests := []struct {
		name   string
		mutate func(*CreateParams)
	}{
		{"bad date", func(p *CreateParams) { p.Date = "16-07-2025" }},
		{"zero duration", func(p *CreateParams) { p.DurationHours = 0 }},
		{"six hours", func(p *CreateParams) { p.DurationHours = 6 }},
		{"no courts", func(p *CreateParams) { p.CourtIDs = nil }},
		{"wrong sport court", func(p *CreateParams) { p.CourtIDs = []int64{5} }},
		{"duplicate court", func(p *CreateParams) { p.CourtIDs = []int64{1, 1} }},
		{"bad payment method", func(p *CreateParams) { p.PaymentMethod = "cash" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := defaultCreate(1)
			tc.mutate(&params)
			_, err := engine.Create(context.Background(), params)
			if _, ok := err.(ValidationError); !ok {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}
