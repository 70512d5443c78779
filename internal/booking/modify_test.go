package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arenahq/courtledger/internal/ledger"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestModify_PriceDeltaSettlement(t *testing.T) {
	engine, _, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)
	created := mustCreate(t, engine, defaultCreate(1)) // 2h at 12/h = 24, balance 76

	// Extend to 3 hours: new total 36, delta +12 charged.
	b, err := engine.Modify(context.Background(), ModifyParams{
		BookingID:     created.ID,
		UserID:        1,
		DurationHours: intPtr(3),
	})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if b.DurationHours != 3 {
		t.Errorf("duration = %d, want 3", b.DurationHours)
	}
	if b.TotalPrice != 36 {
		t.Errorf("total_price = %d, want 36", b.TotalPrice)
	}
	if b.ModificationCount != 1 {
		t.Errorf("modification_count = %d, want 1", b.ModificationCount)
	}
	if got := creditsBalance(t, database, 1); got != 64 {
		t.Errorf("credits balance = %d, want 64 after delta charge", got)
	}

	// Shrink back to 2 hours: delta -12 comes back as a refund entry.
	b, err = engine.Modify(context.Background(), ModifyParams{
		BookingID:     created.ID,
		UserID:        1,
		DurationHours: intPtr(2),
	})
	if err != nil {
		t.Fatalf("second modify: %v", err)
	}
	if b.TotalPrice != 24 {
		t.Errorf("total_price = %d, want 24", b.TotalPrice)
	}
	if b.ModificationCount != 2 {
		t.Errorf("modification_count = %d, want 2", b.ModificationCount)
	}
	if got := creditsBalance(t, database, 1); got != 76 {
		t.Errorf("credits balance = %d, want 76 after delta refund", got)
	}

	entries, err := ledger.NewService(database, engine.clock).Entries(context.Background(), 1, ledger.KindCredits)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	var refunds int
	for _, entry := range entries {
		if entry.Reason == ledger.ReasonRefunded {
			refunds++
		}
	}
	if refunds != 1 {
		t.Errorf("refund entries = %d, want 1", refunds)
	}
}

func TestModify_LimitExhausted(t *testing.T) {
	engine, _, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)
	created := mustCreate(t, engine, defaultCreate(1))

	for _, hour := range []int{15, 16} {
		if _, err := engine.Modify(context.Background(), ModifyParams{
			BookingID: created.ID,
			UserID:    1,
			StartHour: intPtr(hour),
		}); err != nil {
			t.Fatalf("modify to %d:00: %v", hour, err)
		}
	}

	_, err := engine.Modify(context.Background(), ModifyParams{
		BookingID: created.ID,
		UserID:    1,
		StartHour: intPtr(17),
	})
	if !errors.Is(err, ErrModificationLimit) {
		t.Fatalf("expected ErrModificationLimit, got %v", err)
	}
}

func TestModify_LockoutBoundary(t *testing.T) {
	engine, clk, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)
	created := mustCreate(t, engine, defaultCreate(1)) // starts 2025-07-16 14:00

	// One second before the two hour lockout the modification goes through.
	clk.Set(time.Date(2025, 7, 16, 11, 59, 59, 0, bangkok))
	if _, err := engine.Modify(context.Background(), ModifyParams{
		BookingID: created.ID,
		UserID:    1,
		StartHour: intPtr(15),
	}); err != nil {
		t.Fatalf("modify just outside lockout: %v", err)
	}

	// The lockout tracks the booking's current start, now 15:00.
	clk.Set(time.Date(2025, 7, 16, 13, 0, 1, 0, bangkok))
	_, err := engine.Modify(context.Background(), ModifyParams{
		BookingID: created.ID,
		UserID:    1,
		StartHour: intPtr(16),
	})
	if !errors.Is(err, ErrTooCloseToStart) {
		t.Fatalf("expected ErrTooCloseToStart, got %v", err)
	}
}

func TestModify_OwnSlotNotAConflict(t *testing.T) {
	engine, _, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)
	created := mustCreate(t, engine, defaultCreate(1))

	// Same slot, longer duration: the booking's own rows must not block it.
	if _, err := engine.Modify(context.Background(), ModifyParams{
		BookingID:     created.ID,
		UserID:        1,
		DurationHours: intPtr(3),
	}); err != nil {
		t.Fatalf("modify over own slot: %v", err)
	}
}

func TestModify_TargetConflict(t *testing.T) {
	engine, _, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)
	seedCredits(t, database, 2, 100)
	created := mustCreate(t, engine, defaultCreate(1))

	other := defaultCreate(2)
	other.StartHour = 17
	mustCreate(t, engine, other)

	_, err := engine.Modify(context.Background(), ModifyParams{
		BookingID: created.ID,
		UserID:    1,
		StartHour: intPtr(17),
	})
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}

	// A failed modification leaves the booking where it was.
	b, err := engine.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b.StartHour != 14 || b.ModificationCount != 0 {
		t.Errorf("booking changed: start=%d mods=%d", b.StartHour, b.ModificationCount)
	}
}

func TestModify_CourtSetGrowth(t *testing.T) {
	engine, _, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)
	created := mustCreate(t, engine, defaultCreate(1))

	b, err := engine.Modify(context.Background(), ModifyParams{
		BookingID: created.ID,
		UserID:    1,
		CourtIDs:  []int64{1, 2},
	})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if len(b.CourtIDs) != 2 {
		t.Fatalf("courts = %v, want two", b.CourtIDs)
	}
	if b.TotalPrice != 48 {
		t.Errorf("total_price = %d, want 48", b.TotalPrice)
	}
	if got := creditsBalance(t, database, 1); got != 52 {
		t.Errorf("credits balance = %d, want 52", got)
	}
}

func TestModify_CourtSwap(t *testing.T) {
	engine, _, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)
	created := mustCreate(t, engine, defaultCreate(1))

	b, err := engine.Modify(context.Background(), ModifyParams{
		BookingID: created.ID,
		UserID:    1,
		CourtIDs:  []int64{3},
	})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if len(b.CourtIDs) != 1 || b.CourtIDs[0] != 3 {
		t.Fatalf("courts = %v, want [3]", b.CourtIDs)
	}
	if got := creditsBalance(t, database, 1); got != 76 {
		t.Errorf("credits balance = %d, want 76 unchanged", got)
	}

	// Court 1 is free again.
	seedCredits(t, database, 2, 100)
	mustCreate(t, engine, defaultCreate(2))
}

func TestModify_InsufficientDeltaRollsBack(t *testing.T) {
	engine, _, database := newTestEngine(t)
	seedCredits(t, database, 1, 24)
	created := mustCreate(t, engine, defaultCreate(1)) // balance now 0

	_, err := engine.Modify(context.Background(), ModifyParams{
		BookingID:     created.ID,
		UserID:        1,
		DurationHours: intPtr(3),
	})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	b, err := engine.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b.DurationHours != 2 || b.TotalPrice != 24 || b.ModificationCount != 0 {
		t.Errorf("booking changed after failed delta: duration=%d price=%d mods=%d",
			b.DurationHours, b.TotalPrice, b.ModificationCount)
	}
	if got := creditsBalance(t, database, 1); got != 0 {
		t.Errorf("credits balance = %d, want 0", got)
	}
}

func TestModify_SportChange(t *testing.T) {
	engine, _, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)
	created := mustCreate(t, engine, defaultCreate(1))

	// Pickleball runs 15/h, so 2h on court 5 is 30: delta +6.
	b, err := engine.Modify(context.Background(), ModifyParams{
		BookingID: created.ID,
		UserID:    1,
		Sport:     strPtr("pickleball"),
		CourtIDs:  []int64{5},
	})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if b.Sport != "pickleball" || b.TotalPrice != 30 {
		t.Errorf("got sport=%s price=%d, want pickleball 30", b.Sport, b.TotalPrice)
	}
	if got := creditsBalance(t, database, 1); got != 70 {
		t.Errorf("credits balance = %d, want 70", got)
	}
}

func TestModify_UnpaidBookingMovesNoMoney(t *testing.T) {
	engine, _, database := newTestEngine(t)

	params := defaultCreate(1)
	params.PaymentMethod = MethodBankTransfer
	created := mustCreate(t, engine, params)

	b, err := engine.Modify(context.Background(), ModifyParams{
		BookingID:     created.ID,
		UserID:        1,
		DurationHours: intPtr(3),
	})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if b.TotalPrice != 36 {
		t.Errorf("total_price = %d, want 36", b.TotalPrice)
	}
	if got := creditsBalance(t, database, 1); got != 0 {
		t.Errorf("credits balance = %d, want 0 for an unsettled booking", got)
	}
}

func TestModify_CancelledRejected(t *testing.T) {
	engine, _, database := newTestEngine(t)
	seedCredits(t, database, 1, 100)
	created := mustCreate(t, engine, defaultCreate(1))
	if _, err := engine.Cancel(context.Background(), created.ID, 1); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := engine.Modify(context.Background(), ModifyParams{
		BookingID: created.ID,
		UserID:    1,
		StartHour: intPtr(16),
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}
