package booking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	appdb "github.com/arenahq/courtledger/internal/db"
	"github.com/arenahq/courtledger/internal/ledger"
	"github.com/arenahq/courtledger/internal/store"
)

// ModifyParams carries the fields a modification wants to change; nil
// means keep the current value. A nil CourtIDs keeps the current courts.
type ModifyParams struct {
	BookingID     string
	UserID        int64
	Sport         *string
	Date          *string
	StartHour     *int
	DurationHours *int
	CourtIDs      []int64
}

// Modify reschedules a booking. Preconditions, in order: the booking has
// modifications left, the original start is still more than the lockout
// window away, and the target slot is legal and free with the booking
// excluded from its own conflict check. The price delta settles through
// the ledger in the same transaction; if that fails nothing changes.
func (e *Engine) Modify(ctx context.Context, p ModifyParams) (*Booking, error) {
	err := e.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries
		rows, err := loadGroup(ctx, q, p.BookingID)
		if err != nil {
			return err
		}
		current, live := assemble(rows)
		if current.UserID != p.UserID {
			return ErrNotFound
		}
		e.deriveStatus(&current)
		if current.Status != StatusPending && current.Status != StatusConfirmed {
			return fmt.Errorf("%w: cannot modify a %s booking", ErrInvalidTransition, current.Status)
		}
		if current.ModificationCount >= e.cfg.MaxModifications {
			return ErrModificationLimit
		}

		// The lockout guards the original start, independent of the
		// proposed new time.
		lockout := time.Duration(e.cfg.ModifyBufferMinutes) * time.Minute
		if !e.clock.Now().Before(current.start(e.clock.Location()).Add(-lockout)) {
			return ErrTooCloseToStart
		}

		target := applyChanges(current, p)
		if _, err := e.clock.ParseDate(target.Date); err != nil {
			return ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
		}
		if target.DurationHours < 1 || target.DurationHours > 5 {
			return ValidationError{Field: "duration_hours", Reason: "must be 1-5 hours"}
		}
		if _, err := e.resolveCourts(target.Sport, target.CourtIDs); err != nil {
			return err
		}
		if !e.slotLegal(target.Date, target.StartHour, target.DurationHours, e.cfg.ModifyBufferMinutes) {
			return ErrSlotIllegal
		}

		occupied, err := e.occupancyForDate(ctx, q, target.Date, current.ID)
		if err != nil {
			return fmt.Errorf("checking occupancy: %w", err)
		}
		var taken []int64
		for _, courtID := range target.CourtIDs {
			if !occupied.free(courtID, target.StartHour, target.DurationHours) {
				taken = append(taken, courtID)
			}
		}
		if len(taken) > 0 {
			return ConflictError{CourtIDs: taken}
		}

		newPrice := e.catalog.RatePerHour(target.Sport) *
			int64(target.DurationHours) * int64(len(target.CourtIDs))
		delta := newPrice - current.TotalPrice

		// The delta settles in credits only when the booking was actually
		// charged; an unsettled booking just carries the new total for
		// its eventual payment.
		if current.PaymentStatus == PaymentPaid {
			ref := sql.NullInt64{Int64: live[0].ID, Valid: true}
			switch {
			case delta > 0:
				if _, err := ledger.Debit(ctx, q, ledger.EntryParams{
					UserID:    current.UserID,
					Kind:      ledger.KindCredits,
					Amount:    delta,
					Reason:    ledger.ReasonSpent,
					BookingID: ref,
					At:        e.clock.Now(),
				}); err != nil {
					return err
				}
			case delta < 0:
				if _, err := ledger.Credit(ctx, q, ledger.EntryParams{
					UserID:    current.UserID,
					Kind:      ledger.KindCredits,
					Amount:    -delta,
					Reason:    ledger.ReasonRefunded,
					BookingID: ref,
					At:        e.clock.Now(),
				}); err != nil {
					return err
				}
			}
		}

		return e.rewriteGroup(ctx, q, current, live, target)
	})
	if err != nil {
		return nil, err
	}
	return e.Get(ctx, p.BookingID)
}

// targetSlot is the fully resolved post-modification shape.
type targetSlot struct {
	Sport         string
	Date          string
	StartHour     int
	DurationHours int
	CourtIDs      []int64
}

func applyChanges(current Booking, p ModifyParams) targetSlot {
	target := targetSlot{
		Sport:         current.Sport,
		Date:          current.Date,
		StartHour:     current.StartHour,
		DurationHours: current.DurationHours,
		CourtIDs:      current.CourtIDs,
	}
	if p.Sport != nil {
		target.Sport = *p.Sport
	}
	if p.Date != nil {
		target.Date = *p.Date
	}
	if p.StartHour != nil {
		target.StartHour = *p.StartHour
	}
	if p.DurationHours != nil {
		target.DurationHours = *p.DurationHours
	}
	if p.CourtIDs != nil {
		target.CourtIDs = p.CourtIDs
	}
	return target
}

// rewriteGroup updates the group's rows to the target slot. Rows keep
// their court when it survives the change; dropped courts hand their row
// to added courts; a shrinking court set cancels the surplus rows, a
// growing one inserts new rows. Row churn stays in the transaction.
func (e *Engine) rewriteGroup(ctx context.Context, q *store.Queries, current Booking, live []store.Booking, target targetSlot) error {
	now := e.clock.Now()
	newCount := current.ModificationCount + 1
	pricePerCourt := e.catalog.RatePerHour(target.Sport) * int64(target.DurationHours)

	newSet := make(map[int64]struct{}, len(target.CourtIDs))
	for _, id := range target.CourtIDs {
		newSet[id] = struct{}{}
	}

	var freeRows []store.Booking
	assigned := make(map[int64]store.Booking) // courtID -> row keeping it
	for _, row := range live {
		if _, keep := newSet[row.CourtID]; keep {
			assigned[row.CourtID] = row
		} else {
			freeRows = append(freeRows, row)
		}
	}

	update := func(row store.Booking, courtID int64) error {
		err := q.UpdateBookingSlot(ctx, store.UpdateBookingSlotParams{
			ID:                row.ID,
			Sport:             target.Sport,
			CourtID:           courtID,
			Date:              target.Date,
			StartHour:         target.StartHour,
			DurationHours:     target.DurationHours,
			TotalPrice:        pricePerCourt,
			ModificationCount: newCount,
			UpdatedAt:         now,
		})
		if err != nil && store.IsUniqueViolation(err) {
			return ConflictError{CourtIDs: []int64{courtID}}
		}
		return err
	}

	for _, courtID := range target.CourtIDs {
		if row, ok := assigned[courtID]; ok {
			if err := update(row, courtID); err != nil {
				return err
			}
			continue
		}
		if len(freeRows) > 0 {
			row := freeRows[0]
			freeRows = freeRows[1:]
			if err := update(row, courtID); err != nil {
				return err
			}
			continue
		}
		_, err := q.CreateBooking(ctx, store.CreateBookingParams{
			GroupID:       current.ID,
			UserID:        current.UserID,
			Sport:         target.Sport,
			CourtID:       courtID,
			Date:          target.Date,
			StartHour:     target.StartHour,
			DurationHours: target.DurationHours,
			Status:        current.Status,
			PaymentStatus: current.PaymentStatus,
			PaymentMethod: current.PaymentMethod,
			TotalPrice:    pricePerCourt,
			CreatedAt:     now,
		})
		if err != nil {
			if store.IsUniqueViolation(err) {
				return ConflictError{CourtIDs: []int64{courtID}}
			}
			return fmt.Errorf("inserting booking row: %w", err)
		}
	}

	// Surplus rows no longer hold a slot.
	for _, row := range freeRows {
		if err := q.UpdateBookingStatus(ctx, store.UpdateBookingStatusParams{
			ID:            row.ID,
			Status:        StatusCancelled,
			PaymentStatus: row.PaymentStatus,
			UpdatedAt:     now,
		}); err != nil {
			return fmt.Errorf("releasing booking row: %w", err)
		}
	}

	// Inserted rows start at modification_count 0; bring the whole group
	// to the same counter so the limit reads consistently.
	return e.syncModificationCount(ctx, q, current.ID, newCount, now)
}

func (e *Engine) syncModificationCount(ctx context.Context, q *store.Queries, groupID string, count int, now time.Time) error {
	rows, err := q.ListBookingsByGroup(ctx, groupID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.Status == StatusCancelled || row.ModificationCount == count {
			continue
		}
		if err := q.UpdateBookingSlot(ctx, store.UpdateBookingSlotParams{
			ID:                row.ID,
			Sport:             row.Sport,
			CourtID:           row.CourtID,
			Date:              row.Date,
			StartHour:         row.StartHour,
			DurationHours:     row.DurationHours,
			TotalPrice:        row.TotalPrice,
			ModificationCount: count,
			UpdatedAt:         now,
		}); err != nil {
			return err
		}
	}
	return nil
}
