package booking

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	appdb "github.com/arenahq/courtledger/internal/db"
	"github.com/arenahq/courtledger/internal/ledger"
	"github.com/arenahq/courtledger/internal/store"
)

// CreateParams is a booking request. The caller's identity is explicit;
// any client-side availability snapshot is ignored and re-derived here.
type CreateParams struct {
	UserID        int64
	Sport         string
	Date          string
	StartHour     int
	DurationHours int
	CourtIDs      []int64
	PaymentMethod string
}

// Create validates the slot against the live clock and existing bookings,
// then commits the new booking in one transaction. Payment by credits
// charges and confirms inside the same transaction; bank transfer leaves
// the booking pending until an admin approves the payment proof.
//
// Two concurrent requests for the same slot cannot both succeed: the
// conflict check and insert share a serialized transaction, and the
// store's unique live-slot index backstops it.
func (e *Engine) Create(ctx context.Context, p CreateParams) (*Booking, error) {
	if err := e.validateCreate(&p); err != nil {
		return nil, err
	}

	// Re-validate legality at commit time, never trusting a previously
	// fetched slot table.
	if !e.slotLegal(p.Date, p.StartHour, p.DurationHours, e.cfg.CreateBufferMinutes) {
		return nil, ErrSlotIllegal
	}

	groupID := uuid.New().String()
	now := e.clock.Now()
	pricePerCourt := e.catalog.RatePerHour(p.Sport) * int64(p.DurationHours)

	status := StatusPending
	paymentStatus := PaymentUnpaid
	if p.PaymentMethod == MethodBankTransfer {
		paymentStatus = PaymentAwaitingProof
	}

	err := e.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries

		occupied, err := e.occupancyForDate(ctx, q, p.Date, "")
		if err != nil {
			return fmt.Errorf("checking occupancy: %w", err)
		}
		var taken []int64
		for _, courtID := range p.CourtIDs {
			if !occupied.free(courtID, p.StartHour, p.DurationHours) {
				taken = append(taken, courtID)
			}
		}
		if len(taken) > 0 {
			return ConflictError{CourtIDs: taken}
		}

		var headID int64
		for i, courtID := range p.CourtIDs {
			row, err := q.CreateBooking(ctx, store.CreateBookingParams{
				GroupID:       groupID,
				UserID:        p.UserID,
				Sport:         p.Sport,
				CourtID:       courtID,
				Date:          p.Date,
				StartHour:     p.StartHour,
				DurationHours: p.DurationHours,
				Status:        status,
				PaymentStatus: paymentStatus,
				PaymentMethod: p.PaymentMethod,
				TotalPrice:    pricePerCourt,
				CreatedAt:     now,
			})
			if err != nil {
				if store.IsUniqueViolation(err) {
					return ConflictError{CourtIDs: []int64{courtID}}
				}
				return fmt.Errorf("inserting booking: %w", err)
			}
			if i == 0 {
				headID = row.ID
			}
		}

		if p.PaymentMethod == MethodCredits {
			total := pricePerCourt * int64(len(p.CourtIDs))
			if _, err := ledger.Debit(ctx, q, ledger.EntryParams{
				UserID:    p.UserID,
				Kind:      ledger.KindCredits,
				Amount:    total,
				Reason:    ledger.ReasonSpent,
				BookingID: sql.NullInt64{Int64: headID, Valid: true},
				At:        now,
			}); err != nil {
				return err
			}
			if err := q.UpdateBookingStatusByGroup(ctx, store.UpdateBookingStatusByGroupParams{
				GroupID:       groupID,
				Status:        StatusConfirmed,
				PaymentStatus: PaymentPaid,
				UpdatedAt:     now,
			}); err != nil {
				return fmt.Errorf("confirming booking: %w", err)
			}
			if err := e.awardPoints(ctx, q, p.UserID, headID, p.DurationHours); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return e.Get(ctx, groupID)
}

func (e *Engine) validateCreate(p *CreateParams) error {
	if p.UserID <= 0 {
		return ValidationError{Field: "user_id", Reason: "required"}
	}
	if _, err := e.clock.ParseDate(p.Date); err != nil {
		return ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	if p.DurationHours < 1 || p.DurationHours > 5 {
		return ValidationError{Field: "duration_hours", Reason: "must be 1-5 hours"}
	}
	if p.StartHour < 0 || p.StartHour > 23 {
		return ValidationError{Field: "start_hour", Reason: "must be 0-23"}
	}
	if p.PaymentMethod != MethodCredits && p.PaymentMethod != MethodBankTransfer {
		return ValidationError{Field: "payment_method", Reason: "must be credits or bank_transfer"}
	}
	if len(p.CourtIDs) == 0 {
		return ValidationError{Field: "court_ids", Reason: "at least one court is required"}
	}
	if _, err := e.resolveCourts(p.Sport, p.CourtIDs); err != nil {
		return err
	}
	return nil
}

// awardPoints grants the loyalty bonus that accompanies a confirmation.
func (e *Engine) awardPoints(ctx context.Context, q *store.Queries, userID, bookingRowID int64, durationHours int) error {
	if e.points <= 0 {
		return nil
	}
	_, err := ledger.Credit(ctx, q, ledger.EntryParams{
		UserID:    userID,
		Kind:      ledger.KindPoints,
		Amount:    e.points * int64(durationHours),
		Reason:    ledger.ReasonBonus,
		BookingID: sql.NullInt64{Int64: bookingRowID, Valid: true},
		At:        e.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("awarding points: %w", err)
	}
	return nil
}
