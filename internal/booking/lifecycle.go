package booking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	appdb "github.com/arenahq/courtledger/internal/db"
	"github.com/arenahq/courtledger/internal/ledger"
	"github.com/arenahq/courtledger/internal/store"
)

// Cancel moves a booking to cancelled on behalf of its owner. Only future
// bookings can be cancelled; credits already charged come back as a
// refund entry. Cancellation is a status transition, never a delete.
func (e *Engine) Cancel(ctx context.Context, bookingID string, userID int64) (*Booking, error) {
	err := e.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries
		rows, err := loadGroup(ctx, q, bookingID)
		if err != nil {
			return err
		}
		b, _ := assemble(rows)
		if b.UserID != userID {
			return ErrNotFound
		}
		return e.cancelLocked(ctx, q, &b, rows)
	})
	if err != nil {
		return nil, err
	}
	return e.Get(ctx, bookingID)
}

// DecidePaymentProof applies an administrative decision on a booking's
// externally supplied payment proof. Approval confirms the booking;
// rejection cancels it, refunding any credits already charged.
func (e *Engine) DecidePaymentProof(ctx context.Context, bookingID string, approved bool) (*Booking, error) {
	now := e.clock.Now()
	err := e.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries
		rows, err := loadGroup(ctx, q, bookingID)
		if err != nil {
			return err
		}
		b, live := assemble(rows)
		e.deriveStatus(&b)

		if !approved {
			return e.cancelLocked(ctx, q, &b, rows)
		}

		if b.Status != StatusPending {
			return fmt.Errorf("%w: cannot confirm a %s booking", ErrInvalidTransition, b.Status)
		}
		if err := q.UpdateBookingStatusByGroup(ctx, store.UpdateBookingStatusByGroupParams{
			GroupID:       b.ID,
			Status:        StatusConfirmed,
			PaymentStatus: PaymentPaid,
			UpdatedAt:     now,
		}); err != nil {
			return fmt.Errorf("confirming booking: %w", err)
		}
		return e.awardPoints(ctx, q, b.UserID, live[0].ID, b.DurationHours)
	})
	if err != nil {
		return nil, err
	}
	return e.Get(ctx, bookingID)
}

// cancelLocked performs the pending|confirmed -> cancelled transition
// inside the caller's transaction. Attempting it from a terminal state,
// or once the start time has passed, is an InvalidTransition surfaced to
// the caller, never silently ignored.
func (e *Engine) cancelLocked(ctx context.Context, q *store.Queries, b *Booking, rows []store.Booking) error {
	e.deriveStatus(b)
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return fmt.Errorf("%w: cannot cancel a %s booking", ErrInvalidTransition, b.Status)
	}
	now := e.clock.Now()
	if !now.Before(b.start(e.clock.Location())) {
		return fmt.Errorf("%w: booking has already started", ErrInvalidTransition)
	}

	paymentStatus := b.PaymentStatus
	if b.PaymentStatus == PaymentPaid {
		// Refunds are always credits, never cash.
		if _, err := ledger.Credit(ctx, q, ledger.EntryParams{
			UserID:    b.UserID,
			Kind:      ledger.KindCredits,
			Amount:    b.TotalPrice,
			Reason:    ledger.ReasonRefunded,
			BookingID: sql.NullInt64{Int64: rows[0].ID, Valid: true},
			At:        now,
		}); err != nil {
			return err
		}
		paymentStatus = PaymentRefunded
	}

	if err := q.UpdateBookingStatusByGroup(ctx, store.UpdateBookingStatusByGroupParams{
		GroupID:       b.ID,
		Status:        StatusCancelled,
		PaymentStatus: paymentStatus,
		UpdatedAt:     now,
	}); err != nil {
		return fmt.Errorf("cancelling booking: %w", err)
	}
	return nil
}

// ExpireStale cancels pending bookings whose payment never arrived: an
// unpaid credits remnant after UnpaidTTL, an awaiting-proof booking after
// AwaitingProofTTL. Called by the scheduler sweep; the engine itself
// never runs a timer.
func (e *Engine) ExpireStale(ctx context.Context) (int, error) {
	expired := 0
	for _, policy := range []struct {
		paymentStatus string
		ttl           time.Duration
	}{
		{PaymentUnpaid, time.Duration(e.cfg.UnpaidTTLMinutes) * time.Minute},
		{PaymentAwaitingProof, time.Duration(e.cfg.AwaitingProofTTLMinutes) * time.Minute},
	} {
		if policy.ttl <= 0 {
			continue
		}
		n, err := e.expireStaleByStatus(ctx, policy.paymentStatus, policy.ttl)
		expired += n
		if err != nil {
			return expired, err
		}
	}
	return expired, nil
}

func (e *Engine) expireStaleByStatus(ctx context.Context, paymentStatus string, ttl time.Duration) (int, error) {
	cutoff := e.clock.Now().Add(-ttl)
	stale, err := e.db.Queries.ListStalePendingBookings(ctx, store.ListStalePendingBookingsParams{
		PaymentStatus: paymentStatus,
		CreatedBefore: cutoff,
	})
	if err != nil {
		return 0, fmt.Errorf("listing stale bookings: %w", err)
	}

	seen := make(map[string]struct{})
	expired := 0
	for _, row := range stale {
		if _, done := seen[row.GroupID]; done {
			continue
		}
		seen[row.GroupID] = struct{}{}

		err := e.db.RunInTx(ctx, func(txdb *appdb.DB) error {
			q := txdb.Queries
			rows, err := loadGroup(ctx, q, row.GroupID)
			if err != nil {
				return err
			}
			b, _ := assemble(rows)
			return e.cancelLocked(ctx, q, &b, rows)
		})
		if err != nil {
			// A booking that started while stale is past cancelling;
			// leave it for the lazy completed/abandoned read path.
			log.Ctx(ctx).Warn().
				Err(err).
				Str("booking_id", row.GroupID).
				Msg("Failed to expire stale booking")
			continue
		}
		expired++
	}
	return expired, nil
}
