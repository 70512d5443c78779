package booking

import (
	"time"

	"github.com/arenahq/courtledger/internal/store"
)

// Booking statuses. Completed is never stored eagerly; it is derived from
// the clock whenever a confirmed booking is read past its end time.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Payment statuses.
const (
	PaymentUnpaid        = "unpaid"
	PaymentAwaitingProof = "awaiting_proof"
	PaymentPaid          = "paid"
	PaymentRefunded      = "refunded"
)

// Payment methods.
const (
	MethodCredits      = "credits"
	MethodBankTransfer = "bank_transfer"
)

// Booking is one reservation as callers see it: a group of slot rows, one
// per court, collapsed into a single unit with a summed price.
type Booking struct {
	ID                string    `json:"id"`
	UserID            int64     `json:"user_id"`
	Sport             string    `json:"sport"`
	CourtIDs          []int64   `json:"court_ids"`
	Date              string    `json:"date"`
	StartHour         int       `json:"start_hour"`
	DurationHours     int       `json:"duration_hours"`
	Status            string    `json:"status"`
	PaymentStatus     string    `json:"payment_status"`
	PaymentMethod     string    `json:"payment_method"`
	TotalPrice        int64     `json:"total_price"`
	ModificationCount int       `json:"modification_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Slot is the availability table's per-hour cell. Never persisted.
type Slot struct {
	StartHour  int     `json:"start_hour"`
	Legal      bool    `json:"legal"`
	FreeCourts []int64 `json:"free_courts"`
	FreeCount  int     `json:"free_count"`
}

// start returns the facility-zone instant the booking begins.
func (b *Booking) start(loc *time.Location) time.Time {
	day, _ := time.ParseInLocation("2006-01-02", b.Date, loc)
	return day.Add(time.Duration(b.StartHour) * time.Hour)
}

// end returns the facility-zone instant the booking ends.
func (b *Booking) end(loc *time.Location) time.Time {
	return b.start(loc).Add(time.Duration(b.DurationHours) * time.Hour)
}

// assemble collapses a group's rows into one Booking. Rows cancelled by a
// court-shrinking modification are ignored as long as live rows remain.
func assemble(rows []store.Booking) (Booking, []store.Booking) {
	live := make([]store.Booking, 0, len(rows))
	for _, row := range rows {
		if row.Status != StatusCancelled {
			live = append(live, row)
		}
	}
	if len(live) == 0 {
		live = rows
	}

	head := live[0]
	b := Booking{
		ID:                head.GroupID,
		UserID:            head.UserID,
		Sport:             head.Sport,
		Date:              head.Date,
		StartHour:         head.StartHour,
		DurationHours:     head.DurationHours,
		Status:            head.Status,
		PaymentStatus:     head.PaymentStatus,
		PaymentMethod:     head.PaymentMethod,
		ModificationCount: head.ModificationCount,
		CreatedAt:         head.CreatedAt,
		UpdatedAt:         head.UpdatedAt,
	}
	for _, row := range live {
		b.CourtIDs = append(b.CourtIDs, row.CourtID)
		b.TotalPrice += row.TotalPrice
		if row.UpdatedAt.After(b.UpdatedAt) {
			b.UpdatedAt = row.UpdatedAt
		}
	}
	return b, live
}
