// Package booking is the scheduling core: it decides which slots are
// offerable, serializes slot occupancy so no two live bookings share a
// (court, date, hour), and drives each booking through its lifecycle as
// payment and administrative events arrive.
package booking

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arenahq/courtledger/internal/catalog"
	"github.com/arenahq/courtledger/internal/clock"
	"github.com/arenahq/courtledger/internal/config"
	appdb "github.com/arenahq/courtledger/internal/db"
	"github.com/arenahq/courtledger/internal/store"
)

// Engine wires the catalog, facility clock, and store together. All of
// its operations take the acting user explicitly; nothing is ambient.
type Engine struct {
	db      *appdb.DB
	catalog *catalog.Catalog
	clock   *clock.Facility
	cfg     config.BookingConfig
	points  int64 // points earned per booked hour on confirmation
}

func NewEngine(database *appdb.DB, cat *catalog.Catalog, fclock *clock.Facility, cfg config.BookingConfig, pointsPerHour int64) *Engine {
	return &Engine{
		db:      database,
		catalog: cat,
		clock:   fclock,
		cfg:     cfg,
		points:  pointsPerHour,
	}
}

// Get returns one booking by id with its status derived against the
// current clock.
func (e *Engine) Get(ctx context.Context, bookingID string) (*Booking, error) {
	rows, err := e.db.Queries.ListBookingsByGroup(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	b, _ := assemble(rows)
	e.deriveStatus(&b)
	return &b, nil
}

// ListForUser returns a user's bookings, newest first, statuses derived.
func (e *Engine) ListForUser(ctx context.Context, userID int64) ([]Booking, error) {
	rows, err := e.db.Queries.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	byGroup := make(map[string][]store.Booking)
	var order []string
	for _, row := range rows {
		if _, seen := byGroup[row.GroupID]; !seen {
			order = append(order, row.GroupID)
		}
		byGroup[row.GroupID] = append(byGroup[row.GroupID], row)
	}

	bookings := make([]Booking, 0, len(order))
	for _, groupID := range order {
		b, _ := assemble(byGroup[groupID])
		e.deriveStatus(&b)
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// deriveStatus applies the lazy confirmed -> completed transition. No
// process ever wakes up to perform it; it happens at read time.
func (e *Engine) deriveStatus(b *Booking) {
	if b.Status != StatusConfirmed {
		return
	}
	if !e.clock.Now().Before(b.end(e.clock.Location())) {
		b.Status = StatusCompleted
	}
}

// loadGroup fetches a booking's rows through the given queries handle,
// so lifecycle checks can run against the transaction's snapshot.
func loadGroup(ctx context.Context, q *store.Queries, bookingID string) ([]store.Booking, error) {
	rows, err := q.ListBookingsByGroup(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows, nil
}
