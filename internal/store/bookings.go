package store

import (
	"context"
	"time"
)

const bookingColumns = `id, group_id, user_id, sport, court_id, date, start_hour,
	duration_hours, status, payment_status, payment_method, total_price,
	modification_count, created_at, updated_at`

func scanBooking(row interface{ Scan(...interface{}) error }) (Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID, &b.GroupID, &b.UserID, &b.Sport, &b.CourtID, &b.Date,
		&b.StartHour, &b.DurationHours, &b.Status, &b.PaymentStatus,
		&b.PaymentMethod, &b.TotalPrice, &b.ModificationCount,
		&b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

type CreateBookingParams struct {
	GroupID       string
	UserID        int64
	Sport         string
	CourtID       int64
	Date          string
	StartHour     int
	DurationHours int
	Status        string
	PaymentStatus string
	PaymentMethod string
	TotalPrice    int64
	CreatedAt     time.Time
}

const createBooking = `
INSERT INTO bookings (
	group_id, user_id, sport, court_id, date, start_hour, duration_hours,
	status, payment_status, payment_method, total_price, modification_count,
	created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
`

func (q *Queries) CreateBooking(ctx context.Context, arg CreateBookingParams) (Booking, error) {
	result, err := q.db.ExecContext(ctx, createBooking,
		arg.GroupID, arg.UserID, arg.Sport, arg.CourtID, arg.Date,
		arg.StartHour, arg.DurationHours, arg.Status, arg.PaymentStatus,
		arg.PaymentMethod, arg.TotalPrice, arg.CreatedAt, arg.CreatedAt,
	)
	if err != nil {
		return Booking{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Booking{}, err
	}
	return q.GetBooking(ctx, id)
}

const getBooking = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE id = ?
`

func (q *Queries) GetBooking(ctx context.Context, id int64) (Booking, error) {
	return scanBooking(q.db.QueryRowContext(ctx, getBooking, id))
}

const listBookingsByGroup = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE group_id = ?
ORDER BY court_id
`

func (q *Queries) ListBookingsByGroup(ctx context.Context, groupID string) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listBookingsByGroup, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

const listBookingsByUser = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE user_id = ?
ORDER BY date DESC, start_hour DESC, id DESC
`

func (q *Queries) ListBookingsByUser(ctx context.Context, userID int64) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listBookingsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

// listLiveBookingsByDate returns every slot-holding booking on a date.
// The inventory is six courts; callers filter by court in memory.
const listLiveBookingsByDate = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE date = ? AND status IN ('pending', 'confirmed')
ORDER BY court_id, start_hour
`

func (q *Queries) ListLiveBookingsByDate(ctx context.Context, date string) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listLiveBookingsByDate, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

type UpdateBookingStatusParams struct {
	ID            int64
	Status        string
	PaymentStatus string
	UpdatedAt     time.Time
}

const updateBookingStatus = `
UPDATE bookings
SET status = ?, payment_status = ?, updated_at = ?
WHERE id = ?
`

func (q *Queries) UpdateBookingStatus(ctx context.Context, arg UpdateBookingStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateBookingStatus,
		arg.Status, arg.PaymentStatus, arg.UpdatedAt, arg.ID)
	return err
}

type UpdateBookingStatusByGroupParams struct {
	GroupID       string
	Status        string
	PaymentStatus string
	UpdatedAt     time.Time
}

// Rows already cancelled (e.g. surplus rows released by a shrinking
// modification) stay cancelled; a group-wide confirm must not resurrect
// them as slot holders.
const updateBookingStatusByGroup = `
UPDATE bookings
SET status = ?, payment_status = ?, updated_at = ?
WHERE group_id = ? AND status != 'cancelled'
`

func (q *Queries) UpdateBookingStatusByGroup(ctx context.Context, arg UpdateBookingStatusByGroupParams) error {
	_, err := q.db.ExecContext(ctx, updateBookingStatusByGroup,
		arg.Status, arg.PaymentStatus, arg.UpdatedAt, arg.GroupID)
	return err
}

type UpdateBookingSlotParams struct {
	ID                int64
	Sport             string
	CourtID           int64
	Date              string
	StartHour         int
	DurationHours     int
	TotalPrice        int64
	ModificationCount int
	UpdatedAt         time.Time
}

const updateBookingSlot = `
UPDATE bookings
SET sport = ?, court_id = ?, date = ?, start_hour = ?, duration_hours = ?,
	total_price = ?, modification_count = ?, updated_at = ?
WHERE id = ?
`

func (q *Queries) UpdateBookingSlot(ctx context.Context, arg UpdateBookingSlotParams) error {
	_, err := q.db.ExecContext(ctx, updateBookingSlot,
		arg.Sport, arg.CourtID, arg.Date, arg.StartHour, arg.DurationHours,
		arg.TotalPrice, arg.ModificationCount, arg.UpdatedAt, arg.ID)
	return err
}

type ListStalePendingBookingsParams struct {
	PaymentStatus string
	CreatedBefore time.Time
}

const listStalePendingBookings = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE status = 'pending' AND payment_status = ? AND created_at < ?
ORDER BY id
`

// ListStalePendingBookings feeds the TTL sweep.
func (q *Queries) ListStalePendingBookings(ctx context.Context, arg ListStalePendingBookingsParams) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listStalePendingBookings,
		arg.PaymentStatus, arg.CreatedBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func collectBookings(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
}) ([]Booking, error) {
	var bookings []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
