package store

import (
	"database/sql"
	"time"
)

type Court struct {
	ID     int64
	Sport  string
	Label  string
	Active bool
}

type Booking struct {
	ID                int64
	GroupID           string
	UserID            int64
	Sport             string
	CourtID           int64
	Date              string // facility-zone calendar day, YYYY-MM-DD
	StartHour         int
	DurationHours     int
	Status            string
	PaymentStatus     string
	PaymentMethod     string
	TotalPrice        int64
	ModificationCount int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type LedgerAccount struct {
	ID      int64
	UserID  int64
	Kind    string
	Balance int64
}

type LedgerEntry struct {
	ID         int64
	UserID     int64
	Kind       string
	Amount     int64
	Reason     string
	BookingID  sql.NullInt64
	PurchaseID sql.NullInt64
	CreatedAt  time.Time
}

type PurchaseRequest struct {
	ID        int64
	UserID    int64
	Amount    int64
	Status    string
	CreatedAt time.Time
	DecidedAt sql.NullTime
}
