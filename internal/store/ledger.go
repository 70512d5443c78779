package store

import (
	"context"
	"database/sql"
	"time"
)

const getAccount = `
SELECT id, user_id, kind, balance
FROM ledger_accounts
WHERE user_id = ? AND kind = ?
`

func (q *Queries) GetAccount(ctx context.Context, userID int64, kind string) (LedgerAccount, error) {
	var a LedgerAccount
	err := q.db.QueryRowContext(ctx, getAccount, userID, kind).
		Scan(&a.ID, &a.UserID, &a.Kind, &a.Balance)
	return a, err
}

const createAccount = `
INSERT INTO ledger_accounts (user_id, kind, balance)
VALUES (?, ?, 0)
`

// GetOrCreateAccount returns the account row, creating a zero-balance row
// on first touch.
func (q *Queries) GetOrCreateAccount(ctx context.Context, userID int64, kind string) (LedgerAccount, error) {
	account, err := q.GetAccount(ctx, userID, kind)
	if err == nil {
		return account, nil
	}
	if err != sql.ErrNoRows {
		return LedgerAccount{}, err
	}
	if _, err := q.db.ExecContext(ctx, createAccount, userID, kind); err != nil {
		return LedgerAccount{}, err
	}
	return q.GetAccount(ctx, userID, kind)
}

const updateAccountBalance = `
UPDATE ledger_accounts
SET balance = ?
WHERE user_id = ? AND kind = ?
`

func (q *Queries) UpdateAccountBalance(ctx context.Context, userID int64, kind string, balance int64) error {
	_, err := q.db.ExecContext(ctx, updateAccountBalance, balance, userID, kind)
	return err
}

type InsertLedgerEntryParams struct {
	UserID     int64
	Kind       string
	Amount     int64
	Reason     string
	BookingID  sql.NullInt64
	PurchaseID sql.NullInt64
	CreatedAt  time.Time
}

const insertLedgerEntry = `
INSERT INTO ledger_entries (user_id, kind, amount, reason, booking_id, purchase_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertLedgerEntry(ctx context.Context, arg InsertLedgerEntryParams) (LedgerEntry, error) {
	result, err := q.db.ExecContext(ctx, insertLedgerEntry,
		arg.UserID, arg.Kind, arg.Amount, arg.Reason,
		arg.BookingID, arg.PurchaseID, arg.CreatedAt)
	if err != nil {
		return LedgerEntry{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return LedgerEntry{}, err
	}
	return LedgerEntry{
		ID:         id,
		UserID:     arg.UserID,
		Kind:       arg.Kind,
		Amount:     arg.Amount,
		Reason:     arg.Reason,
		BookingID:  arg.BookingID,
		PurchaseID: arg.PurchaseID,
		CreatedAt:  arg.CreatedAt,
	}, nil
}

const sumLedgerEntries = `
SELECT COALESCE(SUM(amount), 0)
FROM ledger_entries
WHERE user_id = ? AND kind = ?
`

// SumLedgerEntries folds the append-only log; it must always agree with
// the balance column.
func (q *Queries) SumLedgerEntries(ctx context.Context, userID int64, kind string) (int64, error) {
	var sum int64
	err := q.db.QueryRowContext(ctx, sumLedgerEntries, userID, kind).Scan(&sum)
	return sum, err
}

const listLedgerEntries = `
SELECT id, user_id, kind, amount, reason, booking_id, purchase_id, created_at
FROM ledger_entries
WHERE user_id = ? AND kind = ?
ORDER BY id
`

func (q *Queries) ListLedgerEntries(ctx context.Context, userID int64, kind string) ([]LedgerEntry, error) {
	rows, err := q.db.QueryContext(ctx, listLedgerEntries, userID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.Amount, &e.Reason,
			&e.BookingID, &e.PurchaseID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
