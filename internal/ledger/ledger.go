// Package ledger maintains the two per-user balances (spendable credits,
// earned points) and their append-only transaction logs.
//
// Entries are immutable; a correction is an offsetting entry, never an
// edit. The cached balance column and the fold over entries must always
// agree, and Reconcile exposes both so tests can assert it.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arenahq/courtledger/internal/store"
)

// Account kinds.
const (
	KindCredits = "credits"
	KindPoints  = "points"
)

// Entry reasons.
const (
	ReasonEarned    = "earned"
	ReasonSpent     = "spent"
	ReasonPurchased = "purchased"
	ReasonRefunded  = "refunded"
	ReasonBonus     = "bonus"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrUnknownKind       = errors.New("unknown account kind")
	ErrPurchaseNotFound  = errors.New("purchase request not found")
	ErrPurchaseDecided   = errors.New("purchase request already decided")
)

// ValidKind reports whether kind names a real account kind.
func ValidKind(kind string) bool {
	return kind == KindCredits || kind == KindPoints
}

// EntryParams describes one balance-affecting event. Amount is always the
// positive magnitude; Debit and Credit choose the sign.
type EntryParams struct {
	UserID     int64
	Kind       string
	Amount     int64
	Reason     string
	BookingID  sql.NullInt64
	PurchaseID sql.NullInt64
	At         time.Time
}

func (p EntryParams) validate() error {
	if !ValidKind(p.Kind) {
		return fmt.Errorf("%w: %q", ErrUnknownKind, p.Kind)
	}
	if p.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Debit subtracts Amount from the account inside the caller's transaction.
// The balance check and the append happen against the same snapshot, so a
// concurrent spend cannot slip past a stale balance.
func Debit(ctx context.Context, q *store.Queries, p EntryParams) (store.LedgerEntry, error) {
	if err := p.validate(); err != nil {
		return store.LedgerEntry{}, err
	}
	account, err := q.GetOrCreateAccount(ctx, p.UserID, p.Kind)
	if err != nil {
		return store.LedgerEntry{}, fmt.Errorf("loading account: %w", err)
	}
	if account.Balance < p.Amount {
		return store.LedgerEntry{}, ErrInsufficientFunds
	}
	entry, err := q.InsertLedgerEntry(ctx, store.InsertLedgerEntryParams{
		UserID:     p.UserID,
		Kind:       p.Kind,
		Amount:     -p.Amount,
		Reason:     p.Reason,
		BookingID:  p.BookingID,
		PurchaseID: p.PurchaseID,
		CreatedAt:  p.At,
	})
	if err != nil {
		return store.LedgerEntry{}, fmt.Errorf("appending entry: %w", err)
	}
	if err := q.UpdateAccountBalance(ctx, p.UserID, p.Kind, account.Balance-p.Amount); err != nil {
		return store.LedgerEntry{}, fmt.Errorf("updating balance: %w", err)
	}
	return entry, nil
}

// Credit adds Amount to the account inside the caller's transaction.
func Credit(ctx context.Context, q *store.Queries, p EntryParams) (store.LedgerEntry, error) {
	if err := p.validate(); err != nil {
		return store.LedgerEntry{}, err
	}
	account, err := q.GetOrCreateAccount(ctx, p.UserID, p.Kind)
	if err != nil {
		return store.LedgerEntry{}, fmt.Errorf("loading account: %w", err)
	}
	entry, err := q.InsertLedgerEntry(ctx, store.InsertLedgerEntryParams{
		UserID:     p.UserID,
		Kind:       p.Kind,
		Amount:     p.Amount,
		Reason:     p.Reason,
		BookingID:  p.BookingID,
		PurchaseID: p.PurchaseID,
		CreatedAt:  p.At,
	})
	if err != nil {
		return store.LedgerEntry{}, fmt.Errorf("appending entry: %w", err)
	}
	if err := q.UpdateAccountBalance(ctx, p.UserID, p.Kind, account.Balance+p.Amount); err != nil {
		return store.LedgerEntry{}, fmt.Errorf("updating balance: %w", err)
	}
	return entry, nil
}
