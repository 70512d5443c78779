package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	appdb "github.com/arenahq/courtledger/internal/db"
	"github.com/arenahq/courtledger/internal/store"
)

// Clock is the subset of the facility clock the ledger needs.
type Clock interface {
	Now() time.Time
}

// Service contains the ledger operations over the database.
type Service struct {
	db    *appdb.DB
	clock Clock
}

func NewService(database *appdb.DB, clock Clock) *Service {
	return &Service{db: database, clock: clock}
}

// Balance returns the cached balance for one account. A user with no
// ledger history has a zero balance, not an error.
func (s *Service) Balance(ctx context.Context, userID int64, kind string) (int64, error) {
	if !ValidKind(kind) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	account, err := s.db.Queries.GetAccount(ctx, userID, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return account.Balance, nil
}

// Spend debits the account, failing with ErrInsufficientFunds rather than
// ever driving the balance negative.
func (s *Service) Spend(ctx context.Context, p EntryParams) (store.LedgerEntry, error) {
	p.Reason = orDefault(p.Reason, ReasonSpent)
	p.At = s.at(p.At)
	var entry store.LedgerEntry
	err := s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		var txErr error
		entry, txErr = Debit(ctx, txdb.Queries, p)
		return txErr
	})
	return entry, err
}

// Earn credits the account.
func (s *Service) Earn(ctx context.Context, p EntryParams) (store.LedgerEntry, error) {
	p.Reason = orDefault(p.Reason, ReasonEarned)
	p.At = s.at(p.At)
	var entry store.LedgerEntry
	err := s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		var txErr error
		entry, txErr = Credit(ctx, txdb.Queries, p)
		return txErr
	})
	return entry, err
}

// Refund credits the account with the refunded reason.
func (s *Service) Refund(ctx context.Context, p EntryParams) (store.LedgerEntry, error) {
	p.Reason = ReasonRefunded
	return s.Earn(ctx, p)
}

// RequestPurchase records a bank-transfer credit purchase awaiting admin
// approval. No credits move until the approval event fires.
func (s *Service) RequestPurchase(ctx context.Context, userID, amount int64) (store.PurchaseRequest, error) {
	if amount <= 0 {
		return store.PurchaseRequest{}, ErrInvalidAmount
	}
	return s.db.Queries.CreatePurchaseRequest(ctx, store.CreatePurchaseRequestParams{
		UserID:    userID,
		Amount:    amount,
		CreatedAt: s.clock.Now(),
	})
}

// DecidePurchase settles a pending purchase request. Approval appends the
// purchased-credits entry; rejection just closes the request.
func (s *Service) DecidePurchase(ctx context.Context, purchaseID int64, approved bool) (store.PurchaseRequest, error) {
	now := s.clock.Now()
	status := "rejected"
	if approved {
		status = "approved"
	}

	var decided store.PurchaseRequest
	err := s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries
		purchase, err := q.GetPurchaseRequest(ctx, purchaseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrPurchaseNotFound
			}
			return err
		}
		changed, err := q.DecidePurchaseRequest(ctx, store.DecidePurchaseRequestParams{
			ID:        purchaseID,
			Status:    status,
			DecidedAt: now,
		})
		if err != nil {
			return err
		}
		if changed == 0 {
			return ErrPurchaseDecided
		}
		if approved {
			if _, err := Credit(ctx, q, EntryParams{
				UserID:     purchase.UserID,
				Kind:       KindCredits,
				Amount:     purchase.Amount,
				Reason:     ReasonPurchased,
				PurchaseID: sql.NullInt64{Int64: purchase.ID, Valid: true},
				At:         now,
			}); err != nil {
				return err
			}
		}
		decided, err = q.GetPurchaseRequest(ctx, purchaseID)
		return err
	})
	return decided, err
}

// Reconcile returns the cached balance and the fold over entries. The two
// must be equal after any sequence of operations.
func (s *Service) Reconcile(ctx context.Context, userID int64, kind string) (balance, folded int64, err error) {
	balance, err = s.Balance(ctx, userID, kind)
	if err != nil {
		return 0, 0, err
	}
	folded, err = s.db.Queries.SumLedgerEntries(ctx, userID, kind)
	return balance, folded, err
}

// Entries lists the account's transaction history.
func (s *Service) Entries(ctx context.Context, userID int64, kind string) ([]store.LedgerEntry, error) {
	if !ValidKind(kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return s.db.Queries.ListLedgerEntries(ctx, userID, kind)
}

func (s *Service) at(t time.Time) time.Time {
	if t.IsZero() {
		return s.clock.Now()
	}
	return t
}

func orDefault(reason, fallback string) string {
	if reason == "" {
		return fallback
	}
	return reason
}
