package store

import (
	"context"
	"time"
)

type CreatePurchaseRequestParams struct {
	UserID    int64
	Amount    int64
	CreatedAt time.Time
}

const createPurchaseRequest = `
INSERT INTO purchase_requests (user_id, amount, status, created_at)
VALUES (?, ?, 'pending', ?)
`

func (q *Queries) CreatePurchaseRequest(ctx context.Context, arg CreatePurchaseRequestParams) (PurchaseRequest, error) {
	result, err := q.db.ExecContext(ctx, createPurchaseRequest,
		arg.UserID, arg.Amount, arg.CreatedAt)
	if err != nil {
		return PurchaseRequest{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return PurchaseRequest{}, err
	}
	return q.GetPurchaseRequest(ctx, id)
}

const getPurchaseRequest = `
SELECT id, user_id, amount, status, created_at, decided_at
FROM purchase_requests
WHERE id = ?
`

func (q *Queries) GetPurchaseRequest(ctx context.Context, id int64) (PurchaseRequest, error) {
	var p PurchaseRequest
	err := q.db.QueryRowContext(ctx, getPurchaseRequest, id).
		Scan(&p.ID, &p.UserID, &p.Amount, &p.Status, &p.CreatedAt, &p.DecidedAt)
	return p, err
}

type DecidePurchaseRequestParams struct {
	ID        int64
	Status    string
	DecidedAt time.Time
}

const decidePurchaseRequest = `
UPDATE purchase_requests
SET status = ?, decided_at = ?
WHERE id = ? AND status = 'pending'
`

// DecidePurchaseRequest moves a pending request to approved or rejected.
// Returns the number of rows changed; zero means the request was not
// pending.
func (q *Queries) DecidePurchaseRequest(ctx context.Context, arg DecidePurchaseRequestParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, decidePurchaseRequest,
		arg.Status, arg.DecidedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
