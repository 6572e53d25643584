package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (customer_name, total_amount, created_by, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, COALESCE($5, now()), COALESCE($5, now()))
RETURNING id, customer_name, total_amount, created_by, status, created_at, updated_at
`

type CreateTransactionParams struct {
	CustomerName string             `json:"customer_name"`
	TotalAmount  pgtype.Numeric     `json:"total_amount"`
	CreatedBy    uuid.UUID          `json:"created_by"`
	Status       string             `json:"status"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
}

// CreateTransaction inserts the transaction header. A NULL CreatedAt
// stamps the row with now().
func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRow(ctx, createTransaction,
		arg.CustomerName,
		arg.TotalAmount,
		arg.CreatedBy,
		arg.Status,
		arg.CreatedAt,
	)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.CustomerName,
		&i.TotalAmount,
		&i.CreatedBy,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createTransactionItem = `-- name: CreateTransactionItem :one
INSERT INTO transaction_items (transaction_id, position, product_id, product_name, size_id, size_label, quantity, price)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, transaction_id, position, product_id, product_name, size_id, size_label, quantity, price
`

type CreateTransactionItemParams struct {
	TransactionID uuid.UUID      `json:"transaction_id"`
	Position      int32          `json:"position"`
	ProductID     uuid.UUID      `json:"product_id"`
	ProductName   string         `json:"product_name"`
	SizeID        pgtype.UUID    `json:"size_id"`
	SizeLabel     pgtype.Text    `json:"size_label"`
	Quantity      int32          `json:"quantity"`
	Price         pgtype.Numeric `json:"price"`
}

func (q *Queries) CreateTransactionItem(ctx context.Context, arg CreateTransactionItemParams) (TransactionItem, error) {
	row := q.db.QueryRow(ctx, createTransactionItem,
		arg.TransactionID,
		arg.Position,
		arg.ProductID,
		arg.ProductName,
		arg.SizeID,
		arg.SizeLabel,
		arg.Quantity,
		arg.Price,
	)
	var i TransactionItem
	err := row.Scan(
		&i.ID,
		&i.TransactionID,
		&i.Position,
		&i.ProductID,
		&i.ProductName,
		&i.SizeID,
		&i.SizeLabel,
		&i.Quantity,
		&i.Price,
	)
	return i, err
}

const getTransaction = `-- name: GetTransaction :one
SELECT id, customer_name, total_amount, created_by, status, created_at, updated_at FROM transactions
WHERE id = $1
`

func (q *Queries) GetTransaction(ctx context.Context, id uuid.UUID) (Transaction, error) {
	row := q.db.QueryRow(ctx, getTransaction, id)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.CustomerName,
		&i.TotalAmount,
		&i.CreatedBy,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listTransactionItems = `-- name: ListTransactionItems :many
SELECT id, transaction_id, position, product_id, product_name, size_id, size_label, quantity, price FROM transaction_items
WHERE transaction_id = $1
ORDER BY position
`

func (q *Queries) ListTransactionItems(ctx context.Context, transactionID uuid.UUID) ([]TransactionItem, error) {
	rows, err := q.db.Query(ctx, listTransactionItems, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactionItems(rows)
}

const listTransactionItemsByTransactions = `-- name: ListTransactionItemsByTransactions :many
SELECT id, transaction_id, position, product_id, product_name, size_id, size_label, quantity, price FROM transaction_items
WHERE transaction_id = ANY($1::uuid[])
ORDER BY transaction_id, position
`

func (q *Queries) ListTransactionItemsByTransactions(ctx context.Context, ids []uuid.UUID) ([]TransactionItem, error) {
	rows, err := q.db.Query(ctx, listTransactionItemsByTransactions, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactionItems(rows)
}

func scanTransactionItems(rows pgx.Rows) ([]TransactionItem, error) {
	items := []TransactionItem{}
	for rows.Next() {
		var i TransactionItem
		if err := rows.Scan(
			&i.ID,
			&i.TransactionID,
			&i.Position,
			&i.ProductID,
			&i.ProductName,
			&i.SizeID,
			&i.SizeLabel,
			&i.Quantity,
			&i.Price,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listPendingTransactions = `-- name: ListPendingTransactions :many
SELECT id, customer_name, total_amount, created_by, status, created_at, updated_at FROM transactions
WHERE status = 'Pending'
ORDER BY created_at ASC
`

func (q *Queries) ListPendingTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listPendingTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

const listTransactions = `-- name: ListTransactions :many
SELECT id, customer_name, total_amount, created_by, status, created_at, updated_at FROM transactions
WHERE ($1::text IS NULL OR status = $1::text)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

type ListTransactionsParams struct {
	Status pgtype.Text `json:"status"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactions, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransactions(rows pgx.Rows) ([]Transaction, error) {
	items := []Transaction{}
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.CustomerName,
			&i.TotalAmount,
			&i.CreatedBy,
			&i.Status,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateTransactionStatus = `-- name: UpdateTransactionStatus :one
UPDATE transactions SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING id, customer_name, total_amount, created_by, status, created_at, updated_at
`

type UpdateTransactionStatusParams struct {
	ID        uuid.UUID `json:"id"`
	Status    string    `json:"status"`
	OldStatus string    `json:"old_status"`
}

// UpdateTransactionStatus is a compare-and-swap on status. It returns
// pgx.ErrNoRows when the row is missing or its status is no longer OldStatus.
func (q *Queries) UpdateTransactionStatus(ctx context.Context, arg UpdateTransactionStatusParams) (Transaction, error) {
	row := q.db.QueryRow(ctx, updateTransactionStatus, arg.ID, arg.Status, arg.OldStatus)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.CustomerName,
		&i.TotalAmount,
		&i.CreatedBy,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const countTransactionsByStatus = `-- name: CountTransactionsByStatus :one
SELECT COUNT(*) FROM transactions WHERE status = $1
`

func (q *Queries) CountTransactionsByStatus(ctx context.Context, status string) (int64, error) {
	row := q.db.QueryRow(ctx, countTransactionsByStatus, status)
	var count int64
	err := row.Scan(&count)
	return count, err
}
