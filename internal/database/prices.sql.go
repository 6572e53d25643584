package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const listActivePricesByProduct = `-- name: ListActivePricesByProduct :many
SELECT id, product_id, size_id, price, status, effective_date FROM prices
WHERE product_id = $1 AND status = 'Active'
ORDER BY price
`

func (q *Queries) ListActivePricesByProduct(ctx context.Context, productID uuid.UUID) ([]Price, error) {
	rows, err := q.db.Query(ctx, listActivePricesByProduct, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Price{}
	for rows.Next() {
		var i Price
		if err := rows.Scan(
			&i.ID,
			&i.ProductID,
			&i.SizeID,
			&i.Price,
			&i.Status,
			&i.EffectiveDate,
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

const listPriceHistory = `-- name: ListPriceHistory :many
SELECT id, product_id, size_id, price, status, effective_date FROM prices
WHERE product_id = $1
ORDER BY effective_date DESC
`

func (q *Queries) ListPriceHistory(ctx context.Context, productID uuid.UUID) ([]Price, error) {
	rows, err := q.db.Query(ctx, listPriceHistory, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Price{}
	for rows.Next() {
		var i Price
		if err := rows.Scan(
			&i.ID,
			&i.ProductID,
			&i.SizeID,
			&i.Price,
			&i.Status,
			&i.EffectiveDate,
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

const getActivePrice = `-- name: GetActivePrice :one
SELECT id, product_id, size_id, price, status, effective_date FROM prices
WHERE product_id = $1 AND size_id IS NOT DISTINCT FROM $2 AND status = 'Active'
`

type GetActivePriceParams struct {
	ProductID uuid.UUID   `json:"product_id"`
	SizeID    pgtype.UUID `json:"size_id"`
}

func (q *Queries) GetActivePrice(ctx context.Context, arg GetActivePriceParams) (Price, error) {
	row := q.db.QueryRow(ctx, getActivePrice, arg.ProductID, arg.SizeID)
	var i Price
	err := row.Scan(
		&i.ID,
		&i.ProductID,
		&i.SizeID,
		&i.Price,
		&i.Status,
		&i.EffectiveDate,
	)
	return i, err
}

const createPrice = `-- name: CreatePrice :one
INSERT INTO prices (product_id, size_id, price, status)
VALUES ($1, $2, $3, 'Active')
RETURNING id, product_id, size_id, price, status, effective_date
`

type CreatePriceParams struct {
	ProductID uuid.UUID      `json:"product_id"`
	SizeID    pgtype.UUID    `json:"size_id"`
	Price     pgtype.Numeric `json:"price"`
}

// CreatePrice inserts an Active price. Callers deactivate the previous
// Active row for the same (product, size) first.
func (q *Queries) CreatePrice(ctx context.Context, arg CreatePriceParams) (Price, error) {
	row := q.db.QueryRow(ctx, createPrice, arg.ProductID, arg.SizeID, arg.Price)
	var i Price
	err := row.Scan(
		&i.ID,
		&i.ProductID,
		&i.SizeID,
		&i.Price,
		&i.Status,
		&i.EffectiveDate,
	)
	return i, err
}

const deactivatePrices = `-- name: DeactivatePrices :execrows
UPDATE prices SET status = 'Inactive'
WHERE product_id = $1 AND size_id IS NOT DISTINCT FROM $2 AND status = 'Active'
`

type DeactivatePricesParams struct {
	ProductID uuid.UUID   `json:"product_id"`
	SizeID    pgtype.UUID `json:"size_id"`
}

func (q *Queries) DeactivatePrices(ctx context.Context, arg DeactivatePricesParams) (int64, error) {
	result, err := q.db.Exec(ctx, deactivatePrices, arg.ProductID, arg.SizeID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deactivateAllPrices = `-- name: DeactivateAllPrices :execrows
UPDATE prices SET status = 'Inactive'
WHERE product_id = $1 AND status = 'Active'
`

func (q *Queries) DeactivateAllPrices(ctx context.Context, productID uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deactivateAllPrices, productID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
