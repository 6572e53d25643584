package database

import (
	"context"

	"github.com/google/uuid"
)

const listSizesByProduct = `-- name: ListSizesByProduct :many
SELECT id, product_id, label, created_at FROM sizes
WHERE product_id = $1
ORDER BY created_at, label
`

func (q *Queries) ListSizesByProduct(ctx context.Context, productID uuid.UUID) ([]Size, error) {
	rows, err := q.db.Query(ctx, listSizesByProduct, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Size{}
	for rows.Next() {
		var i Size
		if err := rows.Scan(&i.ID, &i.ProductID, &i.Label, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createSize = `-- name: CreateSize :one
INSERT INTO sizes (product_id, label)
VALUES ($1, $2)
RETURNING id, product_id, label, created_at
`

type CreateSizeParams struct {
	ProductID uuid.UUID `json:"product_id"`
	Label     string    `json:"label"`
}

func (q *Queries) CreateSize(ctx context.Context, arg CreateSizeParams) (Size, error) {
	row := q.db.QueryRow(ctx, createSize, arg.ProductID, arg.Label)
	var i Size
	err := row.Scan(&i.ID, &i.ProductID, &i.Label, &i.CreatedAt)
	return i, err
}

const deleteSize = `-- name: DeleteSize :one
DELETE FROM sizes
WHERE id = $1 AND product_id = $2
RETURNING id
`

type DeleteSizeParams struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
}

func (q *Queries) DeleteSize(ctx context.Context, arg DeleteSizeParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteSize, arg.ID, arg.ProductID)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

const deleteSizesByProduct = `-- name: DeleteSizesByProduct :execrows
DELETE FROM sizes
WHERE product_id = $1
`

func (q *Queries) DeleteSizesByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteSizesByProduct, productID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
