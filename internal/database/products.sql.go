package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const listProducts = `-- name: ListProducts :many
SELECT p.id, p.name, p.price, p.category_id, p.image_path, p.created_at, p.updated_at,
       c.name AS category_name,
       (SELECT COUNT(*) FROM sizes s WHERE s.product_id = p.id) AS size_count
FROM products p
LEFT JOIN categories c ON c.id = p.category_id
ORDER BY p.created_at DESC
`

type ListProductsRow struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Price        pgtype.Numeric `json:"price"`
	CategoryID   pgtype.UUID    `json:"category_id"`
	ImagePath    string         `json:"image_path"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	CategoryName pgtype.Text    `json:"category_name"`
	SizeCount    int64          `json:"size_count"`
}

func (q *Queries) ListProducts(ctx context.Context) ([]ListProductsRow, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListProductsRow{}
	for rows.Next() {
		var i ListProductsRow
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Price,
			&i.CategoryID,
			&i.ImagePath,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.CategoryName,
			&i.SizeCount,
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

const getProduct = `-- name: GetProduct :one
SELECT id, name, price, category_id, image_path, created_at, updated_at FROM products
WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, getProduct, id)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Price,
		&i.CategoryID,
		&i.ImagePath,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getProductForUpdate = `-- name: GetProductForUpdate :one
SELECT id, name, price, category_id, image_path, created_at, updated_at FROM products
WHERE id = $1
FOR UPDATE
`

// GetProductForUpdate locks the product row until the surrounding
// transaction ends. Catalog writes take this lock first.
func (q *Queries) GetProductForUpdate(ctx context.Context, id uuid.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, getProductForUpdate, id)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Price,
		&i.CategoryID,
		&i.ImagePath,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createProduct = `-- name: CreateProduct :one
INSERT INTO products (name, price, category_id, image_path)
VALUES ($1, $2, $3, $4)
RETURNING id, name, price, category_id, image_path, created_at, updated_at
`

type CreateProductParams struct {
	Name       string         `json:"name"`
	Price      pgtype.Numeric `json:"price"`
	CategoryID pgtype.UUID    `json:"category_id"`
	ImagePath  string         `json:"image_path"`
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct, arg.Name, arg.Price, arg.CategoryID, arg.ImagePath)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Price,
		&i.CategoryID,
		&i.ImagePath,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateProduct = `-- name: UpdateProduct :one
UPDATE products
SET name = $2, price = $3, category_id = $4, image_path = $5, updated_at = now()
WHERE id = $1
RETURNING id, name, price, category_id, image_path, created_at, updated_at
`

type UpdateProductParams struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	Price      pgtype.Numeric `json:"price"`
	CategoryID pgtype.UUID    `json:"category_id"`
	ImagePath  string         `json:"image_path"`
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, updateProduct,
		arg.ID,
		arg.Name,
		arg.Price,
		arg.CategoryID,
		arg.ImagePath,
	)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Price,
		&i.CategoryID,
		&i.ImagePath,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateProductPrice = `-- name: UpdateProductPrice :exec
UPDATE products SET price = $2, updated_at = now()
WHERE id = $1
`

type UpdateProductPriceParams struct {
	ID    uuid.UUID      `json:"id"`
	Price pgtype.Numeric `json:"price"`
}

func (q *Queries) UpdateProductPrice(ctx context.Context, arg UpdateProductPriceParams) error {
	_, err := q.db.Exec(ctx, updateProductPrice, arg.ID, arg.Price)
	return err
}

const deleteProduct = `-- name: DeleteProduct :one
DELETE FROM products
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteProduct, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

const countProducts = `-- name: CountProducts :one
SELECT COUNT(*) FROM products
`

func (q *Queries) CountProducts(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countProducts)
	var count int64
	err := row.Scan(&count)
	return count, err
}
