package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getSalesTotals = `-- name: GetSalesTotals :one
SELECT COALESCE(SUM(total_amount), 0)::numeric AS total_sales,
       COUNT(*) AS order_count
FROM transactions
WHERE status = 'Completed'
`

type GetSalesTotalsRow struct {
	TotalSales pgtype.Numeric `json:"total_sales"`
	OrderCount int64          `json:"order_count"`
}

func (q *Queries) GetSalesTotals(ctx context.Context) (GetSalesTotalsRow, error) {
	row := q.db.QueryRow(ctx, getSalesTotals)
	var i GetSalesTotalsRow
	err := row.Scan(&i.TotalSales, &i.OrderCount)
	return i, err
}

const getSalesTotalsSince = `-- name: GetSalesTotalsSince :one
SELECT COALESCE(SUM(total_amount), 0)::numeric AS total_sales,
       COUNT(*) AS order_count
FROM transactions
WHERE status = 'Completed' AND created_at >= $1
`

func (q *Queries) GetSalesTotalsSince(ctx context.Context, since time.Time) (GetSalesTotalsRow, error) {
	row := q.db.QueryRow(ctx, getSalesTotalsSince, since)
	var i GetSalesTotalsRow
	err := row.Scan(&i.TotalSales, &i.OrderCount)
	return i, err
}

const getBestSellers = `-- name: GetBestSellers :many
SELECT ti.product_id,
       COALESCE(p.name, MAX(ti.product_name))::text AS product_name,
       ti.size_label,
       SUM(ti.quantity)::bigint AS quantity_sold,
       SUM(ti.quantity * ti.price)::numeric AS revenue
FROM transaction_items ti
JOIN transactions t ON t.id = ti.transaction_id
LEFT JOIN products p ON p.id = ti.product_id
WHERE t.status = 'Completed'
GROUP BY ti.product_id, ti.size_label, p.name
ORDER BY quantity_sold DESC, product_name
LIMIT $1
`

type GetBestSellersRow struct {
	ProductID    uuid.UUID      `json:"product_id"`
	ProductName  string         `json:"product_name"`
	SizeLabel    pgtype.Text    `json:"size_label"`
	QuantitySold int64          `json:"quantity_sold"`
	Revenue      pgtype.Numeric `json:"revenue"`
}

func (q *Queries) GetBestSellers(ctx context.Context, limit int32) ([]GetBestSellersRow, error) {
	rows, err := q.db.Query(ctx, getBestSellers, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetBestSellersRow{}
	for rows.Next() {
		var i GetBestSellersRow
		if err := rows.Scan(
			&i.ProductID,
			&i.ProductName,
			&i.SizeLabel,
			&i.QuantitySold,
			&i.Revenue,
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

const getDailySales = `-- name: GetDailySales :many
SELECT (created_at AT TIME ZONE $1::text)::date AS sale_date,
       COALESCE(SUM(total_amount), 0)::numeric AS total_sales,
       COUNT(*) AS order_count
FROM transactions
WHERE status = 'Completed' AND created_at >= $2
GROUP BY sale_date
ORDER BY sale_date
`

type GetDailySalesParams struct {
	TimeZone string    `json:"time_zone"`
	Since    time.Time `json:"since"`
}

type GetDailySalesRow struct {
	SaleDate   pgtype.Date    `json:"sale_date"`
	TotalSales pgtype.Numeric `json:"total_sales"`
	OrderCount int64          `json:"order_count"`
}

func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, getDailySales, arg.TimeZone, arg.Since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetDailySalesRow{}
	for rows.Next() {
		var i GetDailySalesRow
		if err := rows.Scan(&i.SaleDate, &i.TotalSales, &i.OrderCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
