package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderView is the JSON shape of a transaction, shared by HTTP responses
// and the newOrder event.
type OrderView struct {
	ID           uuid.UUID       `json:"id"`
	CustomerName string          `json:"customerName"`
	TotalAmount  string          `json:"totalAmount"`
	CreatedBy    uuid.UUID       `json:"createdBy"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	Items        []OrderItemView `json:"items"`
}

type OrderItemView struct {
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName"`
	SizeLabel   *string   `json:"sizeLabel"`
	Quantity    int32     `json:"quantity"`
	Price       string    `json:"price"`
	Subtotal    string    `json:"subtotal"`
}

// View converts the result to its JSON shape.
func (r *OrderResult) View() OrderView {
	t := r.Transaction
	v := OrderView{
		ID:           t.ID,
		CustomerName: t.CustomerName,
		TotalAmount:  numericToDecimal(t.TotalAmount).StringFixed(2),
		CreatedBy:    t.CreatedBy,
		Status:       t.Status,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		Items:        make([]OrderItemView, len(r.Items)),
	}
	for i, it := range r.Items {
		price := numericToDecimal(it.Price)
		iv := OrderItemView{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       price.StringFixed(2),
			Subtotal:    price.Mul(decimal.NewFromInt32(it.Quantity)).StringFixed(2),
		}
		if it.SizeLabel.Valid {
			label := it.SizeLabel.String
			iv.SizeLabel = &label
		}
		v.Items[i] = iv
	}
	return v
}

// Views converts a list of results.
func Views(results []OrderResult) []OrderView {
	out := make([]OrderView, len(results))
	for i := range results {
		out[i] = results[i].View()
	}
	return out
}
