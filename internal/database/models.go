package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Category struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Product struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	Price      pgtype.Numeric `json:"price"`
	CategoryID pgtype.UUID    `json:"category_id"`
	ImagePath  string         `json:"image_path"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type Size struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

type Price struct {
	ID            uuid.UUID      `json:"id"`
	ProductID     uuid.UUID      `json:"product_id"`
	SizeID        pgtype.UUID    `json:"size_id"`
	Price         pgtype.Numeric `json:"price"`
	Status        string         `json:"status"`
	EffectiveDate time.Time      `json:"effective_date"`
}

type User struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	HashedPassword string    `json:"hashed_password"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Transaction struct {
	ID           uuid.UUID      `json:"id"`
	CustomerName string         `json:"customer_name"`
	TotalAmount  pgtype.Numeric `json:"total_amount"`
	CreatedBy    uuid.UUID      `json:"created_by"`
	Status       string         `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type TransactionItem struct {
	ID            uuid.UUID      `json:"id"`
	TransactionID uuid.UUID      `json:"transaction_id"`
	Position      int32          `json:"position"`
	ProductID     uuid.UUID      `json:"product_id"`
	ProductName   string         `json:"product_name"`
	SizeID        pgtype.UUID    `json:"size_id"`
	SizeLabel     pgtype.Text    `json:"size_label"`
	Quantity      int32          `json:"quantity"`
	Price         pgtype.Numeric `json:"price"`
}
