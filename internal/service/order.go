package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mira-pos/api/internal/database"
	"github.com/mira-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service.
var (
	ErrEmptyItems          = errors.New("cart is empty")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrInvalidProductID    = errors.New("invalid product id")
	ErrProductNotFound     = errors.New("product not found")
	ErrSizeRequired        = errors.New("size is required for this product")
	ErrSizeNotFound        = errors.New("size not found for product")
	ErrPriceNotFound       = errors.New("no active price for product")
	ErrAmountTooLarge      = errors.New("order amount is too large")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrStatusConflict      = errors.New("transaction status changed, please retry")
)

// maxAmount is the smallest value a NUMERIC(12,2) column cannot hold.
var maxAmount = decimal.New(1, 10)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order lifecycle.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	ListSizesByProduct(ctx context.Context, productID uuid.UUID) ([]database.Size, error)
	GetActivePrice(ctx context.Context, arg database.GetActivePriceParams) (database.Price, error)
	CreateTransaction(ctx context.Context, arg database.CreateTransactionParams) (database.Transaction, error)
	CreateTransactionItem(ctx context.Context, arg database.CreateTransactionItemParams) (database.TransactionItem, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (database.Transaction, error)
	ListTransactionItems(ctx context.Context, transactionID uuid.UUID) ([]database.TransactionItem, error)
	ListTransactionItemsByTransactions(ctx context.Context, ids []uuid.UUID) ([]database.TransactionItem, error)
	ListPendingTransactions(ctx context.Context) ([]database.Transaction, error)
	ListTransactions(ctx context.Context, arg database.ListTransactionsParams) ([]database.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, arg database.UpdateTransactionStatusParams) (database.Transaction, error)
	CountTransactionsByStatus(ctx context.Context, status string) (int64, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the cart submitted by a front liner.
type CreateOrderRequest struct {
	CreatedBy    uuid.UUID
	CustomerName string
	Items        []CreateOrderItemRequest
}

// CreateOrderItemRequest is one cart line. Price is what the client
// displayed; it is ignored in favour of the current Active price.
type CreateOrderItemRequest struct {
	ProductID string
	Quantity  int32
	SizeLabel string
	Price     string
}

// OrderResult is a transaction with its line items.
type OrderResult struct {
	Transaction database.Transaction
	Items       []database.TransactionItem
}

// StatusChange is the payload of an orderStatusUpdated event.
type StatusChange struct {
	OrderID   uuid.UUID `json:"orderId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	store    OrderStore
	newStore NewOrderStore
	notifier Notifier
}

// NewOrderService creates a new OrderService. store serves reads and
// status transitions; newStore binds a store to the order-creation tx.
func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore, notifier Notifier) *OrderService {
	if notifier == nil {
		notifier = Notifiers{}
	}
	return &OrderService{pool: pool, store: store, newStore: newStore, notifier: notifier}
}

// CreateOrder resolves prices server-side and persists the transaction
// and its line items atomically, then broadcasts newOrder.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	total := decimal.Zero
	params := make([]database.CreateTransactionItemParams, 0, len(req.Items))

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}

		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidProductID)
		}

		product, err := store.GetProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrProductNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get product: %w", i, err)
		}

		size, err := resolveSize(ctx, store, productID, item.SizeLabel)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, err)
		}

		sizeID := pgtype.UUID{}
		sizeLabel := pgtype.Text{}
		if size != nil {
			sizeID = pgtype.UUID{Bytes: size.ID, Valid: true}
			sizeLabel = pgtype.Text{String: size.Label, Valid: true}
		}

		price, err := store.GetActivePrice(ctx, database.GetActivePriceParams{
			ProductID: productID,
			SizeID:    sizeID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrPriceNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get price: %w", i, err)
		}

		unitPrice := numericToDecimal(price.Price)
		total = total.Add(unitPrice.Mul(decimal.NewFromInt32(item.Quantity)))
		if total.GreaterThanOrEqual(maxAmount) {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrAmountTooLarge)
		}

		params = append(params, database.CreateTransactionItemParams{
			Position:    int32(i),
			ProductID:   productID,
			ProductName: product.Name,
			SizeID:      sizeID,
			SizeLabel:   sizeLabel,
			Quantity:    item.Quantity,
			Price:       decimalToNumeric(unitPrice),
		})
	}

	txn, err := store.CreateTransaction(ctx, database.CreateTransactionParams{
		CustomerName: strings.TrimSpace(req.CustomerName),
		TotalAmount:  decimalToNumeric(total),
		CreatedBy:    req.CreatedBy,
		Status:       enum.TransactionStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	items := make([]database.TransactionItem, 0, len(params))
	for _, p := range params {
		p.TransactionID = txn.ID
		item, err := store.CreateTransactionItem(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("create transaction item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	result := &OrderResult{Transaction: txn, Items: items}
	s.notifier.Notify(enum.EventNewOrder, result.View())
	return result, nil
}

// resolveSize maps a submitted label onto the product's sizes. A product
// without sizes must be ordered without a label and yields nil.
func resolveSize(ctx context.Context, store OrderStore, productID uuid.UUID, label string) (*database.Size, error) {
	sizes, err := store.ListSizesByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list sizes: %w", err)
	}
	label = strings.TrimSpace(label)
	if len(sizes) == 0 {
		if label != "" {
			return nil, ErrSizeNotFound
		}
		return nil, nil
	}
	if label == "" {
		return nil, ErrSizeRequired
	}
	for i := range sizes {
		if sizes[i].Label == label {
			return &sizes[i], nil
		}
	}
	return nil, ErrSizeNotFound
}

// MarkReady moves a Pending transaction to Ready.
func (s *OrderService) MarkReady(ctx context.Context, id uuid.UUID) (*StatusChange, error) {
	return s.transition(ctx, id, enum.TransactionStatusReady)
}

// Complete moves a Pending or Ready transaction to Completed.
func (s *OrderService) Complete(ctx context.Context, id uuid.UUID) (*StatusChange, error) {
	return s.transition(ctx, id, enum.TransactionStatusCompleted)
}

// Cancel moves a Pending or Ready transaction to Cancelled.
func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID) (*StatusChange, error) {
	return s.transition(ctx, id, enum.TransactionStatusCancelled)
}

func (s *OrderService) transition(ctx context.Context, id uuid.UUID, next string) (*StatusChange, error) {
	current, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	if err := validateStatusTransition(current.Status, next); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateTransactionStatus(ctx, database.UpdateTransactionStatusParams{
		ID:        id,
		Status:    next,
		OldStatus: current.Status,
	})
	if err != nil {
		// No row matched the old status: another actor won the race.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("update transaction status: %w", err)
	}

	change := &StatusChange{
		OrderID:   updated.ID,
		OldStatus: current.Status,
		NewStatus: updated.Status,
	}
	s.notifier.Notify(enum.EventOrderStatusUpdated, change)
	return change, nil
}

// allowedTransitions defines valid status transitions.
// Completed and Cancelled are terminal.
var allowedTransitions = map[string][]string{
	enum.TransactionStatusPending: {enum.TransactionStatusReady, enum.TransactionStatusCompleted, enum.TransactionStatusCancelled},
	enum.TransactionStatusReady:   {enum.TransactionStatusCompleted, enum.TransactionStatusCancelled},
}

func validateStatusTransition(current, next string) error {
	for _, s := range allowedTransitions[current] {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, current, next)
}

// --- Reads ---

// GetOrder returns a transaction with its line items.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*OrderResult, error) {
	txn, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	items, err := s.store.ListTransactionItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list transaction items: %w", err)
	}
	return &OrderResult{Transaction: txn, Items: items}, nil
}

// PendingOrders returns the cook queue, oldest first.
func (s *OrderService) PendingOrders(ctx context.Context) ([]OrderResult, error) {
	txns, err := s.store.ListPendingTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending transactions: %w", err)
	}
	return s.withItems(ctx, txns)
}

// ListOrders returns transactions newest first. An empty status lists all.
func (s *OrderService) ListOrders(ctx context.Context, status string, limit, offset int32) ([]OrderResult, error) {
	filter := pgtype.Text{}
	if status != "" {
		filter = pgtype.Text{String: status, Valid: true}
	}
	txns, err := s.store.ListTransactions(ctx, database.ListTransactionsParams{
		Status: filter,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return s.withItems(ctx, txns)
}

// CountByStatus backs the ready badge and dashboard counters.
func (s *OrderService) CountByStatus(ctx context.Context, status string) (int64, error) {
	n, err := s.store.CountTransactionsByStatus(ctx, status)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (s *OrderService) withItems(ctx context.Context, txns []database.Transaction) ([]OrderResult, error) {
	results := make([]OrderResult, 0, len(txns))
	if len(txns) == 0 {
		return results, nil
	}
	ids := make([]uuid.UUID, len(txns))
	for i, t := range txns {
		ids[i] = t.ID
	}
	items, err := s.store.ListTransactionItemsByTransactions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list transaction items: %w", err)
	}
	byTxn := make(map[uuid.UUID][]database.TransactionItem, len(txns))
	for _, it := range items {
		byTxn[it.TransactionID] = append(byTxn[it.TransactionID], it)
	}
	for _, t := range txns {
		its := byTxn[t.ID]
		if its == nil {
			its = []database.TransactionItem{}
		}
		results = append(results, OrderResult{Transaction: t, Items: its})
	}
	return results, nil
}

// --- Helpers ---

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
