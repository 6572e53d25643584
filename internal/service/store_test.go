package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mira-pos/api/internal/database"
	"github.com/mira-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	committed   bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr == nil {
		m.committed = true
	}
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// recordingNotifier captures every event it is handed.
type recordingNotifier struct {
	events []recordedEvent
}

type recordedEvent struct {
	eventType string
	payload   any
}

func (n *recordingNotifier) Notify(eventType string, payload any) {
	n.events = append(n.events, recordedEvent{eventType, payload})
}

// memStore is an in-memory OrderStore and CatalogStore. It enforces the
// same unique constraints as the schema, including one Active price per
// (product, size).
type memStore struct {
	products   map[uuid.UUID]database.Product
	categories map[uuid.UUID]database.Category
	sizes      []database.Size
	prices     []database.Price
	txns       map[uuid.UUID]database.Transaction
	items      []database.TransactionItem
	errs       map[string]error
	clock      time.Time
}

func newMemStore() *memStore {
	return &memStore{
		products:   map[uuid.UUID]database.Product{},
		categories: map[uuid.UUID]database.Category{},
		txns:       map[uuid.UUID]database.Transaction{},
		errs:       map[string]error{},
		clock:      time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505"}
}

func sameSize(a, b pgtype.UUID) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Bytes == b.Bytes
}

// --- Products ---

func (m *memStore) GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error) {
	if err := m.errs["GetProduct"]; err != nil {
		return database.Product{}, err
	}
	p, ok := m.products[id]
	if !ok {
		return database.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *memStore) GetProductForUpdate(ctx context.Context, id uuid.UUID) (database.Product, error) {
	return m.GetProduct(ctx, id)
}

func (m *memStore) CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error) {
	for _, p := range m.products {
		if p.Name == arg.Name {
			return database.Product{}, uniqueViolation()
		}
	}
	now := m.tick()
	p := database.Product{
		ID:         uuid.New(),
		Name:       arg.Name,
		Price:      arg.Price,
		CategoryID: arg.CategoryID,
		ImagePath:  arg.ImagePath,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.products[p.ID] = p
	return p, nil
}

func (m *memStore) UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error) {
	p, ok := m.products[arg.ID]
	if !ok {
		return database.Product{}, pgx.ErrNoRows
	}
	for id, other := range m.products {
		if id != arg.ID && other.Name == arg.Name {
			return database.Product{}, uniqueViolation()
		}
	}
	p.Name = arg.Name
	p.Price = arg.Price
	p.CategoryID = arg.CategoryID
	p.ImagePath = arg.ImagePath
	p.UpdatedAt = m.tick()
	m.products[p.ID] = p
	return p, nil
}

func (m *memStore) UpdateProductPrice(ctx context.Context, arg database.UpdateProductPriceParams) error {
	p, ok := m.products[arg.ID]
	if !ok {
		return nil
	}
	p.Price = arg.Price
	m.products[p.ID] = p
	return nil
}

func (m *memStore) DeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	if _, ok := m.products[id]; !ok {
		return uuid.Nil, pgx.ErrNoRows
	}
	delete(m.products, id)
	m.DeleteSizesByProduct(ctx, id) //nolint:errcheck
	kept := m.prices[:0]
	for _, p := range m.prices {
		if p.ProductID != id {
			kept = append(kept, p)
		}
	}
	m.prices = kept
	return id, nil
}

// --- Categories ---

func (m *memStore) GetCategory(ctx context.Context, id uuid.UUID) (database.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return database.Category{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *memStore) addCategory(name string) database.Category {
	c := database.Category{ID: uuid.New(), Name: name, CreatedAt: m.tick()}
	m.categories[c.ID] = c
	return c
}

// --- Sizes ---

func (m *memStore) ListSizesByProduct(ctx context.Context, productID uuid.UUID) ([]database.Size, error) {
	if err := m.errs["ListSizesByProduct"]; err != nil {
		return nil, err
	}
	out := []database.Size{}
	for _, s := range m.sizes {
		if s.ProductID == productID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) CreateSize(ctx context.Context, arg database.CreateSizeParams) (database.Size, error) {
	for _, s := range m.sizes {
		if s.ProductID == arg.ProductID && s.Label == arg.Label {
			return database.Size{}, uniqueViolation()
		}
	}
	s := database.Size{ID: uuid.New(), ProductID: arg.ProductID, Label: arg.Label, CreatedAt: m.tick()}
	m.sizes = append(m.sizes, s)
	return s, nil
}

func (m *memStore) DeleteSize(ctx context.Context, arg database.DeleteSizeParams) (uuid.UUID, error) {
	for i, s := range m.sizes {
		if s.ID == arg.ID && s.ProductID == arg.ProductID {
			m.sizes = append(m.sizes[:i], m.sizes[i+1:]...)
			return s.ID, nil
		}
	}
	return uuid.Nil, pgx.ErrNoRows
}

func (m *memStore) DeleteSizesByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var n int64
	kept := m.sizes[:0]
	for _, s := range m.sizes {
		if s.ProductID == productID {
			n++
			continue
		}
		kept = append(kept, s)
	}
	m.sizes = kept
	return n, nil
}

// --- Prices ---

func (m *memStore) ListActivePricesByProduct(ctx context.Context, productID uuid.UUID) ([]database.Price, error) {
	out := []database.Price{}
	for _, p := range m.prices {
		if p.ProductID == productID && p.Status == enum.PriceStatusActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) ListPriceHistory(ctx context.Context, productID uuid.UUID) ([]database.Price, error) {
	out := []database.Price{}
	for _, p := range m.prices {
		if p.ProductID == productID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectiveDate.After(out[j].EffectiveDate)
	})
	return out, nil
}

func (m *memStore) GetActivePrice(ctx context.Context, arg database.GetActivePriceParams) (database.Price, error) {
	for _, p := range m.prices {
		if p.ProductID == arg.ProductID && sameSize(p.SizeID, arg.SizeID) && p.Status == enum.PriceStatusActive {
			return p, nil
		}
	}
	return database.Price{}, pgx.ErrNoRows
}

func (m *memStore) CreatePrice(ctx context.Context, arg database.CreatePriceParams) (database.Price, error) {
	if _, err := m.GetActivePrice(ctx, database.GetActivePriceParams{ProductID: arg.ProductID, SizeID: arg.SizeID}); err == nil {
		return database.Price{}, uniqueViolation()
	}
	p := database.Price{
		ID:            uuid.New(),
		ProductID:     arg.ProductID,
		SizeID:        arg.SizeID,
		Price:         arg.Price,
		Status:        enum.PriceStatusActive,
		EffectiveDate: m.tick(),
	}
	m.prices = append(m.prices, p)
	return p, nil
}

func (m *memStore) DeactivatePrices(ctx context.Context, arg database.DeactivatePricesParams) (int64, error) {
	var n int64
	for i, p := range m.prices {
		if p.ProductID == arg.ProductID && sameSize(p.SizeID, arg.SizeID) && p.Status == enum.PriceStatusActive {
			m.prices[i].Status = enum.PriceStatusInactive
			n++
		}
	}
	return n, nil
}

func (m *memStore) DeactivateAllPrices(ctx context.Context, productID uuid.UUID) (int64, error) {
	var n int64
	for i, p := range m.prices {
		if p.ProductID == productID && p.Status == enum.PriceStatusActive {
			m.prices[i].Status = enum.PriceStatusInactive
			n++
		}
	}
	return n, nil
}

// --- Transactions ---

func (m *memStore) CreateTransaction(ctx context.Context, arg database.CreateTransactionParams) (database.Transaction, error) {
	if err := m.errs["CreateTransaction"]; err != nil {
		return database.Transaction{}, err
	}
	now := m.tick()
	if arg.CreatedAt.Valid {
		now = arg.CreatedAt.Time
	}
	t := database.Transaction{
		ID:           uuid.New(),
		CustomerName: arg.CustomerName,
		TotalAmount:  arg.TotalAmount,
		CreatedBy:    arg.CreatedBy,
		Status:       arg.Status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.txns[t.ID] = t
	return t, nil
}

func (m *memStore) CreateTransactionItem(ctx context.Context, arg database.CreateTransactionItemParams) (database.TransactionItem, error) {
	it := database.TransactionItem{
		ID:            uuid.New(),
		TransactionID: arg.TransactionID,
		Position:      arg.Position,
		ProductID:     arg.ProductID,
		ProductName:   arg.ProductName,
		SizeID:        arg.SizeID,
		SizeLabel:     arg.SizeLabel,
		Quantity:      arg.Quantity,
		Price:         arg.Price,
	}
	m.items = append(m.items, it)
	return it, nil
}

func (m *memStore) GetTransaction(ctx context.Context, id uuid.UUID) (database.Transaction, error) {
	t, ok := m.txns[id]
	if !ok {
		return database.Transaction{}, pgx.ErrNoRows
	}
	return t, nil
}

func (m *memStore) ListTransactionItems(ctx context.Context, transactionID uuid.UUID) ([]database.TransactionItem, error) {
	return m.ListTransactionItemsByTransactions(ctx, []uuid.UUID{transactionID})
}

func (m *memStore) ListTransactionItemsByTransactions(ctx context.Context, ids []uuid.UUID) ([]database.TransactionItem, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := []database.TransactionItem{}
	for _, it := range m.items {
		if want[it.TransactionID] {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memStore) sortedTxns(asc bool) []database.Transaction {
	out := make([]database.Transaction, 0, len(m.txns))
	for _, t := range m.txns {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if asc {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *memStore) ListPendingTransactions(ctx context.Context) ([]database.Transaction, error) {
	out := []database.Transaction{}
	for _, t := range m.sortedTxns(true) {
		if t.Status == enum.TransactionStatusPending {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ListTransactions(ctx context.Context, arg database.ListTransactionsParams) ([]database.Transaction, error) {
	out := []database.Transaction{}
	for _, t := range m.sortedTxns(false) {
		if arg.Status.Valid && t.Status != arg.Status.String {
			continue
		}
		out = append(out, t)
	}
	start := int(arg.Offset)
	if start > len(out) {
		start = len(out)
	}
	end := start + int(arg.Limit)
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

func (m *memStore) UpdateTransactionStatus(ctx context.Context, arg database.UpdateTransactionStatusParams) (database.Transaction, error) {
	if err := m.errs["UpdateTransactionStatus"]; err != nil {
		return database.Transaction{}, err
	}
	t, ok := m.txns[arg.ID]
	if !ok || t.Status != arg.OldStatus {
		return database.Transaction{}, pgx.ErrNoRows
	}
	t.Status = arg.Status
	t.UpdatedAt = m.tick()
	m.txns[t.ID] = t
	return t, nil
}

func (m *memStore) CountTransactionsByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	for _, t := range m.txns {
		if t.Status == status {
			n++
		}
	}
	return n, nil
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

// addProduct seeds a product with optional sized prices. With no labels,
// prices[0] becomes the sizeless Active price.
func (m *memStore) addProduct(name string, labels []string, prices ...string) database.Product {
	p, _ := m.CreateProduct(context.Background(), database.CreateProductParams{
		Name:  name,
		Price: makeNumeric(prices[0]),
	})
	if len(labels) == 0 {
		m.CreatePrice(context.Background(), database.CreatePriceParams{ProductID: p.ID, Price: makeNumeric(prices[0])}) //nolint:errcheck
		return p
	}
	for i, l := range labels {
		s, _ := m.CreateSize(context.Background(), database.CreateSizeParams{ProductID: p.ID, Label: l})
		m.CreatePrice(context.Background(), database.CreatePriceParams{ //nolint:errcheck
			ProductID: p.ID,
			SizeID:    pgtype.UUID{Bytes: s.ID, Valid: true},
			Price:     makeNumeric(prices[i]),
		})
	}
	return p
}

// activeCounts returns the number of Active prices per size key.
func (m *memStore) activeCounts(productID uuid.UUID) map[pgtype.UUID]int {
	out := map[pgtype.UUID]int{}
	for _, p := range m.prices {
		if p.ProductID == productID && p.Status == enum.PriceStatusActive {
			out[p.SizeID]++
		}
	}
	return out
}
