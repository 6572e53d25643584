package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mira-pos/api/internal/database"
	"github.com/shopspring/decimal"
)

// Errors returned by the catalog service.
var (
	ErrProductNameRequired  = errors.New("product name is required")
	ErrDuplicateProductName = errors.New("product name already exists")
	ErrPricesRequired       = errors.New("at least one price is required")
	ErrInvalidPrice         = errors.New("price must be a non-negative number")
	ErrPricePrecision       = errors.New("price must have at most 2 decimal places")
	ErrPriceTooLarge        = errors.New("price must be less than 10000000000")
	ErrSinglePriceCount     = errors.New("a product without sizes takes exactly one price")
	ErrSizePriceMismatch    = errors.New("each size needs exactly one price")
	ErrInvalidSizeLabel     = errors.New("size label is required")
	ErrDuplicateSizeLabel   = errors.New("duplicate size label")
	ErrInvalidCategoryID    = errors.New("invalid category id")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrLastSize             = errors.New("cannot delete the last size of a product")
)

// CatalogStore defines the DB methods needed to version products,
// sizes and prices. Satisfied by *database.Queries.
type CatalogStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	UpdateProductPrice(ctx context.Context, arg database.UpdateProductPriceParams) error
	DeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	GetCategory(ctx context.Context, id uuid.UUID) (database.Category, error)
	ListSizesByProduct(ctx context.Context, productID uuid.UUID) ([]database.Size, error)
	CreateSize(ctx context.Context, arg database.CreateSizeParams) (database.Size, error)
	DeleteSize(ctx context.Context, arg database.DeleteSizeParams) (uuid.UUID, error)
	DeleteSizesByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
	ListActivePricesByProduct(ctx context.Context, productID uuid.UUID) ([]database.Price, error)
	ListPriceHistory(ctx context.Context, productID uuid.UUID) ([]database.Price, error)
	CreatePrice(ctx context.Context, arg database.CreatePriceParams) (database.Price, error)
	DeactivatePrices(ctx context.Context, arg database.DeactivatePricesParams) (int64, error)
	DeactivateAllPrices(ctx context.Context, productID uuid.UUID) (int64, error)
}

// NewCatalogStore creates a CatalogStore from a DBTX (pool or tx).
type NewCatalogStore func(db database.DBTX) CatalogStore

// ProductInput is the admin product form. Prices pair with Sizes by
// index; with no Sizes, Prices holds the single price.
type ProductInput struct {
	Name       string
	CategoryID string
	ImageURL   string
	Prices     []string
	Sizes      []string
}

// SizePrice is a size with its current Active price.
type SizePrice struct {
	Size     database.Size
	Price    decimal.Decimal
	HasPrice bool
}

// ProductDetail is a product with its sizes, Active prices and history.
type ProductDetail struct {
	Product      database.Product
	CategoryName string
	Sizes        []SizePrice
	// SinglePrice is the sizeless Active price, set only when Sizes is empty.
	SinglePrice *decimal.Decimal
	History     []database.Price
}

// CatalogService maintains products and their size/price history.
type CatalogService struct {
	pool     TxBeginner
	store    CatalogStore
	newStore NewCatalogStore
}

func NewCatalogService(pool TxBeginner, store CatalogStore, newStore NewCatalogStore) *CatalogService {
	return &CatalogService{pool: pool, store: store, newStore: newStore}
}

// productPlan is a validated ProductInput.
type productPlan struct {
	name       string
	categoryID pgtype.UUID
	imagePath  string
	prices     []decimal.Decimal
	labels     []string
}

func (p productPlan) minPrice() decimal.Decimal {
	return decimal.Min(p.prices[0], p.prices[1:]...)
}

func planProduct(in ProductInput) (productPlan, error) {
	plan := productPlan{
		name:      strings.TrimSpace(in.Name),
		imagePath: strings.TrimSpace(in.ImageURL),
	}
	if plan.name == "" {
		return plan, ErrProductNameRequired
	}

	if id := strings.TrimSpace(in.CategoryID); id != "" {
		cid, err := uuid.Parse(id)
		if err != nil {
			return plan, ErrInvalidCategoryID
		}
		plan.categoryID = pgtype.UUID{Bytes: cid, Valid: true}
	}

	if len(in.Prices) == 0 {
		return plan, ErrPricesRequired
	}
	for _, raw := range in.Prices {
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil || d.IsNegative() {
			return plan, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
		}
		if !d.Equal(d.Round(2)) {
			return plan, fmt.Errorf("%w: %q", ErrPricePrecision, raw)
		}
		if d.GreaterThanOrEqual(maxAmount) {
			return plan, fmt.Errorf("%w: %q", ErrPriceTooLarge, raw)
		}
		plan.prices = append(plan.prices, d)
	}

	seen := make(map[string]bool, len(in.Sizes))
	for _, raw := range in.Sizes {
		label := strings.TrimSpace(raw)
		if label == "" {
			return plan, ErrInvalidSizeLabel
		}
		if seen[label] {
			return plan, fmt.Errorf("%w: %q", ErrDuplicateSizeLabel, label)
		}
		seen[label] = true
		plan.labels = append(plan.labels, label)
	}

	if len(plan.labels) == 0 && len(plan.prices) != 1 {
		return plan, ErrSinglePriceCount
	}
	if len(plan.labels) > 0 && len(plan.labels) != len(plan.prices) {
		return plan, ErrSizePriceMismatch
	}
	return plan, nil
}

func checkCategory(ctx context.Context, store CatalogStore, id pgtype.UUID) error {
	if !id.Valid {
		return nil
	}
	if _, err := store.GetCategory(ctx, id.Bytes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("get category: %w", err)
	}
	return nil
}

// CreateProduct creates a product with one Active price per size, or a
// single sizeless Active price.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*ProductDetail, error) {
	plan, err := planProduct(in)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if err := checkCategory(ctx, store, plan.categoryID); err != nil {
		return nil, err
	}

	product, err := store.CreateProduct(ctx, database.CreateProductParams{
		Name:       plan.name,
		Price:      decimalToNumeric(plan.minPrice()),
		CategoryID: plan.categoryID,
		ImagePath:  plan.imagePath,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateProductName
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	if len(plan.labels) == 0 {
		if err := activatePrice(ctx, store, product.ID, pgtype.UUID{}, plan.prices[0]); err != nil {
			return nil, err
		}
	}
	for i, label := range plan.labels {
		if err := createSizeWithPrice(ctx, store, product.ID, label, plan.prices[i]); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetProductDetail(ctx, product.ID)
}

// UpdateProduct applies an edit to a product, reconciling its sizes and
// Active prices against the submitted labels. The product row is locked
// for the duration so concurrent edits serialize.
func (s *CatalogService) UpdateProduct(ctx context.Context, productID uuid.UUID, in ProductInput) (*ProductDetail, error) {
	plan, err := planProduct(in)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetProductForUpdate(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}

	// An unchanged reference may point at a deleted category.
	if plan.categoryID != current.CategoryID {
		if err := checkCategory(ctx, store, plan.categoryID); err != nil {
			return nil, err
		}
	}

	existing, err := store.ListSizesByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list sizes: %w", err)
	}
	active, err := store.ListActivePricesByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list active prices: %w", err)
	}
	activeBySize := indexActivePrices(active)

	switch {
	case len(existing) > 0 && len(plan.labels) == 0:
		if _, err := store.DeactivateAllPrices(ctx, productID); err != nil {
			return nil, fmt.Errorf("deactivate prices: %w", err)
		}
		if _, err := store.DeleteSizesByProduct(ctx, productID); err != nil {
			return nil, fmt.Errorf("delete sizes: %w", err)
		}
		if err := activatePrice(ctx, store, productID, pgtype.UUID{}, plan.prices[0]); err != nil {
			return nil, err
		}

	case len(existing) == 0 && len(plan.labels) > 0:
		if err := deactivatePrices(ctx, store, productID, pgtype.UUID{}); err != nil {
			return nil, err
		}
		for i, label := range plan.labels {
			if err := createSizeWithPrice(ctx, store, productID, label, plan.prices[i]); err != nil {
				return nil, err
			}
		}

	case len(existing) > 0:
		wanted := make(map[string]decimal.Decimal, len(plan.labels))
		for i, label := range plan.labels {
			wanted[label] = plan.prices[i]
		}
		byLabel := make(map[string]database.Size, len(existing))
		for _, sz := range existing {
			byLabel[sz.Label] = sz
			if _, keep := wanted[sz.Label]; keep {
				continue
			}
			sizeID := pgtype.UUID{Bytes: sz.ID, Valid: true}
			if _, err := store.DeleteSize(ctx, database.DeleteSizeParams{ID: sz.ID, ProductID: productID}); err != nil {
				return nil, fmt.Errorf("delete size %q: %w", sz.Label, err)
			}
			if err := deactivatePrices(ctx, store, productID, sizeID); err != nil {
				return nil, err
			}
		}
		for i, label := range plan.labels {
			sz, ok := byLabel[label]
			if !ok {
				if err := createSizeWithPrice(ctx, store, productID, label, plan.prices[i]); err != nil {
					return nil, err
				}
				continue
			}
			sizeID := pgtype.UUID{Bytes: sz.ID, Valid: true}
			if err := replacePriceIfChanged(ctx, store, productID, sizeID, activeBySize, plan.prices[i]); err != nil {
				return nil, err
			}
		}

	default:
		if err := replacePriceIfChanged(ctx, store, productID, pgtype.UUID{}, activeBySize, plan.prices[0]); err != nil {
			return nil, err
		}
	}

	imagePath := plan.imagePath
	if imagePath == "" {
		imagePath = current.ImagePath
	}
	if _, err := store.UpdateProduct(ctx, database.UpdateProductParams{
		ID:         productID,
		Name:       plan.name,
		Price:      decimalToNumeric(plan.minPrice()),
		CategoryID: plan.categoryID,
		ImagePath:  imagePath,
	}); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateProductName
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetProductDetail(ctx, productID)
}

// DeleteSize removes one size of a multi-size product, deactivates its
// prices and recomputes the product price.
func (s *CatalogService) DeleteSize(ctx context.Context, productID, sizeID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetProductForUpdate(ctx, productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("lock product: %w", err)
	}

	sizes, err := store.ListSizesByProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("list sizes: %w", err)
	}
	found := false
	for _, sz := range sizes {
		if sz.ID == sizeID {
			found = true
			break
		}
	}
	if !found {
		return ErrSizeNotFound
	}
	if len(sizes) == 1 {
		return ErrLastSize
	}

	if _, err := store.DeleteSize(ctx, database.DeleteSizeParams{ID: sizeID, ProductID: productID}); err != nil {
		return fmt.Errorf("delete size: %w", err)
	}
	if err := deactivatePrices(ctx, store, productID, pgtype.UUID{Bytes: sizeID, Valid: true}); err != nil {
		return err
	}

	active, err := store.ListActivePricesByProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("list active prices: %w", err)
	}
	if len(active) > 0 {
		lowest := numericToDecimal(active[0].Price)
		for _, p := range active[1:] {
			lowest = decimal.Min(lowest, numericToDecimal(p.Price))
		}
		if err := store.UpdateProductPrice(ctx, database.UpdateProductPriceParams{
			ID:    productID,
			Price: decimalToNumeric(lowest),
		}); err != nil {
			return fmt.Errorf("update product price: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// DeleteProduct removes a product; sizes and price history cascade.
// Transactions keep their line-item snapshots.
func (s *CatalogService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.store.DeleteProduct(ctx, productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

// GetProductDetail loads a product with its sizes, Active prices and
// full price history (newest first).
func (s *CatalogService) GetProductDetail(ctx context.Context, productID uuid.UUID) (*ProductDetail, error) {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	detail := &ProductDetail{Product: product}

	if product.CategoryID.Valid {
		cat, err := s.store.GetCategory(ctx, product.CategoryID.Bytes)
		switch {
		case err == nil:
			detail.CategoryName = cat.Name
		case errors.Is(err, pgx.ErrNoRows):
			// dangling reference to a deleted category
		default:
			return nil, fmt.Errorf("get category: %w", err)
		}
	}

	sizes, err := s.store.ListSizesByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list sizes: %w", err)
	}
	active, err := s.store.ListActivePricesByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list active prices: %w", err)
	}
	activeBySize := indexActivePrices(active)

	detail.Sizes = make([]SizePrice, 0, len(sizes))
	for _, sz := range sizes {
		sp := SizePrice{Size: sz}
		if p, ok := activeBySize[pgtype.UUID{Bytes: sz.ID, Valid: true}]; ok {
			sp.Price = numericToDecimal(p.Price)
			sp.HasPrice = true
		}
		detail.Sizes = append(detail.Sizes, sp)
	}
	if len(sizes) == 0 {
		if p, ok := activeBySize[pgtype.UUID{}]; ok {
			d := numericToDecimal(p.Price)
			detail.SinglePrice = &d
		}
	}

	detail.History, err = s.store.ListPriceHistory(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list price history: %w", err)
	}
	return detail, nil
}

// --- Helpers ---

func indexActivePrices(prices []database.Price) map[pgtype.UUID]database.Price {
	out := make(map[pgtype.UUID]database.Price, len(prices))
	for _, p := range prices {
		key := pgtype.UUID{}
		if p.SizeID.Valid {
			key = pgtype.UUID{Bytes: p.SizeID.Bytes, Valid: true}
		}
		out[key] = p
	}
	return out
}

func createSizeWithPrice(ctx context.Context, store CatalogStore, productID uuid.UUID, label string, price decimal.Decimal) error {
	size, err := store.CreateSize(ctx, database.CreateSizeParams{ProductID: productID, Label: label})
	if err != nil {
		return fmt.Errorf("create size %q: %w", label, err)
	}
	return activatePrice(ctx, store, productID, pgtype.UUID{Bytes: size.ID, Valid: true}, price)
}

func activatePrice(ctx context.Context, store CatalogStore, productID uuid.UUID, sizeID pgtype.UUID, price decimal.Decimal) error {
	if _, err := store.CreatePrice(ctx, database.CreatePriceParams{
		ProductID: productID,
		SizeID:    sizeID,
		Price:     decimalToNumeric(price),
	}); err != nil {
		return fmt.Errorf("create price: %w", err)
	}
	return nil
}

func deactivatePrices(ctx context.Context, store CatalogStore, productID uuid.UUID, sizeID pgtype.UUID) error {
	if _, err := store.DeactivatePrices(ctx, database.DeactivatePricesParams{
		ProductID: productID,
		SizeID:    sizeID,
	}); err != nil {
		return fmt.Errorf("deactivate prices: %w", err)
	}
	return nil
}

// replacePriceIfChanged swaps the Active price for (product, size) when
// the value differs. An unchanged price keeps its effective date.
func replacePriceIfChanged(ctx context.Context, store CatalogStore, productID uuid.UUID, sizeID pgtype.UUID, active map[pgtype.UUID]database.Price, price decimal.Decimal) error {
	if cur, ok := active[sizeID]; ok && numericToDecimal(cur.Price).Equal(price) {
		return nil
	}
	if err := deactivatePrices(ctx, store, productID, sizeID); err != nil {
		return err
	}
	return activatePrice(ctx, store, productID, sizeID, price)
}
