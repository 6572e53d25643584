package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mira-pos/api/internal/database"
	"github.com/mira-pos/api/internal/service"
	"github.com/shopspring/decimal"
)

// ProductStore defines the database methods needed by product list views.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	ListProducts(ctx context.Context) ([]database.ListProductsRow, error)
	ListCategories(ctx context.Context) ([]database.Category, error)
}

// CatalogServicer defines the service methods needed by product handlers.
// Satisfied by *service.CatalogService.
type CatalogServicer interface {
	CreateProduct(ctx context.Context, in service.ProductInput) (*service.ProductDetail, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, in service.ProductInput) (*service.ProductDetail, error)
	DeleteSize(ctx context.Context, productID, sizeID uuid.UUID) error
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	GetProductDetail(ctx context.Context, productID uuid.UUID) (*service.ProductDetail, error)
}

// ProductHandler handles the admin product screens.
type ProductHandler struct {
	store ProductStore
	svc   CatalogServicer
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store ProductStore, svc CatalogServicer) *ProductHandler {
	return &ProductHandler{store: store, svc: svc}
}

// RegisterRoutes registers product endpoints on the given Chi router.
// Expected to be mounted at /admin/products.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/add", h.AddForm)
	r.Get("/edit/{id}", h.EditForm)
	r.Post("/add", h.Create)
	r.Post("/edit/{id}", h.Update)
	r.Post("/delete/{id}", h.Delete)
	r.Post("/{pid}/sizes/delete/{sid}", h.DeleteSize)
}

// --- Request / Response types ---

// productRequest pairs prices with sizes by index. Prices may be sent as
// JSON numbers or numeric strings.
type productRequest struct {
	Name       string        `json:"name"`
	CategoryID string        `json:"categoryId"`
	ImageURL   string        `json:"imageUrl"`
	Prices     []json.Number `json:"prices"`
	Sizes      []string      `json:"sizes"`
}

type categoryOption struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type productSummary struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Price        string     `json:"price"`
	CategoryID   *uuid.UUID `json:"categoryId"`
	CategoryName string     `json:"categoryName"`
	ImagePath    string     `json:"imagePath"`
	HasSizes     bool       `json:"hasSizes"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type sizeResponse struct {
	ID    uuid.UUID `json:"id"`
	Label string    `json:"label"`
	Price *string   `json:"price"`
}

type priceHistoryEntry struct {
	ID            uuid.UUID  `json:"id"`
	SizeID        *uuid.UUID `json:"sizeId"`
	SizeLabel     *string    `json:"sizeLabel"`
	Price         string     `json:"price"`
	Status        string     `json:"status"`
	EffectiveDate time.Time  `json:"effectiveDate"`
}

type productDetailResponse struct {
	ID           uuid.UUID           `json:"id"`
	Name         string              `json:"name"`
	Price        string              `json:"price"`
	CategoryID   *uuid.UUID          `json:"categoryId"`
	CategoryName string              `json:"categoryName"`
	ImagePath    string              `json:"imagePath"`
	Sizes        []sizeResponse      `json:"sizes"`
	SinglePrice  *string             `json:"singlePrice"`
	History      []priceHistoryEntry `json:"priceHistory,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

type productListResponse struct {
	Products   []productSummary `json:"products"`
	Categories []categoryOption `json:"categories"`
}

type productFormResponse struct {
	Product    *productDetailResponse `json:"product"`
	Categories []categoryOption       `json:"categories"`
}

// --- Conversions ---

func toCategoryOptions(cats []database.Category) []categoryOption {
	out := make([]categoryOption, len(cats))
	for i, c := range cats {
		out[i] = categoryOption{ID: c.ID, Name: c.Name}
	}
	return out
}

func toProductSummary(p database.ListProductsRow) productSummary {
	return productSummary{
		ID:           p.ID,
		Name:         p.Name,
		Price:        numericToString(p.Price),
		CategoryID:   uuidPtr(p.CategoryID),
		CategoryName: p.CategoryName.String,
		ImagePath:    p.ImagePath,
		HasSizes:     p.SizeCount > 0,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// toProductDetailResponse renders a detail; withHistory adds the
// price history shown on the admin edit form.
func toProductDetailResponse(d *service.ProductDetail, withHistory bool) productDetailResponse {
	p := d.Product
	resp := productDetailResponse{
		ID:           p.ID,
		Name:         p.Name,
		Price:        numericToString(p.Price),
		CategoryID:   uuidPtr(p.CategoryID),
		CategoryName: d.CategoryName,
		ImagePath:    p.ImagePath,
		Sizes:        make([]sizeResponse, len(d.Sizes)),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	labels := make(map[uuid.UUID]string, len(d.Sizes))
	for i, sp := range d.Sizes {
		sr := sizeResponse{ID: sp.Size.ID, Label: sp.Size.Label}
		if sp.HasPrice {
			s := sp.Price.StringFixed(2)
			sr.Price = &s
		}
		resp.Sizes[i] = sr
		labels[sp.Size.ID] = sp.Size.Label
	}
	if d.SinglePrice != nil {
		s := d.SinglePrice.StringFixed(2)
		resp.SinglePrice = &s
	}
	if withHistory {
		resp.History = make([]priceHistoryEntry, len(d.History))
		for i, pr := range d.History {
			e := priceHistoryEntry{
				ID:            pr.ID,
				SizeID:        uuidPtr(pr.SizeID),
				Price:         numericToString(pr.Price),
				Status:        pr.Status,
				EffectiveDate: pr.EffectiveDate,
			}
			// Labels of deleted sizes are gone; the entry keeps its size id.
			if e.SizeID != nil {
				if label, ok := labels[*e.SizeID]; ok {
					e.SizeLabel = &label
				}
			}
			resp.History[i] = e
		}
	}
	return resp
}

func (req productRequest) toInput() service.ProductInput {
	prices := make([]string, len(req.Prices))
	for i, p := range req.Prices {
		prices[i] = p.String()
	}
	return service.ProductInput{
		Name:       req.Name,
		CategoryID: req.CategoryID,
		ImageURL:   req.ImageURL,
		Prices:     prices,
		Sizes:      req.Sizes,
	}
}

// --- Handlers ---

// List returns all products, newest first, with the category filter options.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		log.Printf("ERROR: list products: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	cats, err := h.store.ListCategories(r.Context())
	if err != nil {
		log.Printf("ERROR: list categories: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := productListResponse{
		Products:   make([]productSummary, len(products)),
		Categories: toCategoryOptions(cats),
	}
	for i, p := range products {
		resp.Products[i] = toProductSummary(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddForm returns the empty product form model.
func (h *ProductHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.ListCategories(r.Context())
	if err != nil {
		log.Printf("ERROR: list categories: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, productFormResponse{Categories: toCategoryOptions(cats)})
}

// EditForm returns the product with its sizes and full price history.
func (h *ProductHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	detail, err := h.svc.GetProductDetail(r.Context(), id)
	if err != nil {
		writeCatalogError(w, "get product", err)
		return
	}
	cats, err := h.store.ListCategories(r.Context())
	if err != nil {
		log.Printf("ERROR: list categories: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := toProductDetailResponse(detail, true)
	writeJSON(w, http.StatusOK, productFormResponse{Product: &resp, Categories: toCategoryOptions(cats)})
}

// Create adds a product with its sizes and opening prices.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeNumbers(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	detail, err := h.svc.CreateProduct(r.Context(), req.toInput())
	if err != nil {
		writeCatalogError(w, "create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDetailResponse(detail, true))
}

// Update applies an edit, versioning prices that changed.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req productRequest
	if err := decodeNumbers(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	detail, err := h.svc.UpdateProduct(r.Context(), id, req.toInput())
	if err != nil {
		writeCatalogError(w, "update product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDetailResponse(detail, true))
}

// Delete removes a product with its sizes and price history.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	if err := h.svc.DeleteProduct(r.Context(), id); err != nil {
		writeCatalogError(w, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSize removes one size from a multi-size product.
func (h *ProductHandler) DeleteSize(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}
	sizeID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid size ID")
		return
	}

	if err := h.svc.DeleteSize(r.Context(), productID, sizeID); err != nil {
		writeCatalogError(w, "delete size", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func decodeNumbers(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(v)
}

func writeCatalogError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, service.ErrSizeNotFound):
		writeError(w, http.StatusNotFound, "size not found")
	case errors.Is(err, service.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, "category not found")
	case isCatalogValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func isCatalogValidationError(err error) bool {
	return errors.Is(err, service.ErrProductNameRequired) ||
		errors.Is(err, service.ErrDuplicateProductName) ||
		errors.Is(err, service.ErrPricesRequired) ||
		errors.Is(err, service.ErrInvalidPrice) ||
		errors.Is(err, service.ErrPricePrecision) ||
		errors.Is(err, service.ErrPriceTooLarge) ||
		errors.Is(err, service.ErrSinglePriceCount) ||
		errors.Is(err, service.ErrSizePriceMismatch) ||
		errors.Is(err, service.ErrInvalidSizeLabel) ||
		errors.Is(err, service.ErrDuplicateSizeLabel) ||
		errors.Is(err, service.ErrInvalidCategoryID) ||
		errors.Is(err, service.ErrLastSize)
}

func uuidPtr(id pgtype.UUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	u := uuid.UUID(id.Bytes)
	return &u
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
