package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mira-pos/api/internal/database"
	"github.com/mira-pos/api/internal/enum"
	"github.com/mira-pos/api/internal/service"
)

// MenuStore defines the database methods needed by the front liner catalog.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListCategories(ctx context.Context) ([]database.Category, error)
	ListProducts(ctx context.Context) ([]database.ListProductsRow, error)
	CountTransactionsByStatus(ctx context.Context, status string) (int64, error)
}

// ProductDetailer loads a product with its sizes and Active prices.
type ProductDetailer interface {
	GetProductDetail(ctx context.Context, productID uuid.UUID) (*service.ProductDetail, error)
}

// MenuHandler serves the catalog the front liner builds carts from.
type MenuHandler struct {
	store   MenuStore
	catalog ProductDetailer
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, catalog ProductDetailer) *MenuHandler {
	return &MenuHandler{store: store, catalog: catalog}
}

// RegisterRoutes registers the catalog endpoints on the given Chi router.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/product/{id}", h.Product)
}

// --- Request / Response types ---

type menuResponse struct {
	Categories []categoryOption `json:"categories"`
	Products   []productSummary `json:"products"`
	ReadyCount int64            `json:"readyCount"`
}

type menuProductResponse struct {
	Product    productDetailResponse `json:"product"`
	ReadyCount int64                 `json:"readyCount"`
}

// --- Handlers ---

// Home lists categories and every product with its lowest price.
func (h *MenuHandler) Home(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.ListCategories(r.Context())
	if err != nil {
		log.Printf("ERROR: list categories: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		log.Printf("ERROR: list products: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	ready, err := h.store.CountTransactionsByStatus(r.Context(), enum.TransactionStatusReady)
	if err != nil {
		log.Printf("ERROR: count ready orders: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := menuResponse{
		Categories: toCategoryOptions(cats),
		Products:   make([]productSummary, len(products)),
		ReadyCount: ready,
	}
	for i, p := range products {
		resp.Products[i] = toProductSummary(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Product returns one product with its sizes and their Active prices.
func (h *MenuHandler) Product(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	detail, err := h.catalog.GetProductDetail(r.Context(), id)
	if err != nil {
		writeCatalogError(w, "get product", err)
		return
	}
	ready, err := h.store.CountTransactionsByStatus(r.Context(), enum.TransactionStatusReady)
	if err != nil {
		log.Printf("ERROR: count ready orders: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, menuProductResponse{
		Product:    toProductDetailResponse(detail, false),
		ReadyCount: ready,
	})
}
