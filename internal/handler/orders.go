package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mira-pos/api/internal/enum"
	"github.com/mira-pos/api/internal/middleware"
	"github.com/mira-pos/api/internal/service"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	MarkReady(ctx context.Context, id uuid.UUID) (*service.StatusChange, error)
	Complete(ctx context.Context, id uuid.UUID) (*service.StatusChange, error)
	Cancel(ctx context.Context, id uuid.UUID) (*service.StatusChange, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*service.OrderResult, error)
	PendingOrders(ctx context.Context) ([]service.OrderResult, error)
	ListOrders(ctx context.Context, status string, limit, offset int32) ([]service.OrderResult, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
}

// OrderHandler serves the order lifecycle to front liners, cooks and admins.
type OrderHandler struct {
	svc OrderServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterFrontLinerRoutes registers the cart, sales and settle endpoints.
func (h *OrderHandler) RegisterFrontLinerRoutes(r chi.Router) {
	r.Get("/cart", h.Cart)
	r.Get("/sales", h.Sales)
	r.Post("/orders", h.Create)
	r.Post("/orders/{id}/complete", h.Complete)
	r.Post("/orders/{id}/cancel", h.Cancel)
}

// RegisterCookRoutes registers the kitchen queue endpoints.
// Expected to be mounted at /cook.
func (h *OrderHandler) RegisterCookRoutes(r chi.Router) {
	r.Get("/dashboard", h.CookDashboard)
	r.Post("/orders/{id}/ready", h.MarkReady)
}

// RegisterAdminRoutes registers the admin order list.
// Expected to be mounted at /admin/orders.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// --- Request / Response types ---

type cartItemRequest struct {
	ID        string      `json:"id"`
	Quantity  json.Number `json:"quantity"`
	Price     json.Number `json:"price"`
	SizeLabel string      `json:"sizeLabel"`
}

type createOrderRequest struct {
	Cart         []cartItemRequest `json:"cart"`
	CustomerName string            `json:"customerName"`
}

type createOrderResponse struct {
	Success bool      `json:"success"`
	OrderID uuid.UUID `json:"orderId"`
}

type createOrderFailure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type principalView struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}

type cartResponse struct {
	User       principalView `json:"user"`
	ReadyCount int64         `json:"readyCount"`
}

type salesResponse struct {
	Transactions []service.OrderView `json:"transactions"`
	Status       string              `json:"status,omitempty"`
	ReadyCount   int64               `json:"readyCount"`
	Limit        int32               `json:"limit"`
	Offset       int32               `json:"offset"`
}

type cookDashboardResponse struct {
	Orders []service.OrderView `json:"orders"`
}

type orderListResponse struct {
	Orders []service.OrderView `json:"orders"`
	Status string              `json:"status,omitempty"`
	Limit  int32               `json:"limit"`
	Offset int32               `json:"offset"`
}

// --- Handlers ---

// Cart returns the cart page model: who is ringing up and the ready badge.
func (h *OrderHandler) Cart(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	ready, ok := h.readyCount(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{
		User:       principalView{ID: claims.UserID, Username: claims.Username, Role: claims.Role},
		ReadyCount: ready,
	})
}

// Sales lists transactions newest first, optionally filtered by ?status=.
func (h *OrderHandler) Sales(w http.ResponseWriter, r *http.Request) {
	status, ok := parseStatusFilter(w, r)
	if !ok {
		return
	}
	limit, offset := parsePagination(r)

	orders, err := h.svc.ListOrders(r.Context(), status, limit, offset)
	if err != nil {
		log.Printf("ERROR: list sales: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	ready, ok := h.readyCount(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, salesResponse{
		Transactions: service.Views(orders),
		Status:       status,
		ReadyCount:   ready,
		Limit:        limit,
		Offset:       offset,
	})
}

// Create submits the cart. Client prices are ignored; the server
// re-resolves each line from the current Active price.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req createOrderRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, createOrderFailure{Message: "invalid request body"})
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Cart))
	for i, c := range req.Cart {
		qty, err := strconv.ParseInt(c.Quantity.String(), 10, 32)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, createOrderFailure{
				Message: formatItemError(i, service.ErrInvalidQuantity.Error()),
			})
			return
		}
		items[i] = service.CreateOrderItemRequest{
			ProductID: c.ID,
			Quantity:  int32(qty),
			SizeLabel: strings.TrimSpace(c.SizeLabel),
			Price:     c.Price.String(),
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		CreatedBy:    claims.UserID,
		CustomerName: strings.TrimSpace(req.CustomerName),
		Items:        items,
	})
	if err != nil {
		if isOrderValidationError(err) {
			writeJSON(w, http.StatusBadRequest, createOrderFailure{Message: err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, createOrderFailure{Message: "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, createOrderResponse{Success: true, OrderID: result.Transaction.ID})
}

// Complete settles an order at the counter.
func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "complete order", h.svc.Complete)
}

// Cancel voids an order that is not yet settled.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "cancel order", h.svc.Cancel)
}

// MarkReady is the cook's handoff to the counter.
func (h *OrderHandler) MarkReady(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "mark order ready", h.svc.MarkReady)
}

// CookDashboard returns the Pending queue, oldest first.
func (h *OrderHandler) CookDashboard(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.PendingOrders(r.Context())
	if err != nil {
		log.Printf("ERROR: list pending orders: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, cookDashboardResponse{Orders: service.Views(orders)})
}

// List is the admin order list with ?status=, ?limit= and ?offset=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	status, ok := parseStatusFilter(w, r)
	if !ok {
		return
	}
	limit, offset := parsePagination(r)

	orders, err := h.svc.ListOrders(r.Context(), status, limit, offset)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: service.Views(orders),
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
}

// Get returns one transaction with its line items.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}
	order, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTransactionNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, order.View())
}

// --- Helpers ---

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, uuid.UUID) (*service.StatusChange, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	change, err := fn(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTransactionNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrStatusConflict):
			writeError(w, http.StatusConflict, err.Error())
		default:
			log.Printf("ERROR: %s: %v", op, err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	writeJSON(w, http.StatusOK, change)
}

func (h *OrderHandler) readyCount(w http.ResponseWriter, r *http.Request) (int64, bool) {
	n, err := h.svc.CountByStatus(r.Context(), enum.TransactionStatusReady)
	if err != nil {
		log.Printf("ERROR: count ready orders: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return 0, false
	}
	return n, true
}

func parseStatusFilter(w http.ResponseWriter, r *http.Request) (string, bool) {
	status := r.URL.Query().Get("status")
	if status == "" || isValidTransactionStatus(status) {
		return status, true
	}
	writeError(w, http.StatusBadRequest, "invalid status filter")
	return "", false
}

func parsePagination(r *http.Request) (limit, offset int32) {
	limit = defaultPageSize
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = int32(min(v, maxPageSize))
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = int32(v)
		}
	}
	return limit, offset
}

func isValidTransactionStatus(s string) bool {
	switch s {
	case enum.TransactionStatusPending,
		enum.TransactionStatusReady,
		enum.TransactionStatusCompleted,
		enum.TransactionStatusCancelled:
		return true
	}
	return false
}

func formatItemError(idx int, msg string) string {
	return fmt.Sprintf("item[%d]: %s", idx, msg)
}

func isOrderValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidProductID) ||
		errors.Is(err, service.ErrProductNotFound) ||
		errors.Is(err, service.ErrSizeRequired) ||
		errors.Is(err, service.ErrSizeNotFound) ||
		errors.Is(err, service.ErrPriceNotFound) ||
		errors.Is(err, service.ErrAmountTooLarge)
}
