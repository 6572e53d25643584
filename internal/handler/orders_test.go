package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mira-pos/api/internal/database"
	"github.com/mira-pos/api/internal/enum"
	"github.com/mira-pos/api/internal/handler"
	"github.com/mira-pos/api/internal/service"
)

// --- Mock service ---

type mockOrderService struct {
	orders map[uuid.UUID]*service.OrderResult
	ready  int64

	createErr error
	lastReq   service.CreateOrderRequest
	listErr   error

	gotStatus string
	gotLimit  int32
	gotOffset int32
}

func newMockOrderService() *mockOrderService {
	return &mockOrderService{orders: make(map[uuid.UUID]*service.OrderResult)}
}

func (m *mockOrderService) addOrder(status string) uuid.UUID {
	id := uuid.New()
	m.orders[id] = &service.OrderResult{
		Transaction: database.Transaction{
			ID:           id,
			CustomerName: "Ana",
			TotalAmount:  testNumeric("240"),
			Status:       status,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		},
		Items: []database.TransactionItem{{
			TransactionID: id,
			ProductID:     uuid.New(),
			ProductName:   "Latte",
			SizeLabel:     pgtype.Text{String: "Large", Valid: true},
			Quantity:      2,
			Price:         testNumeric("120"),
		}},
	}
	return id
}

func (m *mockOrderService) CreateOrder(_ context.Context, req service.CreateOrderRequest) (*service.OrderResult, error) {
	m.lastReq = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	id := m.addOrder(enum.TransactionStatusPending)
	return m.orders[id], nil
}

func (m *mockOrderService) change(id uuid.UUID, next string) (*service.StatusChange, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, service.ErrTransactionNotFound
	}
	old := o.Transaction.Status
	if old == enum.TransactionStatusCompleted || old == enum.TransactionStatusCancelled ||
		(next == enum.TransactionStatusReady && old != enum.TransactionStatusPending) {
		return nil, fmt.Errorf("%w: cannot transition from %s to %s", service.ErrInvalidTransition, old, next)
	}
	o.Transaction.Status = next
	return &service.StatusChange{OrderID: id, OldStatus: old, NewStatus: next}, nil
}

func (m *mockOrderService) MarkReady(_ context.Context, id uuid.UUID) (*service.StatusChange, error) {
	return m.change(id, enum.TransactionStatusReady)
}

func (m *mockOrderService) Complete(_ context.Context, id uuid.UUID) (*service.StatusChange, error) {
	return m.change(id, enum.TransactionStatusCompleted)
}

func (m *mockOrderService) Cancel(_ context.Context, id uuid.UUID) (*service.StatusChange, error) {
	return m.change(id, enum.TransactionStatusCancelled)
}

func (m *mockOrderService) GetOrder(_ context.Context, id uuid.UUID) (*service.OrderResult, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, service.ErrTransactionNotFound
	}
	return o, nil
}

func (m *mockOrderService) PendingOrders(_ context.Context) ([]service.OrderResult, error) {
	var out []service.OrderResult
	for _, o := range m.orders {
		if o.Transaction.Status == enum.TransactionStatusPending {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderService) ListOrders(_ context.Context, status string, limit, offset int32) ([]service.OrderResult, error) {
	m.gotStatus, m.gotLimit, m.gotOffset = status, limit, offset
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []service.OrderResult
	for _, o := range m.orders {
		if status == "" || o.Transaction.Status == status {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderService) CountByStatus(_ context.Context, status string) (int64, error) {
	if status == enum.TransactionStatusReady {
		return m.ready, nil
	}
	return 0, nil
}

// --- Helpers ---

var frontLinerID = uuid.New()

func setupOrderRouter(svc *mockOrderService) *chi.Mux {
	h := handler.NewOrderHandler(svc)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(asUser(frontLinerID, "fl1", enum.UserRoleFrontLiner))
		h.RegisterFrontLinerRoutes(r)
		r.Route("/cook", h.RegisterCookRoutes)
		r.Route("/admin/orders", h.RegisterAdminRoutes)
	})
	return r
}

// --- Create tests ---

func TestCreateOrder_Success(t *testing.T) {
	svc := newMockOrderService()
	router := setupOrderRouter(svc)
	productID := uuid.New()

	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
		"customerName": "  Ana ",
		"cart": []map[string]interface{}{
			{"id": productID.String(), "quantity": 2, "price": 1, "sizeLabel": "Large"},
		},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["success"] != true || resp["orderId"] == "" {
		t.Errorf("body: %v", resp)
	}

	req := svc.lastReq
	if req.CreatedBy != frontLinerID {
		t.Errorf("created by: %s", req.CreatedBy)
	}
	if req.CustomerName != "Ana" {
		t.Errorf("customer name: %q", req.CustomerName)
	}
	if len(req.Items) != 1 || req.Items[0].ProductID != productID.String() ||
		req.Items[0].Quantity != 2 || req.Items[0].SizeLabel != "Large" {
		t.Errorf("items: %+v", req.Items)
	}
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"empty", service.ErrEmptyItems},
		{"quantity", fmt.Errorf("item[0]: %w", service.ErrInvalidQuantity)},
		{"product id", fmt.Errorf("item[0]: %w", service.ErrInvalidProductID)},
		{"product", fmt.Errorf("item[0]: %w", service.ErrProductNotFound)},
		{"size required", fmt.Errorf("item[0]: %w", service.ErrSizeRequired)},
		{"size", fmt.Errorf("item[0]: %w", service.ErrSizeNotFound)},
		{"price", fmt.Errorf("item[0]: %w", service.ErrPriceNotFound)},
		{"amount", fmt.Errorf("item[1]: %w", service.ErrAmountTooLarge)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newMockOrderService()
			svc.createErr = tc.err
			router := setupOrderRouter(svc)

			rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
				"cart": []map[string]interface{}{{"id": uuid.New().String(), "quantity": 1}},
			})
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			resp := decodeResponse(t, rr)
			if resp["success"] != false || resp["message"] != tc.err.Error() {
				t.Errorf("body: %v", resp)
			}
		})
	}
}

func TestCreateOrder_NonIntegerQuantity(t *testing.T) {
	svc := newMockOrderService()
	router := setupOrderRouter(svc)

	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
		"cart": []map[string]interface{}{{"id": uuid.New().String(), "quantity": 1.5}},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if resp := decodeResponse(t, rr); resp["message"] != "item[0]: quantity must be > 0" {
		t.Errorf("message: %v", resp["message"])
	}
}

func TestCreateOrder_InternalError(t *testing.T) {
	svc := newMockOrderService()
	svc.createErr = errors.New("db down")
	router := setupOrderRouter(svc)

	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
		"cart": []map[string]interface{}{{"id": uuid.New().String(), "quantity": 1}},
	})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if resp := decodeResponse(t, rr); resp["success"] != false {
		t.Errorf("body: %v", resp)
	}
}

// --- Transition tests ---

func TestOrderTransitions(t *testing.T) {
	cases := []struct {
		name     string
		from     string
		path     string
		wantCode int
		wantTo   string
	}{
		{"cook marks pending ready", enum.TransactionStatusPending, "/cook/orders/%s/ready", http.StatusOK, enum.TransactionStatusReady},
		{"complete ready", enum.TransactionStatusReady, "/orders/%s/complete", http.StatusOK, enum.TransactionStatusCompleted},
		{"complete pending", enum.TransactionStatusPending, "/orders/%s/complete", http.StatusOK, enum.TransactionStatusCompleted},
		{"cancel ready", enum.TransactionStatusReady, "/orders/%s/cancel", http.StatusOK, enum.TransactionStatusCancelled},
		{"cancel completed", enum.TransactionStatusCompleted, "/orders/%s/cancel", http.StatusConflict, enum.TransactionStatusCompleted},
		{"complete cancelled", enum.TransactionStatusCancelled, "/orders/%s/complete", http.StatusConflict, enum.TransactionStatusCancelled},
		{"ready twice", enum.TransactionStatusReady, "/cook/orders/%s/ready", http.StatusConflict, enum.TransactionStatusReady},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newMockOrderService()
			id := svc.addOrder(tc.from)
			router := setupOrderRouter(svc)

			rr := doRequest(t, router, "POST", fmt.Sprintf(tc.path, id), nil)
			if rr.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d: %s", tc.wantCode, rr.Code, rr.Body.String())
			}
			if got := svc.orders[id].Transaction.Status; got != tc.wantTo {
				t.Errorf("status: got %s, want %s", got, tc.wantTo)
			}
			if tc.wantCode == http.StatusOK {
				resp := decodeResponse(t, rr)
				if resp["orderId"] != id.String() || resp["oldStatus"] != tc.from || resp["newStatus"] != tc.wantTo {
					t.Errorf("body: %v", resp)
				}
			}
		})
	}
}

func TestOrderTransition_NotFoundAndBadID(t *testing.T) {
	router := setupOrderRouter(newMockOrderService())

	rr := doRequest(t, router, "POST", "/orders/"+uuid.New().String()+"/complete", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown id: expected 404, got %d", rr.Code)
	}

	rr = doRequest(t, router, "POST", "/orders/not-a-uuid/cancel", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", rr.Code)
	}
}

func TestOrderTransition_Conflict(t *testing.T) {
	h := handler.NewOrderHandler(&conflictOrderService{mockOrderService: newMockOrderService()})
	r := chi.NewRouter()
	r.Route("/cook", h.RegisterCookRoutes)

	rr := doRequest(t, r, "POST", "/cook/orders/"+uuid.New().String()+"/ready", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

type conflictOrderService struct {
	*mockOrderService
}

func (c *conflictOrderService) MarkReady(context.Context, uuid.UUID) (*service.StatusChange, error) {
	return nil, service.ErrStatusConflict
}

// --- Read tests ---

func TestCookDashboard_PendingOnly(t *testing.T) {
	svc := newMockOrderService()
	svc.addOrder(enum.TransactionStatusPending)
	svc.addOrder(enum.TransactionStatusReady)
	router := setupOrderRouter(svc)

	rr := doRequest(t, router, "GET", "/cook/dashboard", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decodeResponse(t, rr)
	orders := resp["orders"].([]interface{})
	if len(orders) != 1 {
		t.Fatalf("expected 1 pending order, got %d", len(orders))
	}
	order := orders[0].(map[string]interface{})
	if order["createdAt"] == nil {
		t.Error("cook queue needs createdAt for timers")
	}
	items := order["items"].([]interface{})
	item := items[0].(map[string]interface{})
	if item["productName"] != "Latte" || item["sizeLabel"] != "Large" || item["subtotal"] != "240.00" {
		t.Errorf("item: %v", item)
	}
}

func TestSales_FilterAndReadyCount(t *testing.T) {
	svc := newMockOrderService()
	svc.ready = 3
	svc.addOrder(enum.TransactionStatusCompleted)
	svc.addOrder(enum.TransactionStatusPending)
	router := setupOrderRouter(svc)

	rr := doRequest(t, router, "GET", "/sales?status=Completed", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decodeResponse(t, rr)
	if len(resp["transactions"].([]interface{})) != 1 {
		t.Errorf("expected 1 completed transaction, got %v", resp["transactions"])
	}
	if resp["readyCount"] != float64(3) {
		t.Errorf("ready count: %v", resp["readyCount"])
	}
	if svc.gotStatus != enum.TransactionStatusCompleted {
		t.Errorf("status filter: %q", svc.gotStatus)
	}
}

func TestSales_InvalidStatus(t *testing.T) {
	router := setupOrderRouter(newMockOrderService())

	rr := doRequest(t, router, "GET", "/sales?status=Lost", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestSales_StoreError(t *testing.T) {
	svc := newMockOrderService()
	svc.listErr = errors.New("db down")
	router := setupOrderRouter(svc)

	rr := doRequest(t, router, "GET", "/sales", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestCart(t *testing.T) {
	svc := newMockOrderService()
	svc.ready = 2
	router := setupOrderRouter(svc)

	rr := doRequest(t, router, "GET", "/cart", nil)
	resp := decodeResponse(t, rr)
	user := resp["user"].(map[string]interface{})
	if user["username"] != "fl1" || resp["readyCount"] != float64(2) {
		t.Errorf("body: %v", resp)
	}
}

func TestAdminOrders_Pagination(t *testing.T) {
	cases := []struct {
		query      string
		wantLimit  int32
		wantOffset int32
	}{
		{"", 50, 0},
		{"?limit=10&offset=20", 10, 20},
		{"?limit=1000", 200, 0},
		{"?limit=-1&offset=-5", 50, 0},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			svc := newMockOrderService()
			router := setupOrderRouter(svc)

			rr := doRequest(t, router, "GET", "/admin/orders/"+tc.query, nil)
			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rr.Code)
			}
			if svc.gotLimit != tc.wantLimit || svc.gotOffset != tc.wantOffset {
				t.Errorf("got limit=%d offset=%d", svc.gotLimit, svc.gotOffset)
			}
		})
	}
}

func TestAdminOrders_Get(t *testing.T) {
	svc := newMockOrderService()
	id := svc.addOrder(enum.TransactionStatusReady)
	router := setupOrderRouter(svc)

	rr := doRequest(t, router, "GET", "/admin/orders/"+id.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decodeResponse(t, rr)
	if resp["id"] != id.String() || resp["totalAmount"] != "240.00" {
		t.Errorf("body: %v", resp)
	}

	rr = doRequest(t, router, "GET", "/admin/orders/"+uuid.New().String(), nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}
