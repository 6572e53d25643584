package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mira-pos/api/internal/service"
)

// AnalyticsServicer defines the service methods needed by the admin
// dashboard and analytics views. Satisfied by *service.AnalyticsService.
type AnalyticsServicer interface {
	Analytics(ctx context.Context) (*service.Analytics, error)
	Dashboard(ctx context.Context) (*service.Dashboard, error)
}

// AnalyticsHandler handles the admin reporting endpoints.
type AnalyticsHandler struct {
	svc AnalyticsServicer
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(svc AnalyticsServicer) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// RegisterRoutes registers report endpoints.
// Expected to be mounted at /admin.
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/analytics", h.Analytics)
}

// --- Response types ---

type bestSellerResponse struct {
	ProductID    uuid.UUID `json:"productId"`
	ProductName  string    `json:"productName"`
	SizeLabel    *string   `json:"sizeLabel"`
	QuantitySold int64     `json:"quantitySold"`
	Revenue      string    `json:"revenue"`
}

type dailySalesResponse struct {
	Date       string `json:"date"`
	TotalSales string `json:"totalSales"`
	OrderCount int64  `json:"orderCount"`
}

type analyticsResponse struct {
	TotalSales  string               `json:"totalSales"`
	OrderCount  int64                `json:"orderCount"`
	BestSellers []bestSellerResponse `json:"bestSellers"`
	DailySales  []dailySalesResponse `json:"dailySales"`
}

type dashboardResponse struct {
	analyticsResponse
	ProductCount  int64  `json:"productCount"`
	CategoryCount int64  `json:"categoryCount"`
	UserCount     int64  `json:"userCount"`
	PendingCount  int64  `json:"pendingCount"`
	ReadyCount    int64  `json:"readyCount"`
	TodaySales    string `json:"todaySales"`
	TodayOrders   int64  `json:"todayOrders"`
}

func toAnalyticsResponse(a *service.Analytics) analyticsResponse {
	resp := analyticsResponse{
		TotalSales:  a.TotalSales.StringFixed(2),
		OrderCount:  a.OrderCount,
		BestSellers: make([]bestSellerResponse, len(a.BestSellers)),
		DailySales:  make([]dailySalesResponse, len(a.DailySales)),
	}
	for i, b := range a.BestSellers {
		bs := bestSellerResponse{
			ProductID:    b.ProductID,
			ProductName:  b.ProductName,
			QuantitySold: b.QuantitySold,
			Revenue:      b.Revenue.StringFixed(2),
		}
		if b.SizeLabel != "" {
			label := b.SizeLabel
			bs.SizeLabel = &label
		}
		resp.BestSellers[i] = bs
	}
	for i, d := range a.DailySales {
		resp.DailySales[i] = dailySalesResponse{
			Date:       d.Date.Format(time.DateOnly),
			TotalSales: d.TotalSales.StringFixed(2),
			OrderCount: d.OrderCount,
		}
	}
	return resp
}

// --- Handlers ---

// Analytics returns sales totals, best sellers and the 7-day series.
func (h *AnalyticsHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Analytics(r.Context())
	if err != nil {
		log.Printf("ERROR: get analytics: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toAnalyticsResponse(a))
}

// Dashboard returns the analytics summary plus catalog and queue counters.
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context())
	if err != nil {
		log.Printf("ERROR: get dashboard: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		analyticsResponse: toAnalyticsResponse(&d.Analytics),
		ProductCount:      d.ProductCount,
		CategoryCount:     d.CategoryCount,
		UserCount:         d.UserCount,
		PendingCount:      d.PendingCount,
		ReadyCount:        d.ReadyCount,
		TodaySales:        d.TodaySales.StringFixed(2),
		TodayOrders:       d.TodayOrders,
	})
}
