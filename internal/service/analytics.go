package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mira-pos/api/internal/database"
	"github.com/mira-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

const (
	bestSellerLimit = 5
	salesWindowDays = 7
)

// AnalyticsStore defines the read-only aggregates behind the admin
// dashboard and analytics views. Satisfied by *database.Queries.
type AnalyticsStore interface {
	GetSalesTotals(ctx context.Context) (database.GetSalesTotalsRow, error)
	GetSalesTotalsSince(ctx context.Context, since time.Time) (database.GetSalesTotalsRow, error)
	GetBestSellers(ctx context.Context, limit int32) ([]database.GetBestSellersRow, error)
	GetDailySales(ctx context.Context, arg database.GetDailySalesParams) ([]database.GetDailySalesRow, error)
	CountProducts(ctx context.Context) (int64, error)
	CountCategories(ctx context.Context) (int64, error)
	CountUsers(ctx context.Context) (int64, error)
	CountTransactionsByStatus(ctx context.Context, status string) (int64, error)
}

type BestSeller struct {
	ProductID    uuid.UUID
	ProductName  string
	SizeLabel    string
	QuantitySold int64
	Revenue      decimal.Decimal
}

type DailySale struct {
	Date       time.Time
	TotalSales decimal.Decimal
	OrderCount int64
}

// Analytics covers Completed transactions only.
type Analytics struct {
	TotalSales  decimal.Decimal
	OrderCount  int64
	BestSellers []BestSeller
	DailySales  []DailySale
}

type Dashboard struct {
	Analytics
	ProductCount  int64
	CategoryCount int64
	UserCount     int64
	PendingCount  int64
	ReadyCount    int64
	TodaySales    decimal.Decimal
	TodayOrders   int64
}

type AnalyticsService struct {
	store AnalyticsStore
	loc   *time.Location
	now   func() time.Time
}

// NewAnalyticsService buckets daily sales by calendar day in loc.
func NewAnalyticsService(store AnalyticsStore, loc *time.Location) *AnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsService{store: store, loc: loc, now: time.Now}
}

// Analytics returns totals, the top best sellers and the trailing 7-day
// daily series ending today.
func (s *AnalyticsService) Analytics(ctx context.Context) (*Analytics, error) {
	totals, err := s.store.GetSalesTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("get sales totals: %w", err)
	}

	rows, err := s.store.GetBestSellers(ctx, bestSellerLimit)
	if err != nil {
		return nil, fmt.Errorf("get best sellers: %w", err)
	}
	sellers := make([]BestSeller, len(rows))
	for i, r := range rows {
		sellers[i] = BestSeller{
			ProductID:    r.ProductID,
			ProductName:  r.ProductName,
			SizeLabel:    r.SizeLabel.String,
			QuantitySold: r.QuantitySold,
			Revenue:      numericToDecimal(r.Revenue),
		}
	}

	start := s.today().AddDate(0, 0, -(salesWindowDays - 1))
	daily, err := s.store.GetDailySales(ctx, database.GetDailySalesParams{
		TimeZone: s.loc.String(),
		Since:    start,
	})
	if err != nil {
		return nil, fmt.Errorf("get daily sales: %w", err)
	}

	return &Analytics{
		TotalSales:  numericToDecimal(totals.TotalSales),
		OrderCount:  totals.OrderCount,
		BestSellers: sellers,
		DailySales:  fillDailySales(daily, start, salesWindowDays),
	}, nil
}

// Dashboard adds catalog and queue counters to the analytics summary.
func (s *AnalyticsService) Dashboard(ctx context.Context) (*Dashboard, error) {
	a, err := s.Analytics(ctx)
	if err != nil {
		return nil, err
	}
	d := &Dashboard{Analytics: *a}

	counts := []struct {
		name string
		dst  *int64
		fn   func(context.Context) (int64, error)
	}{
		{"products", &d.ProductCount, s.store.CountProducts},
		{"categories", &d.CategoryCount, s.store.CountCategories},
		{"users", &d.UserCount, s.store.CountUsers},
	}
	for _, c := range counts {
		n, err := c.fn(ctx)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", c.name, err)
		}
		*c.dst = n
	}

	if d.PendingCount, err = s.store.CountTransactionsByStatus(ctx, enum.TransactionStatusPending); err != nil {
		return nil, fmt.Errorf("count pending: %w", err)
	}
	if d.ReadyCount, err = s.store.CountTransactionsByStatus(ctx, enum.TransactionStatusReady); err != nil {
		return nil, fmt.Errorf("count ready: %w", err)
	}

	today, err := s.store.GetSalesTotalsSince(ctx, s.today())
	if err != nil {
		return nil, fmt.Errorf("get today sales: %w", err)
	}
	d.TodaySales = numericToDecimal(today.TotalSales)
	d.TodayOrders = today.OrderCount
	return d, nil
}

// today is local midnight in the configured zone.
func (s *AnalyticsService) today() time.Time {
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

// fillDailySales returns one entry per day from start, with zero totals
// for days that had no Completed sales.
func fillDailySales(rows []database.GetDailySalesRow, start time.Time, days int) []DailySale {
	byDay := make(map[string]database.GetDailySalesRow, len(rows))
	for _, r := range rows {
		if r.SaleDate.Valid {
			byDay[r.SaleDate.Time.Format(time.DateOnly)] = r
		}
	}
	out := make([]DailySale, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		out[i] = DailySale{Date: day, TotalSales: decimal.Zero}
		if r, ok := byDay[day.Format(time.DateOnly)]; ok {
			out[i].TotalSales = numericToDecimal(r.TotalSales)
			out[i].OrderCount = r.OrderCount
		}
	}
	return out
}
