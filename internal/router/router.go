package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mira-pos/api/internal/config"
	"github.com/mira-pos/api/internal/database"
	"github.com/mira-pos/api/internal/enum"
	"github.com/mira-pos/api/internal/handler"
	mw "github.com/mira-pos/api/internal/middleware"
	"github.com/mira-pos/api/internal/service"
	"github.com/mira-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// notifier receives every order event; the hub is usually one of its members.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, notifier service.Notifier) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	authHandler := handler.NewAuthHandler(queries, cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure)
	authHandler.RegisterRoutes(r)

	// Services
	orderService := service.NewOrderService(pool, queries, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, notifier)
	catalogService := service.NewCatalogService(pool, queries, func(db database.DBTX) service.CatalogStore {
		return database.New(db)
	})
	analyticsService := service.NewAnalyticsService(queries, cfg.Location)

	orderHandler := handler.NewOrderHandler(orderService)
	upgrader := ws.NewUpgrader(cfg.AllowedOrigins)

	// Protected routes (require a live session)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.SessionSecret, queries))

		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeWS(hub, upgrader, w, r)
		})

		// Front Liner
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleFrontLiner))

			menuHandler := handler.NewMenuHandler(queries, catalogService)
			menuHandler.RegisterRoutes(r)
			orderHandler.RegisterFrontLinerRoutes(r)
		})

		// Cook
		r.Route("/cook", func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleCook))
			orderHandler.RegisterCookRoutes(r)
		})

		// Admin
		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))

			analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
			analyticsHandler.RegisterRoutes(r)

			r.Route("/orders", orderHandler.RegisterAdminRoutes)

			productHandler := handler.NewProductHandler(queries, catalogService)
			r.Route("/products", productHandler.RegisterRoutes)

			userHandler := handler.NewUserHandler(pool, queries, func(db database.DBTX) handler.UserStore {
				return database.New(db)
			})
			r.Route("/users", userHandler.RegisterRoutes)

			categoryHandler := handler.NewCategoryHandler(queries)
			r.Route("/categories", categoryHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
