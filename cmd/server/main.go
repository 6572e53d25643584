package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mira-pos/api/internal/broker"
	"github.com/mira-pos/api/internal/config"
	"github.com/mira-pos/api/internal/database"
	"github.com/mira-pos/api/internal/router"
	"github.com/mira-pos/api/internal/service"
	"github.com/mira-pos/api/internal/ws"
)

const sessionSweepInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	queries := database.New(pool)

	hub := ws.NewHub()
	go hub.Run(ctx)

	notifiers := service.Notifiers{hub}
	if cfg.AMQPURL != "" {
		pub, err := broker.Dial(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("Unable to connect to broker: %v", err)
		}
		defer pub.Close()
		notifiers = append(notifiers, pub)
		log.Printf("Publishing order events to exchange %s", broker.ExchangeName)
	}

	go sweepSessions(ctx, queries)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, queries, pool, hub, notifiers),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

// sweepSessions deletes expired sessions until ctx is cancelled.
func sweepSessions(ctx context.Context, queries *database.Queries) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := queries.DeleteExpiredSessions(ctx)
			if err != nil {
				log.Printf("ERROR: sweep sessions: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("Removed %d expired sessions", n)
			}
		}
	}
}
