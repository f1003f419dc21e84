package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nftbay/marketplace-engine/internal/asset"
	"github.com/nftbay/marketplace-engine/internal/ledger"
	"github.com/nftbay/marketplace-engine/internal/market"
	"github.com/nftbay/marketplace-engine/internal/metrics"
	"github.com/nftbay/marketplace-engine/internal/payment"
	"github.com/nftbay/marketplace-engine/internal/policy"
	"github.com/nftbay/marketplace-engine/internal/registry"
	"github.com/nftbay/marketplace-engine/internal/store"
)

// defaultOperator is the marketplace identity used when
// MARKETPLACE_ADDRESS is not set. Dev only; asset owners must approve
// this identity before listing.
const defaultOperator = "0x00000000000000000000000000000000004e4654"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	operator := os.Getenv("MARKETPLACE_ADDRESS")
	if operator == "" {
		operator = defaultOperator
	}
	operator, err := asset.ParseIdentity(operator)
	if err != nil {
		slog.Error("invalid MARKETPLACE_ADDRESS", "err", err)
		os.Exit(1)
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Asset registry and payout gateway ---
	// In-memory implementations; production deployments substitute clients
	// for the external title registry and payment rail here.
	reg := registry.NewMemory()
	gateway := payment.NewMemoryGateway()

	// --- Listing limits ---
	maxPerSeller := envInt("MAX_LISTINGS_PER_SELLER", 1000)
	maxPerCollection := envInt("MAX_LISTINGS_PER_COLLECTION", 10000)
	limiter := policy.NewListingLimiter(maxPerSeller, maxPerCollection)

	// --- WebSocket hub ---
	wsHub := market.NewWSHub()
	go wsHub.Run()

	// --- Marketplace ledger + HTTP service ---
	led := ledger.New(st, reg, gateway, operator, limiter, wsHub.Broadcast)
	svc := market.NewService(led)
	regHandlers := market.NewRegistryHandlers(reg)

	slog.Info("marketplace ledger initialized", "operator", operator)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"marketplace-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time marketplace events.
		r.Get("/ws", wsHub.HandleWS)

		// Listing directory.
		r.Get("/listings", svc.ListListings)
		r.Post("/listings", svc.CreateListing)
		r.Get("/listings/{collection}/{assetID}", svc.GetListing)
		r.Put("/listings/{collection}/{assetID}", svc.UpdateListing)
		r.Delete("/listings/{collection}/{assetID}", svc.CancelListing)

		// Settlement.
		r.Post("/purchases", svc.Buy)
		r.Get("/sales", svc.Sales)

		// Proceeds ledger.
		r.Get("/proceeds/{seller}", svc.GetProceeds)
		r.Post("/proceeds/{seller}/withdraw", svc.Withdraw)

		// Dev registry (in-memory authority seeding).
		r.Post("/registry/assets", regHandlers.Mint)
		r.Post("/registry/approvals", regHandlers.Approve)
		r.Get("/registry/assets/{collection}/{assetID}/owner", regHandlers.Owner)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("marketplace-engine listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down marketplace-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("marketplace-engine stopped")
}

// envInt reads an integer environment variable, falling back to def when
// unset or malformed.
func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer env var, using default", "name", name, "value", v, "default", def)
		return def
	}
	return n
}
