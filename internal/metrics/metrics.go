// Package metrics provides Prometheus instrumentation for the marketplace
// engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ListingsCreated counts listings published, partitioned by collection.
	ListingsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_listings_created_total",
		Help: "Total number of listings published",
	}, []string{"collection"})

	// ListingsCanceled counts listings canceled by their owner.
	ListingsCanceled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_listings_canceled_total",
		Help: "Total number of listings canceled",
	}, []string{"collection"})

	// SalesTotal counts settled purchases.
	SalesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_sales_total",
		Help: "Total number of settled purchases",
	}, []string{"collection"})

	// SaleVolume accumulates sale payment volume.
	SaleVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_sale_volume_total",
		Help: "Cumulative sale payment volume",
	}, []string{"collection"})

	// WithdrawalsTotal counts successful proceeds withdrawals.
	WithdrawalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_withdrawals_total",
		Help: "Total number of successful proceeds withdrawals",
	})

	// WithdrawalVolume accumulates withdrawn proceeds volume.
	WithdrawalVolume = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_withdrawal_volume_total",
		Help: "Cumulative withdrawn proceeds volume",
	})

	// OperationRejections counts operations rejected by a precondition,
	// partitioned by operation and violation kind.
	OperationRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_operation_rejections_total",
		Help: "Operations rejected by a precondition check",
	}, []string{"op", "reason"})

	// ActiveListings tracks the number of currently active listings.
	ActiveListings = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketplace_active_listings",
		Help: "Number of currently active listings",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketplace_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketplace_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the chi route pattern for the path label to avoid high
		// cardinality from collection addresses and asset IDs.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
