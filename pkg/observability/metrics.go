package observability

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total number of RPC requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_rpc_requests_total",
			Help: "Total number of RPC requests",
		},
		[]string{"procedure", "code"},
	)

	// RequestDuration tracks request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_rpc_duration_seconds",
			Help:    "RPC request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"procedure"},
	)

	// ActiveRequests tracks currently active requests
	ActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "portfolio_rpc_active_requests",
			Help: "Number of active RPC requests",
		},
		[]string{"procedure"},
	)

	// ImportExtractions counts strategy extractions by module and outcome
	ImportExtractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strategy_import_extractions_total",
			Help: "Total number of strategy file extractions",
		},
		[]string{"module", "result"},
	)

	// ImportRows counts rows produced by successful extractions
	ImportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strategy_import_rows_total",
			Help: "Total number of rows extracted from strategy files",
		},
		[]string{"module"},
	)
)

// RecordExtraction updates the strategy import counters. result is a short
// outcome label such as "ok", "unsupported_format" or "no_rows".
func RecordExtraction(module, result string, rows int) {
	ImportExtractions.WithLabelValues(module, result).Inc()
	if rows > 0 {
		ImportRows.WithLabelValues(module).Add(float64(rows))
	}
}

// NewMetricsInterceptor creates an interceptor that collects Prometheus metrics
func NewMetricsInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			procedure := req.Spec().Procedure

			// Track active requests
			ActiveRequests.WithLabelValues(procedure).Inc()
			defer ActiveRequests.WithLabelValues(procedure).Dec()

			// Track duration
			start := time.Now()
			defer func() {
				duration := time.Since(start).Seconds()
				RequestDuration.WithLabelValues(procedure).Observe(duration)
			}()

			// Execute request
			resp, err := next(ctx, req)

			// Track total requests with status code
			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			RequestsTotal.WithLabelValues(procedure, code).Inc()

			return resp, err
		}
	}
}
