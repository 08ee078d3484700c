package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	c "connectrpc.com/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	importhandler "github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/handler"
	portfoliohandler "github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/portfolio/handler"
	"github.com/FACorreiaa/smart-portfolio-tracker/pkg/interceptors"
	"github.com/FACorreiaa/smart-portfolio-tracker/pkg/jsoncodec"
	"github.com/FACorreiaa/smart-portfolio-tracker/pkg/observability"
)

const (
	defaultMaxBodyBytes int64 = 1 << 20 // 1 MiB
	envelopeSlackBytes  int64 = 64 << 10
)

// SetupRouter configures all routes and returns the HTTP service
func SetupRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	jwtSecret := []byte(deps.Config.Auth.JWTSecret)
	if len(jwtSecret) == 0 {
		deps.Logger.Warn("JWT secret is empty; authentication interceptor will reject requests")
	}

	publicProcedures := []string{
		importhandler.ListModulesProcedure,
	}

	tracer := otel.GetTracerProvider().Tracer("portfolio/api")

	chain := []connect.Interceptor{
		interceptors.NewRequestIDInterceptor("X-Request-ID"),
		interceptors.NewTracingInterceptor(tracer),
	}
	if deps.Config.Server.RateLimitPerSecond > 0 && deps.Config.Server.RateLimitBurst > 0 {
		limiter := rate.NewLimiter(
			rate.Limit(float64(deps.Config.Server.RateLimitPerSecond)),
			deps.Config.Server.RateLimitBurst,
		)
		chain = append(chain, interceptors.NewRateLimitInterceptor(limiter))
	}
	chain = append(chain,
		interceptors.NewRecoveryInterceptor(deps.Logger),
		interceptors.NewLoggingInterceptor(deps.Logger),
		interceptors.NewAuthInterceptor(jwtSecret, publicProcedures...),
		observability.NewMetricsInterceptor(),
	)

	opts := []connect.HandlerOption{
		connect.WithInterceptors(chain...),
		jsoncodec.HandlerOption(),
	}

	registerConnectRoutes(mux, deps, opts...)
	registerUtilityRoutes(mux, deps)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   c.AllowedMethods(),
		AllowedHeaders:   append(c.AllowedHeaders(), "Authorization", "X-Request-ID"),
		ExposedHeaders:   append(c.ExposedHeaders(), "X-Request-ID"),
		AllowCredentials: true,
		MaxAge:           7200, // Cache preflights for 2 hours
	})

	return corsHandler.Handler(mux)
}

// registerConnectRoutes mounts each service on its own sub-mux so body
// limits can differ per service.
func registerConnectRoutes(mux *http.ServeMux, deps *Dependencies, opts ...connect.HandlerOption) {
	if deps.PortfolioHandler != nil {
		portfolioMux := http.NewServeMux()
		deps.PortfolioHandler.Routes(portfolioMux, opts...)
		path := "/" + portfoliohandler.ServiceName + "/"
		mux.Handle(path, wrapRoute(portfolioMux, defaultMaxBodyBytes))
		deps.Logger.Info("registered Connect RPC service", "path", path)
	}

	if deps.ImportHandler != nil {
		importMux := http.NewServeMux()
		deps.ImportHandler.Routes(importMux, opts...)
		path := "/" + importhandler.ServiceName + "/"
		mux.Handle(path, wrapRoute(importMux, uploadBodyLimit(deps.Config.Import.MaxFileBytes)))
		deps.Logger.Info("registered Connect RPC service", "path", path)
	}

	deps.Logger.Info("Connect RPC routes configured")
}

// uploadBodyLimit sizes the request limit for a base64 file inside a JSON envelope.
func uploadBodyLimit(maxFileBytes int64) int64 {
	limit := maxFileBytes/3*4 + 4 + envelopeSlackBytes
	if limit < defaultMaxBodyBytes {
		return defaultMaxBodyBytes
	}
	return limit
}

func wrapRoute(next http.Handler, maxBodyBytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("X-Content-Type-Options", "nosniff")

		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}

		next.ServeHTTP(w, r)
	})
}

// registerUtilityRoutes registers health check, metrics, and other utility routes
func registerUtilityRoutes(mux *http.ServeMux, deps *Dependencies) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		if err := deps.DB.Health(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, writeErr := w.Write([]byte("database unhealthy")); writeErr != nil {
				deps.Logger.Error("failed to write health response", slog.Any("error", writeErr))
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			deps.Logger.Error("failed to write health response", slog.Any("error", err))
		}
	})
	deps.Logger.Info("registered health check", "path", "/health")

	mux.HandleFunc("/health/details", func(w http.ResponseWriter, _ *http.Request) {
		type status struct {
			Status string `json:"status"`
			Detail string `json:"detail,omitempty"`
		}
		result := map[string]status{
			"db":    {Status: "ok"},
			"auth":  {Status: "ok"},
			"ready": {Status: "ok"},
		}

		if err := deps.DB.Health(); err != nil {
			result["db"] = status{Status: "fail", Detail: err.Error()}
			result["ready"] = status{Status: "fail", Detail: "db unavailable"}
		}
		if deps.Config.Auth.JWTSecret == "" {
			result["auth"] = status{Status: "warn", Detail: "JWT_SECRET missing"}
		}

		code := http.StatusOK
		for _, v := range result {
			if v.Status == "fail" {
				code = http.StatusServiceUnavailable
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(result); err != nil {
			deps.Logger.Error("failed to encode health details", slog.Any("error", err))
		}
	})
	deps.Logger.Info("registered health details", "path", "/health/details")

	mux.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ready")); err != nil {
			deps.Logger.Error("failed to write readiness response", slog.Any("error", err))
		}
	})
	deps.Logger.Info("registered readiness check", "path", "/ready")

	if deps.Config.Observability.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		deps.Logger.Info("registered metrics endpoint", "path", "/metrics")
	}
}
