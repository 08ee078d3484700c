package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/FACorreiaa/smart-portfolio-tracker/cmd/api"
	"github.com/FACorreiaa/smart-portfolio-tracker/pkg/config"
)

const (
	shutdownTimeout = 30 * time.Second
	// minUploadWindow is the read budget for a request body of any size.
	minUploadWindow = 30 * time.Second
	// uploadBytesPerSecond is the slowest client upload rate still accepted.
	uploadBytesPerSecond = 256 << 10
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded, using process environment", "error", err)
	}

	if err := run(); err != nil {
		slog.Error("portfolio API stopped", "error", err)
		os.Exit(1)
	}
}

// run owns every resource so deferred cleanup happens before main exits.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(os.Stdout, cfg)
	slog.SetDefault(logger)

	logger.Info("starting portfolio API",
		slog.Int64("import_max_file_bytes", cfg.Import.MaxFileBytes),
		slog.Int("import_max_rows", cfg.Import.MaxRows),
		slog.Bool("import_rescale_fractions", cfg.Import.RescaleFractions),
		slog.Bool("metrics", cfg.Observability.MetricsEnabled),
	)

	deps, err := api.InitDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.Cleanup()

	if cfg.Profiling.Enabled {
		go startPprofServer(cfg, logger)
	}

	return runServer(cfg, logger, api.SetupRouter(deps))
}

// newLogger writes JSON records tagged with the service name at the
// configured level.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.Observability.LogLevel,
	})
	return slog.New(handler).With(slog.String("service", cfg.Observability.ServiceName))
}

// readTimeout gives the largest accepted upload time to arrive at
// uploadBytesPerSecond, and never less than minUploadWindow.
func readTimeout(maxFileBytes int64) time.Duration {
	d := time.Duration(maxFileBytes/uploadBytesPerSecond) * time.Second
	if d < minUploadWindow {
		return minUploadWindow
	}
	return d
}

// startPprofServer starts the pprof profiling server on a separate port
func startPprofServer(cfg *config.Config, logger *slog.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	addr := net.JoinHostPort("localhost", strconv.Itoa(cfg.Profiling.Port))
	logger.Info("pprof server started", "addr", addr, "endpoints", "/debug/pprof/")

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("pprof server error", "error", err)
	}
}

// runServer starts the HTTP server with graceful shutdown
func runServer(cfg *config.Config, logger *slog.Logger, handler http.Handler) error {
	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))

	// h2c: HTTP/2 without TLS for Connect clients
	protocols := new(http.Protocols)
	protocols.SetHTTP1(true)
	protocols.SetUnencryptedHTTP2(true)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout(cfg.Import.MaxFileBytes),
		// PDF extraction of a large upload happens before the first byte is written.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		Protocols:    protocols,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server started", "addr", addr, "read_timeout", srv.ReadTimeout.String())
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		logger.Info("server stopped gracefully")
	}

	return nil
}
