package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lixing-Zhang/account-storefront/internal/backend"
	"github.com/Lixing-Zhang/account-storefront/internal/checkout"
	"github.com/Lixing-Zhang/account-storefront/internal/config"
	"github.com/Lixing-Zhang/account-storefront/internal/handlers"
	"github.com/Lixing-Zhang/account-storefront/internal/metrics"
	"github.com/Lixing-Zhang/account-storefront/internal/telemetry"
	"github.com/Lixing-Zhang/account-storefront/pkg/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting storefront",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"backend_url", cfg.Storefront.BackendURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry.OTLPEndpoint, cfg.ServiceName+"-storefront", version)
	if err != nil {
		log.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}

	m := metrics.New("storefront")
	client := backend.NewClient(cfg.Storefront.BackendURL, cfg.Storefront.BackendTimeout, log)

	sessions := checkout.NewRegistry(client, client, log)
	sessions.OnTransition(func(from, to checkout.State) {
		m.ObserveTransition(string(from), string(to))
	})

	router := handlers.NewStorefrontRouter(handlers.StorefrontRoutes{
		Health:   handlers.NewHealthHandler(cfg.ServiceName+"-storefront", version, log),
		Checkout: handlers.NewCheckoutHandler(client, sessions, log),
		Metrics:  m,
	}, log)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go sweepSessions(ctx, sessions, cfg.Storefront.SessionTTL, m, log)

	go func() {
		log.Info("server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("failed to flush traces", "error", err)
	}

	log.Info("server stopped gracefully")
}

// sweepSessions drops abandoned checkouts until ctx is done
func sweepSessions(ctx context.Context, sessions *checkout.Registry, ttl time.Duration, m *metrics.Metrics, log *slog.Logger) {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(ttl); n > 0 {
				log.Info("expired checkout sessions", "count", n)
			}
			m.Sessions.Set(float64(sessions.Len()))
		}
	}
}
