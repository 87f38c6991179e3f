package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lixing-Zhang/account-storefront/internal/config"
	"github.com/Lixing-Zhang/account-storefront/internal/coupon"
	"github.com/Lixing-Zhang/account-storefront/internal/handlers"
	"github.com/Lixing-Zhang/account-storefront/internal/idempotency"
	"github.com/Lixing-Zhang/account-storefront/internal/messaging"
	"github.com/Lixing-Zhang/account-storefront/internal/metrics"
	"github.com/Lixing-Zhang/account-storefront/internal/repository"
	"github.com/Lixing-Zhang/account-storefront/internal/service"
	"github.com/Lixing-Zhang/account-storefront/internal/telemetry"
	"github.com/Lixing-Zhang/account-storefront/pkg/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const version = "1.0.0"

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting order backend",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"log_level", cfg.LogLevel,
	)

	ctx := context.Background()

	shutdownTracing, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry.OTLPEndpoint, cfg.ServiceName+"-backend", version)
	if err != nil {
		log.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	productRepo := repository.NewInMemoryProductRepository()

	var orderRepo repository.OrderRepository
	var db *sql.DB
	if cfg.Database.URL != "" {
		if cfg.Database.RunMigrations {
			if err := repository.MigrateUp(cfg.Database.URL); err != nil {
				log.Error("failed to run migrations", "error", err)
				os.Exit(1)
			}
			log.Info("migrations applied")
		}

		db, err = telemetry.OpenDB(ctx, cfg.Database.URL)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		orderRepo = repository.NewPostgresOrderRepository(db)
		log.Info("storing orders in postgres")
	} else {
		orderRepo = repository.NewInMemoryOrderRepository()
		log.Warn("DATABASE_URL not set, orders are kept in memory")
	}

	m := metrics.New("backend")
	coupons := coupon.Default()
	stats := coupons.GetStats()
	log.Info("coupon catalog loaded", "total_coupons", stats["total_coupons"])

	opts := []service.OrderServiceOption{
		service.WithCoupons(coupons),
		service.WithIdempotencyIndex(idempotency.NewIndex(100000, 0.001)),
		service.WithObserver(m.ObserveOrder),
		service.WithPaymentURL(cfg.PaymentURL),
	}

	var producer *messaging.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = messaging.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
		opts = append(opts, service.WithPublisher(producer))
		log.Info("publishing order events", "brokers", cfg.Kafka.Brokers, "topic", producer.Topic())
	}

	// Initialize services
	productService := service.NewProductService(productRepo)
	orderService := service.NewOrderService(productRepo, orderRepo, log, opts...)

	router := handlers.NewBackendRouter(handlers.BackendRoutes{
		Health:   handlers.NewHealthHandler(cfg.ServiceName+"-backend", version, log),
		Products: handlers.NewProductHandler(productService, log),
		Coupons:  handlers.NewCouponHandler(coupons),
		Orders:   handlers.NewOrderHandler(orderService, log),
		Auth:     cfg.Auth,
		Metrics:  m,
	}, log)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      otelhttp.NewHandler(router, "backend"),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("failed to close kafka producer", "error", err)
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", "error", err)
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("failed to flush traces", "error", err)
	}

	log.Info("server stopped gracefully")
}
