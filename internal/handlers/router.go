package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Lixing-Zhang/account-storefront/internal/config"
	"github.com/Lixing-Zhang/account-storefront/internal/metrics"
	"github.com/Lixing-Zhang/account-storefront/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// BackendRoutes are the handlers served by the order backend
type BackendRoutes struct {
	Health   *HealthHandler
	Products *ProductHandler
	Coupons  *CouponHandler
	Orders   *OrderHandler
	Auth     config.AuthConfig
	Metrics  *metrics.Metrics
}

// StorefrontRoutes are the handlers served by the storefront
type StorefrontRoutes struct {
	Health   *HealthHandler
	Checkout *CheckoutHandler
	Metrics  *metrics.Metrics
}

func newRouter(log *slog.Logger, m *metrics.Metrics) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	if m != nil {
		r.Use(m.Middleware)
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", middleware.APIKeyHeader},
		ExposedHeaders:   []string{"Idempotent-Replayed"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}
	return r
}

// NewBackendRouter builds the order backend's routes
func NewBackendRouter(rt BackendRoutes, log *slog.Logger) http.Handler {
	r := newRouter(log, rt.Metrics)

	r.Get("/health", rt.Health.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", rt.Products.ListCategories)
		r.Get("/products", rt.Products.ListProducts)
		r.Get("/products/{productId}", rt.Products.GetProduct)

		r.Get("/coupons/stats", rt.Coupons.GetStats)
		r.Get("/coupons/{couponCode}", rt.Coupons.ValidateCoupon)

		r.Post("/orders", rt.Orders.CreateOrder)
		r.Get("/orders/{orderId}", rt.Orders.GetOrder)
		r.Post("/orders/{orderId}/payment", rt.Orders.StartPayment)

		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(rt.Auth))
			r.Get("/orders", rt.Orders.ListOrders)
			r.Patch("/orders/{orderId}/status", rt.Orders.UpdateStatus)
		})
	})

	return r
}

// NewStorefrontRouter builds the storefront's checkout routes
func NewStorefrontRouter(rt StorefrontRoutes, log *slog.Logger) http.Handler {
	r := newRouter(log, rt.Metrics)

	r.Get("/health", rt.Health.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/payment-methods", rt.Checkout.PaymentMethods)

		r.Post("/checkout", rt.Checkout.Open)
		r.Route("/checkout/{sessionId}", func(r chi.Router) {
			r.Get("/", rt.Checkout.Get)
			r.Delete("/", rt.Checkout.Close)
			r.Patch("/form", rt.Checkout.UpdateForm)
			r.Put("/vendor", rt.Checkout.SelectVendor)
			r.Post("/submit", rt.Checkout.Submit)

			r.Get("/confirmation", rt.Checkout.Confirmation)
			r.Delete("/confirmation", rt.Checkout.DismissConfirmation)
			r.Post("/confirmation/payment", rt.Checkout.ContinueToPayment)
		})
	})

	return r
}
