package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/bookcart/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Carts    CartService
	Checkout CheckoutService
	// Health is optional; without it /health always reports ok.
	Health HealthChecker
	// Metrics and Gatherer are optional; /metrics is mounted only with a Gatherer.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Timeout  time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	guestCarts := NewGuestCartHandler(cfg.Carts, cfg.Timeout)
	customerCarts := NewCustomerCartHandler(cfg.Carts, cfg.Timeout)
	guestCheckout := NewGuestCheckoutHandler(cfg.Checkout, cfg.Timeout)
	customerCheckout := NewCustomerCheckoutHandler(cfg.Checkout, cfg.Timeout)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(cfg.Metrics))

	r.Get("/health", healthHandler(cfg.Health))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/guest", func(r chi.Router) {
			mountCart(r, guestCarts)
			r.Post("/checkout", guestCheckout.Checkout)
		})
		r.Route("/customers/{customer_id}", func(r chi.Router) {
			mountCart(r, customerCarts)
			r.Post("/checkout", customerCheckout.Checkout)
		})
		r.Get("/invoices/{invoice_id}", guestCheckout.GetInvoice)
	})

	return otelhttp.NewHandler(r, "bookcart-http")
}

func mountCart(r chi.Router, h *CartHandler) {
	r.Route("/cart", func(r chi.Router) {
		r.Post("/", h.GetOrCreateCart)
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{item_id}", h.UpdateQuantity)
		r.Delete("/items/{item_id}", h.RemoveItem)
	})
}

func healthHandler(health HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := health.Ping(ctx); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
