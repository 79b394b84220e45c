// Package rest is the storefront's public HTTP API and the gateway's
// browser-redirect endpoints.
package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"storefront/internal/auth"
	"storefront/internal/infrastructure/logger"
	"storefront/internal/infrastructure/metrics"
	"storefront/internal/usecase"
)

const maxBodyBytes = 1 << 20

type Options struct {
	// ClientURL is where buyers land after a payment redirect.
	ClientURL string
	RateRPS   float64
	RateBurst int
}

type Handler struct {
	orders    *usecase.OrderUseCase
	payments  *usecase.PaymentUseCase
	verifier  *auth.Verifier
	metrics   *metrics.Registry
	logger    *logger.Logger
	clientURL string
	limiter   *ipLimiter
	schemas   *schemas
}

func NewHandler(
	orders *usecase.OrderUseCase,
	payments *usecase.PaymentUseCase,
	verifier *auth.Verifier,
	metrics *metrics.Registry,
	logger *logger.Logger,
	opts Options,
) (*Handler, error) {
	s, err := compileSchemas()
	if err != nil {
		return nil, err
	}

	return &Handler{
		orders:    orders,
		payments:  payments,
		verifier:  verifier,
		metrics:   metrics,
		logger:    logger,
		clientURL: opts.ClientURL,
		limiter:   newIPLimiter(opts.RateRPS, opts.RateBurst, time.Now),
		schemas:   s,
	}, nil
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(limitBody(maxBodyBytes))
	r.Use(h.authenticate)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "route not found"})
	})

	r.Get("/api/health", h.health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Route("/api/orders", func(r chi.Router) {
		r.With(h.rateLimit).Post("/", h.createOrder)
		r.With(requireIdentity).Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
		r.With(requireIdentity).Put("/{id}/status", h.updateOrderStatus)
	})

	r.Route("/api/payments/esewa", func(r chi.Router) {
		r.With(h.rateLimit).Post("/initiate", h.initiatePayment)
		r.With(h.rateLimit).Post("/test/complete", h.completeTestPayment)
		r.Get("/success", h.gatewaySuccess)
		r.Post("/success", h.gatewaySuccess)
		r.Get("/failure", h.gatewayFailure)
		r.Post("/failure", h.gatewayFailure)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "OK",
		"testMode": h.payments.TestMode(),
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
