package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	OrdersCreated       prometheus.Counter
	PaymentsInitiated   *prometheus.CounterVec
	PaymentsFinalized   prometheus.Counter
	PaymentsFailed      prometheus.Counter
	CallbacksRejected   *prometheus.CounterVec
	VerificationErrors  prometheus.Counter
	StockBackorders     prometheus.Counter
	StatusCheckLatency  prometheus.Histogram
	ReconcileSweepCount prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_orders_created_total"})
	initiated := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "storefront_payments_initiated_total"}, []string{"mode"})
	finalized := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_payments_finalized_total"})
	failed := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_payments_failed_total"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "storefront_callbacks_rejected_total"}, []string{"reason"})
	verificationErrors := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_verification_errors_total"})
	backorders := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_stock_backorders_total"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_status_check_seconds",
		Buckets: prometheus.DefBuckets,
	})
	sweeps := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_reconcile_sweeps_total"})

	r.MustRegister(ordersCreated, initiated, finalized, failed, rejected, verificationErrors, backorders, latency, sweeps)
	return &Registry{
		reg:                 r,
		OrdersCreated:       ordersCreated,
		PaymentsInitiated:   initiated,
		PaymentsFinalized:   finalized,
		PaymentsFailed:      failed,
		CallbacksRejected:   rejected,
		VerificationErrors:  verificationErrors,
		StockBackorders:     backorders,
		StatusCheckLatency:  latency,
		ReconcileSweepCount: sweeps,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// The helpers below are nil-safe so callers can run without metrics.

func (r *Registry) OrderCreated() {
	if r != nil {
		r.OrdersCreated.Inc()
	}
}

func (r *Registry) PaymentInitiated(mode string) {
	if r != nil {
		r.PaymentsInitiated.WithLabelValues(mode).Inc()
	}
}

func (r *Registry) PaymentFinalized() {
	if r != nil {
		r.PaymentsFinalized.Inc()
	}
}

func (r *Registry) PaymentFailed() {
	if r != nil {
		r.PaymentsFailed.Inc()
	}
}

func (r *Registry) CallbackRejected(reason string) {
	if r != nil {
		r.CallbacksRejected.WithLabelValues(reason).Inc()
	}
}

func (r *Registry) VerificationError() {
	if r != nil {
		r.VerificationErrors.Inc()
	}
}

func (r *Registry) Backorder() {
	if r != nil {
		r.StockBackorders.Inc()
	}
}

func (r *Registry) ObserveStatusCheck(started time.Time) {
	if r != nil {
		r.StatusCheckLatency.Observe(time.Since(started).Seconds())
	}
}

func (r *Registry) Sweep() {
	if r != nil {
		r.ReconcileSweepCount.Inc()
	}
}
