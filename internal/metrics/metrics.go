package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

const (
	CommissionFirst   = "first"
	CommissionRenewal = "renewal"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "betwise_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPResponseTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "betwise_http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	CommissionsCredited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "betwise_commissions_credited_total",
			Help: "Commission log entries written, by rate kind",
		},
		[]string{"kind"},
	)

	CommissionAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "betwise_commission_amount_total",
			Help: "Sum of credited commission in major currency units",
		},
	)

	PayoutTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "betwise_payout_transitions_total",
			Help: "Payout request status changes",
		},
		[]string{"status"},
	)

	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "betwise_webhook_events_total",
			Help: "Stripe webhook events by type and outcome",
		},
		[]string{"type", "outcome"},
	)
)

func ObserveCommission(kind string, amount decimal.Decimal) {
	CommissionsCredited.WithLabelValues(kind).Inc()
	CommissionAmount.Add(amount.InexactFloat64())
}

func ObservePayout(status string) {
	PayoutTransitions.WithLabelValues(status).Inc()
}

func ObserveWebhook(eventType, outcome string) {
	WebhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// Middleware records request totals and latency keyed by the chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPResponseTime.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
