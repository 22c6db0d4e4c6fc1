// Package metrics defines the storefront's Prometheus collectors.
// All recording methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	ordersCreatedTotal   *prometheus.CounterVec
	stkPushTotal         *prometheus.CounterVec
	callbacksTotal       *prometheus.CounterVec
	notificationFailures *prometheus.CounterVec
	gatherer             prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		ordersCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_orders_created_total",
				Help: "Orders created at checkout",
			},
			[]string{"payment_method"},
		),
		stkPushTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_stk_push_total",
				Help: "STK push initiations by outcome",
			},
			[]string{"outcome"},
		),
		callbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_mpesa_callbacks_total",
				Help: "M-Pesa callbacks received by result",
			},
			[]string{"result"},
		),
		notificationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_notifications_failed_total",
				Help: "Notifications that could not be handed off",
			},
			[]string{"channel"},
		),
		gatherer: reg,
	}
	reg.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.ordersCreatedTotal,
		m.stkPushTotal,
		m.callbacksTotal,
		m.notificationFailures,
	)
	return m
}

const unmatchedRoute = "unmatched"

// Middleware records request counts and latencies keyed by route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// Unrouted paths share one label so scanners cannot grow the series set.
		path := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) OrdersCreated(paymentMethod string, n int) {
	if m == nil {
		return
	}
	m.ordersCreatedTotal.WithLabelValues(paymentMethod).Add(float64(n))
}

func (m *Metrics) STKPush(outcome string) {
	if m == nil {
		return
	}
	m.stkPushTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Callback(result string) {
	if m == nil {
		return
	}
	m.callbacksTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) NotificationFailed(channel string) {
	if m == nil {
		return
	}
	m.notificationFailures.WithLabelValues(channel).Inc()
}
