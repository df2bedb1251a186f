// Package metrics provides Prometheus instrumentation for the points engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CommandsTotal counts executed commands by action and result kind
	// ("ok" or the error kind).
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "points_commands_total",
		Help: "Total number of commands executed",
	}, []string{"action", "result"})

	// CommandLatency tracks end-to-end command latency including the store transaction.
	CommandLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "points_command_latency_seconds",
		Help:    "Command execution latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	// PointsStaked tracks cumulative staked points by owner scope (account, guild) and side.
	PointsStaked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "points_staked_total",
		Help: "Cumulative points staked into events",
	}, []string{"scope", "side"})

	// ClaimsTotal counts settled claims by scope and outcome (win, loss).
	ClaimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "points_claims_total",
		Help: "Total number of settled claims",
	}, []string{"scope", "outcome"})

	// PointsPaid tracks cumulative claim rewards by scope.
	PointsPaid = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "points_paid_total",
		Help: "Cumulative points paid out by claims",
	}, []string{"scope"})

	// TreasuryBalance tracks the protocol treasury after the last committed command.
	TreasuryBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "points_treasury_balance",
		Help: "Protocol treasury balance in native units",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "points_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "points_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "points_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
