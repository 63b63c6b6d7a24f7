package observability

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	LifecycleOpsTotal *prometheus.CounterVec
	CryptoOpsTotal    *prometheus.CounterVec
	StreamedBytes     *prometheus.CounterVec
	LookupsTotal      *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LifecycleOpsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sealkit_lifecycle_operations_total",
				Help: "Identity key lifecycle operations by operation and status",
			},
			[]string{"op", "status"},
		),
		CryptoOpsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sealkit_crypto_operations_total",
				Help: "Payload and file encrypt/decrypt operations by operation and status",
			},
			[]string{"op", "status"},
		),
		StreamedBytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sealkit_streamed_bytes_total",
				Help: "Bytes processed by the streaming file codec by phase",
			},
			[]string{"phase"},
		),
		LookupsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sealkit_lookup_identities_total",
				Help: "Identities resolved by public key lookups by result",
			},
			[]string{"result"},
		),
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sealkit_http_requests_total",
				Help: "Dev server requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sealkit_http_request_duration_seconds",
				Help:    "Dev server request latency",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"route"},
		),
	}
}

// Status labels an operation outcome.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// ObserveLifecycle counts one lifecycle operation.
func (m *Metrics) ObserveLifecycle(op string, err error) {
	if m == nil {
		return
	}
	m.LifecycleOpsTotal.WithLabelValues(op, Status(err)).Inc()
}

// ObserveCrypto counts one codec operation.
func (m *Metrics) ObserveCrypto(op string, err error) {
	if m == nil {
		return
	}
	m.CryptoOpsTotal.WithLabelValues(op, Status(err)).Inc()
}

// AddStreamed adds n bytes processed in phase.
func (m *Metrics) AddStreamed(phase string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.StreamedBytes.WithLabelValues(phase).Add(float64(n))
}

// ObserveLookups counts resolved and failed identities of one lookup.
func (m *Metrics) ObserveLookups(found, failed int) {
	if m == nil {
		return
	}
	if found > 0 {
		m.LookupsTotal.WithLabelValues("found").Add(float64(found))
	}
	if failed > 0 {
		m.LookupsTotal.WithLabelValues("failed").Add(float64(failed))
	}
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
