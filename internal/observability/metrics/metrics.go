// Package metrics registra y expone las métricas Prometheus del servicio.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once
	metricsErr  error

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	socialCallbacksTotal *prometheus.CounterVec
	tokenCleanupTotal    *prometheus.CounterVec
)

// Register inicializa las métricas y devuelve el handler de /metrics.
func Register(registry prometheus.Registerer) (http.Handler, error) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		socialCallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "social_callbacks_total",
			Help: "Callbacks de social login por provider y resultado",
		}, []string{"provider", "outcome"}) // outcome: login|signup|linked|conflict|error

		tokenCleanupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "social_token_cleanup_total",
			Help: "Resultados del sweep de tokens expirados",
		}, []string{"result"}) // result: refreshed|skipped|failed

		for _, c := range []prometheus.Collector{
			httpRequestsTotal, httpRequestDuration, socialCallbacksTotal, tokenCleanupTotal,
		} {
			if err := registerCollector(registry, c); err != nil {
				metricsErr = err
				return
			}
		}
	})
	if metricsErr != nil {
		return nil, metricsErr
	}
	return promhttp.Handler(), nil
}

// RecordSocialCallback registra el resultado de un callback reconciliado.
func RecordSocialCallback(provider, outcome string) {
	if socialCallbacksTotal != nil {
		socialCallbacksTotal.WithLabelValues(provider, outcome).Inc()
	}
}

// RecordTokenCleanup registra los contadores de un sweep.
func RecordTokenCleanup(refreshed, skipped, failed int) {
	if tokenCleanupTotal == nil {
		return
	}
	tokenCleanupTotal.WithLabelValues("refreshed").Add(float64(refreshed))
	tokenCleanupTotal.WithLabelValues("skipped").Add(float64(skipped))
	tokenCleanupTotal.WithLabelValues("failed").Add(float64(failed))
}

// WithMetrics instrumenta requests HTTP (contador y latencia). El label de
// path usa el patrón de ruta, no el path crudo, para no explotar cardinalidad.
func WithMetrics(routePattern func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if httpRequestsTotal == nil || httpRequestDuration == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &metricsRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			path := routePattern(r)
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		})
	}
}

type metricsRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (m *metricsRecorder) WriteHeader(code int) {
	if m.wroteHeader {
		return
	}
	m.status = code
	m.wroteHeader = true
	m.ResponseWriter.WriteHeader(code)
}

func (m *metricsRecorder) Write(b []byte) (int, error) {
	if !m.wroteHeader {
		m.status = http.StatusOK
		m.wroteHeader = true
	}
	return m.ResponseWriter.Write(b)
}

// registerCollector ignora registros duplicados (tests re-registran).
func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}
