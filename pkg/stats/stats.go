package stats

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	BYTE = 1 << (10 * iota)
	KILOBYTE
	MEGABYTE
	GIGABYTE
)

const namespace = "recoveryd"

var (
	// RecoveryEvents counts the events published for wallet recoveries.
	RecoveryEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovery_events_total",
			Help:      "Total number of recovery events published, by type.",
		},
		[]string{"type"},
	)

	// RecoveryErrors counts the errors reported to the recovery watchers.
	RecoveryErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovery_errors_total",
			Help:      "Total number of errors reported by background recovery tasks.",
		},
	)

	// RelayRequests counts the requests made to the relay, by method and
	// outcome.
	RelayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_requests_total",
			Help:      "Total number of relay requests.",
		},
		[]string{"method", "status"},
	)

	// RelayRequestDuration ...
	RelayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relay_request_duration_seconds",
			Help:      "Relay request latency distributions.",
			Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"method"},
	)

	// Goroutines ...
	Goroutines = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "goroutines",
			Help:      "Number of goroutines currently running.",
		},
		func() float64 { return float64(runtime.NumGoroutine()) },
	)
)

// NewRegistry returns a registry with the metrics of this service along with
// the default process and go collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		RecoveryEvents,
		RecoveryErrors,
		RelayRequests,
		RelayRequestDuration,
		Goroutines,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler exposes the metrics of the given registry in the Prometheus text
// format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// ObserveRelayRequest records the outcome and the duration of a relay request
// started at the given time.
func ObserveRelayRequest(method string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	RelayRequests.WithLabelValues(method, status).Inc()
	RelayRequestDuration.WithLabelValues(method).Observe(
		time.Since(start).Seconds(),
	)
}

// EnableMemoryStatistics enables go routine that periodically prints memory
// usage of the go process.
func EnableMemoryStatistics(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				PrintMemoryStatistics()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// toMegabytes returns given memory in bytes to megabytes.
func toMegabytes(bytes uint64) float64 {
	return float64(bytes) / MEGABYTE
}

// PrintMemoryStatistics prints memory statistics using go runtime library.
func PrintMemoryStatistics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	log.Debugf(
		"total allocated: %.3fMB, heap allocated: %.3fMB, goroutines: %d",
		toMegabytes(memStats.TotalAlloc),
		toMegabytes(memStats.HeapAlloc),
		runtime.NumGoroutine(),
	)
}
