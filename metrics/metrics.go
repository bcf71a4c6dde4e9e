// Package metrics exposes client activity as Prometheus-style metrics:
// request counts and latencies per operation, retry and auth activity, and
// pool usage gauges.
package metrics

import (
	"fmt"
	"io"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
)

// RecordRequest counts one finished request and tracks its latency.
func RecordRequest(op string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	vm.GetOrCreateCounter(
		fmt.Sprintf(`quanta_requests_total{op=%q,status=%q}`, op, status)).Inc()
	vm.GetOrCreateHistogram(
		fmt.Sprintf(`quanta_request_duration_seconds{op=%q}`, op)).Update(duration.Seconds())
}

// RecordRetry counts one retried attempt for an operation.
func RecordRetry(op string) {
	vm.GetOrCreateCounter(fmt.Sprintf(`quanta_retries_total{op=%q}`, op)).Inc()
}

// RecordAuth counts one authentication attempt.
func RecordAuth(success bool) {
	status := "ok"
	if !success {
		status = "failed"
	}
	vm.GetOrCreateCounter(fmt.Sprintf(`quanta_auth_total{status=%q}`, status)).Inc()
}

// RecordConnectionOpened counts one freshly dialed connection to a host.
func RecordConnectionOpened(host string) {
	vm.GetOrCreateCounter(fmt.Sprintf(`quanta_connections_opened_total{host=%q}`, host)).Inc()
}

// RecordConnectionEvicted counts one evicted (closed) pooled connection.
func RecordConnectionEvicted(host string) {
	vm.GetOrCreateCounter(fmt.Sprintf(`quanta_connections_evicted_total{host=%q}`, host)).Inc()
}

// RegisterPoolGauges exposes live pool usage. The callbacks are invoked on
// every scrape.
func RegisterPoolGauges(idle, active func() float64) {
	vm.GetOrCreateGauge(`quanta_pool_idle_connections`, idle)
	vm.GetOrCreateGauge(`quanta_pool_active_connections`, active)
}

// WritePrometheus dumps all metrics in Prometheus text format.
func WritePrometheus(w io.Writer) {
	vm.WritePrometheus(w, true)
}
