package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values for operationsTotal.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultExists   = "exists"
	ResultError    = "error"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobmonitor",
			Subsystem: "zookeeper",
			Name:      "operations_total",
			Help:      "Number of store operations by operation and result.",
		}, []string{"op", "result"},
	)
	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jobmonitor",
			Subsystem: "zookeeper",
			Name:      "operation_duration_seconds",
			Help:      "Latency of store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"},
	)
	sessionConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "jobmonitor",
			Subsystem: "zookeeper",
			Name:      "session_connected",
			Help:      "1 while the ZooKeeper session is live, 0 otherwise.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{operationsTotal, operationDuration, sessionConnected}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// HandlerFor serves the metrics gathered by g.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// The helpers below no-op if Register hasn't been called.

func ObserveOperation(op, result string, seconds float64) {
	if regOK.Load() {
		operationsTotal.WithLabelValues(op, result).Inc()
		operationDuration.WithLabelValues(op).Observe(seconds)
	}
}

func SetSessionConnected(connected bool) {
	if regOK.Load() {
		var value float64
		if connected {
			value = 1
		}
		sessionConnected.Set(value)
	}
}
