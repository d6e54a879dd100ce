// Package metrics exposes Prometheus metrics fed from event bus events.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/hanpama/persongraph/internal/eventbus"
	events "github.com/hanpama/persongraph/internal/events"
)

// Metrics holds the application collectors.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	GraphQLOperations *prometheus.CounterVec
	GraphQLDuration   *prometheus.HistogramVec
	StoreCalls        *prometheus.CounterVec
	StoreCallDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "persongraph_http_requests_total",
			Help: "GraphQL HTTP requests by response status.",
		}, []string{"status"}),
		GraphQLOperations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "persongraph_graphql_operations_total",
			Help: "Executed GraphQL operations by type and outcome.",
		}, []string{"operation_type", "outcome"}),
		GraphQLDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "persongraph_graphql_operation_duration_seconds",
			Help:    "GraphQL operation execution time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation_type"}),
		StoreCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "persongraph_recordstore_calls_total",
			Help: "Record store HTTP calls by method and status (0 when no response).",
		}, []string{"method", "status"}),
		StoreCallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "persongraph_recordstore_call_duration_seconds",
			Help:    "Record store HTTP call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Subscribe feeds the collectors from the global bus.
func (m *Metrics) Subscribe() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			m.HTTPRequests.WithLabelValues(strconv.Itoa(e.Status)).Inc()
		}),
		eventbus.Subscribe(func(_ context.Context, e events.GraphQLFinish) {
			outcome := "ok"
			if len(e.Errors) > 0 {
				outcome = "error"
			}
			m.GraphQLOperations.WithLabelValues(opType(e.OperationType), outcome).Inc()
			m.GraphQLDuration.WithLabelValues(opType(e.OperationType)).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(_ context.Context, e events.StoreCallFinish) {
			m.StoreCalls.WithLabelValues(e.Method, strconv.Itoa(e.Status)).Inc()
			m.StoreCallDuration.WithLabelValues(e.Method).Observe(e.Duration.Seconds())
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func opType(t string) string {
	if t == "" {
		return "unknown"
	}
	return t
}
