package metrics

import (
    "fmt"
    "net/http"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "github.com/hamzaKhattat/powerdialer/pkg/logger"
)

// PrometheusMetrics exposes the dialer's counters, gauges, and histograms
// on a standard /metrics endpoint for scraping.
type PrometheusMetrics struct {
    counters   map[string]*prometheus.CounterVec
    histograms map[string]*prometheus.HistogramVec
    gauges     map[string]*prometheus.GaugeVec
}

// NewPrometheusMetrics registers every dialer metric and returns a
// handle for recording against them.
func NewPrometheusMetrics() *PrometheusMetrics {
    pm := &PrometheusMetrics{
        counters:   make(map[string]*prometheus.CounterVec),
        histograms: make(map[string]*prometheus.HistogramVec),
        gauges:     make(map[string]*prometheus.GaugeVec),
    }

    pm.registerMetrics()

    return pm
}

func (pm *PrometheusMetrics) registerMetrics() {
    pm.counters["calls_initiated"] = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "dialer_calls_initiated_total",
            Help: "Total number of calls initiated by the power dialer",
        },
        []string{"agent_id"},
    )

    pm.counters["calls_failed"] = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "dialer_calls_failed_total",
            Help: "Total number of calls reported as failed",
        },
        []string{"agent_id"},
    )

    pm.counters["calls_connected"] = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "dialer_calls_connected_total",
            Help: "Total number of calls that reached call_started",
        },
        []string{"agent_id"},
    )

    pm.counters["calls_ended"] = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "dialer_calls_ended_total",
            Help: "Total number of calls that reached call_ended",
        },
        []string{"agent_id"},
    )

    pm.counters["protocol_violations"] = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "dialer_protocol_violations_total",
            Help: "Total number of illegal state transitions coerced by the power dialer",
        },
        []string{"event"},
    )

    pm.histograms["call_duration"] = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Name:    "dialer_call_duration_seconds",
            Help:    "Call duration in seconds, from call_started to call_ended",
            Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
        },
        []string{"agent_id"},
    )

    pm.gauges["agents_busy"] = prometheus.NewGaugeVec(
        prometheus.GaugeOpts{
            Name: "dialer_agents_busy",
            Help: "Current number of agents in the busy state",
        },
        []string{},
    )

    pm.gauges["agents_idle"] = prometheus.NewGaugeVec(
        prometheus.GaugeOpts{
            Name: "dialer_agents_idle",
            Help: "Current number of agents in the idle state",
        },
        []string{},
    )

    pm.gauges["recency_cache_size"] = prometheus.NewGaugeVec(
        prometheus.GaugeOpts{
            Name: "dialer_recency_cache_size",
            Help: "Current number of live entries in the number manager's recency cache",
        },
        []string{},
    )

    pm.gauges["calls_in_flight"] = prometheus.NewGaugeVec(
        prometheus.GaugeOpts{
            Name: "dialer_calls_in_flight",
            Help: "Current number of in-flight calls tracked by the call metrics recorder",
        },
        []string{},
    )

    for _, counter := range pm.counters {
        prometheus.MustRegister(counter)
    }
    for _, histogram := range pm.histograms {
        prometheus.MustRegister(histogram)
    }
    for _, gauge := range pm.gauges {
        prometheus.MustRegister(gauge)
    }
}

func (pm *PrometheusMetrics) IncrementCounter(name string, labels map[string]string) {
    if counter, exists := pm.counters[name]; exists {
        counter.With(prometheus.Labels(labels)).Inc()
    }
}

func (pm *PrometheusMetrics) ObserveHistogram(name string, value float64, labels map[string]string) {
    if histogram, exists := pm.histograms[name]; exists {
        histogram.With(prometheus.Labels(labels)).Observe(value)
    }
}

func (pm *PrometheusMetrics) SetGauge(name string, value float64, labels map[string]string) {
    if gauge, exists := pm.gauges[name]; exists {
        if labels == nil {
            labels = make(map[string]string)
        }
        gauge.With(prometheus.Labels(labels)).Set(value)
    }
}

// ServeHTTP starts the blocking /metrics HTTP server on port.
func (pm *PrometheusMetrics) ServeHTTP(port int) error {
    mux := http.NewServeMux()
    mux.Handle("/metrics", promhttp.Handler())
    addr := fmt.Sprintf(":%d", port)
    logger.WithField("addr", addr).Info("metrics server started")
    return http.ListenAndServe(addr, mux)
}
