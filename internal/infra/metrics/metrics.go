// Package metrics exposes prometheus collectors on a dedicated registry.
// Collectors are created and registered lazily at first use, so packages can
// declare their metrics as package-level vars.
package metrics

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	hostname, _ = os.Hostname()
	registry    = prometheus.NewRegistry()
)

func GetCounter(namespace, metricName string, labelNames []string) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        metricName,
		ConstLabels: prometheus.Labels{"hostname": hostname},
	}, labelNames)
	registry.MustRegister(counter)
	return counter
}

func GetGauge(namespace, metricName string, labelNames []string) *prometheus.GaugeVec {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        metricName,
		ConstLabels: prometheus.Labels{"hostname": hostname},
	}, labelNames)
	registry.MustRegister(gauge)
	return gauge
}

func GetHistogram(namespace, metricName string, labelNames []string) *prometheus.HistogramVec {
	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Name:        metricName,
		ConstLabels: prometheus.Labels{"hostname": hostname},
		Buckets:     prometheus.DefBuckets,
	}, labelNames)
	registry.MustRegister(histogram)
	return histogram
}

// Handler serves the dedicated registry, for mounting on an HTTP mux.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(registry, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
