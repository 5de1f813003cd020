package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	providerReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoicevision",
			Name:      "provider_requests_total",
			Help:      "Total provider requests by provider, model and result",
		},
		[]string{"provider", "model", "result"},
	)

	providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invoicevision",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of provider requests by provider and model",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "model"},
	)

	retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoicevision",
			Name:      "provider_retries_total",
			Help:      "Total provider call retries by provider",
		},
		[]string{"provider"},
	)

	extractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoicevision",
			Name:      "extractions_total",
			Help:      "Completed extraction workflows by result",
		},
		[]string{"result"},
	)

	extractionLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "invoicevision",
			Name:      "extraction_duration_seconds",
			Help:      "End-to-end extraction workflow duration",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	pagesRendered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "invoicevision",
			Name:      "pages_rendered_total",
			Help:      "Total PDF pages rasterized",
		},
	)

	warningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoicevision",
			Name:      "record_warnings_total",
			Help:      "Warnings attached to successful records by kind",
		},
		[]string{"kind"},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(providerReqs, providerLatency, retriesTotal, extractions, extractionLatency, pagesRendered, warningsTotal)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveProvider(provider, model, result string, dur time.Duration) {
	providerReqs.WithLabelValues(provider, model, result).Inc()
	providerLatency.WithLabelValues(provider, model).Observe(dur.Seconds())
}

func IncRetry(provider string) { retriesTotal.WithLabelValues(provider).Inc() }

func ObserveExtraction(result string, dur time.Duration) {
	extractions.WithLabelValues(result).Inc()
	extractionLatency.Observe(dur.Seconds())
}

func AddPagesRendered(n int) { pagesRendered.Add(float64(n)) }

func IncWarning(kind string) { warningsTotal.WithLabelValues(kind).Inc() }
