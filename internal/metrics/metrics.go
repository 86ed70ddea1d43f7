// Package metrics collects Prometheus metrics for the API and exposes them for scraping.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service's metrics. It satisfies the services' Recorder.
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	documentUploads *prometheus.CounterVec
	policyDenials   *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelforge_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pixelforge_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		documentUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelforge_document_uploads_total",
			Help: "Document uploads by outcome.",
		}, []string{"outcome"}),
		policyDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelforge_policy_denials_total",
			Help: "Authorization denials by action.",
		}, []string{"action"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.documentUploads,
		c.policyDenials,
	)

	return c
}

// RecordHTTPRequest records one served request. route is the matched route pattern, not
// the raw path, to keep label cardinality bounded.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) RecordDocumentUpload(outcome string) {
	c.documentUploads.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordPolicyDenial(action string) {
	c.policyDenials.WithLabelValues(action).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
