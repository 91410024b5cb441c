// Package metrics exposes the service counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "admitguide"

// Recorder owns the metric collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	feedback prometheus.Counter
}

// New creates a recorder on its own registry, including the Go runtime
// and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Number of requests per endpoint.",
		}, []string{"endpoint"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_seconds",
			Help:      "Response time per endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		feedback: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_total",
			Help:      "Number of feedback submissions.",
		}),
	}

	r.registry.MustRegister(
		r.requests,
		r.latency,
		r.feedback,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Track counts a request to endpoint and returns a func that observes
// its duration when called.
//
//	defer m.Track("predict")()
func (r *Recorder) Track(endpoint string) func() {
	if r == nil {
		return func() {}
	}
	r.requests.WithLabelValues(endpoint).Inc()
	start := time.Now()
	return func() {
		r.latency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

// Feedback counts one feedback submission.
func (r *Recorder) Feedback() {
	if r == nil {
		return
	}
	r.feedback.Inc()
}

// Handler serves the exposition format. A nil recorder serves 404.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry is exposed for tests and additional collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}
