// Package metrics exports job and request metrics in the Prometheus format.
//
// A [Collector] consumes the manager's event stream to count submissions and
// outcomes, keeps gauges for jobs that are still queued or running, and records
// per-route HTTP latencies through [Collector.ObserveRequest].
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/desertthunder/ytmp3/internal/models"
	"github.com/desertthunder/ytmp3/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ytmp3"

// Collector owns every metric exported by the service.
type Collector struct {
	registry *prometheus.Registry

	submitted prometheus.Counter
	rejected  prometheus.Counter
	finished  *prometheus.CounterVec   // by terminal status
	duration  *prometheus.HistogramVec // submission to terminal state, by status
	pending   *prometheus.GaugeVec     // non-terminal jobs by status
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec

	mu    sync.Mutex
	state map[string]models.Status
}

// New creates a collector and registers its metrics, plus the Go runtime and process collectors, with reg.
// A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: reg,
		state:    make(map[string]models.Status),
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_submitted_total",
			Help:      "Valid download submissions, including rejected ones.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_rejected_total",
			Help:      "Submissions refused because the pool was at capacity.",
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_finished_total",
			Help:      "Downloads that reached a terminal status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_duration_seconds",
			Help:      "Time from submission to terminal status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"status"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "downloads_pending",
			Help:      "Downloads that are queued or running.",
		}, []string{"status"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.submitted, c.rejected, c.finished, c.duration, c.pending, c.requests, c.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, s := range []models.Status{models.StatusQueued, models.StatusDownloading, models.StatusConverting} {
		c.pending.WithLabelValues(s.String())
	}
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Run observes events until ctx is done or the channel closes.
func (c *Collector) Run(ctx context.Context, events <-chan tasks.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			c.Observe(e)
		}
	}
}

// Observe updates the job metrics for one event.
func (c *Collector) Observe(e tasks.Event) {
	switch e.Kind {
	case tasks.DownloadStarted:
		c.submitted.Inc()
		c.transition(e.Job.ID, e.Job.Status)
	case tasks.DownloadRejected:
		c.rejected.Inc()
		c.forget(e.Job.ID)
	case tasks.StatusUpdated:
		c.transition(e.Job.ID, e.Job.Status)
		if e.Job.Status.IsTerminal() {
			c.finished.WithLabelValues(e.Job.Status.String()).Inc()
			if e.Job.FinishedAt != nil {
				c.duration.WithLabelValues(e.Job.Status.String()).Observe(e.Job.FinishedAt.Sub(e.Job.CreatedAt).Seconds())
			}
		}
	}
}

// transition moves id from its previous pending status to next.
func (c *Collector) transition(id string, next models.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, tracked := c.state[id]
	if tracked && prev == next {
		return
	}
	if tracked {
		c.pending.WithLabelValues(prev.String()).Dec()
	}
	if next.IsTerminal() {
		delete(c.state, id)
		return
	}
	c.state[id] = next
	c.pending.WithLabelValues(next.String()).Inc()
}

// forget drops id without counting an outcome.
func (c *Collector) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.state[id]; ok {
		c.pending.WithLabelValues(prev.String()).Dec()
		delete(c.state, id)
	}
}

// ObserveRequest records one handled HTTP request.
func (c *Collector) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
