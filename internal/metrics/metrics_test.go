package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/ytmp3/internal/models"
	"github.com/desertthunder/ytmp3/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jobAt(id string, status models.Status) models.Job {
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	job := models.NewJob(id, "https://youtu.be/x", "", created)
	job.Status = status
	if status.IsTerminal() {
		finished := created.Add(30 * time.Second)
		job.FinishedAt = &finished
	}
	return job
}

func pending(c *Collector, s models.Status) float64 {
	return testutil.ToFloat64(c.pending.WithLabelValues(s.String()))
}

func TestNew(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	assert.NotNil(t, c)
	assert.Equal(t, 0.0, pending(c, models.StatusQueued))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["ytmp3_downloads_pending"])
	assert.True(t, names["go_goroutines"])
}

func TestCollector_Observe(t *testing.T) {
	t.Run("job lifecycle", func(t *testing.T) {
		c := New(nil)

		c.Observe(tasks.Event{Kind: tasks.DownloadStarted, Job: jobAt("a", models.StatusQueued)})
		assert.Equal(t, 1.0, testutil.ToFloat64(c.submitted))
		assert.Equal(t, 1.0, pending(c, models.StatusQueued))

		c.Observe(tasks.Event{Kind: tasks.StatusUpdated, Job: jobAt("a", models.StatusDownloading)})
		c.Observe(tasks.Event{Kind: tasks.StatusUpdated, Job: jobAt("a", models.StatusDownloading)})
		assert.Equal(t, 0.0, pending(c, models.StatusQueued))
		assert.Equal(t, 1.0, pending(c, models.StatusDownloading), "repeated progress events must not double count")

		c.Observe(tasks.Event{Kind: tasks.StatusUpdated, Job: jobAt("a", models.StatusConverting)})
		c.Observe(tasks.Event{Kind: tasks.StatusUpdated, Job: jobAt("a", models.StatusCompleted)})

		assert.Equal(t, 0.0, pending(c, models.StatusDownloading))
		assert.Equal(t, 0.0, pending(c, models.StatusConverting))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.finished.WithLabelValues("completed")))
		assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
	})

	t.Run("rejected submission", func(t *testing.T) {
		c := New(nil)

		c.Observe(tasks.Event{Kind: tasks.DownloadStarted, Job: jobAt("b", models.StatusQueued)})
		c.Observe(tasks.Event{Kind: tasks.DownloadRejected, Job: jobAt("b", models.StatusQueued)})

		assert.Equal(t, 1.0, testutil.ToFloat64(c.rejected))
		assert.Equal(t, 0.0, pending(c, models.StatusQueued))
	})

	t.Run("canceled while queued", func(t *testing.T) {
		c := New(nil)

		c.Observe(tasks.Event{Kind: tasks.DownloadStarted, Job: jobAt("c", models.StatusQueued)})
		c.Observe(tasks.Event{Kind: tasks.StatusUpdated, Job: jobAt("c", models.StatusCanceled)})

		assert.Equal(t, 0.0, pending(c, models.StatusQueued))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.finished.WithLabelValues("canceled")))
	})

	t.Run("files events are ignored", func(t *testing.T) {
		c := New(nil)
		c.Observe(tasks.Event{Kind: tasks.FilesRetrieved, Files: []models.File{{Name: "a.mp3"}}})
		assert.Equal(t, 0.0, testutil.ToFloat64(c.submitted))
	})
}

func TestCollector_Run(t *testing.T) {
	c := New(nil)
	events := make(chan tasks.Event, 2)
	events <- tasks.Event{Kind: tasks.DownloadStarted, Job: jobAt("a", models.StatusQueued)}
	events <- tasks.Event{Kind: tasks.StatusUpdated, Job: jobAt("a", models.StatusFailed)}
	close(events)

	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), events)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the channel closed")
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(c.finished.WithLabelValues("failed")))
}

func TestCollector_Requests(t *testing.T) {
	c := New(nil)
	c.ObserveRequest(http.MethodGet, "GET /downloads/{id}", http.StatusNotFound, 5*time.Millisecond)
	c.ObserveRequest(http.MethodGet, "GET /downloads/{id}", http.StatusOK, 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "GET /downloads/{id}", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.latency))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body), `ytmp3_http_requests_total{code="404",method="GET",route="GET /downloads/{id}"} 1`)
}
