package server

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytmp3/internal/models"
	"github.com/desertthunder/ytmp3/internal/tasks"
)

func TestEventStream(t *testing.T) {
	stub := newStubManager()
	ts := httptest.NewServer(New(testConfig(t), stub, nil, nil, "test").Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/events")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}

	job := models.NewJob("abc", "https://youtu.be/abc", "", time.Now())
	job.Status = models.StatusDownloading
	job.Progress = 42
	stub.events <- tasks.Event{Kind: tasks.StatusUpdated, Job: job, Time: time.Now()}
	close(stub.events)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	var got []string
	timeout := time.After(3 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				joined := strings.Join(got, "\n")
				if !strings.Contains(joined, "event: status_updated") {
					t.Errorf("missing event line in %q", joined)
				}
				if !strings.Contains(joined, `"download_id":"abc"`) || !strings.Contains(joined, `"progress":42`) {
					t.Errorf("missing payload in %q", joined)
				}
				return
			}
			got = append(got, line)
		case <-timeout:
			t.Fatalf("stream did not end after the subscription closed; got %v", got)
		}
	}
}
