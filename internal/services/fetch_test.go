package services

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/desertthunder/ytmp3/internal/shared"
	tu "github.com/desertthunder/ytmp3/internal/testing"
)

func TestHTTPFetcher(t *testing.T) {
	payload := bytes.Repeat([]byte("a"), 200*1024)

	serve := func(t *testing.T) *httptest.Server {
		t.Helper()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Cookie") != "" && r.Header.Get("Cookie") != "session=1" {
				t.Errorf("unexpected cookie %q", r.Header.Get("Cookie"))
			}
			w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
			w.Write(payload)
		}))
		t.Cleanup(server.Close)
		return server
	}

	t.Run("Streams And Reports Progress", func(t *testing.T) {
		server := serve(t)
		var buf bytes.Buffer
		var calls int
		var last, total int64

		f := NewHTTPFetcher(true, nil)
		n, err := f.Fetch(context.Background(), server.URL, &buf, func(written, size int64) error {
			if written < last {
				t.Errorf("progress went backwards: %d after %d", written, last)
			}
			calls++
			last, total = written, size
			return nil
		})

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n != int64(len(payload)) || buf.Len() != len(payload) {
			t.Errorf("expected %d bytes, got n=%d buf=%d", len(payload), n, buf.Len())
		}
		if calls == 0 {
			t.Error("expected progress callbacks")
		}
		if last != int64(len(payload)) || total != int64(len(payload)) {
			t.Errorf("expected final progress %d/%d, got %d/%d", len(payload), len(payload), last, total)
		}
	})

	t.Run("Sends Configured Headers", func(t *testing.T) {
		var got string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("Cookie")
		}))
		defer server.Close()

		h := http.Header{}
		h.Set("Cookie", "session=1")
		if _, err := NewHTTPFetcher(true, h).Fetch(context.Background(), server.URL, &bytes.Buffer{}, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != "session=1" {
			t.Errorf("expected cookie to be forwarded, got %q", got)
		}
	})

	t.Run("Progress Abort", func(t *testing.T) {
		server := serve(t)
		stop := errors.New("job canceled")

		_, err := NewHTTPFetcher(true, nil).Fetch(context.Background(), server.URL, &bytes.Buffer{}, func(int64, int64) error {
			return stop
		})
		if !errors.Is(err, stop) {
			t.Errorf("expected abort error to be returned unchanged, got %v", err)
		}
		if errors.Is(err, shared.ErrFetch) {
			t.Error("abort must not be reported as a fetch failure")
		}
	})

	t.Run("Non-200 Status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		_, err := NewHTTPFetcher(true, nil).Fetch(context.Background(), server.URL, &bytes.Buffer{}, nil)
		if !errors.Is(err, shared.ErrFetch) {
			t.Errorf("expected ErrFetch, got %v", err)
		}
		if !strings.Contains(err.Error(), "403") {
			t.Errorf("expected status in error, got %v", err)
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection reset"))}

		_, err := NewHTTPFetcherWithClient(client, nil).Fetch(context.Background(), "http://example.com/a", &bytes.Buffer{}, nil)
		if !errors.Is(err, shared.ErrFetch) {
			t.Errorf("expected ErrFetch, got %v", err)
		}
	})

	t.Run("Body Read Failure", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
			StatusCode:    http.StatusOK,
			Body:          &tu.FCloser{},
			Header:        http.Header{},
			ContentLength: -1,
		}, nil)}

		_, err := NewHTTPFetcherWithClient(client, nil).Fetch(context.Background(), "http://example.com/a", &bytes.Buffer{}, nil)
		if !errors.Is(err, shared.ErrFetch) {
			t.Errorf("expected ErrFetch, got %v", err)
		}
	})

	t.Run("Write Failure", func(t *testing.T) {
		server := serve(t)

		_, err := NewHTTPFetcher(true, nil).Fetch(context.Background(), server.URL, &tu.FWriter{}, nil)
		if !errors.Is(err, shared.ErrFetch) {
			t.Errorf("expected ErrFetch, got %v", err)
		}
	})

	t.Run("Canceled Context", func(t *testing.T) {
		server := serve(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewHTTPFetcher(true, nil).Fetch(ctx, server.URL, &bytes.Buffer{}, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("Insecure Transport", func(t *testing.T) {
		server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		}))
		defer server.Close()

		if _, err := NewHTTPFetcher(true, nil).Fetch(context.Background(), server.URL, &bytes.Buffer{}, nil); err == nil {
			t.Error("expected certificate error with verification enabled")
		}

		var buf bytes.Buffer
		if _, err := NewHTTPFetcher(false, nil).Fetch(context.Background(), server.URL, &buf, nil); err != nil {
			t.Fatalf("expected no error with verification disabled, got %v", err)
		}
		if buf.String() != "ok" {
			t.Errorf("expected body 'ok', got %q", buf.String())
		}
	})
}
