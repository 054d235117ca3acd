package tasks

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/ytmp3/internal/models"
	"github.com/desertthunder/ytmp3/internal/repositories"
	"github.com/desertthunder/ytmp3/internal/services"
	"github.com/desertthunder/ytmp3/internal/shared"
	tu "github.com/desertthunder/ytmp3/internal/testing"
)

const waitFor = 3 * time.Second

type mockResolver struct {
	title    string
	protocol string
	err      error
	gate     *tu.Gate
	calls    atomic.Int32
}

func (m *mockResolver) Resolve(ctx context.Context, sourceURL string) (*services.Metadata, error) {
	m.calls.Add(1)
	if m.gate != nil {
		if err := m.gate.Wait(ctx.Done()); err != nil {
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	title := m.title
	if title == "" {
		title = "Test Title"
	}
	return &services.Metadata{
		Title:     title,
		Uploader:  "Test Uploader",
		Duration:  213,
		StreamURL: "https://cdn.example.com/stream?src=" + sourceURL,
		Ext:       "m4a",
		Protocol:  m.protocol,
	}, nil
}

type mockFetcher struct {
	chunks   int
	failAt   int // chunk index that returns err, 0 disables
	err      error
	gate     *tu.Gate
	calls    atomic.Int32
	lastURL  atomic.Value
	progress atomic.Int64
}

func (m *mockFetcher) Fetch(ctx context.Context, streamURL string, dst io.Writer, progress services.ProgressFunc) (int64, error) {
	m.calls.Add(1)
	m.lastURL.Store(streamURL)

	chunks := m.chunks
	if chunks == 0 {
		chunks = 10
	}
	chunk := bytes.Repeat([]byte{0xAA}, 1024)
	total := int64(chunks * len(chunk))

	var written int64
	for i := 1; i <= chunks; i++ {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if m.failAt > 0 && i == m.failAt {
			return written, m.err
		}

		n, err := dst.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
		m.progress.Store(written)
		if progress != nil {
			if err := progress(written, total); err != nil {
				return written, err
			}
		}

		if i == 1 && m.gate != nil {
			if err := m.gate.Wait(ctx.Done()); err != nil {
				return written, ctx.Err()
			}
		}
	}
	return written, nil
}

type mockConverter struct {
	err       error
	gate      *tu.Gate
	calls     atomic.Int32
	lastInput atomic.Value
}

func (m *mockConverter) Convert(ctx context.Context, input, output string) error {
	m.calls.Add(1)
	m.lastInput.Store(input)
	if m.gate != nil {
		if err := m.gate.Wait(ctx.Done()); err != nil {
			return ctx.Err()
		}
	}
	if m.err != nil {
		return m.err
	}
	return os.WriteFile(output, []byte("ID3 fake mp3"), 0644)
}

type fixture struct {
	manager   *Manager
	store     *repositories.JobStore
	config    *shared.Config
	resolver  *mockResolver
	fetcher   *mockFetcher
	converter *mockConverter
}

func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	config := shared.DefaultConfig()
	config.Downloads.OutputDir = t.TempDir()
	config.Downloads.MaxConcurrent = 2
	config.Downloads.QueueSize = 16
	config.Downloads.QueuePolicy = shared.QueuePolicyQueue
	config.Downloads.ProgressStep = 1
	config.Retention.MaxAge = 0
	return config
}

// newFixture builds a started manager over an in-memory store.
func newFixture(t *testing.T, configure func(c *shared.Config), opts ...ManagerOption) *fixture {
	t.Helper()

	config := testConfig(t)
	if configure != nil {
		configure(config)
	}

	f := &fixture{
		store:     repositories.NewJobStore(),
		config:    config,
		resolver:  &mockResolver{},
		fetcher:   &mockFetcher{},
		converter: &mockConverter{},
	}
	f.manager = NewManager(config, f.store, Pipeline{
		Resolver:  f.resolver,
		Fetcher:   f.fetcher,
		Converter: f.converter,
	}, shared.NewLogger(io.Discard), opts...)

	if err := f.manager.Start(); err != nil {
		t.Fatalf("failed to start manager: %v", err)
	}
	t.Cleanup(f.manager.Stop)
	return f
}

func (f *fixture) submit(t *testing.T, url, name string) string {
	t.Helper()
	id, err := f.manager.Submit(context.Background(), url, name)
	if err != nil {
		t.Fatalf("submit %s: %v", url, err)
	}
	return id
}

func (f *fixture) waitStatus(t *testing.T, id string, want models.Status) {
	t.Helper()
	tu.Eventually(t, waitFor, func() bool {
		job, err := f.store.Get(id)
		return err == nil && job.Status == want
	}, "job "+id+" to reach "+want.String())
}

var errBoom = errors.New("boom")
