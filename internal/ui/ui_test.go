package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytmp3/internal/models"
	"github.com/desertthunder/ytmp3/internal/shared"
)

type fakeClient struct {
	mu       sync.Mutex
	jobs     map[string]models.Job
	stats    *models.Stats
	err      error
	canceled []string
}

func (f *fakeClient) Downloads(ctx context.Context) (map[string]models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]models.Job, len(f.jobs))
	for id, job := range f.jobs {
		out[id] = job
	}
	return out, nil
}

func (f *fakeClient) Stats(ctx context.Context) (*models.Stats, error) {
	if f.stats == nil {
		return &models.Stats{ByStatus: map[models.Status]int{}}, nil
	}
	return f.stats, nil
}

func (f *fakeClient) Cancel(ctx context.Context, id string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, id)
	job, ok := f.jobs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if job.Status.IsTerminal() {
		return nil, shared.ErrAlreadyTerminal
	}
	job.Status = models.StatusCanceled
	f.jobs[id] = job
	return &job, nil
}

func newTestModel(t *testing.T) (*Model, *fakeClient) {
	t.Helper()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	running := models.NewJob("running-job-id", "https://youtu.be/a", "", base)
	running.Status = models.StatusDownloading
	running.Progress = 45
	running.Title = "Running Song"
	running.Uploader = "Some Artist"
	running.Duration = 212

	done := models.NewJob("done-job-id", "https://youtu.be/b", "Finished Song", base.Add(-time.Minute))
	done.Status = models.StatusCompleted
	done.Progress = 100
	done.OutputPath = "downloads/Finished Song.mp3"

	client := &fakeClient{
		jobs: map[string]models.Job{running.ID: running, done.ID: done},
		stats: &models.Stats{
			DownloadCount: 1,
			TotalFiles:    1,
			DiskUsage:     4096,
			ByStatus:      map[models.Status]int{models.StatusDownloading: 1, models.StatusCompleted: 1},
		},
	}

	m := NewModel(context.Background(), client, time.Hour)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, client
}

// load runs one poll synchronously.
func load(t *testing.T, m *Model) {
	t.Helper()
	m.Update(m.fetchJobs()())
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel(t *testing.T) {
	t.Run("Init", func(t *testing.T) {
		m, _ := newTestModel(t)
		if m.Init() == nil {
			t.Error("Init should return a command")
		}
		if !strings.Contains(m.View(), "loading") {
			t.Errorf("expected loading indicator before the first poll, got %q", m.View())
		}
	})

	t.Run("renders jobs newest first", func(t *testing.T) {
		m, _ := newTestModel(t)
		load(t, m)

		if len(m.jobs) != 2 || m.jobs[0].ID != "running-job-id" {
			t.Fatalf("unexpected job order: %+v", m.jobs)
		}

		view := m.View()
		for _, want := range []string{"Running Song", "Finished Song", "1 active", "1 completed", "4.0 KiB"} {
			if !strings.Contains(view, want) {
				t.Errorf("view missing %q:\n%s", want, view)
			}
		}
	})

	t.Run("poll error is shown and cleared", func(t *testing.T) {
		m, client := newTestModel(t)
		client.err = shared.ErrServiceUnavailable
		load(t, m)

		if !strings.Contains(m.View(), "service unavailable") {
			t.Errorf("expected error in view, got:\n%s", m.View())
		}

		client.err = nil
		load(t, m)
		if m.err != nil {
			t.Errorf("expected error to clear, got %v", m.err)
		}
	})

	t.Run("detail view", func(t *testing.T) {
		m, _ := newTestModel(t)
		load(t, m)

		m.Update(keyPress("enter"))
		if m.view != DetailView {
			t.Fatalf("expected DetailView, got %v", m.view)
		}
		view := m.View()
		for _, want := range []string{"running-job-id", "https://youtu.be/a", "Some Artist", "3:32"} {
			if !strings.Contains(view, want) {
				t.Errorf("detail view missing %q:\n%s", want, view)
			}
		}

		m.Update(keyPress("esc"))
		if m.view != JobListView {
			t.Errorf("expected JobListView after esc, got %v", m.view)
		}
	})

	t.Run("cancel running job", func(t *testing.T) {
		m, client := newTestModel(t)
		load(t, m)

		m.Update(keyPress("c"))
		if m.view != ConfirmCancelView {
			t.Fatalf("expected ConfirmCancelView, got %v", m.view)
		}
		if !strings.Contains(m.View(), "Cancel 'Running Song'?") {
			t.Errorf("unexpected confirm view:\n%s", m.View())
		}

		_, cmd := m.Update(keyPress("y"))
		if cmd == nil {
			t.Fatal("expected a cancel command")
		}
		m.Update(cmd())

		if len(client.canceled) != 1 || client.canceled[0] != "running-job-id" {
			t.Errorf("unexpected cancel calls: %v", client.canceled)
		}
		if m.notice != "canceled running-" {
			t.Errorf("unexpected notice %q", m.notice)
		}
	})

	t.Run("declining keeps the job", func(t *testing.T) {
		m, client := newTestModel(t)
		load(t, m)

		m.Update(keyPress("c"))
		m.Update(keyPress("n"))

		if m.view != JobListView || len(client.canceled) != 0 {
			t.Errorf("expected no cancel, view=%v calls=%v", m.view, client.canceled)
		}
	})

	t.Run("finished jobs cannot be canceled", func(t *testing.T) {
		m, client := newTestModel(t)
		load(t, m)

		m.Update(keyPress("j"))
		m.Update(keyPress("c"))

		if m.view != JobListView {
			t.Errorf("expected to stay on the list, got %v", m.view)
		}
		if !strings.Contains(m.notice, "already finished") || len(client.canceled) != 0 {
			t.Errorf("unexpected notice %q calls=%v", m.notice, client.canceled)
		}
	})

	t.Run("cancel race reports already finished", func(t *testing.T) {
		m, _ := newTestModel(t)
		m.Update(cancelDoneMsg("abcdefghijkl", nil, shared.ErrAlreadyTerminal))
		if m.notice != "abcdefgh already finished" {
			t.Errorf("unexpected notice %q", m.notice)
		}

		m.Update(cancelDoneMsg("x", nil, errors.New("boom")))
		if !strings.Contains(m.notice, "boom") {
			t.Errorf("unexpected notice %q", m.notice)
		}
	})

	t.Run("quit", func(t *testing.T) {
		m, _ := newTestModel(t)
		_, cmd := m.Update(keyPress("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}
