package tasks

import (
	"context"
	"time"
)

// Prune deletes finished jobs whose terminal state is older than maxAge. Output files are kept.
func (m *Manager) Prune(maxAge time.Duration) int {
	now := m.now()
	removed := 0
	for _, job := range m.store.List() {
		if !job.Status.IsTerminal() || job.Age(now) <= maxAge {
			continue
		}
		if err := m.store.Delete(job.ID); err != nil {
			m.logger.Error("failed to prune job", "job", job.ID, "err", err)
			continue
		}
		m.forget(job.ID)
		removed++
	}
	if removed > 0 {
		m.logger.Info("pruned finished jobs", "count", removed, "max_age", maxAge)
	}
	return removed
}

func (m *Manager) startJanitor(interval, maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.janitorStop != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.janitorStop, m.janitorDone = cancel, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Prune(maxAge)
			}
		}
	}()
}

func (m *Manager) stopJanitor() {
	m.mu.Lock()
	stop, done := m.janitorStop, m.janitorDone
	m.janitorStop, m.janitorDone = nil, nil
	m.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}
