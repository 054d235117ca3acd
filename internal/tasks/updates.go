package tasks

import (
	"sync"
	"time"

	"github.com/desertthunder/ytmp3/internal/models"
)

// EventKind identifies what happened to a download.
type EventKind int

const (
	DownloadStarted EventKind = iota
	StatusUpdated
	FilesRetrieved
	DownloadRejected
)

func (k EventKind) String() string {
	switch k {
	case DownloadStarted:
		return "download_started"
	case StatusUpdated:
		return "status_updated"
	case FilesRetrieved:
		return "files_retrieved"
	case DownloadRejected:
		return "download_rejected"
	default:
		return ""
	}
}

// Event is published by the [Manager] whenever a job or the file listing changes.
type Event struct {
	Kind  EventKind
	Job   models.Job    // snapshot, zero for FilesRetrieved
	Files []models.File // only for FilesRetrieved
	Time  time.Time
}

// Payload returns the wire representation used by the event stream.
func (e Event) Payload() map[string]any {
	switch e.Kind {
	case FilesRetrieved:
		return map[string]any{"count": len(e.Files), "files": e.Files}
	case StatusUpdated:
		return map[string]any{
			"download_id": e.Job.ID,
			"status":      e.Job.Status,
			"progress":    e.Job.Progress,
			"title":       e.Job.Title,
		}
	default:
		return map[string]any{"download_id": e.Job.ID, "url": e.Job.SourceURL}
	}
}

func startedEvent(job models.Job, now time.Time) Event {
	return Event{Kind: DownloadStarted, Job: job, Time: now}
}

func statusEvent(job models.Job, now time.Time) Event {
	return Event{Kind: StatusUpdated, Job: job, Time: now}
}

func rejectedEvent(job models.Job, now time.Time) Event {
	return Event{Kind: DownloadRejected, Job: job, Time: now}
}

func filesEvent(files []models.File, now time.Time) Event {
	return Event{Kind: FilesRetrieved, Files: files, Time: now}
}

// broadcaster fans events out to subscribers without ever blocking the publisher.
type broadcaster struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	next   int
	buffer int
	closed bool
}

func newBroadcaster(buffer int) *broadcaster {
	return &broadcaster{subs: make(map[int]chan Event), buffer: buffer}
}

// subscribe registers a new listener. The returned func unsubscribes and closes the channel.
func (b *broadcaster) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// publish delivers e to every subscriber with room in its buffer. Slow subscribers miss events.
func (b *broadcaster) publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
