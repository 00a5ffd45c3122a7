package transport

import (
	"context"
	"sort"
	"sync"
	"time"
)

// StreamInfo describes a running completion stream.
type StreamInfo struct {
	ID      string    `json:"id"`
	Engine  string    `json:"engine"`
	Model   string    `json:"model"`
	Started time.Time `json:"started_at"`
}

type inflightEntry struct {
	info   StreamInfo
	cancel context.CancelFunc
}

// InFlight tracks running completion streams so that a client can cancel
// one by id. Safe for concurrent use.
type InFlight struct {
	mu      sync.Mutex
	entries map[string]inflightEntry
}

// NewInFlight creates an empty tracker.
func NewInFlight() *InFlight {
	return &InFlight{entries: make(map[string]inflightEntry)}
}

// Track registers a stream. The returned release func removes it without
// cancelling and is safe to call more than once.
func (f *InFlight) Track(info StreamInfo, cancel context.CancelFunc) (release func()) {
	f.mu.Lock()
	f.entries[info.ID] = inflightEntry{info: info, cancel: cancel}
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.entries, info.ID)
	}
}

// Cancel stops the stream with the given id. It reports false when no such
// stream is running.
func (f *InFlight) Cancel(id string) bool {
	f.mu.Lock()
	e, ok := f.entries[id]
	delete(f.entries, id)
	f.mu.Unlock()

	if ok {
		e.cancel()
	}
	return ok
}

// List returns the running streams ordered by start time.
func (f *InFlight) List() []StreamInfo {
	f.mu.Lock()
	out := make([]StreamInfo, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.info)
	}
	f.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Started.Equal(out[j].Started) {
			return out[i].ID < out[j].ID
		}
		return out[i].Started.Before(out[j].Started)
	})
	return out
}
