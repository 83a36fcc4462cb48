// Package inmemory provides a map-backed storage driver.
package inmemory

import (
	"context"
	"slices"
	"sync"

	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of transcripts
	mu sync.RWMutex

	// transcripts is keyed by event id
	transcripts map[string]*eventstream.Transcript

	// order holds event ids in insertion order
	order []string
}

// NewDriver creates a new in-memory storer.
func NewDriver() *Driver {
	return &Driver{
		transcripts: make(map[string]*eventstream.Transcript),
	}
}

// Put stores a transcript. Storing the same event id twice is a no-op.
func (s *Driver) Put(_ context.Context, t *eventstream.Transcript) (bool, error) {
	if err := storage.Validate(t); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transcripts[t.EventID]; ok {
		return false, nil
	}

	s.transcripts[t.EventID] = t
	s.order = append(s.order, t.EventID)
	return true, nil
}

// Get retrieves a transcript by its event id.
func (s *Driver) Get(_ context.Context, eventID string) (*eventstream.Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transcripts[eventID]
	if !ok {
		return nil, storage.NotFoundError{EventID: eventID}
	}

	return t, nil
}

// List returns matching transcripts, newest first. Ties on EmittedAt keep
// reverse insertion order.
func (s *Driver) List(_ context.Context, opts storage.ListOptions) ([]*eventstream.Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*eventstream.Transcript, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		t := s.transcripts[s.order[i]]
		if opts.SessionID != "" && t.SessionID != opts.SessionID {
			continue
		}
		if opts.Provider != "" && t.Source.Provider != opts.Provider {
			continue
		}
		matched = append(matched, t)
	}

	slices.SortStableFunc(matched, func(a, b *eventstream.Transcript) int {
		return b.EmittedAt.Compare(a.EmittedAt)
	})

	if limit := opts.EffectiveLimit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Count returns the number of stored transcripts.
func (s *Driver) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.transcripts), nil
}

// Close is a no-op for the in-memory storer.
func (s *Driver) Close() error {
	return nil
}
