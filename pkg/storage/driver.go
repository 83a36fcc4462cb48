// Package storage defines the interface for persisting parsed transcripts.
package storage

import (
	"context"

	"github.com/papercomputeco/reel/pkg/eventstream"
)

// DefaultListLimit caps List when ListOptions.Limit is zero.
const DefaultListLimit = 50

// ListOptions narrows a List call.
type ListOptions struct {
	// SessionID, when set, only matches transcripts of that parser session.
	SessionID string

	// Provider, when set, only matches transcripts from that provider.
	Provider string

	// Limit is the maximum number of transcripts returned. Zero means
	// DefaultListLimit.
	Limit int
}

// Driver defines the interface for persisting and retrieving transcripts in
// a storage backend.
type Driver interface {
	// Put stores a transcript keyed by its EventID. Returns true if the
	// transcript was newly inserted, false if one with the same EventID was
	// already stored, in which case Put is a no-op.
	Put(ctx context.Context, t *eventstream.Transcript) (bool, error)

	// Get retrieves a transcript by its EventID.
	Get(ctx context.Context, eventID string) (*eventstream.Transcript, error)

	// List returns matching transcripts, newest first.
	List(ctx context.Context, opts ListOptions) ([]*eventstream.Transcript, error)

	// Count returns the number of stored transcripts.
	Count(ctx context.Context) (int, error)

	// Close closes the store and releases any resources.
	Close() error
}

// EffectiveLimit resolves the limit of opts, applying DefaultListLimit.
func (o ListOptions) EffectiveLimit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}
