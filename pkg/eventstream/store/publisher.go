// Package store publishes transcripts into a storage.Driver.
package store

import (
	"context"
	"fmt"

	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/storage"
)

// Publisher persists transcripts into a storage backend.
type Publisher struct {
	driver storage.Driver
}

// NewPublisher creates a publisher that writes into driver.
func NewPublisher(driver storage.Driver) (*Publisher, error) {
	if driver == nil {
		return nil, ErrNoDriver
	}
	return &Publisher{driver: driver}, nil
}

// PublishTranscript stores t. Redelivery of an already stored event id is
// not an error.
func (p *Publisher) PublishTranscript(ctx context.Context, t *eventstream.Transcript) error {
	if t == nil {
		return eventstream.ErrNilTranscript
	}

	if _, err := p.driver.Put(ctx, t); err != nil {
		return fmt.Errorf("storing transcript %s: %w", t.EventID, err)
	}
	return nil
}

// Close is a no-op. The driver is owned by whoever opened it.
func (p *Publisher) Close() error {
	return nil
}
