package nop

import (
	"context"

	"github.com/papercomputeco/reel/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishTranscript validates input and otherwise does nothing.
func (p *Publisher) PublishTranscript(_ context.Context, t *eventstream.Transcript) error {
	if t == nil {
		return eventstream.ErrNilTranscript
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
