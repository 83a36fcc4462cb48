package eventstream

import "context"

// Publisher publishes parsed transcripts to an event stream backend.
type Publisher interface {
	PublishTranscript(ctx context.Context, t *Transcript) error
	Close() error
}
