package storage

import (
	"errors"

	"github.com/papercomputeco/reel/pkg/eventstream"
)

var (
	// ErrNilTranscript is returned when Put is called with a nil transcript.
	ErrNilTranscript = errors.New("cannot store nil transcript")

	// ErrMissingEventID is returned when Put is called with a transcript
	// that has no EventID.
	ErrMissingEventID = errors.New("transcript has no event id")
)

// NotFoundError is returned when a transcript doesn't exist in the store.
type NotFoundError struct {
	EventID string
}

func (e NotFoundError) Error() string {
	if e.EventID == "" {
		return "transcript not found"
	}

	return "transcript not found: " + e.EventID
}

// Validate checks that t can be stored.
func Validate(t *eventstream.Transcript) error {
	if t == nil {
		return ErrNilTranscript
	}
	if t.EventID == "" {
		return ErrMissingEventID
	}
	return nil
}
