// Package provider classifies decoded response payloads by vendor shape and
// normalizes them into llm.Chunk values.
package provider

import (
	"errors"

	"github.com/papercomputeco/reel/pkg/llm"
)

// ErrUnrecognizedShape is returned by ParseChunk when a payload does not
// match any shape the provider knows about.
var ErrUnrecognizedShape = errors.New("unrecognized payload shape")

// Provider defines the interface for vendor shape detection and parsing.
// Implementations are stateless: every call sees exactly one payload.
type Provider interface {
	// Name returns the canonical provider name (e.g., "anthropic", "openai", "besteffort")
	Name() string

	// CanHandle returns true if the payload appears to be in this provider's
	// wire format. Implementations check for shape markers such as
	// discriminator fields or top-level arrays.
	CanHandle(payload []byte) bool

	// ParseChunk converts one streaming event or complete response document
	// into its vendor-independent form.
	ParseChunk(payload []byte) (*llm.Chunk, error)
}
