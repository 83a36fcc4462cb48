package parser

import (
	"log/slog"

	"github.com/papercomputeco/reel/pkg/llm/provider"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. Sessions only log at Debug level.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRepair enables best-effort repair of truncated tool-call arguments.
func WithRepair(enabled bool) Option {
	return func(s *Session) {
		s.repair = enabled
	}
}

// WithProvider pins payload parsing to p instead of detecting the vendor
// per payload.
func WithProvider(p provider.Provider) Option {
	return func(s *Session) {
		if p != nil {
			s.detector = provider.NewFixedDetector(p)
		}
	}
}

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}
