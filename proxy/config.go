package proxy

import (
	"time"

	"github.com/papercomputeco/reel/pkg/eventstream"
)

// Config is the proxy server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// UpstreamURL is the upstream LLM provider base URL (e.g., "https://api.openai.com")
	UpstreamURL string

	// Provider pins the response dialect ("openai", "anthropic", "besteffort").
	// Empty or "auto" detects the dialect per payload. Clients may override
	// it per request with the X-Reel-Provider header.
	Provider string

	// RepairToolJSON enables repair of truncated tool-call arguments. It can
	// be toggled at runtime with Proxy.SetRepair.
	RepairToolJSON bool

	// Publisher receives transcripts of parsed responses. Defaults to a
	// no-op publisher.
	Publisher eventstream.Publisher

	// NumWorkers and QueueSize size the transcript publish pool.
	NumWorkers uint
	QueueSize  uint

	// UpstreamTimeout bounds a whole upstream exchange (defaults to 5m).
	UpstreamTimeout time.Duration
}
