// Package header filters headers on both legs of the reel proxy:
//
//	Client <--> Proxy <--> Upstream LLM Provider
//
// Each leg negotiates hops, compression and framing independently, so
// connection-scoped headers never cross the proxy.
package header

import (
	"mime"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	// ProviderHeader lets a client pin the response dialect for one request
	// (e.g. "anthropic"). It is consumed by the proxy and never forwarded.
	ProviderHeader = "X-Reel-Provider"

	// SessionHeader carries the parser session id back to the client so the
	// published transcript can be correlated with the response.
	SessionHeader = "X-Reel-Session"
)

// hopByHop are connection-scoped headers that are dropped in both directions.
var hopByHop = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Upgrade",
}

// Handler manages headers between proxy connections.
type Handler struct {
	skipRequest  map[string]struct{}
	skipResponse map[string]struct{}
}

// NewHandler creates a new header Handler.
func NewHandler() *Handler {
	h := &Handler{
		skipRequest: map[string]struct{}{
			// Go's http.Transport rewrites Host for the upstream URL.
			"Host": {},
			// Stripped so http.Transport negotiates gzip itself and hands the
			// parser a decoded body.
			"Accept-Encoding": {},
			// Recomputed by http.Transport from the forwarded body.
			"Content-Length": {},
			ProviderHeader:   {},
		},
		skipResponse: map[string]struct{}{
			"Transfer-Encoding": {},
			// The body is always decoded by the time it reaches the client
			// leg; Fiber's compress middleware sets these again if it re-encodes.
			"Content-Encoding": {},
			"Content-Length":   {},
		},
	}
	for _, k := range hopByHop {
		h.skipRequest[k] = struct{}{}
		h.skipResponse[k] = struct{}{}
	}
	return h
}

// SetUpstreamRequestHeaders copies forwardable request headers from the Fiber
// context onto the outgoing http.Request.
func (h *Handler) SetUpstreamRequestHeaders(c *fiber.Ctx, req *http.Request) {
	c.Request().Header.VisitAll(func(key, value []byte) {
		k := http.CanonicalHeaderKey(string(key))
		if _, skip := h.skipRequest[k]; !skip {
			req.Header.Add(k, string(value))
		}
	})
}

// SetClientResponseHeaders copies forwardable upstream response headers onto
// the Fiber response.
func (h *Handler) SetClientResponseHeaders(c *fiber.Ctx, resp *http.Response) {
	for k, v := range resp.Header {
		if _, skip := h.skipResponse[http.CanonicalHeaderKey(k)]; !skip {
			c.Set(k, strings.Join(v, ", "))
		}
	}
}

// RequestedProvider returns the trimmed, lower-cased ProviderHeader value.
func RequestedProvider(c *fiber.Ctx) string {
	return strings.ToLower(strings.TrimSpace(c.Get(ProviderHeader)))
}

// IsEventStream reports whether resp carries a text/event-stream body.
func IsEventStream(resp *http.Response) bool {
	mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return err == nil && mt == "text/event-stream"
}
