package proxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	. "github.com/onsi/gomega"

	"github.com/papercomputeco/reel/pkg/eventstream"
	reellogger "github.com/papercomputeco/reel/pkg/logger"
)

// capturePublisher records every transcript the worker pool publishes.
type capturePublisher struct {
	mu     sync.Mutex
	got    []*eventstream.Transcript
	closed bool
}

func (c *capturePublisher) PublishTranscript(_ context.Context, t *eventstream.Transcript) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, t)
	return nil
}

func (c *capturePublisher) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *capturePublisher) transcripts() []*eventstream.Transcript {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*eventstream.Transcript(nil), c.got...)
}

// recordedRequest is what the fake upstream saw.
type recordedRequest struct {
	Method string
	URI    string
	Header http.Header
	Body   string
}

// fakeUpstream serves a fixed response and records the last request.
type fakeUpstream struct {
	*httptest.Server
	mu   sync.Mutex
	last recordedRequest
}

func newFakeUpstream(status int, contentType, body string) *fakeUpstream {
	u := &fakeUpstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		u.mu.Lock()
		u.last = recordedRequest{Method: r.Method, URI: r.URL.RequestURI(), Header: r.Header.Clone(), Body: string(b)}
		u.mu.Unlock()

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("X-Request-Id", "req-1")
		w.WriteHeader(status)

		// Write in small pieces to exercise chunk reassembly.
		flusher, _ := w.(http.Flusher)
		for len(body) > 0 {
			n := min(7, len(body))
			_, _ = io.WriteString(w, body[:n])
			body = body[n:]
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	return u
}

func (u *fakeUpstream) request() recordedRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.last
}

func newTestProxy(cfg Config) (*Proxy, *capturePublisher) {
	pub := &capturePublisher{}
	cfg.Publisher = pub
	p, err := New(cfg, reellogger.Nop())
	Expect(err).NotTo(HaveOccurred())
	return p, pub
}

// do sends req through the proxy and returns the status, headers and body.
func do(p *Proxy, req *http.Request) (*http.Response, string) {
	resp, err := p.server.Test(req, 5000)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp, string(b)
}

func sseBody(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}
