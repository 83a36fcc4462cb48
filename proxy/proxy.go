// Package proxy provides a transparent LLM inference proxy that parses every
// response it relays and publishes a transcript of it.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"

	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/eventstream/nop"
	"github.com/papercomputeco/reel/pkg/llm"
	"github.com/papercomputeco/reel/pkg/llm/provider"
	reellogger "github.com/papercomputeco/reel/pkg/logger"
	"github.com/papercomputeco/reel/pkg/parser"
	"github.com/papercomputeco/reel/proxy/header"
	"github.com/papercomputeco/reel/proxy/worker"
)

const defaultUpstreamTimeout = 5 * time.Minute

// ErrNoUpstream is returned by New when the upstream URL is missing or invalid.
var ErrNoUpstream = errors.New("proxy requires an absolute upstream URL")

// Proxy forwards requests to the upstream LLM provider, relays the response
// to the client verbatim, and feeds the same bytes to a parser session.
type Proxy struct {
	config        Config
	upstream      string
	workerPool    *worker.Pool
	logger        *slog.Logger
	httpClient    *http.Client
	server        *fiber.App
	headerHandler *header.Handler
	repair        atomic.Bool
}

// New creates a new Proxy. Returns an error if the upstream URL is invalid or
// the configured provider is not recognized.
func New(config Config, logger *slog.Logger) (*Proxy, error) {
	u, err := url.Parse(config.UpstreamURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrNoUpstream, config.UpstreamURL)
	}

	if _, err := provider.Resolve(config.Provider); err != nil {
		return nil, fmt.Errorf("could not create provider: %w", err)
	}

	if logger == nil {
		logger = reellogger.Nop()
	}
	if config.Publisher == nil {
		config.Publisher = nop.NewPublisher()
	}
	if config.UpstreamTimeout == 0 {
		config.UpstreamTimeout = defaultUpstreamTimeout
	}

	wp, err := worker.NewPool(&worker.Config{
		Publisher:  config.Publisher,
		NumWorkers: config.NumWorkers,
		QueueSize:  config.QueueSize,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StreamRequestBody:     true,
	})
	app.Use(compress.New())

	p := &Proxy{
		config:        config,
		upstream:      strings.TrimRight(config.UpstreamURL, "/"),
		workerPool:    wp,
		logger:        logger,
		server:        app,
		headerHandler: header.NewHandler(),
		httpClient: &http.Client{
			// LLM requests can be slow, especially with thinking blocks
			Timeout: config.UpstreamTimeout,
		},
	}
	p.repair.Store(config.RepairToolJSON)

	app.All("/*", p.handleProxy)

	return p, nil
}

// Run starts the proxy server on the configured listening address.
func (p *Proxy) Run() error {
	p.logger.Info("starting proxy server",
		"listen", p.config.ListenAddr,
		"upstream", p.upstream,
	)

	return p.server.Listen(p.config.ListenAddr)
}

// RunWithListener starts the proxy server using the provided listener.
func (p *Proxy) RunWithListener(listener net.Listener) error {
	p.logger.Info("starting proxy server",
		"listen", listener.Addr().String(),
		"upstream", p.upstream,
	)

	return p.server.Listener(listener)
}

// Close shuts down the HTTP server, drains the worker pool and closes the
// publisher.
func (p *Proxy) Close() error {
	err := p.server.Shutdown()
	p.workerPool.Close()
	return errors.Join(err, p.config.Publisher.Close())
}

// SetRepair toggles tool-call argument repair for sessions started afterwards.
func (p *Proxy) SetRepair(enabled bool) {
	if p.repair.Swap(enabled) != enabled {
		p.logger.Info("tool-call repair toggled", "enabled", enabled)
	}
}

// Repair reports whether tool-call argument repair is enabled.
func (p *Proxy) Repair() bool {
	return p.repair.Load()
}

// PublishStats returns the transcript publish counters.
func (p *Proxy) PublishStats() worker.Stats {
	return p.workerPool.Stats()
}

// exchange carries one proxied request through to its transcript.
type exchange struct {
	path      string
	startedAt time.Time
	session   *parser.Session
	recorder  *parser.Recorder
	provider  string
	status    int
	streaming bool
}

func (p *Proxy) handleProxy(c *fiber.Ctx) error {
	ex := &exchange{
		path:      c.Path(),
		startedAt: time.Now(),
	}

	target := p.upstream + string(c.Request().URI().RequestURI())

	var reqBody io.Reader
	if body := c.Body(); len(body) > 0 {
		// fasthttp reuses the request buffer once the handler returns.
		reqBody = bytes.NewReader(bytes.Clone(body))
	}

	// context.Background() because fasthttp recycles its RequestCtx after the
	// handler returns while the streaming goroutine still reads upstream.
	httpReq, err := http.NewRequestWithContext(context.Background(), c.Method(), target, reqBody)
	if err != nil {
		p.logger.Error("failed to create upstream request", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "internal error"})
	}
	p.headerHandler.SetUpstreamRequestHeaders(c, httpReq)

	prov, err := provider.Resolve(header.RequestedProvider(c))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}
	if prov == nil {
		prov, _ = provider.Resolve(p.config.Provider)
	}
	if prov != nil {
		ex.provider = prov.Name()
	}

	p.logger.Debug("forwarding request to upstream",
		"method", c.Method(),
		"url", target,
	)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.logger.Error("upstream request failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: "upstream request failed"})
	}

	ex.status = httpResp.StatusCode
	p.headerHandler.SetClientResponseHeaders(c, httpResp)
	c.Status(httpResp.StatusCode)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		defer httpResp.Body.Close()
		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			p.logger.Error("failed to read upstream response", "error", err)
			return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: "failed to read upstream response"})
		}
		p.logger.Warn("upstream returned error, not parsing",
			"status", httpResp.StatusCode,
			"path", ex.path,
		)
		return c.Send(respBody)
	}

	opts := []parser.Option{
		parser.WithLogger(p.logger),
		parser.WithRepair(p.Repair()),
		parser.WithProvider(prov),
	}
	ex.session = parser.New(opts...)
	ex.recorder, err = parser.Record(ex.session)
	if err != nil {
		httpResp.Body.Close()
		p.logger.Error("failed to record session", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "internal error"})
	}
	c.Set(header.SessionHeader, ex.session.ID())

	if header.IsEventStream(httpResp) {
		ex.streaming = true

		// io.Pipe + SetBodyStream: pw.Write blocks until fasthttp's chunked
		// body writer drains the reader and flushes to the socket, giving
		// per-chunk streaming with backpressure.
		pr, pw := io.Pipe()
		go p.streamToClient(httpResp, pw, ex)
		c.Context().Response.SetBodyStream(pr, -1)
		return nil
	}

	defer httpResp.Body.Close()
	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		p.logger.Error("failed to read upstream response", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: "failed to read upstream response"})
	}

	if err := ex.session.ParseResponse(respBody); err != nil {
		p.logger.Warn("failed to parse response", "error", err)
	}
	p.enqueue(ex)

	return c.Send(respBody)
}

// streamToClient copies the upstream body to pw verbatim while the session
// parses the same bytes. The transcript is enqueued before the client sees
// the end of the body.
func (p *Proxy) streamToClient(httpResp *http.Response, pw *io.PipeWriter, ex *exchange) {
	defer httpResp.Body.Close()

	n, err := ex.session.Consume(context.Background(), io.TeeReader(httpResp.Body, pw))
	if err != nil {
		p.logger.Warn("stream interrupted",
			"session_id", ex.session.ID(),
			"bytes", n,
			"error", err,
		)
		_ = ex.session.Finalize()
	}

	p.enqueue(ex)

	if err != nil {
		pw.CloseWithError(err)
		return
	}
	pw.Close()
}

func (p *Proxy) enqueue(ex *exchange) {
	t, err := ex.recorder.Transcript(ex.session)
	if err != nil {
		p.logger.Error("failed to build transcript", "session_id", ex.session.ID(), "error", err)
		return
	}

	completed := time.Now()
	t.Source.Upstream = p.upstream
	if t.Source.Provider == "" {
		t.Source.Provider = ex.provider
	}
	t.RequestMeta = eventstream.TranscriptRequestMeta{
		Path:        ex.path,
		StartedAt:   ex.startedAt.UTC(),
		CompletedAt: completed.UTC(),
		DurationMs:  completed.Sub(ex.startedAt).Milliseconds(),
		Streaming:   ex.streaming,
		HTTPStatus:  ex.status,
	}

	p.logger.Debug("response parsed",
		"session_id", t.SessionID,
		"provider", t.Source.Provider,
		"events", t.Stats.Events,
		"duration", completed.Sub(ex.startedAt),
	)

	p.workerPool.Enqueue(worker.Job{Transcript: t})
}
