package api

import (
	"bytes"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/llm"
	"github.com/papercomputeco/reel/pkg/llm/provider"
	"github.com/papercomputeco/reel/pkg/parser"
	"github.com/papercomputeco/reel/pkg/segment"
	"github.com/papercomputeco/reel/pkg/storage"
)

// ListResponse is the body of GET /transcripts.
type ListResponse struct {
	Transcripts []*eventstream.Transcript `json:"transcripts"`
	Count       int                       `json:"count"`
}

// StatsResponse is the body of GET /transcripts/stats.
type StatsResponse struct {
	Total int `json:"total"`
}

// ParseResponse is the body of POST /parse.
type ParseResponse struct {
	Transcript *eventstream.Transcript `json:"transcript"`
	Segments   []*segment.Segment      `json:"segments"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleListTranscripts returns stored transcripts, newest first. Supports
// session_id, provider and limit query parameters. Event lists are left
// out; fetch a single transcript for those.
func (s *Server) handleListTranscripts(c *fiber.Ctx) error {
	opts := storage.ListOptions{
		SessionID: c.Query("session_id"),
		Provider:  c.Query("provider"),
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "limit must be a non-negative integer"})
		}
		opts.Limit = limit
	}

	ts, err := s.store.List(c.UserContext(), opts)
	if err != nil {
		s.logger.Error("failed to list transcripts", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list transcripts"})
	}

	out := make([]*eventstream.Transcript, 0, len(ts))
	for _, t := range ts {
		brief := *t
		brief.Events = nil
		out = append(out, &brief)
	}

	return c.JSON(ListResponse{Transcripts: out, Count: len(out)})
}

// handleStats returns the number of stored transcripts.
func (s *Server) handleStats(c *fiber.Ctx) error {
	n, err := s.store.Count(c.UserContext())
	if err != nil {
		s.logger.Error("failed to count transcripts", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to count transcripts"})
	}
	return c.JSON(StatsResponse{Total: n})
}

// handleGetTranscript returns a single transcript by its event id.
func (s *Server) handleGetTranscript(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "id parameter required"})
	}

	t, err := s.store.Get(c.UserContext(), id)
	if err != nil {
		var nf storage.NotFoundError
		if errors.As(err, &nf) {
			return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "transcript not found"})
		}
		s.logger.Error("failed to get transcript", "event_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get transcript"})
	}

	return c.JSON(t)
}

// handleParse parses the request body as a captured response. The provider
// and repair query parameters mirror the parse command flags.
func (s *Server) handleParse(c *fiber.Ctx) error {
	prov, err := provider.Resolve(c.Query("provider"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	repair := c.QueryBool("repair", s.config.RepairToolJSON)

	res, err := parser.Parse(c.UserContext(), bytes.NewReader(c.Body()),
		parser.WithLogger(s.logger),
		parser.WithRepair(repair),
		parser.WithProvider(prov),
	)
	if err != nil {
		s.logger.Error("failed to parse body", "error", err)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(llm.ErrorResponse{Error: "failed to parse body"})
	}

	return c.JSON(ParseResponse{Transcript: res.Transcript, Segments: res.Segments})
}
