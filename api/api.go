package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	reelmcp "github.com/papercomputeco/reel/api/mcp"
	"github.com/papercomputeco/reel/pkg/storage"
)

// bodyLimit bounds request bodies accepted by /parse.
const bodyLimit = 32 * 1024 * 1024

// Server is the API server for querying recorded transcripts.
type Server struct {
	config Config
	store  storage.Driver
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
// The store is injected to allow sharing with other components
// (e.g., the proxy's storage publisher when run together).
func NewServer(config Config, store storage.Driver, logger *slog.Logger) (*Server, error) {
	if store == nil {
		return nil, errors.New("storage driver is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
	})

	s := &Server{
		config: config,
		store:  store,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/transcripts", s.handleListTranscripts)
	app.Get("/transcripts/stats", s.handleStats)
	app.Get("/transcripts/:id", s.handleGetTranscript)
	app.Post("/parse", s.handleParse)

	if !config.DisableMCP {
		mcpServer, err := reelmcp.NewServer(reelmcp.Config{
			Store:          store,
			RepairToolJSON: config.RepairToolJSON,
			Logger:         logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating MCP server: %w", err)
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the API server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting API server",
		"listen", listener.Addr().String(),
	)
	return s.app.Listener(listener)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
