// Package mcp provides an MCP (Model Context Protocol) server that lets agents
// parse captured LLM responses and browse stored transcripts.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/reel/pkg/storage"
	"github.com/papercomputeco/reel/pkg/utils"
)

type Config struct {
	// Store enables the list_transcripts and get_transcript tools. Optional.
	Store storage.Driver

	// RepairToolJSON is the default for parse_response when the caller does
	// not set repair.
	RepairToolJSON bool

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured slog logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the parse tool, plus the
// transcript tools when a store is configured.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "reel",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        parseToolName,
			Description: parseDescription,
		}, s.handleParse)

		if c.Store != nil {
			mcp.AddTool(mcpServer, &mcp.Tool{
				Name:        listToolName,
				Description: listDescription,
			}, s.handleList)

			mcp.AddTool(mcpServer, &mcp.Tool{
				Name:        getToolName,
				Description: getDescription,
			}, s.handleGet)
		}
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying MCP server, e.g. to run it over stdio.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}
