// Package mcp exposes the backend task runner as MCP tools and resources over stdio.
package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	cfotel "github.com/Strob0t/agentbridge/internal/adapter/otel"
	"github.com/Strob0t/agentbridge/internal/domain/preset"
	"github.com/Strob0t/agentbridge/internal/logger"
	"github.com/Strob0t/agentbridge/internal/port/agentbackend"
)

// ServerConfig holds the server identity and the active tool preset.
type ServerConfig struct {
	Name    string
	Version string
	Preset  preset.Preset
}

// ServerDeps holds the collaborators the tool handlers call.
type ServerDeps struct {
	Runner  agentbackend.Runner
	Metrics *cfotel.Metrics
	// LookupEnv reports credential presence; defaults to os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// Server wraps an MCP server whose tools drive backend tasks.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
}

// NewServer creates a Server with every tool registered. Tools outside the
// active preset are hidden from listings and refused when called.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	if deps.LookupEnv == nil {
		deps.LookupEnv = os.LookupEnv
	}
	s := &Server{cfg: cfg, deps: deps}

	s.mcpServer = mcpserver.NewMCPServer(
		cfg.Name,
		cfg.Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithResourceCapabilities(false, false),
		mcpserver.WithToolFilter(s.filterTools),
		mcpserver.WithRecovery(),
	)

	s.registerTools()
	s.registerResources()

	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Serve reads JSON-RPC requests from in and writes responses to out until ctx
// is cancelled or in reaches EOF.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := mcpserver.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelError))

	slog.Info("mcp server listening on stdio",
		"name", s.cfg.Name, "version", s.cfg.Version, "preset", s.cfg.Preset,
		"tools", len(s.cfg.Preset.ToolNames()))

	err := stdio.Listen(ctx, in, out)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// filterTools hides tools outside the active preset from tools/list.
func (s *Server) filterTools(_ context.Context, tools []mcplib.Tool) []mcplib.Tool {
	out := make([]mcplib.Tool, 0, len(tools))
	for i := range tools {
		if s.cfg.Preset.Allows(tools[i].Name) {
			out = append(out, tools[i])
		}
	}
	return out
}

// guard enforces the preset and wraps a handler with request-scoped logging,
// a span, and metrics. Preset violations are protocol errors, not tool results.
func (s *Server) guard(name string, h mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
		if err := s.cfg.Preset.Check(name); err != nil {
			slog.WarnContext(ctx, "tool refused", "tool", name, "preset", s.cfg.Preset)
			return nil, err
		}

		requestID := uuid.NewString()
		ctx = logger.WithTool(logger.WithRequestID(ctx, requestID), name)
		ctx, span := cfotel.StartToolCallSpan(ctx, requestID, name)
		defer span.End()

		start := time.Now()
		res, err := h(ctx, req)
		ok := err == nil && res != nil && !res.IsError
		s.deps.Metrics.ToolCall(ctx, name, ok, time.Since(start))
		slog.DebugContext(ctx, "tool call finished", "ok", ok, "duration", time.Since(start))
		return res, err
	}
}
