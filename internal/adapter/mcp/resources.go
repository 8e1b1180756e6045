package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/agentbridge/internal/domain/backend"
)

const (
	backendsURI = "agentbridge://backends"
	tasksURI    = "agentbridge://tasks"
)

// backendStatus is a discovered backend plus whether its credential is set.
// The credential value itself is never read out.
type backendStatus struct {
	backend.Config
	CredentialSet bool `json:"credential_set"`
}

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			backendsURI,
			"Backends",
			mcplib.WithResourceDescription("Backend CLIs discovered on this machine and their credential status"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleBackendsResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			tasksURI,
			"Tasks",
			mcplib.WithResourceDescription("Running and recently finished backend tasks"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleTasksResource,
	)
}

func (s *Server) handleBackendsResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	backends := s.deps.Runner.Backends()
	out := make([]backendStatus, 0, len(backends))
	for _, b := range backends {
		st := backendStatus{Config: b}
		if b.CredentialEnv != "" {
			v, ok := s.deps.LookupEnv(b.CredentialEnv)
			st.CredentialSet = ok && v != ""
		}
		out = append(out, st)
	}
	return jsonResource(req.Params.URI, out)
}

func (s *Server) handleTasksResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	return jsonResource(req.Params.URI, s.deps.Runner.List())
}

func jsonResource(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
