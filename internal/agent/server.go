// Package agent exposes the editor commands as MCP tools so that an AI
// agent can inspect and edit a project over stdio.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/pitabwire/studio/internal/catalog"
	"github.com/pitabwire/studio/internal/session"
	"github.com/pitabwire/studio/internal/store"
)

// Recorder receives tool call outcomes.
type Recorder interface {
	RecordAgentToolCall(tool, status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAgentToolCall(string, string) {}

// Deps holds the collaborators of the tool server.
type Deps struct {
	Workspace *store.Workspace
	Catalog   *catalog.Registry
	Sessions  *session.Manager
	Recorder  Recorder
	Logger    *zap.Logger
	// Project is used by tools called without a projectId argument.
	Project string
	Version string
}

// Server is the MCP tool server of the editor.
type Server struct {
	mcp  *server.MCPServer
	deps Deps
}

// New creates a server with every tool registered.
func New(deps Deps) *Server {
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	s := &Server{deps: deps}
	s.mcp = server.NewMCPServer(
		"studio",
		deps.Version,
		server.WithToolCapabilities(true),
	)
	s.registerTreeTools()
	s.registerPageTools()
	s.registerHistoryTools()
	s.registerPreviewTools()
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio serves the tools on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	s.deps.Logger.Info("agent tool server listening on stdio", zap.String("project", s.deps.Project))
	return server.ServeStdio(s.mcp)
}

type toolHandler = server.ToolHandlerFunc

// tool wraps h with logging and metrics.
func (s *Server) tool(name string, h toolHandler) toolHandler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := h(ctx, req)
		status := "ok"
		switch {
		case err != nil:
			status = "error"
			s.deps.Logger.Warn("agent tool failed", zap.String("tool", name), zap.Error(err))
		case res != nil && res.IsError:
			status = "rejected"
		}
		s.deps.Recorder.RecordAgentToolCall(name, status)
		s.deps.Logger.Debug("agent tool called", zap.String("tool", name), zap.String("status", status))
		return res, err
	}
}

// project opens the store named by the projectId argument, or the default
// project.
func (s *Server) project(ctx context.Context, args map[string]any) (string, *store.Store, error) {
	id, _ := args["projectId"].(string)
	if id == "" {
		id = s.deps.Project
	}
	if id == "" {
		return "", nil, fmt.Errorf("projectId is required")
	}
	st, err := s.deps.Workspace.Open(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return id, st, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// commandResult reports a document command. Rejected commands are tool
// errors so the agent can react to them.
func commandResult(st *store.Store, applied bool, id, what string) (*mcp.CallToolResult, error) {
	if !applied {
		return mcp.NewToolResultError(what + " was not applied"), nil
	}
	snap, _ := st.Snapshot()
	return jsonResult(map[string]any{"applied": true, "id": id, "version": snap.Version})
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// objectArg accepts an object argument either inline or as a JSON string.
func objectArg(args map[string]any, key string) (map[string]any, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("%s must be a JSON object: %w", key, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be a JSON object", key)
	}
}
