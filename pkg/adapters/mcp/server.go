package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// TreeURI is the resource holding the current tree.
const TreeURI = "arbor://tree"

// Engine defines what the MCP server needs from an arbor.Engine.
type Engine interface {
	Current() *domain.Generation
	States() []state.Entry
	Write(pos domain.Position, value any) error
	Invalidate()
}

var _ Engine = (*arbor.Engine)(nil)

// TreeView is the JSON form of a generation returned by inspect_tree.
type TreeView struct {
	Generation uint64                `json:"generation" jsonschema_description:"Number of the current generation"`
	Trigger    domain.BuildTrigger   `json:"trigger" jsonschema_description:"What caused the build"`
	Root       *domain.ComponentNode `json:"root" jsonschema_description:"Root component node"`
}

// Server wraps the engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("arbor-mcp", strings.TrimSpace(arbor.Version)),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("inspect_tree",
		mcp.WithDescription("Return the current component tree, or one node when a position is given."),
		mcp.WithString("position", mcp.Description("Structural path such as /Root@0/Counter#main (optional)")),
	), s.handleInspectTree)

	s.mcpServer.AddTool(mcp.NewTool("list_states",
		mcp.WithDescription("List every state entry with its handle and position."),
	), s.handleListStates)

	s.mcpServer.AddTool(mcp.NewTool("write_state",
		mcp.WithDescription("Queue a state write for the component at a position. It is applied on the next rebuild."),
		mcp.WithString("position", mcp.Required(), mcp.Description("Structural path of a stateful component")),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value as JSON; anything that is not valid JSON is sent as a string")),
	), s.handleWriteState)

	s.mcpServer.AddTool(mcp.NewTool("rebuild",
		mcp.WithDescription("Request a rebuild even though no state changed."),
	), s.handleRebuild)
}

func (s *Server) handleInspectTree(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gen := s.engine.Current()
	if gen == nil {
		return mcp.NewToolResultError("no tree has been built yet"), nil
	}

	var v any = TreeView{Generation: gen.Number, Trigger: gen.Trigger, Root: gen.Root}
	if pos := request.GetString("position", ""); pos != "" {
		node, ok := gen.At(domain.Position(pos))
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("no component at %s", pos)), nil
		}
		v = node
	}
	return jsonResult(v)
}

func (s *Server) handleListStates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.engine.States())
}

func (s *Server) handleWriteState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pos, err := request.RequireString("position")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := request.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}

	if err := s.engine.Write(domain.Position(pos), value); err != nil {
		s.logger.Warn("MCP write_state rejected", "position", pos, "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("write failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("queued write for %s", pos)), nil
}

func (s *Server) handleRebuild(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.engine.Invalidate()
	return mcp.NewToolResultText("rebuild scheduled"), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(TreeURI, "Current Component Tree",
		mcp.WithMIMEType("application/json"),
	), s.readTree)
}

func (s *Server) readTree(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	gen := s.engine.Current()
	if gen == nil {
		return nil, fmt.Errorf("no tree has been built yet")
	}
	data, err := json.Marshal(TreeView{Generation: gen.Number, Trigger: gen.Trigger, Root: gen.Root})
	if err != nil {
		return nil, fmt.Errorf("failed to encode tree: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      TreeURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
