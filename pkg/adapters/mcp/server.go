// Package mcp exposes the support workflow as a Model Context Protocol server.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ritotombe/supportflow"
	"github.com/ritotombe/supportflow/internal/logging"
	"github.com/ritotombe/supportflow/internal/presentation/graph"
	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/ports"
)

const (
	GraphURI        = "supportflow://graph"
	GraphMermaidURI = "supportflow://graph.mmd"
)

// Engine is the part of supportflow.Engine the server needs.
type Engine interface {
	Handle(ctx context.Context, req supportflow.Request) (domain.State, error)
	Thread(ctx context.Context, threadID string) (*ports.Thread, error)
	Inspect() []domain.Node
}

// HandleMessageArgs are the arguments of the handle_message tool.
type HandleMessageArgs struct {
	ThreadID      string   `json:"thread_id,omitempty"`
	Message       string   `json:"message"`
	AccountID     string   `json:"account_id,omitempty"`
	UserID        string   `json:"user_id,omitempty"`
	TicketID      string   `json:"ticket_id,omitempty"`
	ExperienceID  string   `json:"experience_id,omitempty"`
	ReservationID string   `json:"reservation_id,omitempty"`
	MinConfidence *float64 `json:"min_confidence,omitempty"`
}

// TurnResponse is the structured result of handle_message.
type TurnResponse struct {
	ThreadID string        `json:"thread_id" jsonschema_description:"Thread to pass on the next turn"`
	Intent   domain.Intent `json:"intent" jsonschema_description:"Classified intent"`
	Replies  []string      `json:"replies" jsonschema_description:"Assistant messages of this turn"`
	History  []string      `json:"history" jsonschema_description:"Nodes visited by the run"`

	Resolver   *domain.ResolveResult    `json:"resolver_result,omitempty"`
	Ops        *domain.OpsResult        `json:"ops_result,omitempty"`
	Escalation *domain.EscalationResult `json:"escalation_result,omitempty"`
}

// Server wraps the Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("supportflow-mcp", strings.TrimSpace(version)),
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://localhost" + addr
	if !strings.HasPrefix(addr, ":") {
		baseURL = "http://" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
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

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	handleTool := mcp.NewTool("handle_message",
		mcp.WithDescription("Send a customer message to the support workflow and get the assistant reply."),
		mcp.WithString("message", mcp.Required(), mcp.Description("The customer's message")),
		mcp.WithString("thread_id", mcp.Description("Conversation to continue; omit to start one")),
		mcp.WithString("account_id", mcp.Description("Account whose knowledge base is searched")),
		mcp.WithString("user_id", mcp.Description("Customer identifier")),
		mcp.WithString("ticket_id", mcp.Description("Ticket to escalate on")),
		mcp.WithString("experience_id", mcp.Description("Experience the customer refers to")),
		mcp.WithString("reservation_id", mcp.Description("Reservation the customer refers to")),
		mcp.WithNumber("min_confidence", mcp.Description("Knowledge score threshold in [0,1]")),
		mcp.WithOutputSchema[TurnResponse](),
	)
	s.mcpServer.AddTool(handleTool, mcp.NewStructuredToolHandler(s.handleMessage))

	s.mcpServer.AddTool(mcp.NewTool("get_thread",
		mcp.WithDescription("Get the stored conversation of a thread."),
		mcp.WithString("thread_id", mcp.Required(), mcp.Description("Thread identifier")),
	), s.getThread)

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the workflow graph definition for introspection."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.engine.Inspect())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleMessage(ctx context.Context, _ mcp.CallToolRequest, args HandleMessageArgs) (TurnResponse, error) {
	state, err := s.engine.Handle(ctx, supportflow.Request{
		ThreadID:      args.ThreadID,
		Message:       args.Message,
		AccountID:     args.AccountID,
		UserID:        args.UserID,
		TicketID:      args.TicketID,
		ExperienceID:  args.ExperienceID,
		ReservationID: args.ReservationID,
		MinConfidence: args.MinConfidence,
	})
	if err != nil {
		s.logger.Warn("MCP handle_message failed", "err", err, "size", len(args.Message))
		return TurnResponse{}, fmt.Errorf("handle message: %w", err)
	}

	history := make([]string, 0, len(state.History))
	for _, id := range state.History {
		history = append(history, string(id))
	}
	return TurnResponse{
		ThreadID:   state.ThreadID,
		Intent:     state.Intent,
		Replies:    domain.LatestReplies(state.Messages),
		History:    history,
		Resolver:   state.ResolverResult,
		Ops:        state.OpsResult,
		Escalation: state.EscalationResult,
	}, nil
}

func (s *Server) getThread(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threadID, err := request.RequireString("thread_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	thread, err := s.engine.Thread(ctx, threadID)
	if err != nil {
		if errors.Is(err, domain.ErrThreadNotFound) {
			return mcp.NewToolResultError("thread not found: " + threadID), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("load thread: %v", err)), nil
	}
	jsonBytes, _ := json.Marshal(thread)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Workflow Graph Definition",
		mcp.WithMIMEType("application/json"),
	), s.readGraph)
	s.mcpServer.AddResource(mcp.NewResource(GraphMermaidURI, "Workflow Graph Diagram",
		mcp.WithMIMEType("text/vnd.mermaid"),
	), s.readGraph)
}

func (s *Server) readGraph(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	nodes := s.engine.Inspect()
	if request.Params.URI == GraphMermaidURI {
		return []mcp.ResourceContents{mcp.TextResourceContents{
			URI:      GraphMermaidURI,
			MIMEType: "text/vnd.mermaid",
			Text:     graph.GenerateMermaid(nodes, nil),
		}}, nil
	}
	jsonBytes, err := json.Marshal(nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	return []mcp.ResourceContents{mcp.TextResourceContents{
		URI:      GraphURI,
		MIMEType: "application/json",
		Text:     string(jsonBytes),
	}}, nil
}
