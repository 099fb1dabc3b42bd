// Package mcp exposes stored flow chart documents as Model Context Protocol tools and resources.
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

	"github.com/aretw0/nodegraph"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/format"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Resource URIs.
const (
	TypesURI          = "nodegraph://types"
	DocumentURIPrefix = "nodegraph://documents/"
)

// Inspector is the read-only document surface exposed to agents.
type Inspector interface {
	Documents(ctx context.Context) ([]string, error)
	Document(ctx context.Context, name string) (format.FlowChartRecord, error)
	Validate(ctx context.Context, name string) error
	Mermaid(ctx context.Context, name string) (string, error)
	Types() []registry.NodeType
}

// ValidationResult is the outcome of the validate_document tool.
type ValidationResult struct {
	Name  string `json:"name" jsonschema_description:"The document name"`
	Valid bool   `json:"valid" jsonschema_description:"Whether the document loads completely"`
	Error string `json:"error,omitempty" jsonschema_description:"Why the document does not load"`
}

// Server wraps an Inspector and exposes it as an MCP server.
type Server struct {
	inspector Inspector
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for tool failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server over inspector.
func NewServer(inspector Inspector, opts ...Option) *Server {
	s := &Server{
		inspector: inspector,
		mcpServer: server.NewMCPServer("nodegraph-mcp", strings.TrimSpace(nodegraph.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio serves on Stdin/Stdout until the input is closed.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// SSEHandler serves the SSE transport on /sse and /message. baseURL is the public
// address clients reach the handler on.
func (s *Server) SSEHandler(baseURL string) http.Handler {
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))
	r := chi.NewRouter()
	r.Use(corsMiddleware)
	r.Handle("/sse", sse.SSEHandler())
	r.Handle("/message", sse.MessageHandler())
	return r
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
	s.mcpServer.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List the names of the stored flow chart documents."),
	), s.handleListDocuments)

	s.mcpServer.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Get a stored flow chart document as JSON."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Document name")),
	), s.handleGetDocument)

	s.mcpServer.AddTool(mcp.NewTool("validate_document",
		mcp.WithDescription("Check that a stored document loads completely: known node types, resolvable connectors, valid values."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Document name")),
		mcp.WithOutputSchema[ValidationResult](),
	), s.handleValidate)

	s.mcpServer.AddTool(mcp.NewTool("render_mermaid",
		mcp.WithDescription("Render a stored document as a Mermaid flowchart."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Document name")),
	), s.handleMermaid)

	s.mcpServer.AddTool(mcp.NewTool("list_types",
		mcp.WithDescription("List the node types documents can use, with their ports."),
	), s.handleListTypes)
}

func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.inspector.Documents(ctx)
	if err != nil {
		return s.toolError("list_documents", err), nil
	}
	if names == nil {
		names = []string{}
	}
	return jsonResult(map[string][]string{"documents": names})
}

func (s *Server) handleGetDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.inspector.Document(ctx, name)
	if err != nil {
		return s.toolError("get_document", err), nil
	}
	return jsonResult(rec)
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := ValidationResult{Name: name, Valid: true}
	if err := s.inspector.Validate(ctx, name); err != nil {
		if !invalidDocument(err) {
			return s.toolError("validate_document", err), nil
		}
		res.Valid, res.Error = false, err.Error()
	}
	data, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultStructured(res, string(data)), nil
}

func (s *Server) handleMermaid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	diagram, err := s.inspector.Mermaid(ctx, name)
	if err != nil {
		return s.toolError("render_mermaid", err), nil
	}
	return mcp.NewToolResultText(diagram), nil
}

func (s *Server) handleListTypes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string][]registry.TypeDescription{"types": registry.Describe(s.inspector.Types())})
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(TypesURI, "Node types",
		mcp.WithResourceDescription("The node types documents can use"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonContents(TypesURI, registry.Describe(s.inspector.Types()))
	})

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(DocumentURIPrefix+"{name}", "Flow chart document",
		mcp.WithTemplateDescription("A stored flow chart document"),
		mcp.WithTemplateMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		uri := request.Params.URI
		rec, err := s.inspector.Document(ctx, strings.TrimPrefix(uri, DocumentURIPrefix))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", uri, err)
		}
		return jsonContents(uri, rec)
	})
}

// invalidDocument reports whether err describes the document rather than the lookup.
func invalidDocument(err error) bool {
	return errors.Is(err, domain.ErrMalformed) || errors.Is(err, domain.ErrUnknownType) || errors.Is(err, domain.ErrInvalidReference)
}

func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	s.logger.Debug("mcp tool failed", "tool", tool, "error", err)
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool, err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(data)},
	}, nil
}
