package mcp

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jj1bdx/erldoc/internal/daemon"
	"github.com/jj1bdx/erldoc/internal/domain"
	"github.com/jj1bdx/erldoc/internal/rpc"
	"github.com/jj1bdx/erldoc/internal/search"
)

//go:embed instructions.md
var instructions string

// backend is the part of the daemon client the tools call.
type backend interface {
	Build(ctx context.Context, req rpc.BuildRequest, onProgress func(string)) (*rpc.BuildResult, error)
	Resolve(ctx context.Context, req rpc.ResolveRequest) (*rpc.ResolveResponse, error)
	Search(ctx context.Context, req rpc.SearchRequest) (*rpc.SearchResponse, error)
	GetDoc(ctx context.Context, req rpc.GetDocRequest) (*rpc.GetDocResponse, error)
}

// Server exposes one documentation tree over MCP.
type Server struct {
	mcpServer *server.MCPServer
	client    backend
	sourceDir string
}

func NewServer(socketPath, sourceDir string) (*Server, error) {
	client, err := daemon.ConnectOrSpawn(socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to daemon: %w", err)
	}
	return newServer(client, sourceDir), nil
}

func newServer(client backend, sourceDir string) *Server {
	s := &Server{client: client, sourceDir: sourceDir}

	mcpServer := server.NewMCPServer(
		"erldoc",
		"0.1.0",
		server.WithInstructions(instructions),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("build_docs",
			mcp.WithDescription("Build the Erlang documentation tree. Incremental: pages whose output did not change are not rewritten. Returns counts and any warnings or unresolved references."),
			mcp.WithBoolean("force",
				mcp.Description("Rewrite every page even if unchanged"),
			),
		),
		s.handleBuildDocs,
	)

	mcpServer.AddTool(
		mcp.NewTool("resolve_reference",
			mcp.WithDescription("Resolve an Erlang cross-reference such as lists:map/2 to the page and anchor that document it. Falls back to configured intersphinx projects."),
			mcp.WithString("role",
				mcp.Description("Reference role: "+strings.Join(domain.Roles, ", ")),
				mcp.Required(),
			),
			mcp.WithString("target",
				mcp.Description("Reference target, e.g. \"lists:map/2\", \"map(Fun, List)\" or \"m:?MACRO/1\""),
				mcp.Required(),
			),
			mcp.WithString("module",
				mcp.Description("Module the reference is written in, for unqualified targets"),
			),
		),
		s.handleResolve,
	)

	mcpServer.AddTool(
		mcp.NewTool("search_objects",
			mcp.WithDescription("Find documented Erlang modules, functions, types, records, macros and callbacks by name. Returns URIs that can be read as resources."),
			mcp.WithString("query",
				mcp.Description("Substring of the object name, e.g. \"map\" or \"lists:seq\""),
				mcp.Required(),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of results (default 20)"),
			),
			mcp.WithBoolean("sections",
				mcp.Description("Also search page headings and text"),
			),
		),
		s.handleSearchObjects,
	)
}

func (s *Server) registerResources(mcpServer *server.MCPServer) {
	mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			search.Scheme+"{+doc}",
			"Erlang documentation page",
			mcp.WithTemplateDescription("Read a rendered documentation page, or with #anchor the part documenting one object. Search and resolve results return these URIs."),
			mcp.WithTemplateMIMEType("text/markdown"),
		),
		s.handleReadResource,
	)
}

func (s *Server) handleBuildDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	force, _ := req.GetArguments()["force"].(bool)
	res, err := s.client.Build(ctx, rpc.BuildRequest{SourceDir: s.sourceDir, Force: force}, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build failed: %v", err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleResolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	role, _ := args["role"].(string)
	target, _ := args["target"].(string)
	if role == "" || target == "" {
		return mcp.NewToolResultError("missing required parameters: role, target"), nil
	}
	module, _ := args["module"].(string)

	resp, err := s.client.Resolve(ctx, rpc.ResolveRequest{SourceDir: s.sourceDir, Role: role, Target: target, Module: module})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resolve failed: %v", err)), nil
	}
	if !resp.Found {
		return mcp.NewToolResultError(fmt.Sprintf("no object matches {erl:%s}`%s`", role, target)), nil
	}
	return jsonResult(resp), nil
}

func (s *Server) handleSearchObjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	query, _ := args["query"].(string)
	if query == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	searchReq := rpc.SearchRequest{SourceDir: s.sourceDir, Query: query}
	if limit, ok := args["limit"].(float64); ok {
		searchReq.Limit = int(limit)
	}
	if sections, ok := args["sections"].(bool); ok {
		searchReq.Sections = sections
	}

	resp, err := s.client.Search(ctx, searchReq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(resp), nil
}

func (s *Server) handleReadResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	doc, anchor := search.ParseURI(uri)
	if doc == "" {
		return nil, fmt.Errorf("invalid resource URI: %s", uri)
	}

	resp, err := s.client.GetDoc(ctx, rpc.GetDocRequest{SourceDir: s.sourceDir, Doc: doc, Anchor: anchor})
	if err != nil {
		return nil, fmt.Errorf("getting doc: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     resp.Markdown,
		},
	}, nil
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) Shutdown(_ context.Context) error {
	return nil
}
