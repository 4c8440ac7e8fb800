// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Trellis tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/trellis/internal/models"
	"github.com/starford/trellis/internal/siteservice"
)

// Server wraps the MCP server with Trellis tools.
type Server struct {
	mcp *server.MCPServer
	svc *siteservice.Service
}

// New creates a new MCP server with all Trellis tools registered.
func New(svc *siteservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Trellis",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_modules",
		mcp.WithDescription("List all modules in the workspace with page and asset counts."),
	), s.listModules)

	s.mcp.AddTool(mcp.NewTool("get_module_tree",
		mcp.WithDescription("Return the full page/subpage tree of a module, with metadata and asset counts."),
		mcp.WithString("module", mcp.Required(), mcp.Description("Module name (top-level directory)")),
	), s.getModuleTree)

	s.mcp.AddTool(mcp.NewTool("create_page",
		mcp.WithDescription("Create a page in a module, or a subpage when 'parent' names an existing page. "+
			"The page is seeded with a draft metadata sidecar and empty asset directories."),
		mcp.WithString("module", mcp.Required(), mcp.Description("Module name")),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Slug for the new page (no path separators)")),
		mcp.WithString("parent", mcp.Description("Optional parent page slug (creates a subpage)")),
	), s.createPage)

	s.mcp.AddTool(mcp.NewTool("set_page_order",
		mcp.WithDescription("Persist an explicit display order for a module's pages, or for the subpages "+
			"of one page when 'parent' is given. Slugs are comma-separated; every slug must exist."),
		mcp.WithString("module", mcp.Required(), mcp.Description("Module name")),
		mcp.WithString("slugs", mcp.Required(), mcp.Description("Comma-separated slugs in the desired order")),
		mcp.WithString("parent", mcp.Description("Optional parent page slug (orders its subpages)")),
	), s.setPageOrder)

	s.mcp.AddTool(mcp.NewTool("update_page_meta",
		mcp.WithDescription("Patch a page's metadata sidecar. Only the fields present in the JSON patch "+
			"are changed; absent fields keep their current values."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Node path, e.g. shop/cart or shop/cart/edit")),
		mcp.WithString("patch", mcp.Required(), mcp.Description("JSON object with the metadata fields to set")),
	), s.updatePageMeta)

	s.mcp.AddTool(mcp.NewTool("render_diagram",
		mcp.WithDescription("Render a Mermaid flowchart of one module (or the whole project when "+
			"'module' is empty). Detailed mode expands pages into header/content/footer sub-elements."),
		mcp.WithString("module", mcp.Description("Module name; empty renders every module")),
		mcp.WithString("mode", mcp.Description("'detailed' for expanded page structure")),
	), s.renderDiagram)

	s.mcp.AddTool(mcp.NewTool("analyze_workspace",
		mcp.WithDescription("Aggregate workspace analytics: totals, orphaned pages, status histogram, "+
			"deepest module, and asset coverage."),
	), s.analyzeWorkspace)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listModules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.svc.ListModules(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(list, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getModuleTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	module, err := req.RequireString("module")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tree, err := s.svc.GetTree(ctx, module)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(tree, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	module, err := req.RequireString("module")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	parent := ""
	if p, perr := req.RequireString("parent"); perr == nil {
		parent = p
	}

	node, err := s.svc.CreateNode(ctx, module, parent, slug)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", node.Meta.Path)), nil
}

func (s *Server) setPageOrder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	module, err := req.RequireString("module")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("slugs")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	parent := ""
	if p, perr := req.RequireString("parent"); perr == nil {
		parent = p
	}

	var slugs []string
	for _, s := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			slugs = append(slugs, trimmed)
		}
	}

	if parent == "" {
		err = s.svc.SetPageOrder(ctx, module, slugs)
	} else {
		err = s.svc.SetSubpageOrder(ctx, module, parent, slugs)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("order saved: %d slugs", len(slugs))), nil
}

func (s *Server) updatePageMeta(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("patch")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var patch models.PartialMeta
	if err := json.Unmarshal([]byte(raw), &patch); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid patch JSON: %v", err)), nil
	}

	meta, err := s.svc.UpdateMetadata(ctx, path, patch)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(meta, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) renderDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	module := ""
	if m, merr := req.RequireString("module"); merr == nil {
		module = m
	}
	detailed := false
	if mode, merr := req.RequireString("mode"); merr == nil {
		detailed = mode == "detailed"
	}

	text, err := s.svc.RenderGraph(ctx, module, detailed)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) analyzeWorkspace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.Analyze(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
