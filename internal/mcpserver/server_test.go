package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/trellis/internal/siteservice"
	"github.com/starford/trellis/internal/testutil"
)

func testServer(t *testing.T) (*Server, *siteservice.Service) {
	t.Helper()

	_, store := testutil.TestWorkspace(t)
	svc := siteservice.New(store, nil, siteservice.Options{})
	return New(svc), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we test
	// through the tool handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_modules":
		result, err = srv.listModules(ctx, req)
	case "get_module_tree":
		result, err = srv.getModuleTree(ctx, req)
	case "create_page":
		result, err = srv.createPage(ctx, req)
	case "set_page_order":
		result, err = srv.setPageOrder(ctx, req)
	case "update_page_meta":
		result, err = srv.updatePageMeta(ctx, req)
	case "render_diagram":
		result, err = srv.renderDiagram(ctx, req)
	case "analyze_workspace":
		result, err = srv.analyzeWorkspace(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreatePageAndGetTree(t *testing.T) {
	srv, svc := testServer(t)
	if err := svc.CreateModule(context.Background(), "shop"); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "create_page", map[string]interface{}{
		"module": "shop",
		"slug":   "cart",
	})
	if text := resultText(r); text != "created: /shop/cart" {
		t.Errorf("create result = %q", text)
	}

	r = callTool(t, srv, "get_module_tree", map[string]interface{}{"module": "shop"})
	text := resultText(r)
	if !strings.Contains(text, `"slug": "cart"`) {
		t.Errorf("tree missing page: %s", text)
	}
}

func TestCreateSubpage(t *testing.T) {
	srv, svc := testServer(t)
	_ = svc.CreateModule(context.Background(), "shop")
	callTool(t, srv, "create_page", map[string]interface{}{"module": "shop", "slug": "cart"})

	r := callTool(t, srv, "create_page", map[string]interface{}{
		"module": "shop",
		"slug":   "edit",
		"parent": "cart",
	})
	if text := resultText(r); text != "created: /shop/cart/edit" {
		t.Errorf("create result = %q", text)
	}
}

func TestGetTreeMissingModule(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_module_tree", map[string]interface{}{"module": "ghost"})
	if !r.IsError {
		t.Error("expected error for missing module")
	}
}

func TestSetPageOrder(t *testing.T) {
	srv, svc := testServer(t)
	ctx := context.Background()
	_ = svc.CreateModule(ctx, "shop")
	callTool(t, srv, "create_page", map[string]interface{}{"module": "shop", "slug": "list"})
	callTool(t, srv, "create_page", map[string]interface{}{"module": "shop", "slug": "create"})

	r := callTool(t, srv, "set_page_order", map[string]interface{}{
		"module": "shop",
		"slugs":  "create, list",
	})
	if text := resultText(r); text != "order saved: 2 slugs" {
		t.Errorf("order result = %q", text)
	}

	tree, err := svc.GetTree(ctx, "shop")
	if err != nil {
		t.Fatal(err)
	}
	if tree.Pages[0].Slug != "create" {
		t.Errorf("first page = %q, want create", tree.Pages[0].Slug)
	}
}

func TestSetPageOrderUnknownSlug(t *testing.T) {
	srv, svc := testServer(t)
	_ = svc.CreateModule(context.Background(), "shop")

	r := callTool(t, srv, "set_page_order", map[string]interface{}{
		"module": "shop",
		"slugs":  "ghost",
	})
	if !r.IsError {
		t.Error("expected error for unknown slug")
	}
}

func TestUpdatePageMeta(t *testing.T) {
	srv, svc := testServer(t)
	_ = svc.CreateModule(context.Background(), "shop")
	callTool(t, srv, "create_page", map[string]interface{}{"module": "shop", "slug": "cart"})

	r := callTool(t, srv, "update_page_meta", map[string]interface{}{
		"path":  "shop/cart",
		"patch": `{"title":"Shopping Cart","status":"live"}`,
	})
	text := resultText(r)
	if !strings.Contains(text, `"title": "Shopping Cart"`) {
		t.Errorf("meta result = %s", text)
	}

	r = callTool(t, srv, "update_page_meta", map[string]interface{}{
		"path":  "shop/cart",
		"patch": `not-json`,
	})
	if !r.IsError {
		t.Error("expected error for invalid patch JSON")
	}
}

func TestRenderDiagram(t *testing.T) {
	srv, svc := testServer(t)
	_ = svc.CreateModule(context.Background(), "shop")
	callTool(t, srv, "create_page", map[string]interface{}{"module": "shop", "slug": "cart"})

	r := callTool(t, srv, "render_diagram", map[string]interface{}{"module": "shop"})
	text := resultText(r)
	if !strings.Contains(text, "flowchart TD") || !strings.Contains(text, `shop_cart["cart"]`) {
		t.Errorf("diagram:\n%s", text)
	}

	r = callTool(t, srv, "render_diagram", map[string]interface{}{"module": "shop", "mode": "detailed"})
	if !strings.Contains(resultText(r), "subgraph") {
		t.Errorf("detailed diagram lacks subgraph:\n%s", resultText(r))
	}
}

func TestAnalyzeWorkspace(t *testing.T) {
	srv, svc := testServer(t)
	_ = svc.CreateModule(context.Background(), "shop")
	callTool(t, srv, "create_page", map[string]interface{}{"module": "shop", "slug": "cart"})

	r := callTool(t, srv, "analyze_workspace", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, `"total_modules": 1`) {
		t.Errorf("report:\n%s", text)
	}
}
