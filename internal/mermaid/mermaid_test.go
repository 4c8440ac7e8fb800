package mermaid

import (
	"strings"
	"testing"

	"github.com/starford/trellis/internal/models"
)

func TestSanitizeID(t *testing.T) {
	cases := []struct{ in, want string }{
		{"My Page!", "My_Page_"},
		{"___", "n"},
		{"", "n"},
		{"shop", "shop"},
		{"a.b", "a_b"},
		{"a_b", "a_b"},
		{"_lead", "lead"},
		{"über", "ber"},
	}
	for _, c := range cases {
		if got := SanitizeID(c.in); got != c.want {
			t.Errorf("SanitizeID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestResolveTarget(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"/shop/list", "shop_list", true},
		{"/shop/list/archive", "shop_list_archive", true},
		{"/shop", "", false},
		{"/a/b/c/d", "", false},
		{"literal_id", "literal_id", true},
		{"", "", false},
		{"/shop/My Page!", "shop_My_Page_", true},
	}
	for _, c := range cases {
		got, ok := ResolveTarget(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("ResolveTarget(%q) = %q, %v; want %q, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func sampleTree() *models.ModuleTree {
	return &models.ModuleTree{
		Module: "shop",
		Pages: []*models.Node{
			{
				Slug: "list",
				Path: "/shop/list",
				Meta: models.Meta{
					Title: "Order List",
					Links: []models.Link{
						{Target: "/shop/detail", Label: "open"},
						{Target: "/shop"}, // malformed depth, dropped
					},
				},
				Children: []*models.Node{
					{Slug: "archive", Path: "/shop/list/archive"},
				},
			},
			{Slug: "detail", Path: "/shop/detail"},
		},
	}
}

func TestModulePlainRendering(t *testing.T) {
	out := New("default", "TD").Module(sampleTree(), false)

	for _, want := range []string{
		"%%{init: {'theme': 'default'}}%%\n",
		"flowchart TD\n",
		"    shop[\"shop\"]\n",
		"    shop_list[\"Order List\"]\n",
		"    shop --> shop_list\n",
		"    shop_list_archive[\"archive\"]\n",
		"    shop_list --> shop_list_archive\n",
		"    shop --> shop_detail\n",
		"    shop_list -. \"open\" .-> shop_detail\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Count(out, "-.") != 1 {
		t.Errorf("malformed link target must be dropped silently:\n%s", out)
	}
}

func TestRenderingIsDeterministic(t *testing.T) {
	r := New("dark", "LR")
	a := r.Module(sampleTree(), true)
	b := r.Module(sampleTree(), true)
	if a != b {
		t.Error("two renders of the same tree must be byte-identical")
	}
	if !strings.HasPrefix(a, "%%{init: {'theme': 'dark'}}%%\nflowchart LR\n") {
		t.Errorf("theme/direction not honored:\n%s", a)
	}
}

func TestDetailedModeExpandsByType(t *testing.T) {
	tree := &models.ModuleTree{
		Module: "shop",
		Pages: []*models.Node{
			{Slug: "list"},
			{Slug: "create-order"},
			{Slug: "dashboard"},
		},
	}
	out := New("", "").Module(tree, true)

	for _, want := range []string{
		"    subgraph shop_list[\"list\"]\n",
		"        shop_list_content[\"List / Table\"]\n",
		"        shop_list_header[\"Header\"]\n",
		"        shop_list_footer[\"Footer\"]\n",
		"        shop_create_order_content[\"Create Form\"]\n",
		"        shop_create_order_modal[\"Confirm Modal\"]\n",
		"        shop_dashboard_sidebar[\"Sidebar\"]\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "shop_list_modal") {
		t.Error("list pages must not get a modal")
	}
}

func TestProjectRendersForest(t *testing.T) {
	forest := []*models.ModuleTree{
		{Module: "admin", Pages: []*models.Node{{Slug: "users"}}},
		{Module: "shop", Pages: []*models.Node{{Slug: "list"}}},
	}
	out := New("", "").Project(forest, false)
	if !strings.Contains(out, "    admin --> admin_users\n") ||
		!strings.Contains(out, "    shop --> shop_list\n") {
		t.Errorf("forest rendering incomplete:\n%s", out)
	}
}

func TestLabelEscaping(t *testing.T) {
	tree := &models.ModuleTree{
		Module: "m",
		Pages:  []*models.Node{{Slug: "p", Meta: models.Meta{Title: `Say "hi"`}}},
	}
	out := New("", "").Module(tree, false)
	if !strings.Contains(out, "m_p[\"Say #quot;hi#quot;\"]") {
		t.Errorf("quotes must be escaped:\n%s", out)
	}
}
