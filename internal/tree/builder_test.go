package tree

import (
	"errors"
	"reflect"
	"testing"

	"github.com/starford/trellis/internal/apperr"
	"github.com/starford/trellis/internal/metastore"
	"github.com/starford/trellis/internal/models"
	"github.com/starford/trellis/internal/orderstore"
	"github.com/starford/trellis/internal/storage"
)

func testBuilder(t *testing.T) (*Builder, storage.Repository, *orderstore.Store, *metastore.Store) {
	t.Helper()
	repo, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	meta := metastore.New(repo)
	order := orderstore.New(repo)
	return New(repo, meta, order), repo, order, meta
}

func pageSlugs(tr *models.ModuleTree) []string {
	out := make([]string, len(tr.Pages))
	for i, p := range tr.Pages {
		out[i] = p.Slug
	}
	return out
}

func TestBuildModuleNotFound(t *testing.T) {
	b, _, _, _ := testBuilder(t)
	if _, err := b.Build("ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestBuildEmptyModule(t *testing.T) {
	b, repo, _, _ := testBuilder(t)
	_ = repo.MkdirAll("shop")
	tr, err := b.Build("shop")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(tr.Pages) != 0 {
		t.Errorf("pages = %v, want none", pageSlugs(tr))
	}
}

func TestBuildContainsEveryDirectoryOnce(t *testing.T) {
	b, repo, order, _ := testBuilder(t)
	for _, slug := range []string{"alpha", "Beta", "gamma"} {
		_ = repo.MkdirAll("shop/pages/" + slug)
	}
	// Order file referencing a subset plus a stale slug must not hide or
	// duplicate anything.
	_ = order.Save("shop", models.OrderFile{Pages: []string{"gamma", "deleted"}})

	tr, err := b.Build("shop")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got := pageSlugs(tr)
	want := []string{"gamma", "alpha", "Beta"}
	if len(got) != len(want) {
		t.Fatalf("pages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pages = %v, want %v", got, want)
			break
		}
	}
}

func TestOrderPrefixThenLexical(t *testing.T) {
	b, repo, order, _ := testBuilder(t)
	_ = repo.MkdirAll("shop/pages/list")
	_ = repo.MkdirAll("shop/pages/create")
	_ = order.Save("shop", models.OrderFile{Pages: []string{"create"}})

	tr, err := b.Build("shop")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got := pageSlugs(tr)
	if got[0] != "create" || got[1] != "list" {
		t.Errorf("pages = %v, want [create list]", got)
	}
}

func TestSubpageOrderPerParent(t *testing.T) {
	b, repo, order, _ := testBuilder(t)
	_ = repo.MkdirAll("shop/pages/detail/subpages/reviews")
	_ = repo.MkdirAll("shop/pages/detail/subpages/specs")
	_ = repo.MkdirAll("shop/pages/detail/subpages/gallery")
	_ = order.Save("shop", models.OrderFile{
		Subpages: map[string][]string{"detail": {"specs"}},
	})

	tr, err := b.Build("shop")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	subs := tr.Pages[0].Children
	got := []string{subs[0].Slug, subs[1].Slug, subs[2].Slug}
	want := []string{"specs", "gallery", "reviews"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("subpages = %v, want %v", got, want)
			break
		}
	}
}

func TestDefaultPathAndMetaOverride(t *testing.T) {
	b, repo, _, meta := testBuilder(t)
	_ = repo.MkdirAll("shop/pages/list/subpages/archive")
	_ = meta.Write("shop/pages/list", models.Meta{Title: "Orders", Path: "/custom/orders"})

	tr, err := b.Build("shop")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	page := tr.Pages[0]
	if page.Path != "/custom/orders" {
		t.Errorf("page path = %q, want metadata override", page.Path)
	}
	if page.Meta.Title != "Orders" {
		t.Errorf("title = %q", page.Meta.Title)
	}
	if sub := page.Children[0]; sub.Path != "/shop/list/archive" {
		t.Errorf("subpage path = %q, want /shop/list/archive", sub.Path)
	}
}

func TestCorruptSidecarDegradesToZeroMeta(t *testing.T) {
	b, repo, _, _ := testBuilder(t)
	_ = repo.MkdirAll("shop/pages/list")
	_ = repo.WriteFile("shop/pages/list/page.json", []byte("{{{"))

	tr, err := b.Build("shop")
	if err != nil {
		t.Fatalf("Build must tolerate corrupt sidecars: %v", err)
	}
	if !reflect.DeepEqual(tr.Pages[0].Meta, models.Meta{}) {
		t.Errorf("meta = %+v, want zero", tr.Pages[0].Meta)
	}
}

func TestAssetCounts(t *testing.T) {
	b, repo, _, _ := testBuilder(t)
	_ = repo.WriteFile("shop/pages/list/screenshots/a.png", []byte("a"))
	_ = repo.WriteFile("shop/pages/list/screenshots/b.png", []byte("b"))
	_ = repo.WriteFile("shop/pages/list/css/style.css", []byte("c"))

	tr, err := b.Build("shop")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	a := tr.Pages[0].Assets
	if a.Screenshots != 2 || a.CSS != 1 || a.HTML != 0 {
		t.Errorf("assets = %+v", a)
	}
}

func TestNoDeeperNesting(t *testing.T) {
	b, repo, _, _ := testBuilder(t)
	// A directory below a subpage must never appear in the tree.
	_ = repo.MkdirAll("shop/pages/p/subpages/s/subpages/deep")

	tr, err := b.Build("shop")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sub := tr.Pages[0].Children[0]
	if len(sub.Children) != 0 {
		t.Errorf("subpage has children %v, nesting must stop at two levels", sub.Children)
	}
}
