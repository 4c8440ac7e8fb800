package orderstore

import (
	"reflect"
	"testing"

	"github.com/starford/trellis/internal/models"
	"github.com/starford/trellis/internal/storage"
)

func tempStore(t *testing.T) (*Store, storage.Repository) {
	t.Helper()
	repo, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return New(repo), repo
}

func TestLoadMissingIsEmpty(t *testing.T) {
	s, _ := tempStore(t)
	of := s.Load("shop")
	if len(of.Pages) != 0 || len(of.Subpages) != 0 {
		t.Errorf("missing order file should load empty, got %+v", of)
	}
}

func TestLoadUnparsableIsEmpty(t *testing.T) {
	s, repo := tempStore(t)
	_ = repo.WriteFile(FilePath("shop"), []byte("not json"))
	of := s.Load("shop")
	if len(of.Pages) != 0 {
		t.Errorf("corrupt order file should load empty, got %+v", of)
	}
}

func TestSaveDeduplicates(t *testing.T) {
	s, _ := tempStore(t)
	err := s.Save("shop", models.OrderFile{
		Pages: []string{"b", "a", "b", "a"},
		Subpages: map[string][]string{
			"a": {"x", "x", "y"},
		},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	of := s.Load("shop")
	if !reflect.DeepEqual(of.Pages, []string{"b", "a"}) {
		t.Errorf("pages = %v, want [b a]", of.Pages)
	}
	if !reflect.DeepEqual(of.Subpages["a"], []string{"x", "y"}) {
		t.Errorf("subpages[a] = %v, want [x y]", of.Subpages["a"])
	}
}

func TestSaveCreatesPagesDir(t *testing.T) {
	s, repo := tempStore(t)
	if err := s.Save("fresh", models.OrderFile{Pages: []string{"p"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ok, _ := repo.DirExists("fresh/pages"); !ok {
		t.Error("pages directory should have been created")
	}
}
