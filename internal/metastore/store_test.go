package metastore

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

func TestReadMissingIsZero(t *testing.T) {
	s, _ := tempStore(t)
	m := s.Read("shop/pages/home")
	if !reflect.DeepEqual(m, models.Meta{}) {
		t.Errorf("missing sidecar should read as zero Meta, got %+v", m)
	}
}

func TestReadUnparsableIsZero(t *testing.T) {
	s, repo := tempStore(t)
	_ = repo.WriteFile("shop/pages/home/page.json", []byte("{not json"))

	m := s.Read("shop/pages/home")
	if !reflect.DeepEqual(m, models.Meta{}) {
		t.Errorf("corrupt sidecar should read as zero Meta, got %+v", m)
	}
	if _, err := s.ReadStrict("shop/pages/home"); err == nil {
		t.Error("ReadStrict should surface the parse error")
	}
}

func TestWriteReadRoundtrip(t *testing.T) {
	s, _ := tempStore(t)
	want := models.Meta{
		Title:  "Order List",
		Status: "done",
		Route:  "/orders",
		Links:  []models.Link{{Target: "/shop/detail", Label: "open"}},
	}
	if err := s.Write("shop/pages/list", want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.ReadStrict("shop/pages/list")
	if err != nil {
		t.Fatalf("ReadStrict: %v", err)
	}
	if got.Title != want.Title || got.Status != want.Status || got.Route != want.Route {
		t.Errorf("roundtrip mismatch: got %+v", got)
	}
	if len(got.Links) != 1 || got.Links[0].Target != "/shop/detail" {
		t.Errorf("links mismatch: %+v", got.Links)
	}
}

func TestPartialMetaApply(t *testing.T) {
	status := "done"
	empty := ""
	patch := models.PartialMeta{Status: &status, Notes: &empty}

	m := models.Meta{Title: "Keep", Status: "draft", Notes: "old"}
	patch.ApplyTo(&m)

	if m.Title != "Keep" {
		t.Errorf("title should be untouched, got %q", m.Title)
	}
	if m.Status != "done" {
		t.Errorf("status = %q, want done", m.Status)
	}
	if m.Notes != "" {
		t.Errorf("explicit empty value must clear the field, got %q", m.Notes)
	}
}
