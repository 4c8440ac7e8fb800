// Package orderstore persists the per-module ordering override.
package orderstore

import (
	"encoding/json"
	"fmt"
	"path"

	"github.com/starford/trellis/internal/models"
	"github.com/starford/trellis/internal/storage"
)

// FileName is the ordering override file inside a module's pages directory.
const FileName = "_order.json"

// Store loads and saves module order files.
type Store struct {
	repo storage.Repository
}

// New creates an order store on top of repo.
func New(repo storage.Repository) *Store {
	return &Store{repo: repo}
}

// FilePath returns the workspace-relative path of a module's order file.
func FilePath(module string) string {
	return path.Join(module, "pages", FileName)
}

// Load returns the order override for module. It never fails: a missing or
// unparsable file is treated as an empty override.
func (s *Store) Load(module string) models.OrderFile {
	var of models.OrderFile
	data, err := s.repo.ReadFile(FilePath(module))
	if err != nil {
		return models.OrderFile{}
	}
	if err := json.Unmarshal(data, &of); err != nil {
		return models.OrderFile{}
	}
	return of
}

// Save deduplicates every slug list and writes the order file, creating the
// pages directory if needed. The write is atomic, so a failure leaves any
// previous file untouched.
func (s *Store) Save(module string, of models.OrderFile) error {
	of.Pages = dedupe(of.Pages)
	for parent, slugs := range of.Subpages {
		of.Subpages[parent] = dedupe(slugs)
	}
	data, err := json.MarshalIndent(of, "", "  ")
	if err != nil {
		return fmt.Errorf("orderstore: marshal %s: %w", module, err)
	}
	data = append(data, '\n')
	if err := s.repo.WriteFile(FilePath(module), data); err != nil {
		return fmt.Errorf("orderstore: write %s: %w", module, err)
	}
	return nil
}

// dedupe removes repeated slugs, keeping first occurrences in order.
func dedupe(slugs []string) []string {
	if slugs == nil {
		return []string{}
	}
	seen := make(map[string]struct{}, len(slugs))
	out := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
