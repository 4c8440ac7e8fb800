// Package metastore reads and writes the page.json sidecar of a node.
package metastore

import (
	"encoding/json"
	"fmt"
	"path"

	"github.com/starford/trellis/internal/models"
	"github.com/starford/trellis/internal/storage"
)

// SidecarName is the metadata file stored inside every node directory.
const SidecarName = "page.json"

// Store reads and writes node metadata sidecars.
type Store struct {
	repo storage.Repository
}

// New creates a metadata store on top of repo.
func New(repo storage.Repository) *Store {
	return &Store{repo: repo}
}

// Read returns the metadata for the node at nodeDir. It never fails: an
// absent or unparsable sidecar degrades to a zero Meta so a single corrupt
// file cannot block tree assembly.
func (s *Store) Read(nodeDir string) models.Meta {
	m, _ := s.ReadStrict(nodeDir)
	return m
}

// ReadStrict is Read with the error preserved, for callers that need to
// distinguish a missing or corrupt sidecar from a genuinely empty one.
func (s *Store) ReadStrict(nodeDir string) (models.Meta, error) {
	var m models.Meta
	data, err := s.repo.ReadFile(path.Join(nodeDir, SidecarName))
	if err != nil {
		return models.Meta{}, fmt.Errorf("metastore: read %s: %w", nodeDir, err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return models.Meta{}, fmt.Errorf("metastore: parse %s: %w", nodeDir, err)
	}
	return m, nil
}

// Write serializes the full metadata record for the node at nodeDir.
// Patch semantics are the caller's job: read, overlay, then write.
func (s *Store) Write(nodeDir string, m models.Meta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("metastore: marshal %s: %w", nodeDir, err)
	}
	data = append(data, '\n')
	if err := s.repo.WriteFile(path.Join(nodeDir, SidecarName), data); err != nil {
		return fmt.Errorf("metastore: write %s: %w", nodeDir, err)
	}
	return nil
}
