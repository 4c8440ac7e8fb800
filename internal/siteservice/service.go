// Package siteservice coordinates the stores, tree builder, caches, and
// diagram renderer behind the public operation set.
package siteservice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/trellis/internal/analytics"
	"github.com/starford/trellis/internal/apperr"
	"github.com/starford/trellis/internal/cache"
	"github.com/starford/trellis/internal/history"
	"github.com/starford/trellis/internal/mermaid"
	"github.com/starford/trellis/internal/metastore"
	"github.com/starford/trellis/internal/models"
	"github.com/starford/trellis/internal/orderstore"
	"github.com/starford/trellis/internal/storage"
	"github.com/starford/trellis/internal/tree"
)

// Cache keys for the singleton domains.
const (
	analyticsKey  = "analytics"
	moduleListKey = "modules"
)

// NotifyFunc receives change events after a successful mutation.
// kind is e.g. "node.created"; path is workspace-relative and may be empty.
type NotifyFunc func(kind, module, path string)

// Options configures a Service.
type Options struct {
	TreeTTL       time.Duration
	AnalyticsTTL  time.Duration
	ModuleListTTL time.Duration
	Theme         string
	Direction     string
	Notify        NotifyFunc
}

// AssetRef describes a stored asset file.
type AssetRef struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// Service exposes every tree operation. All cache state lives in the TTL
// maps; expensive rebuilds run outside their locks and are deduplicated
// per key with singleflight.
type Service struct {
	repo     storage.Repository
	meta     *metastore.Store
	order    *orderstore.Store
	builder  *tree.Builder
	agg      *analytics.Aggregator
	renderer mermaid.Renderer
	hist     *history.Store // optional

	trees   *cache.TTLMap[*models.ModuleTree]
	reports *cache.TTLMap[*models.AnalyticsReport]
	modules *cache.TTLMap[[]models.ModuleInfo]
	flight  singleflight.Group

	notify NotifyFunc
}

// New creates a service. hist may be nil to disable snapshot logging.
func New(repo storage.Repository, hist *history.Store, opts Options) *Service {
	if opts.TreeTTL <= 0 {
		opts.TreeTTL = time.Minute
	}
	if opts.AnalyticsTTL <= 0 {
		opts.AnalyticsTTL = 5 * time.Minute
	}
	if opts.ModuleListTTL <= 0 {
		opts.ModuleListTTL = 2 * time.Minute
	}
	meta := metastore.New(repo)
	order := orderstore.New(repo)
	return &Service{
		repo:     repo,
		meta:     meta,
		order:    order,
		builder:  tree.New(repo, meta, order),
		agg:      analytics.New(repo, meta),
		renderer: mermaid.New(opts.Theme, opts.Direction),
		hist:     hist,
		trees:    cache.New[*models.ModuleTree](opts.TreeTTL),
		reports:  cache.New[*models.AnalyticsReport](opts.AnalyticsTTL),
		modules:  cache.New[[]models.ModuleInfo](opts.ModuleListTTL),
		notify:   opts.Notify,
	}
}

// GetTree returns the ordered tree for module, served from cache when fresh.
func (s *Service) GetTree(_ context.Context, module string) (*models.ModuleTree, error) {
	if err := validateSlug(module); err != nil {
		return nil, err
	}
	if t, ok := s.trees.Get(module); ok {
		return t, nil
	}
	v, err, _ := s.flight.Do("tree:"+module, func() (any, error) {
		t, err := s.builder.Build(module)
		if err != nil {
			return nil, err
		}
		s.trees.Put(module, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.ModuleTree), nil
}

// ListModules returns every module with page and asset counts.
func (s *Service) ListModules(_ context.Context) ([]models.ModuleInfo, error) {
	if list, ok := s.modules.Get(moduleListKey); ok {
		return list, nil
	}
	v, err, _ := s.flight.Do(moduleListKey, func() (any, error) {
		names, err := s.builder.Modules()
		if err != nil {
			return nil, err
		}
		list := make([]models.ModuleInfo, 0, len(names))
		for _, name := range names {
			info := models.ModuleInfo{Name: name}
			pages, err := s.repo.ListDirs(tree.PagesDir(name))
			if err != nil {
				return nil, err
			}
			info.PageCount = len(pages)
			for _, kind := range models.AssetKinds() {
				n, err := s.repo.CountFiles(path.Join(name, kind))
				if err != nil {
					return nil, err
				}
				info.AssetCount += n
			}
			if mt, err := s.repo.ModTime(name); err == nil {
				info.LastUpdated = mt.UTC().Format("2006-01-02 15:04")
			}
			list = append(list, info)
		}
		s.modules.Put(moduleListKey, list)
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.ModuleInfo), nil
}

// CreateModule creates a module directory seeded with its pages and asset
// sub-folders.
func (s *Service) CreateModule(_ context.Context, name string) error {
	if err := validateSlug(name); err != nil {
		return err
	}
	ok, err := s.repo.DirExists(name)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("module %q: %w", name, apperr.ErrAlreadyExists)
	}
	if err := s.repo.MkdirAll(tree.PagesDir(name)); err != nil {
		return apperr.IO("create module", name, err)
	}
	for _, kind := range models.AssetKinds() {
		if err := s.repo.MkdirAll(path.Join(name, kind)); err != nil {
			return apperr.IO("create module", name, err)
		}
	}
	s.invalidateModule(name)
	s.publish("module.created", name, "")
	return nil
}

// DeleteModule removes a module and everything below it.
func (s *Service) DeleteModule(_ context.Context, name string) error {
	if err := validateSlug(name); err != nil {
		return err
	}
	ok, err := s.repo.DirExists(name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("module %q: %w", name, apperr.ErrNotFound)
	}
	if err := s.repo.RemoveAll(name); err != nil {
		return apperr.IO("delete module", name, err)
	}
	s.invalidateModule(name)
	s.publish("module.deleted", name, "")
	return nil
}

// CreateNode creates a page (parentSlug empty) or a subpage under
// parentSlug, seeding default metadata and asset sub-folders.
func (s *Service) CreateNode(_ context.Context, module, parentSlug, slug string) (*models.Node, error) {
	if err := validateSlug(module); err != nil {
		return nil, err
	}
	if err := validateSlug(slug); err != nil {
		return nil, err
	}
	ok, err := s.repo.DirExists(module)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("module %q: %w", module, apperr.ErrNotFound)
	}

	nodePath := "/" + module + "/" + slug
	dir := tree.NodeDir(module, slug, "")
	if parentSlug != "" {
		if err := validateSlug(parentSlug); err != nil {
			return nil, err
		}
		parentOK, err := s.repo.DirExists(tree.NodeDir(module, parentSlug, ""))
		if err != nil {
			return nil, err
		}
		if !parentOK {
			return nil, fmt.Errorf("page %q: %w", parentSlug, apperr.ErrNotFound)
		}
		dir = tree.NodeDir(module, parentSlug, slug)
		nodePath = "/" + module + "/" + parentSlug + "/" + slug
	}

	exists, err := s.repo.DirExists(dir)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("node %q: %w", slug, apperr.ErrAlreadyExists)
	}

	if err := s.repo.MkdirAll(dir); err != nil {
		return nil, apperr.IO("create node", dir, err)
	}
	for _, kind := range models.AssetKinds() {
		if err := s.repo.MkdirAll(path.Join(dir, kind)); err != nil {
			return nil, apperr.IO("create node", dir, err)
		}
	}
	if parentSlug == "" {
		if err := s.repo.MkdirAll(path.Join(dir, "subpages")); err != nil {
			return nil, apperr.IO("create node", dir, err)
		}
	}

	seed := models.Meta{Title: slug, Status: "draft", Path: nodePath}
	if err := s.meta.Write(dir, seed); err != nil {
		return nil, err
	}

	s.invalidateModule(module)
	s.publish("node.created", module, dir)
	return &models.Node{Slug: slug, Path: nodePath, Meta: seed}, nil
}

// DeleteNode removes the page or subpage at nodePath ("module/page[/sub]").
func (s *Service) DeleteNode(_ context.Context, nodePath string) error {
	module, page, sub, err := splitNodePath(nodePath)
	if err != nil {
		return err
	}
	dir := tree.NodeDir(module, page, sub)
	ok, err := s.repo.DirExists(dir)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("node %q: %w", nodePath, apperr.ErrNotFound)
	}
	if err := s.repo.RemoveAll(dir); err != nil {
		return apperr.IO("delete node", dir, err)
	}
	s.invalidateModule(module)
	s.publish("node.deleted", module, dir)
	return nil
}

// RenameNode renames the directory of the node at nodePath to newSlug.
//
// TODO: stale references survive a rename — the sidecar's path/route, any
// _order.json entry, and links pointing at the old slug keep the old name
// until edited by hand; the next build silently drops the stale order entry.
func (s *Service) RenameNode(_ context.Context, nodePath, newSlug string) (*models.Node, error) {
	module, page, sub, err := splitNodePath(nodePath)
	if err != nil {
		return nil, err
	}
	if err := validateSlug(newSlug); err != nil {
		return nil, err
	}

	oldDir := tree.NodeDir(module, page, sub)
	newDir := tree.NodeDir(module, newSlug, "")
	newPath := "/" + module + "/" + newSlug
	if sub != "" {
		newDir = tree.NodeDir(module, page, newSlug)
		newPath = "/" + module + "/" + page + "/" + newSlug
	}

	ok, err := s.repo.DirExists(oldDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("node %q: %w", nodePath, apperr.ErrNotFound)
	}
	taken, err := s.repo.DirExists(newDir)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("node %q: %w", newSlug, apperr.ErrAlreadyExists)
	}
	if err := s.repo.Rename(oldDir, newDir); err != nil {
		return nil, apperr.IO("rename node", oldDir, err)
	}

	s.invalidateModule(module)
	s.publish("node.renamed", module, newDir)
	return &models.Node{Slug: newSlug, Path: newPath, Meta: s.meta.Read(newDir)}, nil
}

// SetPageOrder persists an explicit top-level page sequence for module.
// Every slug must exist as a page directory; otherwise the existing order
// file is left untouched.
func (s *Service) SetPageOrder(_ context.Context, module string, slugs []string) error {
	if err := validateSlug(module); err != nil {
		return err
	}
	ok, err := s.repo.DirExists(module)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("module %q: %w", module, apperr.ErrNotFound)
	}
	for _, slug := range slugs {
		ok, err := s.repo.DirExists(tree.NodeDir(module, slug, ""))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("page %q: %w", slug, apperr.ErrUnknownSlug)
		}
	}

	of := s.order.Load(module)
	of.Pages = slugs
	if err := s.order.Save(module, of); err != nil {
		return err
	}
	s.invalidateModule(module)
	s.publish("order.updated", module, "")
	return nil
}

// SetSubpageOrder persists an explicit subpage sequence for one parent page.
func (s *Service) SetSubpageOrder(_ context.Context, module, parentSlug string, slugs []string) error {
	if err := validateSlug(module); err != nil {
		return err
	}
	if err := validateSlug(parentSlug); err != nil {
		return err
	}
	ok, err := s.repo.DirExists(tree.NodeDir(module, parentSlug, ""))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("page %q: %w", parentSlug, apperr.ErrNotFound)
	}
	for _, slug := range slugs {
		ok, err := s.repo.DirExists(tree.NodeDir(module, parentSlug, slug))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("subpage %q: %w", slug, apperr.ErrUnknownSlug)
		}
	}

	of := s.order.Load(module)
	if of.Subpages == nil {
		of.Subpages = map[string][]string{}
	}
	of.Subpages[parentSlug] = slugs
	if err := s.order.Save(module, of); err != nil {
		return err
	}
	s.invalidateModule(module)
	s.publish("order.updated", module, parentSlug)
	return nil
}

// UpdateMetadata overlays the non-nil fields of patch onto the node's
// sidecar (read-modify-write) and returns the merged record.
func (s *Service) UpdateMetadata(_ context.Context, nodePath string, patch models.PartialMeta) (models.Meta, error) {
	module, page, sub, err := splitNodePath(nodePath)
	if err != nil {
		return models.Meta{}, err
	}
	if patch.Empty() {
		return models.Meta{}, fmt.Errorf("empty metadata patch: %w", apperr.ErrInvalidInput)
	}
	dir := tree.NodeDir(module, page, sub)
	ok, err := s.repo.DirExists(dir)
	if err != nil {
		return models.Meta{}, err
	}
	if !ok {
		return models.Meta{}, fmt.Errorf("node %q: %w", nodePath, apperr.ErrNotFound)
	}

	cur := s.meta.Read(dir)
	patch.ApplyTo(&cur)
	if err := s.meta.Write(dir, cur); err != nil {
		return models.Meta{}, err
	}
	s.invalidateModule(module)
	s.publish("node.updated", module, dir)
	return cur, nil
}

// RenderGraph serializes one module (or the whole project when module is
// empty) into Mermaid flowchart text.
func (s *Service) RenderGraph(ctx context.Context, module string, detailed bool) (string, error) {
	if module != "" {
		t, err := s.GetTree(ctx, module)
		if err != nil {
			return "", err
		}
		return s.renderer.Module(t, detailed), nil
	}

	names, err := s.builder.Modules()
	if err != nil {
		return "", err
	}
	forest := make([]*models.ModuleTree, 0, len(names))
	for _, name := range names {
		t, err := s.GetTree(ctx, name)
		if err != nil {
			return "", err
		}
		forest = append(forest, t)
	}
	return s.renderer.Project(forest, detailed), nil
}

// Analyze returns the workspace analytics report, served from cache when
// fresh. Fresh computations are appended to the snapshot history.
func (s *Service) Analyze(_ context.Context) (*models.AnalyticsReport, error) {
	if r, ok := s.reports.Get(analyticsKey); ok {
		return r, nil
	}
	v, err, _ := s.flight.Do(analyticsKey, func() (any, error) {
		r, err := s.agg.Analyze()
		if err != nil {
			return nil, err
		}
		s.reports.Put(analyticsKey, r)
		if s.hist != nil {
			if err := s.hist.Record(r); err != nil {
				slog.Warn("analytics snapshot not recorded", slog.String("error", err.Error()))
			}
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.AnalyticsReport), nil
}

// History returns recent analytics snapshots, newest first.
func (s *Service) History(_ context.Context, limit int) ([]history.Snapshot, error) {
	if s.hist == nil {
		return []history.Snapshot{}, nil
	}
	return s.hist.Recent(limit)
}

// AddAsset stores an uploaded file in the screenshots/html/css sub-folder
// of a module ("shop") or node ("shop/list[/sub]").
func (s *Service) AddAsset(_ context.Context, ownerPath, kind, filename string, data []byte) (*AssetRef, error) {
	if err := validateAssetKind(kind); err != nil {
		return nil, err
	}
	if err := validateAssetFilename(filename); err != nil {
		return nil, err
	}

	dir, module, err := splitOwnerPath(ownerPath)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.DirExists(dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("node %q: %w", ownerPath, apperr.ErrNotFound)
	}

	rel := path.Join(dir, kind, filename)
	if err := s.repo.WriteFile(rel, data); err != nil {
		return nil, apperr.IO("store asset", rel, err)
	}

	s.invalidateModule(module)
	s.publish("asset.added", module, rel)
	sum := sha256.Sum256(data)
	return &AssetRef{
		Path:     rel,
		Filename: filename,
		Size:     int64(len(data)),
		Checksum: hex.EncodeToString(sum[:]),
	}, nil
}

// ListAssets returns the stored assets of one kind for a module or node,
// sorted by filename.
func (s *Service) ListAssets(_ context.Context, ownerPath, kind string) ([]AssetRef, error) {
	if err := validateAssetKind(kind); err != nil {
		return nil, err
	}
	dir, _, err := splitOwnerPath(ownerPath)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.DirExists(dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("node %q: %w", ownerPath, apperr.ErrNotFound)
	}

	kindDir := path.Join(dir, kind)
	names, err := s.repo.ListFiles(kindDir)
	if err != nil {
		return nil, apperr.IO("list assets", kindDir, err)
	}
	sort.Strings(names)

	refs := make([]AssetRef, 0, len(names))
	for _, name := range names {
		rel := path.Join(kindDir, name)
		data, err := s.repo.ReadFile(rel)
		if err != nil {
			return nil, apperr.IO("read asset", rel, err)
		}
		sum := sha256.Sum256(data)
		refs = append(refs, AssetRef{
			Path:     rel,
			Filename: name,
			Size:     int64(len(data)),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}
	return refs, nil
}

// DeleteAsset removes one stored asset file.
func (s *Service) DeleteAsset(_ context.Context, ownerPath, kind, filename string) error {
	if err := validateAssetKind(kind); err != nil {
		return err
	}
	if err := validateAssetFilename(filename); err != nil {
		return err
	}
	dir, module, err := splitOwnerPath(ownerPath)
	if err != nil {
		return err
	}

	rel := path.Join(dir, kind, filename)
	if err := s.repo.RemoveFile(rel); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("asset %q: %w", rel, apperr.ErrNotFound)
		}
		return apperr.IO("remove asset", rel, err)
	}

	s.invalidateModule(module)
	s.publish("asset.deleted", module, rel)
	return nil
}

func validateAssetKind(kind string) error {
	for _, k := range models.AssetKinds() {
		if kind == k {
			return nil
		}
	}
	return fmt.Errorf("asset kind %q: %w", kind, apperr.ErrInvalidInput)
}

func validateAssetFilename(filename string) error {
	if filename == "" || strings.ContainsAny(filename, "/\\") || filename == "." || filename == ".." {
		return fmt.Errorf("asset filename %q: %w", filename, apperr.ErrInvalidInput)
	}
	return nil
}

// InvalidateModule drops the cached tree for module plus the shared
// analytics and module-list entries.
func (s *Service) InvalidateModule(module string) {
	s.invalidateModule(module)
}

// InvalidateAll clears every cache domain unconditionally. Used to recover
// after external edits to the workspace.
func (s *Service) InvalidateAll() {
	s.trees.Clear()
	s.reports.Clear()
	s.modules.Clear()
}

func (s *Service) invalidateModule(module string) {
	s.trees.Invalidate(module)
	s.reports.Invalidate(analyticsKey)
	s.modules.Invalidate(moduleListKey)
}

func (s *Service) publish(kind, module, path string) {
	if s.notify != nil {
		s.notify(kind, module, path)
	}
}

// validateSlug enforces the slug constraint: non-empty, no path separator,
// no traversal names.
func validateSlug(slug string) error {
	if slug == "" || slug == "." || slug == ".." {
		return fmt.Errorf("slug %q: %w", slug, apperr.ErrInvalidInput)
	}
	if strings.ContainsAny(slug, "/\\") {
		return fmt.Errorf("slug %q must not contain a path separator: %w", slug, apperr.ErrInvalidInput)
	}
	return nil
}

// splitNodePath parses "module/page" or "module/page/sub", with or without
// a leading slash.
func splitNodePath(p string) (module, page, sub string, err error) {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	if len(segs) < 2 || len(segs) > 3 {
		return "", "", "", fmt.Errorf("node path %q: %w", p, apperr.ErrInvalidInput)
	}
	for _, seg := range segs {
		if err := validateSlug(seg); err != nil {
			return "", "", "", err
		}
	}
	module, page = segs[0], segs[1]
	if len(segs) == 3 {
		sub = segs[2]
	}
	return module, page, sub, nil
}

// splitOwnerPath resolves an asset owner: a bare module name or a node path.
func splitOwnerPath(p string) (dir, module string, err error) {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	if len(segs) == 1 {
		if err := validateSlug(segs[0]); err != nil {
			return "", "", err
		}
		return segs[0], segs[0], nil
	}
	module, page, sub, err := splitNodePath(p)
	if err != nil {
		return "", "", err
	}
	return tree.NodeDir(module, page, sub), module, nil
}
