// Package tree assembles the ordered module tree from directory presence,
// metadata sidecars, and the ordering override.
package tree

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/starford/trellis/internal/apperr"
	"github.com/starford/trellis/internal/metastore"
	"github.com/starford/trellis/internal/models"
	"github.com/starford/trellis/internal/orderstore"
	"github.com/starford/trellis/internal/storage"
)

// Builder scans a module directory hierarchy and merges it with the
// metadata and order stores into a fully-populated tree.
type Builder struct {
	repo  storage.Repository
	meta  *metastore.Store
	order *orderstore.Store
}

// New creates a tree builder.
func New(repo storage.Repository, meta *metastore.Store, order *orderstore.Store) *Builder {
	return &Builder{repo: repo, meta: meta, order: order}
}

// PagesDir returns the workspace-relative pages directory of a module.
func PagesDir(module string) string {
	return path.Join(module, "pages")
}

// NodeDir returns the workspace-relative directory of a page or subpage.
// sub may be empty.
func NodeDir(module, page, sub string) string {
	if sub == "" {
		return path.Join(module, "pages", page)
	}
	return path.Join(module, "pages", page, "subpages", sub)
}

// Build assembles the tree for one module. Missing metadata and order files
// degrade to defaults; only a missing module directory is an error.
func (b *Builder) Build(module string) (*models.ModuleTree, error) {
	ok, err := b.repo.DirExists(module)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("module %q: %w", module, apperr.ErrNotFound)
	}

	slugs, err := b.repo.ListDirs(PagesDir(module))
	if err != nil {
		return nil, err
	}

	pages := make([]*models.Node, 0, len(slugs))
	for _, slug := range slugs {
		page, err := b.buildNode(module, slug, "")
		if err != nil {
			return nil, err
		}
		subSlugs, err := b.repo.ListDirs(path.Join(NodeDir(module, slug, ""), "subpages"))
		if err != nil {
			return nil, err
		}
		for _, subSlug := range subSlugs {
			sub, err := b.buildNode(module, slug, subSlug)
			if err != nil {
				return nil, err
			}
			page.Children = append(page.Children, sub)
		}
		pages = append(pages, page)
	}

	of := b.order.Load(module)
	pages = applyOrder(pages, of.Pages)
	for _, page := range pages {
		page.Children = applyOrder(page.Children, of.Subpages[page.Slug])
	}

	return &models.ModuleTree{Module: module, Pages: pages}, nil
}

// Modules lists the module directories at the workspace root, sorted
// case-insensitively.
func (b *Builder) Modules() ([]string, error) {
	names, err := b.repo.ListDirs("")
	if err != nil {
		return nil, err
	}
	sortSlugs(names)
	return names, nil
}

func (b *Builder) buildNode(module, page, sub string) (*models.Node, error) {
	dir := NodeDir(module, page, sub)
	meta := b.meta.Read(dir)

	nodePath := meta.Path
	if nodePath == "" {
		nodePath = "/" + module + "/" + page
		if sub != "" {
			nodePath += "/" + sub
		}
	}

	slug := page
	if sub != "" {
		slug = sub
	}
	node := &models.Node{Slug: slug, Path: nodePath, Meta: meta}

	for _, kind := range models.AssetKinds() {
		n, err := b.repo.CountFiles(path.Join(dir, kind))
		if err != nil {
			return nil, err
		}
		switch kind {
		case models.AssetScreenshots:
			node.Assets.Screenshots = n
		case models.AssetHTML:
			node.Assets.HTML = n
		case models.AssetCSS:
			node.Assets.CSS = n
		}
	}
	return node, nil
}

// applyOrder emits nodes whose slug appears in explicit first, in that
// order, then appends the rest in ascending case-insensitive slug order.
// Slugs in explicit that no longer exist on disk are dropped silently.
func applyOrder(nodes []*models.Node, explicit []string) []*models.Node {
	bySlug := make(map[string]*models.Node, len(nodes))
	for _, n := range nodes {
		bySlug[n.Slug] = n
	}

	out := make([]*models.Node, 0, len(nodes))
	taken := make(map[string]struct{}, len(explicit))
	for _, slug := range explicit {
		if _, ok := taken[slug]; ok {
			continue
		}
		taken[slug] = struct{}{}
		if n, ok := bySlug[slug]; ok {
			out = append(out, n)
		}
	}

	rest := make([]*models.Node, 0, len(nodes)-len(out))
	for _, n := range nodes {
		if _, ok := taken[n.Slug]; !ok {
			rest = append(rest, n)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return strings.ToLower(rest[i].Slug) < strings.ToLower(rest[j].Slug)
	})
	return append(out, rest...)
}

func sortSlugs(slugs []string) {
	sort.SliceStable(slugs, func(i, j int) bool {
		return strings.ToLower(slugs[i]) < strings.ToLower(slugs[j])
	})
}
