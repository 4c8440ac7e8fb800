// Package models defines the domain types for Trellis.
package models

// Link is a directed cross-reference from one node to another node or an
// external path. It is resolved at diagram-emission time and never implies
// ownership of the target.
type Link struct {
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// Meta holds the free-form descriptive attributes persisted in a node's
// page.json sidecar. Every field is optional.
type Meta struct {
	Title     string `json:"title,omitempty"`
	Status    string `json:"status,omitempty"`
	Route     string `json:"route,omitempty"`
	Path      string `json:"path,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Domain    string `json:"domain,omitempty"`
	Area      string `json:"area,omitempty"`
	Component string `json:"component,omitempty"`
	Action    string `json:"action,omitempty"`
	Class     string `json:"class,omitempty"`
	Links     []Link `json:"links,omitempty"`
}

// PartialMeta is a patch over Meta: nil fields are left untouched, non-nil
// fields overwrite. Requests decode into this type so that absent JSON keys
// stay distinguishable from explicit empty values.
type PartialMeta struct {
	Title     *string `json:"title,omitempty"`
	Status    *string `json:"status,omitempty"`
	Route     *string `json:"route,omitempty"`
	Path      *string `json:"path,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	Domain    *string `json:"domain,omitempty"`
	Area      *string `json:"area,omitempty"`
	Component *string `json:"component,omitempty"`
	Action    *string `json:"action,omitempty"`
	Class     *string `json:"class,omitempty"`
	Links     *[]Link `json:"links,omitempty"`
}

// ApplyTo overlays the non-nil fields of p onto m.
func (p PartialMeta) ApplyTo(m *Meta) {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.Route != nil {
		m.Route = *p.Route
	}
	if p.Path != nil {
		m.Path = *p.Path
	}
	if p.Notes != nil {
		m.Notes = *p.Notes
	}
	if p.Domain != nil {
		m.Domain = *p.Domain
	}
	if p.Area != nil {
		m.Area = *p.Area
	}
	if p.Component != nil {
		m.Component = *p.Component
	}
	if p.Action != nil {
		m.Action = *p.Action
	}
	if p.Class != nil {
		m.Class = *p.Class
	}
	if p.Links != nil {
		m.Links = *p.Links
	}
}

// Empty reports whether the patch carries no fields at all.
func (p PartialMeta) Empty() bool {
	return p.Title == nil && p.Status == nil && p.Route == nil && p.Path == nil &&
		p.Notes == nil && p.Domain == nil && p.Area == nil && p.Component == nil &&
		p.Action == nil && p.Class == nil && p.Links == nil
}

// Asset sub-folder names owned by every module, page, and subpage directory.
const (
	AssetScreenshots = "screenshots"
	AssetHTML        = "html"
	AssetCSS         = "css"
)

// AssetKinds lists the asset sub-folder names in canonical order.
func AssetKinds() []string {
	return []string{AssetScreenshots, AssetHTML, AssetCSS}
}

// AssetCounts records how many files each asset sub-folder of a node holds.
// Only the counts matter to the tree; file content is never inspected.
type AssetCounts struct {
	Screenshots int `json:"screenshots"`
	HTML        int `json:"html"`
	CSS         int `json:"css"`
}

// Total returns the combined asset file count.
func (a AssetCounts) Total() int { return a.Screenshots + a.HTML + a.CSS }

// Node is a page or subpage in a module tree. Slug is the directory name,
// unique among siblings. Path is the merged route ("/module/page[/subpage]"
// unless the sidecar overrides it). Children is populated for pages only;
// the tree never nests deeper than module → page → subpage.
type Node struct {
	Slug     string      `json:"slug"`
	Path     string      `json:"path"`
	Meta     Meta        `json:"meta"`
	Assets   AssetCounts `json:"assets"`
	Children []*Node     `json:"children,omitempty"`
}

// ModuleTree is the ordered, fully-merged view of one module.
type ModuleTree struct {
	Module string  `json:"module"`
	Pages  []*Node `json:"pages"`
}

// ModuleInfo is a lightweight item in the module list.
type ModuleInfo struct {
	Name        string `json:"name"`
	PageCount   int    `json:"page_count"`
	AssetCount  int    `json:"asset_count"`
	LastUpdated string `json:"last_updated,omitempty"`
}

// OrderFile is the per-module ordering override persisted at
// pages/_order.json. Pages lists top-level page slugs; Subpages maps a
// parent page slug to its subpage sequence. Both may reference only a
// subset of what exists on disk, and may go stale after deletes.
type OrderFile struct {
	Pages    []string            `json:"pages"`
	Subpages map[string][]string `json:"subpages,omitempty"`
}
