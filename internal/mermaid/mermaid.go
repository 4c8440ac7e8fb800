// Package mermaid serializes module trees into deterministic Mermaid
// flowchart text for user-workflow diagrams.
package mermaid

import (
	"strings"

	"github.com/starford/trellis/internal/models"
	"github.com/starford/trellis/internal/pagetype"
)

// Renderer holds the diagram preferences. Zero values fall back to the
// Mermaid defaults ("default" theme, top-down layout).
type Renderer struct {
	Theme     string
	Direction string
}

// New creates a renderer, applying defaults for empty preferences.
func New(theme, direction string) Renderer {
	if theme == "" {
		theme = "default"
	}
	if direction == "" {
		direction = "TD"
	}
	return Renderer{Theme: theme, Direction: direction}
}

// SanitizeID turns an arbitrary string into a Mermaid-safe identifier:
// every non-alphanumeric rune becomes "_", leading underscores are
// stripped, and an empty result falls back to "n".
func SanitizeID(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), "_")
	if out == "" {
		return "n"
	}
	return out
}

// ResolveTarget maps a link target to a node identifier. Absolute targets
// ("/module/page[/subpage]") are sanitized per segment and concatenated the
// same way child identifiers are derived; anything deeper or shallower is
// unresolvable. A target without a leading separator is taken as a literal
// identifier.
func ResolveTarget(target string) (string, bool) {
	if !strings.HasPrefix(target, "/") {
		if target == "" {
			return "", false
		}
		return target, true
	}
	segs := strings.Split(strings.Trim(target, "/"), "/")
	if len(segs) < 2 || len(segs) > 3 {
		return "", false
	}
	ids := make([]string, len(segs))
	for i, seg := range segs {
		if seg == "" {
			return "", false
		}
		ids[i] = SanitizeID(seg)
	}
	return strings.Join(ids, "_"), true
}

type linkEdge struct {
	from  string
	to    string
	label string
}

// Module renders one module tree.
func (r Renderer) Module(t *models.ModuleTree, detailed bool) string {
	return r.render([]*models.ModuleTree{t}, detailed)
}

// Project renders a forest of module trees into a single diagram.
func (r Renderer) Project(forest []*models.ModuleTree, detailed bool) string {
	return r.render(forest, detailed)
}

func (r Renderer) render(forest []*models.ModuleTree, detailed bool) string {
	var b strings.Builder
	b.WriteString("%%{init: {'theme': '" + r.Theme + "'}}%%\n")
	b.WriteString("flowchart " + r.Direction + "\n")

	var links []linkEdge
	for _, t := range forest {
		moduleID := SanitizeID(t.Module)
		writeNode(&b, moduleID, t.Module)
		for _, page := range t.Pages {
			pageID := moduleID + "_" + SanitizeID(page.Slug)
			writeContent(&b, pageID, page, detailed)
			writeEdge(&b, moduleID, pageID)
			collectLinks(&links, pageID, page)
			for _, sub := range page.Children {
				subID := pageID + "_" + SanitizeID(sub.Slug)
				writeContent(&b, subID, sub, detailed)
				writeEdge(&b, pageID, subID)
				collectLinks(&links, subID, sub)
			}
		}
	}

	for _, l := range links {
		if l.label != "" {
			b.WriteString("    " + l.from + " -. \"" + escapeLabel(l.label) + "\" .-> " + l.to + "\n")
		} else {
			b.WriteString("    " + l.from + " -.-> " + l.to + "\n")
		}
	}
	return b.String()
}

// writeContent emits either a plain node statement or, in detailed mode,
// the fixed sub-element taxonomy driven by the page-type classifier.
func writeContent(b *strings.Builder, id string, n *models.Node, detailed bool) {
	if !detailed {
		writeNode(b, id, nodeLabel(n))
		return
	}
	t := pagetype.Classify(n.Slug, n.Meta.Action)
	b.WriteString("    subgraph " + id + "[\"" + escapeLabel(nodeLabel(n)) + "\"]\n")
	b.WriteString("        " + id + "_header[\"Header\"]\n")
	b.WriteString("        " + id + "_content[\"" + contentLabel(t) + "\"]\n")
	if t == pagetype.Dashboard || t == pagetype.Settings {
		b.WriteString("        " + id + "_sidebar[\"Sidebar\"]\n")
	}
	if t == pagetype.Create || t == pagetype.Edit || t == pagetype.Delete {
		b.WriteString("        " + id + "_modal[\"Confirm Modal\"]\n")
	}
	b.WriteString("        " + id + "_footer[\"Footer\"]\n")
	b.WriteString("    end\n")
}

func contentLabel(t pagetype.Type) string {
	switch t {
	case pagetype.List:
		return "List / Table"
	case pagetype.Detail:
		return "Detail View"
	case pagetype.Create:
		return "Create Form"
	case pagetype.Edit:
		return "Edit Form"
	case pagetype.Delete:
		return "Delete Confirmation"
	case pagetype.Search:
		return "Search Results"
	case pagetype.Dashboard:
		return "Widgets"
	case pagetype.Settings:
		return "Settings Form"
	default:
		return "Content"
	}
}

func writeNode(b *strings.Builder, id, label string) {
	b.WriteString("    " + id + "[\"" + escapeLabel(label) + "\"]\n")
}

func writeEdge(b *strings.Builder, from, to string) {
	b.WriteString("    " + from + " --> " + to + "\n")
}

func collectLinks(links *[]linkEdge, fromID string, n *models.Node) {
	for _, l := range n.Meta.Links {
		to, ok := ResolveTarget(l.Target)
		if !ok {
			continue
		}
		*links = append(*links, linkEdge{from: fromID, to: to, label: l.Label})
	}
}

func nodeLabel(n *models.Node) string {
	if n.Meta.Title != "" {
		return n.Meta.Title
	}
	return n.Slug
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
