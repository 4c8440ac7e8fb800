// Package analytics computes coverage and structural-health metrics across
// the whole workspace.
package analytics

import (
	"errors"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/starford/trellis/internal/metastore"
	"github.com/starford/trellis/internal/models"
	"github.com/starford/trellis/internal/storage"
)

// Aggregator traverses every module independently of the tree builder's
// order merge; ordering is irrelevant to the metrics, so it reads the
// directory hierarchy and sidecars directly.
type Aggregator struct {
	repo storage.Repository
	meta *metastore.Store
}

// New creates an aggregator.
func New(repo storage.Repository, meta *metastore.Store) *Aggregator {
	return &Aggregator{repo: repo, meta: meta}
}

type moduleStats struct {
	name  string
	depth int
	nodes int
}

// Analyze scans the full workspace. A node with an unreadable sidecar is
// counted as orphaned; it never aborts the aggregation.
func (a *Aggregator) Analyze() (*models.AnalyticsReport, error) {
	moduleNames, err := a.repo.ListDirs("")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(moduleNames, func(i, j int) bool {
		return strings.ToLower(moduleNames[i]) < strings.ToLower(moduleNames[j])
	})

	report := &models.AnalyticsReport{
		OrphanedPages: []string{},
		StatusCounts:  map[string]int{},
		GeneratedAt:   time.Now().UTC(),
	}

	var deepest moduleStats
	var withAssets struct{ screenshots, html, css, total int }

	for _, module := range moduleNames {
		report.TotalModules++
		stats := moduleStats{name: module, depth: 1}

		pageSlugs, err := a.repo.ListDirs(path.Join(module, "pages"))
		if err != nil {
			return nil, err
		}
		if len(pageSlugs) > 0 {
			stats.depth = 2
		}

		for _, pageSlug := range pageSlugs {
			report.TotalPages++
			stats.nodes++
			pageDir := path.Join(module, "pages", pageSlug)

			a.countNode(pageDir, &withAssets.screenshots, &withAssets.html, &withAssets.css)
			withAssets.total++

			if reason, orphaned := a.orphanReason(pageDir); orphaned {
				report.OrphanedPages = append(report.OrphanedPages, module+"/"+pageSlug+" ("+reason+")")
			}
			if m, err := a.meta.ReadStrict(pageDir); err == nil && m.Status != "" {
				report.StatusCounts[m.Status]++
			}

			subSlugs, err := a.repo.ListDirs(path.Join(pageDir, "subpages"))
			if err != nil {
				return nil, err
			}
			if len(subSlugs) > 0 {
				stats.depth = 3
			}
			for _, subSlug := range subSlugs {
				report.TotalSubpages++
				stats.nodes++
				subDir := path.Join(pageDir, "subpages", subSlug)
				a.countNode(subDir, &withAssets.screenshots, &withAssets.html, &withAssets.css)
				withAssets.total++
				if m, err := a.meta.ReadStrict(subDir); err == nil && m.Status != "" {
					report.StatusCounts[m.Status]++
				}
			}
		}

		if stats.depth == 3 {
			report.ThreeLevelModules++
		}
		if deeper(stats, deepest) {
			deepest = stats
		}
	}

	if report.TotalModules > 0 {
		report.AvgPagesPerModule = float64(report.TotalPages) / float64(report.TotalModules)
	}
	if deepest.name != "" {
		report.DeepestModule = deepest.name
	}
	if withAssets.total > 0 {
		report.AssetCoverage = models.AssetCoverage{
			Screenshots: pct(withAssets.screenshots, withAssets.total),
			HTML:        pct(withAssets.html, withAssets.total),
			CSS:         pct(withAssets.css, withAssets.total),
		}
	}
	return report, nil
}

// orphanReason flags a page whose sidecar is missing, unparsable, or lacks
// the title/route fields needed for navigation.
func (a *Aggregator) orphanReason(pageDir string) (string, bool) {
	m, err := a.meta.ReadStrict(pageDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "no meta", true
		}
		return "bad meta", true
	}
	if m.Title == "" {
		return "no title", true
	}
	if m.Route == "" {
		return "no route", true
	}
	return "", false
}

func (a *Aggregator) countNode(dir string, screenshots, html, css *int) {
	if n, err := a.repo.CountFiles(path.Join(dir, models.AssetScreenshots)); err == nil && n > 0 {
		*screenshots++
	}
	if n, err := a.repo.CountFiles(path.Join(dir, models.AssetHTML)); err == nil && n > 0 {
		*html++
	}
	if n, err := a.repo.CountFiles(path.Join(dir, models.AssetCSS)); err == nil && n > 0 {
		*css++
	}
}

// deeper orders module stats by depth, then node count, then name, so the
// "deepest module" pick is deterministic.
func deeper(a, b moduleStats) bool {
	if b.name == "" {
		return true
	}
	if a.depth != b.depth {
		return a.depth > b.depth
	}
	if a.nodes != b.nodes {
		return a.nodes > b.nodes
	}
	return false // earlier (lexically first) module wins ties
}

func pct(n, total int) float64 {
	return float64(n) / float64(total) * 100
}
