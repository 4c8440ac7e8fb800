package models

import "time"

// AssetCoverage holds the percentage of pages and subpages that own at
// least one file in each asset sub-folder.
type AssetCoverage struct {
	Screenshots float64 `json:"screenshots"`
	HTML        float64 `json:"html"`
	CSS         float64 `json:"css"`
}

// AnalyticsReport is the workspace-wide structural-health summary.
type AnalyticsReport struct {
	TotalModules      int            `json:"total_modules"`
	TotalPages        int            `json:"total_pages"`
	TotalSubpages     int            `json:"total_subpages"`
	AvgPagesPerModule float64        `json:"avg_pages_per_module"`
	ThreeLevelModules int            `json:"three_level_modules"`
	OrphanedPages     []string       `json:"orphaned_pages"`
	StatusCounts      map[string]int `json:"status_counts"`
	DeepestModule     string         `json:"deepest_module,omitempty"`
	AssetCoverage     AssetCoverage  `json:"asset_coverage"`
	GeneratedAt       time.Time      `json:"generated_at"`
}
