package models

import (
	"sort"
	"time"
)

// TimestampLayout matches JavaScript's Date.toISOString output.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// AnalysisReport is the aggregate result of one analysis run.
// Paths are slash-separated and relative to the project root.
type AnalysisReport struct {
	UnusedFiles         []string `json:"unusedFiles"`
	UnusedDependencies  []string `json:"unusedDependencies"`
	MissingDependencies []string `json:"missingDependencies"`
	UnusedExports       []string `json:"unusedExports"`
	UnusedImports       []string `json:"unusedImports"`
	TotalFilesScanned   int      `json:"totalFilesScanned"`
	Timestamp           string   `json:"timestamp"`
}

// NewAnalysisReport creates an empty report stamped with the given time.
func NewAnalysisReport(now time.Time) *AnalysisReport {
	return &AnalysisReport{
		UnusedFiles:         []string{},
		UnusedDependencies:  []string{},
		MissingDependencies: []string{},
		UnusedExports:       []string{},
		UnusedImports:       []string{},
		Timestamp:           now.UTC().Format(TimestampLayout),
	}
}

// Time parses the report timestamp.
func (r *AnalysisReport) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, r.Timestamp)
}

// IsClean reports whether nothing removable was found.
func (r *AnalysisReport) IsClean() bool {
	return len(r.UnusedFiles) == 0 && len(r.UnusedDependencies) == 0
}

// Category is one titled list of findings.
type Category struct {
	Title string
	Items []string
}

// Categories returns the report's findings in display order.
func (r *AnalysisReport) Categories() []Category {
	return []Category{
		{Title: "Unused Files", Items: r.UnusedFiles},
		{Title: "Unused Dependencies", Items: r.UnusedDependencies},
		{Title: "Missing Dependencies", Items: r.MissingDependencies},
		{Title: "Unused Exports", Items: r.UnusedExports},
		{Title: "Unused Imports", Items: r.UnusedImports},
	}
}

// Normalize sorts and de-duplicates every list and replaces nil lists with
// empty ones so the JSON document always carries arrays.
func (r *AnalysisReport) Normalize() {
	r.UnusedFiles = SortedUnique(r.UnusedFiles)
	r.UnusedDependencies = SortedUnique(r.UnusedDependencies)
	r.MissingDependencies = SortedUnique(r.MissingDependencies)
	r.UnusedExports = SortedUnique(r.UnusedExports)
	r.UnusedImports = SortedUnique(r.UnusedImports)
}

// SortedUnique returns a sorted copy of items without duplicates or empty strings.
func SortedUnique(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}
