// Package report renders an AnalysisReport to the console and persists it
// as a JSON document.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/panbanda/unused-cleaner/internal/output"
	"github.com/panbanda/unused-cleaner/pkg/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultFilename is the JSON report written under the project root.
const DefaultFilename = "cleanup-report.json"

// DefaultPath returns the default JSON report location for a project.
func DefaultPath(root string) string {
	return filepath.Join(root, DefaultFilename)
}

var sectionIcons = map[string]string{
	"Unused Files":         "🗂️  ",
	"Unused Dependencies":  "📦 ",
	"Missing Dependencies": "❌ ",
	"Unused Exports":       "🔗 ",
	"Unused Imports":       "📥 ",
}

func paint(w io.Writer, colored bool, text string, attrs ...color.Attribute) {
	if !colored {
		fmt.Fprintln(w, text)
		return
	}
	c := color.New(attrs...)
	c.EnableColor()
	c.Fprintln(w, text)
}

// Render prints the console report: banner, totals, a summary table and one
// section per category.
func Render(w io.Writer, r *models.AnalysisReport, colored bool) error {
	p := message.NewPrinter(language.English)
	rule := strings.Repeat("=", 50)

	fmt.Fprintln(w)
	paint(w, colored, rule, color.FgMagenta)
	paint(w, colored, "           🧹 CLEANUP ANALYSIS REPORT", color.FgMagenta)
	paint(w, colored, rule, color.FgMagenta)

	paint(w, colored, p.Sprintf("📊 Total files scanned: %d", r.TotalFilesScanned), color.FgCyan)
	paint(w, colored, fmt.Sprintf("🕐 Analysis completed at: %s", displayTime(r)), color.FgCyan)
	fmt.Fprintln(w)

	if err := renderSummary(w, r); err != nil {
		return err
	}

	for _, cat := range r.Categories() {
		fmt.Fprintln(w)
		paint(w, colored, sectionIcons[cat.Title]+cat.Title+":", color.Bold)
		if len(cat.Items) == 0 {
			paint(w, colored, "  ✅ None found", color.FgGreen)
			continue
		}
		paint(w, colored, fmt.Sprintf("  Found %d items:", len(cat.Items)), color.FgRed)
		for _, item := range cat.Items {
			paint(w, colored, "    • "+item, color.FgHiBlack)
		}
	}
	fmt.Fprintln(w)
	return nil
}

func displayTime(r *models.AnalysisReport) string {
	t, err := r.Time()
	if err != nil {
		return r.Timestamp
	}
	return t.Local().Format(time.DateTime)
}

func renderSummary(w io.Writer, r *models.AnalysisReport) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{
				Left:   tw.Off,
				Right:  tw.Off,
				Top:    tw.Off,
				Bottom: tw.Off,
			},
			Settings: tw.Settings{
				Separators: tw.Separators{
					BetweenColumns: tw.Off,
				},
			},
		}),
	)

	table.Header([]string{"Category", "Count"})
	for _, cat := range r.Categories() {
		if err := table.Append([]string{cat.Title, strconv.Itoa(len(cat.Items))}); err != nil {
			return err
		}
	}
	return table.Render()
}

// Save writes the report as indented JSON. It touches nothing but path.
func Save(path string, r *models.AnalysisReport) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Load reads a report written by Save.
func Load(path string) (*models.AnalysisReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r models.AnalysisReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	r.Normalize()
	return &r, nil
}

// Generate prints and/or saves the report depending on format. jsonPath is
// used when the format includes JSON.
func Generate(console *output.Console, r *models.AnalysisReport, format output.Format, jsonPath string) error {
	if format.Console() {
		if err := Render(console.Writer(), r, console.Colored()); err != nil {
			return err
		}
	}
	if format.JSON() {
		if err := Save(jsonPath, r); err != nil {
			return err
		}
		console.Info("📄 JSON report saved to: %s", jsonPath)
	}
	return nil
}
