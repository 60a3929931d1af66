package report

import (
	"embed"
	"html/template"
	"io"
	"os"
	"strings"

	"github.com/panbanda/unused-cleaner/pkg/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed template.html
var templateFS embed.FS

// Renderer handles HTML report generation.
type Renderer struct {
	tmpl *template.Template
}

// htmlData is what the template sees.
type htmlData struct {
	Report     *models.AnalysisReport
	Categories []models.Category
	Completed  string
	Clean      bool
}

// NewRenderer creates a new renderer with the embedded template.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"title": cases.Title(language.English).String,
		"num": func(n int) string {
			return message.NewPrinter(language.English).Sprintf("%d", n)
		},
		"anchor": func(s string) string {
			return strings.ReplaceAll(cases.Lower(language.English).String(s), " ", "-")
		},
	}

	tmplContent, err := templateFS.ReadFile("template.html")
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New("report").Funcs(funcMap).Parse(string(tmplContent))
	if err != nil {
		return nil, err
	}

	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the report as a standalone HTML page.
func (r *Renderer) Render(w io.Writer, rep *models.AnalysisReport) error {
	return r.tmpl.Execute(w, htmlData{
		Report:     rep,
		Categories: rep.Categories(),
		Completed:  displayTime(rep),
		Clean:      rep.IsClean(),
	})
}

// RenderToFile generates HTML and writes it to a file.
func (r *Renderer) RenderToFile(rep *models.AnalysisReport, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := r.Render(f, rep); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
