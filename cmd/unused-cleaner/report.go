package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/panbanda/unused-cleaner/internal/report"
	"github.com/urfave/cli/v2"
)

func reportCmd() *cli.Command {
	inputFlag := &cli.StringFlag{
		Name:    "input",
		Aliases: []string{"i"},
		Value:   report.DefaultFilename,
		Usage:   "Saved JSON report to read",
	}

	return &cli.Command{
		Name:  "report",
		Usage: "Work with a saved cleanup report",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print a saved report to the console",
				Flags:  []cli.Flag{inputFlag},
				Action: runReportShow,
			},
			{
				Name:  "html",
				Usage: "Render a saved report as a standalone HTML page",
				Flags: []cli.Flag{
					inputFlag,
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "HTML file to write (default: input with .html extension)",
					},
				},
				Action: runReportHTML,
			},
		},
	}
}

func runReportShow(c *cli.Context) error {
	rep, err := report.Load(c.String("input"))
	if err != nil {
		return err
	}
	console := newConsole(c)
	return report.Render(console.Writer(), rep, console.Colored())
}

func runReportHTML(c *cli.Context) error {
	input := c.String("input")
	rep, err := report.Load(input)
	if err != nil {
		return err
	}

	outputPath := c.String("output")
	if outputPath == "" {
		outputPath = strings.TrimSuffix(input, filepath.Ext(input)) + ".html"
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	if err := renderer.RenderToFile(rep, outputPath); err != nil {
		return err
	}

	newConsole(c).Success("📄 HTML report saved to: %s", outputPath)
	return nil
}
