package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/panbanda/unused-cleaner/internal/cleanup"
	"github.com/panbanda/unused-cleaner/internal/output"
	"github.com/panbanda/unused-cleaner/internal/watch"
	"github.com/urfave/cli/v2"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Analyze project for unused files, imports, and dependencies",
		Flags: []cli.Flag{
			pathFlag(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   string(output.FormatBoth),
				Usage:   "Output format: json, console, or both",
			},
			&cli.StringFlag{
				Name:    "report",
				Aliases: []string{"r"},
				Usage:   "Custom path for JSON report (default: <path>/cleanup-report.json)",
			},
			&cli.BoolFlag{
				Name:  "interactive",
				Value: true,
				Usage: "Confirm each cleanup step",
			},
			&cli.BoolFlag{
				Name:  "no-interactive",
				Usage: "Run in non-interactive mode",
			},
			&cli.BoolFlag{
				Name:  "auto-delete",
				Usage: "Without prompts, delete unused files and remove unused dependencies (use with caution)",
			},
			&cli.BoolFlag{
				Name:  "auto-push",
				Usage: "Without prompts, commit and push changes to git",
			},
			&cli.StringFlag{
				Name:    "message",
				Aliases: []string{"m"},
				Usage:   "Custom git commit message",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Show what cleanup would do without changing anything",
			},
		},
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}

	policy := cleanup.Policy{
		Interactive: c.Bool("interactive") && !c.Bool("no-interactive"),
		AutoDelete:  c.Bool("auto-delete"),
		AutoPush:    c.Bool("auto-push"),
	}

	err = runAnalysis(c, runOptions{
		path:       c.String("path"),
		format:     format,
		reportPath: c.String("report"),
		banner:     "🚀 Starting analysis...\n",
		cleanup:    policy.Interactive || policy.AutoDelete || policy.AutoPush,
		policy:     policy,
		dryRun:     c.Bool("dry-run"),
		message:    c.String("message"),
		summary:    true,
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	return nil
}

func scanCmd() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Quick scan without cleanup options",
		Flags: []cli.Flag{
			pathFlag(),
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Rescan whenever sources or package.json change",
			},
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "How long changes must settle before a rescan",
			},
		},
		Action: runScanCmd,
	}
}

func runScanCmd(c *cli.Context) error {
	opts := runOptions{
		path:   c.String("path"),
		format: output.FormatConsole,
	}
	if err := runAnalysis(c, opts); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if !c.Bool("watch") {
		return nil
	}
	return watchAndScan(c, opts)
}

// watchAndScan reruns the scan on every settled batch of changes until
// the command is interrupted.
func watchAndScan(c *cli.Context, opts runOptions) error {
	s, err := newSession(c, opts.path)
	if err != nil {
		return err
	}

	w, err := watch.NewWatcher(s.root, s.cfg, c.Duration("debounce"), func(changed []string) {
		s.console.Info("\nChanged: %s", strings.Join(changed, ", "))
		s.console.Println("%s", strings.Repeat("-", 40))
		if err := runAnalysis(c, opts); err != nil {
			s.console.Error("Scan failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()
	w.OnError(func(err error) {
		s.console.Error("Watch error: %v", err)
	})

	s.console.Info("Watching for changes in %s...", s.root)
	s.console.Info("Press Ctrl+C to stop\n")

	if err := w.Start(c.Context); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func pathFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "path",
		Aliases: []string{"p"},
		Value:   ".",
		Usage:   "Project path to analyze",
	}
}
