package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/panbanda/unused-cleaner/internal/cleanup"
	"github.com/panbanda/unused-cleaner/internal/output"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newApp().RunContext(ctx, os.Args)
	stop()
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "unused-cleaner",
		Usage:     "🧹 Automatically detect and clean unused code from your project",
		Version:   fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		ArgsUsage: "[path]",
		Metadata:  make(map[string]interface{}),
		Description: `Finds unused files, imports and exports, unused and missing dependencies
in JavaScript and TypeScript projects, writes a report and optionally removes
what it found.

Without a subcommand the given path (default: current directory) is analyzed
and each cleanup step is confirmed interactively.`,
		Flags: append(globalFlags(),
			&cli.BoolFlag{
				Name:    "quick",
				Aliases: []string{"q"},
				Usage:   "Quick scan mode: console report only, no cleanup",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output JSON report only, no cleanup",
			},
		),
		Action: runDefault,
		Commands: []*cli.Command{
			analyzeCmd(),
			scanCmd(),
			initCmd(),
			configCmd(),
			reportCmd(),
			cacheCmd(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to config file (JSON, YAML, or TOML)",
			EnvVars: []string{"UNUSED_CLEANER_CONFIG"},
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable verbose output",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored output",
		},
		&cli.BoolFlag{
			Name:  "cache",
			Usage: "Cache detector results between runs",
		},
	}
}

func runDefault(c *cli.Context) error {
	path := "."
	if c.Args().Len() > 0 {
		path = c.Args().First()
	}

	switch {
	case c.Bool("quick"):
		return runAnalysis(c, runOptions{
			path:   path,
			format: output.FormatConsole,
			banner: "🔍 Running quick scan...\n",
		})
	case c.Bool("json"):
		return runAnalysis(c, runOptions{
			path:   path,
			format: output.FormatJSON,
		})
	default:
		return runAnalysis(c, runOptions{
			path:    path,
			format:  output.FormatBoth,
			banner:  "🧹 Welcome to Unused Code Cleaner!\n\nUse --help to see available commands\n",
			cleanup: true,
			policy:  cleanup.Policy{Interactive: true},
		})
	}
}
