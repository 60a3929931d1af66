package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/panbanda/unused-cleaner/internal/cache"
	"github.com/panbanda/unused-cleaner/internal/cleanup"
	"github.com/panbanda/unused-cleaner/internal/output"
	"github.com/panbanda/unused-cleaner/internal/pkgmanager"
	"github.com/panbanda/unused-cleaner/internal/progress"
	"github.com/panbanda/unused-cleaner/internal/prompt"
	"github.com/panbanda/unused-cleaner/internal/report"
	"github.com/panbanda/unused-cleaner/internal/runner"
	"github.com/panbanda/unused-cleaner/pkg/analyzer"
	"github.com/panbanda/unused-cleaner/pkg/config"
	"github.com/urfave/cli/v2"
)

// runnerKey holds a runner.Runner override in App.Metadata.
const runnerKey = "runner"

// session is the resolved per-invocation state shared by commands.
type session struct {
	root    string
	cfg     *config.Config
	console *output.Console
	runner  runner.Runner
}

// newSession resolves the project root, output settings and config for path.
func newSession(c *cli.Context, path string) (*session, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %s: %w", path, err)
	}

	console := output.NewConsole(c.App.Writer, useColor(c), c.Bool("verbose"))

	opts := []config.LoadOption{config.WithDir(root)}
	if p := c.String("config"); p != "" {
		opts = append(opts, config.WithPath(p))
	}
	result, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, err
	}
	for _, w := range result.Warnings {
		console.Warn("%s", w)
	}
	if result.Source != "" {
		console.Debug("Using config from %s", result.Source)
	}

	cfg := result.Config
	if c.Bool("cache") {
		cfg.Cache.Enabled = true
	}

	r, ok := c.App.Metadata[runnerKey].(runner.Runner)
	if !ok {
		r = runner.New()
	}

	return &session{root: root, cfg: cfg, console: console, runner: r}, nil
}

func useColor(c *cli.Context) bool {
	if c.Bool("no-color") || color.NoColor {
		return false
	}
	return output.IsTerminal(c.App.Writer)
}

func (s *session) newAnalyzer(showProgress bool) (*analyzer.Analyzer, error) {
	cc, err := cache.New(s.cfg.CacheDir(), s.cfg.Cache.TTL, s.cfg.Cache.Enabled)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	opts := []analyzer.Option{
		analyzer.WithRunner(s.runner),
		analyzer.WithLogger(s.console),
		analyzer.WithCache(cc),
	}
	// Debug lines would tear through the spinner.
	if showProgress && !s.console.Verbose() && output.IsTerminal(os.Stderr) {
		opts = append(opts, analyzer.WithProgress(progress.NewSpinner("Running detectors...")))
	}
	return analyzer.New(s.cfg, s.root, opts...)
}

// runOptions describes one analysis invocation.
type runOptions struct {
	path       string
	format     output.Format
	reportPath string
	banner     string
	cleanup    bool
	policy     cleanup.Policy
	dryRun     bool
	message    string
	summary    bool
}

// runAnalysis analyzes, reports and, when asked, cleans up one project.
func runAnalysis(c *cli.Context, opts runOptions) error {
	s, err := newSession(c, opts.path)
	if err != nil {
		return err
	}
	if opts.banner != "" {
		s.console.Info("%s", opts.banner)
	}

	an, err := s.newAnalyzer(opts.format.Console())
	if err != nil {
		return err
	}
	rep, err := an.Analyze(c.Context)
	if err != nil {
		return err
	}

	reportPath := opts.reportPath
	if reportPath == "" {
		reportPath = report.DefaultPath(an.Root())
	}
	if err := report.Generate(s.console, rep, opts.format, reportPath); err != nil {
		return err
	}

	if opts.cleanup {
		mgr, err := pkgmanager.Parse(s.cfg.PackageManager, an.Root())
		if err != nil {
			return err
		}
		orch := cleanup.New(an.Root(), s.cfg,
			cleanup.WithPolicy(opts.policy),
			cleanup.WithDryRun(opts.dryRun),
			cleanup.WithCommitMessage(opts.message),
			cleanup.WithPrompt(prompt.NewTerminal(c.App.Reader, c.App.Writer, s.console.Colored())),
			cleanup.WithLogger(s.console),
			cleanup.WithUninstaller(&pkgmanager.Uninstaller{
				Runner:  s.runner,
				Manager: mgr,
				Stdout:  c.App.Writer,
				Stderr:  c.App.ErrWriter,
			}),
		)
		if _, err := orch.Run(c.Context, rep); err != nil {
			return err
		}
	}

	if opts.summary {
		s.console.Success("\n✨ Analysis completed successfully!")
		if len(rep.UnusedFiles) == 0 && len(rep.UnusedDependencies) == 0 {
			s.console.Success("🎉 Your project is already clean! No unused files or dependencies found.")
		}
	}
	return nil
}

// newConsole builds a console for commands that do not analyze a project.
func newConsole(c *cli.Context) *output.Console {
	return output.NewConsole(c.App.Writer, useColor(c), c.Bool("verbose"))
}
