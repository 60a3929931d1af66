package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/panbanda/unused-cleaner/internal/cache"
	"github.com/panbanda/unused-cleaner/internal/manifest"
	"github.com/panbanda/unused-cleaner/internal/output"
	"github.com/panbanda/unused-cleaner/internal/progress"
	"github.com/panbanda/unused-cleaner/internal/runner"
	"github.com/panbanda/unused-cleaner/internal/scanner"
	"github.com/panbanda/unused-cleaner/pkg/analyzer/detector"
	"github.com/panbanda/unused-cleaner/pkg/analyzer/usage"
	"github.com/panbanda/unused-cleaner/pkg/config"
	"github.com/panbanda/unused-cleaner/pkg/models"
	"github.com/panbanda/unused-cleaner/pkg/source"
	"github.com/sourcegraph/conc"
)

var errNoFindings = errors.New("no detector produced results")

// Logger receives progress and diagnostics. *output.Console satisfies it.
type Logger interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Debug(format string, args ...any)
}

// Analyzer builds an AnalysisReport for one project root.
type Analyzer struct {
	cfg     *config.Config
	root    string
	runner  runner.Runner
	log     Logger
	cache   *cache.Cache
	tracker *progress.Tracker
	now     func() time.Time

	files detector.FileDetector
	deps  detector.DependencyDetector
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRunner sets the subprocess runner used by the external detectors.
func WithRunner(r runner.Runner) Option {
	return func(a *Analyzer) {
		a.runner = r
	}
}

// WithLogger sets where progress messages and warnings go.
func WithLogger(l Logger) Option {
	return func(a *Analyzer) {
		a.log = l
	}
}

// WithCache caches detector output across runs.
func WithCache(c *cache.Cache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// WithProgress shows a spinner while the detectors run.
func WithProgress(t *progress.Tracker) Option {
	return func(a *Analyzer) {
		a.tracker = t
	}
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// WithFileDetector replaces the unimported adapter.
func WithFileDetector(d detector.FileDetector) Option {
	return func(a *Analyzer) {
		a.files = d
	}
}

// WithDependencyDetector replaces the depcheck adapter as the primary
// dependency detector. The usage heuristic stays the fallback.
func WithDependencyDetector(d detector.DependencyDetector) Option {
	return func(a *Analyzer) {
		a.deps = d
	}
}

// New creates an analyzer for root.
func New(cfg *config.Config, root string, opts ...Option) (*Analyzer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}

	a := &Analyzer{
		cfg:    cfg,
		root:   filepath.Clean(absRoot),
		runner: runner.New(),
		log:    output.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	timeout := cfg.Analysis.TimeoutDuration()
	if a.files == nil {
		a.files = &detector.Unimported{Runner: a.runner, Timeout: timeout}
	}
	if a.deps == nil {
		a.deps = &detector.Depcheck{Runner: a.runner, Timeout: timeout, SkipDev: cfg.Dependencies.SkipDevDependencies}
	}
	return a, nil
}

// Root returns the absolute project root.
func (a *Analyzer) Root() string {
	return a.root
}

// Analyze runs the walker and both detectors and returns the finished
// report. A root without package.json fails before anything runs.
func (a *Analyzer) Analyze(ctx context.Context) (*models.AnalysisReport, error) {
	if !manifest.Exists(a.root) {
		return nil, fmt.Errorf("%w: %s", manifest.ErrNoManifest, a.root)
	}
	a.log.Info("Analyzing project at: %s", a.root)

	sc, err := scanner.NewScanner(a.cfg, a.root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", a.root, err)
	}
	files, err := sc.ScanDir()
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", a.root, err)
	}
	sources, err := sc.ScanSources()
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", a.root, err)
	}
	a.log.Debug("found %d source files, %d read for dependency usage", len(files), len(sources))

	fingerprint := ""
	if a.cache.Enabled() {
		if fingerprint, err = cache.Fingerprint(a.root, sources); err != nil {
			a.log.Warn("Cache disabled for this run: %v", err)
		}
	}

	report := models.NewAnalysisReport(a.now())

	a.tracker.Start()
	var (
		fileFindings *detector.FileFindings
		depFindings  *detector.DependencyFindings
		running      atomic.Int32
	)
	running.Store(2)
	// The spinner names whichever detector is still running.
	finished := func(other string) {
		if running.Add(-1) == 1 {
			a.tracker.Describe(other)
		}
	}
	var wg conc.WaitGroup
	wg.Go(func() {
		fileFindings = a.detectFiles(ctx, fingerprint)
		finished("Analyzing package dependencies...")
	})
	wg.Go(func() {
		depFindings = a.detectDependencies(ctx, sc, sources, fingerprint)
		finished("Scanning for unused files...")
	})
	wg.Wait()

	if err := ctx.Err(); err != nil {
		a.tracker.FinishError(err)
		return nil, err
	}
	if fileFindings == nil && depFindings == nil {
		a.tracker.FinishError(errNoFindings)
	} else {
		a.tracker.FinishSuccess()
	}

	if fileFindings != nil {
		report.UnusedFiles = a.normalizeFiles(sc, fileFindings.UnusedFiles)
		report.UnusedImports = filterEntries(sc, a.root, fileFindings.UnusedImports)
		report.UnusedExports = filterEntries(sc, a.root, fileFindings.UnusedExports)
	}
	if depFindings != nil {
		report.UnusedDependencies = a.filterDependencies(depFindings.Unused)
		report.MissingDependencies = a.filterDependencies(depFindings.Missing)
	}
	report.TotalFilesScanned = len(files)
	report.Normalize()

	return report, nil
}

func (a *Analyzer) detectFiles(ctx context.Context, fingerprint string) *detector.FileFindings {
	if a.cfg.Analysis.SkipUnimported {
		a.log.Debug("unimported skipped by configuration")
		return nil
	}
	a.log.Info("🔍 Scanning for unused imports and files...")

	findings, err := cached(a, "files:"+a.files.Name(), fingerprint, func() (*detector.FileFindings, error) {
		return a.files.DetectFiles(ctx, a.root)
	})
	if err != nil {
		if ctx.Err() == nil {
			a.log.Warn("Unimported analysis failed, continuing with other checks: %v", err)
		}
		return nil
	}
	return findings
}

func (a *Analyzer) detectDependencies(ctx context.Context, sc *scanner.Scanner, files []string, fingerprint string) *detector.DependencyFindings {
	a.log.Info("📦 Analyzing package dependencies...")

	strategy := detector.Strategy{
		Fallback: &usage.Detector{
			Files:  files,
			Source: source.NewFilesystem(),
			Options: manifest.Options{
				SkipDev:  a.cfg.Dependencies.SkipDevDependencies,
				SkipPeer: a.cfg.Dependencies.IgnorePeerDependencies,
			},
			Log: a.log,
		},
		Log: a.log,
	}
	if !a.cfg.Analysis.SkipDepcheck {
		strategy.Primary = cachedDependencies{a: a, inner: a.deps, fingerprint: fingerprint}
	} else {
		a.log.Debug("depcheck skipped by configuration, using the usage heuristic")
	}

	findings, used, err := strategy.Resolve(ctx, sc.Root())
	if err != nil {
		if ctx.Err() == nil {
			a.log.Warn("Dependency analysis failed: %v", err)
		}
		return nil
	}
	a.log.Debug("dependency findings from %s", used)
	return findings
}

// cachedDependencies puts the cache in front of the primary detector only;
// the fallback is cheap and always reruns.
type cachedDependencies struct {
	a           *Analyzer
	inner       detector.DependencyDetector
	fingerprint string
}

func (c cachedDependencies) Name() string { return c.inner.Name() }

func (c cachedDependencies) DetectDependencies(ctx context.Context, root string) (*detector.DependencyFindings, error) {
	return cached(c.a, "deps:"+c.inner.Name(), c.fingerprint, func() (*detector.DependencyFindings, error) {
		return c.inner.DetectDependencies(ctx, root)
	})
}

// cached consults the cache before running a detector and stores successful
// results after.
func cached[T any](a *Analyzer, key, fingerprint string, run func() (*T, error)) (*T, error) {
	if !a.cache.Enabled() || fingerprint == "" {
		return run()
	}
	key = key + "\x00" + a.root

	if data, ok := a.cache.Lookup(key, fingerprint); ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			a.log.Debug("cache hit for %s", strings.SplitN(key, "\x00", 2)[0])
			return &v, nil
		}
		if err := a.cache.Invalidate(key); err != nil {
			a.log.Debug("drop unreadable cache entry: %v", err)
		}
	}

	v, err := run()
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(v); err == nil {
		if err := a.cache.Store(key, fingerprint, data); err != nil {
			a.log.Debug("cache store failed: %v", err)
		}
	}
	return v, nil
}

// normalizeFiles converts detector paths to slash-separated root-relative
// paths and drops entries that escape the root or that the walker excludes.
func (a *Analyzer) normalizeFiles(sc *scanner.Scanner, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, ok := relativize(a.root, sc.Root(), p)
		if !ok || sc.Excluded(rel) {
			continue
		}
		out = append(out, rel)
	}
	return out
}

// relativize maps p, absolute or relative to root, to a clean slash path
// under root. Both the given and the symlink-resolved root are accepted as
// prefixes of absolute paths.
func relativize(root, resolvedRoot, p string) (string, bool) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", false
	}
	native := filepath.FromSlash(p)
	if filepath.IsAbs(native) {
		var rel string
		var err error
		if scanner.IsWithinRoot(native, resolvedRoot) {
			rel, err = filepath.Rel(resolvedRoot, native)
		} else {
			rel, err = filepath.Rel(root, native)
		}
		if err != nil {
			return "", false
		}
		native = rel
	}
	rel := filepath.ToSlash(filepath.Clean(native))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") || filepath.IsAbs(rel) {
		return "", false
	}
	return rel, true
}

// filterEntries drops import/export entries whose file part is excluded.
// Entries are "path" or "path: detail"; bare module names pass through.
func filterEntries(sc *scanner.Scanner, root string, entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		pathPart, _, _ := strings.Cut(e, ":")
		if rel, ok := relativize(root, sc.Root(), pathPart); ok && strings.Contains(rel, "/") && sc.Excluded(rel) {
			continue
		}
		out = append(out, strings.TrimSpace(e))
	}
	return out
}

// filterDependencies removes names matched by dependencies.customIgnore.
func (a *Analyzer) filterDependencies(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if a.cfg.IgnoresDependency(name) {
			continue
		}
		out = append(out, name)
	}
	return out
}
