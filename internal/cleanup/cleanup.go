// Package cleanup applies an analysis report to the project: it deletes
// unused files, uninstalls unused dependencies and commits the result.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/panbanda/unused-cleaner/internal/prompt"
	"github.com/panbanda/unused-cleaner/internal/scanner"
	"github.com/panbanda/unused-cleaner/internal/vcs"
	"github.com/panbanda/unused-cleaner/pkg/config"
	"github.com/panbanda/unused-cleaner/pkg/models"
)

// ErrOutsideRoot is recorded for report entries that resolve outside the project.
var ErrOutsideRoot = errors.New("path is outside the project root")

// Stage names one step of a cleanup run.
type Stage string

const (
	StageFiles          Stage = "files"
	StageDependencies   Stage = "dependencies"
	StageVersionControl Stage = "git"
)

// Policy decides whether each stage runs. Interactive asks per stage;
// otherwise AutoDelete covers files and dependencies and AutoPush covers git.
type Policy struct {
	Interactive bool
	AutoDelete  bool
	AutoPush    bool
}

// Logger receives cleanup progress. *output.Console satisfies it.
type Logger interface {
	Info(format string, args ...any)
	Success(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Uninstaller removes dependencies from a project.
type Uninstaller interface {
	Uninstall(ctx context.Context, root string, deps []string) error
}

// Repository is the version-control client used by the git stage.
type Repository interface {
	HasChanges() (bool, error)
	StageAll() error
	Commit(message string, author vcs.Author) (string, error)
	Push(ctx context.Context, remote, defaultBranch string) (string, error)
}

// FileFailure is a file that could not be deleted.
type FileFailure struct {
	Path string
	Err  error
}

// Result records what a cleanup run did.
type Result struct {
	Deleted             []string
	Failed              []FileFailure
	DependenciesRemoved []string
	CommitHash          string
	PushedBranch        string
	Errors              map[Stage]error
}

// Pushed reports whether the git stage completed.
func (r *Result) Pushed() bool {
	return r.PushedBranch != ""
}

func (r *Result) fail(stage Stage, err error) {
	if r.Errors == nil {
		r.Errors = make(map[Stage]error)
	}
	r.Errors[stage] = err
}

// Orchestrator sequences the cleanup stages for one project root.
type Orchestrator struct {
	root     string
	cfg      *config.Config
	policy   Policy
	dryRun   bool
	message  string
	prompt   prompt.Confirmer
	log      Logger
	packages Uninstaller
	openRepo func(root string) (Repository, error)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPolicy sets the per-stage decision policy.
func WithPolicy(p Policy) Option {
	return func(o *Orchestrator) {
		o.policy = p
	}
}

// WithDryRun logs decided actions without performing them.
func WithDryRun(dryRun bool) Option {
	return func(o *Orchestrator) {
		o.dryRun = dryRun
	}
}

// WithCommitMessage overrides the configured commit message.
func WithCommitMessage(msg string) Option {
	return func(o *Orchestrator) {
		o.message = msg
	}
}

// WithPrompt sets how interactive decisions are asked.
func WithPrompt(c prompt.Confirmer) Option {
	return func(o *Orchestrator) {
		o.prompt = c
	}
}

// WithLogger sets where progress goes.
func WithLogger(l Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

// WithUninstaller sets the package-manager client.
func WithUninstaller(u Uninstaller) Option {
	return func(o *Orchestrator) {
		o.packages = u
	}
}

// WithRepository sets how the project's working copy is opened. A non-nil
// error means the root is not under version control.
func WithRepository(open func(root string) (Repository, error)) Option {
	return func(o *Orchestrator) {
		o.openRepo = open
	}
}

// New creates an orchestrator for root. root should be the resolved
// absolute project root the report was produced for.
func New(root string, cfg *config.Config, opts ...Option) *Orchestrator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	o := &Orchestrator{
		root: root,
		cfg:  cfg,
		openRepo: func(root string) (Repository, error) {
			return vcs.Open(root)
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = nopLogger{}
	}
	return o
}

// Run applies the report. Stage failures are logged and recorded in the
// result; Run itself only fails when ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, report *models.AnalysisReport) (*Result, error) {
	res := &Result{}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	if len(report.UnusedFiles) > 0 {
		if o.decide(fmt.Sprintf("Delete %d unused files?", len(report.UnusedFiles)), o.policy.AutoDelete) {
			o.deleteFiles(report.UnusedFiles, res)
		}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	if len(report.UnusedDependencies) > 0 {
		if o.decide(fmt.Sprintf("Remove %d unused dependencies?", len(report.UnusedDependencies)), o.policy.AutoDelete) {
			o.removeDependencies(ctx, report.UnusedDependencies, res)
		}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	repo, err := o.openRepo(o.root)
	if errors.Is(err, vcs.ErrNotRepository) {
		if o.policy.Interactive || o.policy.AutoPush {
			o.log.Info("Not a Git repository, skipping Git operations")
		}
		return res, nil
	}
	if !o.decide("Commit and push changes to Git?", o.policy.AutoPush) {
		return res, ctx.Err()
	}
	if err != nil {
		res.fail(StageVersionControl, err)
		o.log.Error("❌ Git operations failed: %v", err)
		return res, nil
	}
	o.commitAndPush(ctx, repo, res)
	return res, ctx.Err()
}

func (o *Orchestrator) decide(question string, auto bool) bool {
	if !o.policy.Interactive {
		return auto
	}
	if o.prompt == nil {
		return false
	}
	ok, err := o.prompt.Confirm(question)
	if err != nil {
		o.log.Warn("Could not read answer: %v", err)
		return false
	}
	return ok
}

func (o *Orchestrator) deleteFiles(files []string, res *Result) {
	o.log.Info("\n🗑️  Deleting %d files...", len(files))

	root := o.root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	for _, file := range files {
		path, err := confine(root, file)
		if err != nil {
			o.recordFailure(res, file, err)
			continue
		}

		if o.dryRun {
			o.log.Info("  Would delete: %s", file)
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			o.recordFailure(res, file, err)
			continue
		}
		res.Deleted = append(res.Deleted, file)
		o.log.Success("  ✅ Deleted: %s", file)
	}

	if len(res.Failed) > 0 {
		res.fail(StageFiles, fmt.Errorf("%d of %d files could not be deleted", len(res.Failed), len(files)))
	}
}

// confine maps a root-relative report path to the path to remove. Symlinks
// in its parent directories are resolved first, so a link inside the root
// cannot lead a deletion outside it. The final element is not followed.
func confine(root, file string) (string, error) {
	path := filepath.Join(root, filepath.FromSlash(file))
	if path == root || !scanner.IsWithinRoot(path, root) {
		return "", ErrOutsideRoot
	}

	dir, err := filepath.EvalSymlinks(filepath.Dir(path))
	if errors.Is(err, os.ErrNotExist) {
		// Nothing to remove; os.Remove reports it as already gone.
		return path, nil
	}
	if err != nil {
		return "", err
	}
	path = filepath.Join(dir, filepath.Base(path))
	if !scanner.IsWithinRoot(path, root) {
		return "", ErrOutsideRoot
	}
	return path, nil
}

func (o *Orchestrator) recordFailure(res *Result, file string, err error) {
	res.Failed = append(res.Failed, FileFailure{Path: file, Err: err})
	o.log.Error("  ❌ Failed to delete %s: %v", file, err)
}

func (o *Orchestrator) removeDependencies(ctx context.Context, deps []string, res *Result) {
	o.log.Info("\n📦 Removing %d unused dependencies...", len(deps))

	if o.dryRun {
		for _, dep := range deps {
			o.log.Info("  Would remove: %s", dep)
		}
		return
	}
	if o.packages == nil {
		err := errors.New("no package manager configured")
		res.fail(StageDependencies, err)
		o.log.Error("❌ Failed to remove dependencies: %v", err)
		return
	}

	if err := o.packages.Uninstall(ctx, o.root, deps); err != nil {
		res.fail(StageDependencies, err)
		o.log.Error("❌ Failed to remove dependencies: %v", err)
		return
	}
	res.DependenciesRemoved = append(res.DependenciesRemoved, deps...)
	o.log.Success("✅ Dependencies removed successfully")
}

func (o *Orchestrator) commitAndPush(ctx context.Context, repo Repository, res *Result) {
	message := o.cfg.CommitMessage(o.message)
	git := o.cfg.Git

	if o.dryRun {
		o.log.Info("Would commit %q and push to %s", message, git.Remote)
		return
	}

	err := func() error {
		o.log.Info("\n🔄 Committing changes...")
		changed, err := repo.HasChanges()
		if err != nil {
			return err
		}
		if changed {
			if err := repo.StageAll(); err != nil {
				return err
			}
			hash, err := repo.Commit(message, vcs.Author{Name: git.AuthorName, Email: git.AuthorEmail})
			if err != nil {
				return err
			}
			res.CommitHash = hash
		} else {
			o.log.Info("No changes to commit")
		}

		o.log.Info("📤 Pushing to remote...")
		branch, err := repo.Push(ctx, git.Remote, git.DefaultBranch)
		if err != nil {
			return err
		}
		res.PushedBranch = branch
		return nil
	}()
	if err != nil {
		res.fail(StageVersionControl, err)
		o.log.Error("❌ Git operations failed: %v", err)
		return
	}
	o.log.Success("✅ Changes pushed successfully")
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)    {}
func (nopLogger) Success(string, ...any) {}
func (nopLogger) Warn(string, ...any)    {}
func (nopLogger) Error(string, ...any)   {}
