// Package detector adapts the external analyzers (unimported, depcheck) to
// typed findings and chooses between a primary and a fallback dependency
// detector.
package detector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panbanda/unused-cleaner/internal/runner"
)

// ErrMalformedOutput is returned when a detector's output does not parse or
// does not match its expected shape.
var ErrMalformedOutput = errors.New("malformed detector output")

// FileFindings is what a file detector reports. Paths are as printed by the
// tool and still need normalizing against the project root.
type FileFindings struct {
	UnusedFiles   []string
	UnusedImports []string
	UnusedExports []string
}

// DependencyFindings is what a dependency detector reports.
type DependencyFindings struct {
	Unused  []string
	Missing []string
}

// FileDetector finds unused files and imports.
type FileDetector interface {
	Name() string
	DetectFiles(ctx context.Context, root string) (*FileFindings, error)
}

// DependencyDetector finds unused and missing dependencies.
type DependencyDetector interface {
	Name() string
	DetectDependencies(ctx context.Context, root string) (*DependencyFindings, error)
}

// Logger receives detector diagnostics. *output.Console satisfies it.
type Logger interface {
	Warn(format string, args ...any)
	Debug(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}

// NopLogger discards diagnostics.
var NopLogger Logger = nopLogger{}

// Strategy selects a dependency detector: the primary runs first and the
// fallback runs only when the primary is absent or fails.
type Strategy struct {
	Primary  DependencyDetector
	Fallback DependencyDetector
	Log      Logger
}

// Resolve returns the findings and the name of the detector that produced
// them.
func (s Strategy) Resolve(ctx context.Context, root string) (*DependencyFindings, string, error) {
	log := s.Log
	if log == nil {
		log = NopLogger
	}

	var primaryErr error
	if s.Primary != nil {
		findings, err := s.Primary.DetectDependencies(ctx, root)
		if err == nil {
			return findings, s.Primary.Name(), nil
		}
		primaryErr = err
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		log.Warn("Dependency analysis with %s failed, trying alternative method: %v", s.Primary.Name(), err)
	}

	if s.Fallback == nil {
		if primaryErr != nil {
			return nil, "", primaryErr
		}
		return nil, "", errors.New("no dependency detector configured")
	}

	findings, err := s.Fallback.DetectDependencies(ctx, root)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", s.Fallback.Name(), err)
	}
	return findings, s.Fallback.Name(), nil
}

// npx runs a package binary, installing it on demand without prompting.
func npx(ctx context.Context, r runner.Runner, root string, timeout time.Duration, tool string, args ...string) (runner.Result, error) {
	return r.Run(ctx, runner.Command{
		Name:    "npx",
		Args:    append([]string{"--yes", tool}, args...),
		Dir:     root,
		Timeout: timeout,
	})
}

// acceptOutput decides whether a finished tool run produced usable output.
// Both tools exit non-zero when they find issues, so an exit error is
// tolerated as long as decode succeeds.
func acceptOutput(tool string, res runner.Result, runErr error, decode func([]byte) error) error {
	if runErr != nil {
		var exitErr *runner.ExitError
		if !errors.As(runErr, &exitErr) {
			return fmt.Errorf("%s: %w", tool, runErr)
		}
	}
	if err := decode(res.Stdout); err != nil {
		if runErr != nil {
			return fmt.Errorf("%s: %w", tool, runErr)
		}
		return fmt.Errorf("%s: %w", tool, err)
	}
	return nil
}
