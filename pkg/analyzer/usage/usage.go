// Package usage implements the fallback dependency check: a declared
// dependency counts as used when some source file contains its name as a
// quoted string literal, 'name' or "name".
//
// The check is deliberately literal and has known blind spots. It cannot see
// specifiers built at runtime (require(prefix + name)), template-literal
// imports (import(`${name}`)), packages reached only through re-exports of
// other packages, or references outside the scanned source files such as
// build configs, package.json scripts and CLI binaries. A name that appears
// quoted for any other reason (a log message, a test fixture) counts as used.
package usage

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/panbanda/unused-cleaner/internal/fileproc"
	"github.com/panbanda/unused-cleaner/internal/manifest"
	"github.com/panbanda/unused-cleaner/pkg/analyzer/detector"
	"github.com/panbanda/unused-cleaner/pkg/source"
)

// References reports whether content mentions name as a quoted literal.
// Matching is on the whole quoted string, so 'lodash.merge' does not
// reference lodash.
func References(content []byte, name string) bool {
	if name == "" {
		return false
	}
	return bytes.Contains(content, []byte("'"+name+"'")) ||
		bytes.Contains(content, []byte(`"`+name+`"`))
}

// Unused returns the names in deps that no file references, sorted. Files
// are read concurrently from src; unreadable files are reported to onError
// and otherwise ignored.
func Unused(ctx context.Context, deps, files []string, src source.ContentSource, onError fileproc.ErrorFunc) ([]string, error) {
	if len(deps) == 0 {
		return []string{}, nil
	}

	perFile, err := fileproc.Map(ctx, files, 0, func(path string) ([]string, error) {
		content, err := src.Read(path)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, dep := range deps {
			if References(content, dep) {
				found = append(found, dep)
			}
		}
		return found, nil
	}, onError)
	if err != nil {
		return nil, err
	}

	used := make(map[string]struct{}, len(deps))
	for _, found := range perFile {
		for _, dep := range found {
			used[dep] = struct{}{}
		}
	}

	unused := make([]string, 0, len(deps))
	seen := make(map[string]struct{}, len(deps))
	for _, dep := range deps {
		if _, ok := used[dep]; ok {
			continue
		}
		if _, ok := seen[dep]; ok {
			continue
		}
		seen[dep] = struct{}{}
		unused = append(unused, dep)
	}
	sort.Strings(unused)
	return unused, nil
}

// Detector runs the heuristic as a detector.DependencyDetector over a fixed
// file list. It never reports missing dependencies.
type Detector struct {
	Files   []string
	Source  source.ContentSource
	Options manifest.Options
	Log     detector.Logger
}

func (d *Detector) Name() string { return "usage heuristic" }

// DetectDependencies reads the manifest under root and checks every declared
// dependency. A manifest that cannot be read yields no findings and a warning.
func (d *Detector) DetectDependencies(ctx context.Context, root string) (*detector.DependencyFindings, error) {
	log := d.Log
	if log == nil {
		log = detector.NopLogger
	}
	src := d.Source
	if src == nil {
		src = source.NewFilesystem()
	}

	m, err := manifest.Read(root)
	if err != nil {
		log.Warn("Dependency analysis completely failed: %v", err)
		return &detector.DependencyFindings{Unused: []string{}, Missing: []string{}}, nil
	}

	deps := manifest.Names(m.Declared(d.Options))
	unused, err := Unused(ctx, deps, d.Files, src, func(path string, err error) {
		log.Warn("Skipping unreadable file %s: %v", path, err)
	})
	if err != nil {
		return nil, fmt.Errorf("usage scan: %w", err)
	}

	log.Debug("usage heuristic checked %d dependencies across %d files", len(deps), len(d.Files))
	return &detector.DependencyFindings{Unused: unused, Missing: []string{}}, nil
}
