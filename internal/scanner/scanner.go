package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/unused-cleaner/pkg/config"
)

// Scanner finds source files under a project root.
type Scanner struct {
	config  *config.Config
	root    string
	matcher gitignore.Matcher
	// sources skips only the global ignore list, for the usage scan.
	sources gitignore.Matcher
}

// NewScanner creates a scanner for root. Ignore globs from the config are
// parsed with gitignore syntax; the project's .gitignore files are added when
// config.GitignoreFiles is set.
func NewScanner(cfg *config.Config, root string) (*Scanner, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	// Resolve any symlinks in the root path
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s := &Scanner{config: cfg, root: absRoot}
	s.loadExcludePatterns()
	return s, nil
}

// Root returns the resolved absolute project root.
func (s *Scanner) Root() string {
	return s.root
}

// loadExcludePatterns builds the matchers from config globs and, optionally,
// the .gitignore files in the tree.
func (s *Scanner) loadExcludePatterns() {
	var gitPatterns []gitignore.Pattern
	if s.config.GitignoreFiles {
		if ps, err := gitignore.ReadPatterns(osfs.New(s.root), nil); err == nil {
			gitPatterns = ps
		}
	}
	s.matcher = buildMatcher(s.config.IgnorePatterns(), gitPatterns)
	s.sources = buildMatcher(s.config.SourceIgnorePatterns(), gitPatterns)
}

func buildMatcher(globs []string, extra []gitignore.Pattern) gitignore.Matcher {
	patterns := make([]gitignore.Pattern, 0, len(globs)+len(extra))
	for _, g := range globs {
		patterns = append(patterns, gitignore.ParsePattern(g, nil))
	}
	patterns = append(patterns, extra...)
	return gitignore.NewMatcher(patterns)
}

// skipDir reports whether a directory is never walked, whatever the ignore
// globs say: hidden directories and installed packages.
func skipDir(name string) bool {
	if name == "node_modules" {
		return true
	}
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// Excluded reports whether a root-relative file path would be skipped by
// ScanDir: it lies under a hidden, node_modules or ignored directory, matches
// an ignore glob, or escapes the root.
func (s *Scanner) Excluded(relPath string) bool {
	return excluded(s.matcher, relPath)
}

// ExcludedSource is Excluded for the file set returned by ScanSources.
func (s *Scanner) ExcludedSource(relPath string) bool {
	return excluded(s.sources, relPath)
}

func excluded(m gitignore.Matcher, relPath string) bool {
	relPath = filepath.ToSlash(filepath.Clean(filepath.FromSlash(relPath)))
	if relPath == "." || relPath == ".." || strings.HasPrefix(relPath, "../") || filepath.IsAbs(relPath) {
		return true
	}

	parts := strings.Split(relPath, "/")
	for i := 0; i < len(parts)-1; i++ {
		if skipDir(parts[i]) {
			return true
		}
		if m.Match(parts[:i+1], true) {
			return true
		}
	}
	return m.Match(parts, false)
}

// ScanDir walks the project root and returns the absolute paths of the
// files under analysis, sorted. Directory symlinks are never followed and
// file symlinks are kept only when they resolve inside the root.
func (s *Scanner) ScanDir() ([]string, error) {
	return s.walk(s.matcher)
}

// ScanSources returns every source file the usage scan reads. It differs
// from ScanDir in ignoring the files section, so test and story files that
// import a package still count as usages.
func (s *Scanner) ScanSources() ([]string, error) {
	return s.walk(s.sources)
}

func (s *Scanner) walk(m gitignore.Matcher) ([]string, error) {
	files := make([]string, 0, 1024)

	walkErr := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal
			if d != nil && d.IsDir() && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		if path == s.root {
			return nil
		}

		relPath, _ := filepath.Rel(s.root, path)
		parts := strings.Split(filepath.ToSlash(relPath), "/")

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, s.root) {
				return nil
			}
			info, err := os.Stat(resolved)
			if err != nil || info.IsDir() {
				return nil
			}
		}

		if d.IsDir() {
			if skipDir(d.Name()) || m.Match(parts, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if m.Match(parts, false) {
			return nil
		}
		if s.config.HasExtension(d.Name()) {
			files = append(files, path)
		}

		return nil
	})

	sort.Strings(files)
	return files, walkErr
}

// Rel converts an absolute path under the root to a slash-separated
// root-relative path.
func (s *Scanner) Rel(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// isWithinRoot checks if a path is contained within the root directory.
// Returns false if the path escapes via symlinks or relative paths.
func isWithinRoot(path, root string) bool {
	// Ensure both are absolute
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// Add separator to prevent "/root2" matching "/root"
	if !strings.HasPrefix(absPath, root+string(filepath.Separator)) && absPath != root {
		return false
	}

	return true
}

// IsWithinRoot is exported for callers that mutate files under the root.
func IsWithinRoot(path, root string) bool {
	return isWithinRoot(path, root)
}
