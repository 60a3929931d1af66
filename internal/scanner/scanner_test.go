package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/unused-cleaner/internal/testutil"
	"github.com/panbanda/unused-cleaner/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relAll(s *Scanner, files []string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = s.Rel(f)
	}
	return out
}

func TestNewScanner(t *testing.T) {
	// With nil config
	s, err := NewScanner(nil, t.TempDir())
	require.NoError(t, err)
	if s.config == nil {
		t.Error("scanner.config should not be nil when passing nil")
	}

	// With explicit config
	cfg := config.DefaultConfig()
	s, err = NewScanner(cfg, t.TempDir())
	require.NoError(t, err)
	if s.config != cfg {
		t.Error("scanner.config should be the provided config")
	}
	assert.True(t, filepath.IsAbs(s.Root()))
}

func TestNewScanner_MissingRoot(t *testing.T) {
	_, err := NewScanner(nil, "/nonexistent/path/that/does/not/exist")
	assert.Error(t, err)
}

func TestScanDir(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"src/index.js":                  "",
		"src/App.tsx":                   "",
		"src/components/Button.vue":     "",
		"src/components/Card.svelte":    "",
		"src/util.ts":                   "",
		"README.md":                     "",
		"package.json":                  "{}",
		"node_modules/lodash/index.js":  "",
		"dist/bundle.js":                "",
		"build/out.js":                  "",
		".cache/tmp.js":                 "",
		"src/.hidden/secret.js":         "",
		"coverage/lcov-report/index.js": "",
		"src/util.test.ts":              "",
		"src/util.spec.js":              "",
		"src/__tests__/a.js":            "",
		"src/Button.stories.tsx":        "",
	})

	s, err := NewScanner(config.DefaultConfig(), tmpDir)
	require.NoError(t, err)

	files, err := s.ScanDir()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"src/App.tsx",
		"src/components/Button.vue",
		"src/components/Card.svelte",
		"src/index.js",
		"src/util.ts",
	}, relAll(s, files))
}

func TestScanDir_UserIgnoreKeepsNodeModulesOut(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"src/index.js":                   "",
		"node_modules/lodash/index.js":   "",
		"packages/a/node_modules/x/y.js": "",
		"dist/bundle.js":                 "",
	})

	cfg := config.DefaultConfig()
	cfg.Ignore = []string{"dist/**"}

	s, err := NewScanner(cfg, tmpDir)
	require.NoError(t, err)

	files, err := s.ScanDir()
	require.NoError(t, err)
	assert.Equal(t, []string{"src/index.js"}, relAll(s, files))

	sources, err := s.ScanSources()
	require.NoError(t, err)
	assert.Equal(t, []string{"src/index.js"}, relAll(s, sources))

	assert.True(t, s.Excluded("node_modules/lodash/index.js"))
	assert.True(t, s.ExcludedSource("packages/a/node_modules/x/y.js"))
	assert.False(t, s.Excluded("src/index.js"))
}

func TestScanSources_IgnoresFilesSection(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"src/index.js":           "",
		"src/index.test.js":      "",
		"src/__tests__/a.js":     "",
		"src/Button.stories.tsx": "",
		"legacy/old.js":          "",
		"dist/bundle.js":         "",
	})

	cfg := config.DefaultConfig()
	cfg.Files.CustomIgnore = []string{"legacy/**"}

	s, err := NewScanner(cfg, tmpDir)
	require.NoError(t, err)

	files, err := s.ScanDir()
	require.NoError(t, err)
	assert.Equal(t, []string{"src/index.js"}, relAll(s, files))

	sources, err := s.ScanSources()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"legacy/old.js",
		"src/Button.stories.tsx",
		"src/__tests__/a.js",
		"src/index.js",
		"src/index.test.js",
	}, relAll(s, sources))

	assert.True(t, s.Excluded("src/index.test.js"))
	assert.False(t, s.ExcludedSource("src/index.test.js"))
	assert.True(t, s.ExcludedSource("dist/bundle.js"))
}

func TestScanDir_IncludeTests(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"src/util.ts":            "",
		"src/util.test.ts":       "",
		"src/Button.stories.tsx": "",
	})

	cfg := config.DefaultConfig()
	cfg.Files.IncludeTests = true

	s, err := NewScanner(cfg, tmpDir)
	require.NoError(t, err)
	files, err := s.ScanDir()
	require.NoError(t, err)

	assert.Equal(t, []string{"src/util.test.ts", "src/util.ts"}, relAll(s, files))
}

func TestScanDir_CustomIgnoreAndExtensions(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"src/a.ts":        "",
		"src/b.js":        "",
		"legacy/old.ts":   "",
		"src/gen/x.ts":    "",
		"scripts/tool.ts": "",
	})

	cfg := config.DefaultConfig()
	cfg.Extensions = []string{".ts"}
	cfg.Files.CustomIgnore = []string{"legacy/**", "**/gen/**"}

	s, err := NewScanner(cfg, tmpDir)
	require.NoError(t, err)
	files, err := s.ScanDir()
	require.NoError(t, err)

	assert.Equal(t, []string{"scripts/tool.ts", "src/a.ts"}, relAll(s, files))
}

func TestScanDir_Gitignore(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		".gitignore":       "generated/\n",
		"src/a.ts":         "",
		"generated/api.ts": "",
	})

	cfg := config.DefaultConfig()
	s, err := NewScanner(cfg, tmpDir)
	require.NoError(t, err)
	files, err := s.ScanDir()
	require.NoError(t, err)
	assert.Len(t, files, 2, ".gitignore is not read unless enabled")

	cfg.GitignoreFiles = true
	s, err = NewScanner(cfg, tmpDir)
	require.NoError(t, err)
	files, err = s.ScanDir()
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.ts"}, relAll(s, files))
}

func TestScanDir_SymlinkedDirectoryNotFollowed(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"src/a.js": "",
	})
	// Self-referential loop: src/loop -> src
	if err := os.Symlink(filepath.Join(tmpDir, "src"), filepath.Join(tmpDir, "src", "loop")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	s, err := NewScanner(nil, tmpDir)
	require.NoError(t, err)
	files, err := s.ScanDir()
	require.NoError(t, err)

	assert.Equal(t, []string{"src/a.js"}, relAll(s, files))
}

func TestScanDir_FileSymlinkOutsideRoot(t *testing.T) {
	outside := t.TempDir()
	testutil.WriteFile(t, filepath.Join(outside, "ext.js"), "")

	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"src/a.js": "",
		"src/b.js": "",
	})
	if err := os.Symlink(filepath.Join(outside, "ext.js"), filepath.Join(tmpDir, "src", "ext.js")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	if err := os.Symlink(filepath.Join(tmpDir, "src", "a.js"), filepath.Join(tmpDir, "src", "alias.js")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	s, err := NewScanner(nil, tmpDir)
	require.NoError(t, err)
	files, err := s.ScanDir()
	require.NoError(t, err)

	assert.Equal(t, []string{"src/a.js", "src/alias.js", "src/b.js"}, relAll(s, files))
}

func TestExcluded(t *testing.T) {
	s, err := NewScanner(config.DefaultConfig(), t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		path string
		want bool
	}{
		{"src/index.js", false},
		{"node_modules/lodash/index.js", true},
		{"packages/app/node_modules/x/index.js", true},
		{"dist/main.js", true},
		{".storybook/main.js", true},
		{"src/.internal/a.js", true},
		{"src/a.test.js", true},
		{"src/__tests__/a.js", true},
		{"../outside.js", true},
		{"/etc/passwd", true},
		{"src/../src/index.js", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Excluded(tt.path))
		})
	}
}

func TestIsWithinRoot(t *testing.T) {
	tests := []struct {
		name string
		path string
		root string
		want bool
	}{
		{"file in root", "/project/src/a.js", "/project", true},
		{"root itself", "/project", "/project", true},
		{"sibling with prefix", "/project2/a.js", "/project", false},
		{"parent traversal", "/project/../etc/passwd", "/project", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWithinRoot(tt.path, tt.root))
		})
	}
}
