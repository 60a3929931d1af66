package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/panbanda/unused-cleaner/internal/runner"
	"github.com/panbanda/unused-cleaner/internal/testutil"
	"github.com/panbanda/unused-cleaner/pkg/config"
	"github.com/panbanda/unused-cleaner/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const (
	unimportedOut = `{"unusedFiles": ["src/unused.js"], "unusedImports": []}`
	depcheckOut   = `{"dependencies": [], "devDependencies": ["unused-package"], "missing": {}}`
)

// fakeRunner answers npx detector calls with canned output and records
// every other command.
type fakeRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	other   []runner.Command
}

func (f *fakeRunner) Run(ctx context.Context, cmd runner.Command) (runner.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cmd.Name == "npx" {
		out, ok := f.outputs[cmd.Args[1]]
		if !ok {
			return runner.Result{ExitCode: -1}, &exec.Error{Name: "npx", Err: exec.ErrNotFound}
		}
		return runner.Result{Stdout: []byte(out)}, nil
	}
	f.other = append(f.other, cmd)
	return runner.Result{}, nil
}

func (f *fakeRunner) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.other {
		out = append(out, c.String())
	}
	return out
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{outputs: map[string]string{
		"unimported": unimportedOut,
		"depcheck":   depcheckOut,
	}}
}

// run executes the app with args and returns its stdout.
func run(t *testing.T, r runner.Runner, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.Reader = strings.NewReader(stdin)
	if r != nil {
		app.Metadata[runnerKey] = r
	}
	err := app.RunContext(context.Background(), append([]string{"unused-cleaner"}, args...))
	return stdout.String(), err
}

func readReport(t *testing.T, path string) *models.AnalysisReport {
	t.Helper()
	var rep models.AnalysisReport
	require.NoError(t, json.Unmarshal([]byte(testutil.ReadFile(t, path)), &rep))
	return &rep
}

func TestAnalyze_NonInteractiveReportsOnly(t *testing.T) {
	root := testutil.SampleProject(t)
	reportPath := filepath.Join(t.TempDir(), "out.json")
	fake := newFakeRunner()

	out, err := run(t, fake, "", "analyze", "--path", root, "--no-interactive", "--output", "json", "--report", reportPath)
	require.NoError(t, err)

	rep := readReport(t, reportPath)
	assert.Equal(t, []string{"src/unused.js"}, rep.UnusedFiles)
	assert.Equal(t, []string{"unused-package"}, rep.UnusedDependencies)
	assert.Equal(t, 2, rep.TotalFilesScanned)

	assert.True(t, testutil.FileExists(filepath.Join(root, "src/unused.js")))
	assert.Empty(t, fake.commands())
	assert.Contains(t, out, "🚀 Starting analysis...")
	assert.Contains(t, out, "JSON report saved to: "+reportPath)
	assert.Contains(t, out, "✨ Analysis completed successfully!")
	assert.NotContains(t, out, "already clean")
}

func TestAnalyze_AutoDelete(t *testing.T) {
	root := testutil.SampleProject(t)
	fake := newFakeRunner()

	_, err := run(t, fake, "", "analyze", "-p", root, "--no-interactive", "--auto-delete", "-o", "console")
	require.NoError(t, err)

	assert.Equal(t, []string{"package.json", "src/index.js"}, testutil.ListFiles(t, root))
	assert.Equal(t, []string{"npm uninstall unused-package"}, fake.commands())
}

func TestAnalyze_DryRun(t *testing.T) {
	root := testutil.SampleProject(t)
	fake := newFakeRunner()

	out, err := run(t, fake, "", "analyze", "-p", root, "--no-interactive", "--auto-delete", "--dry-run", "-o", "console")
	require.NoError(t, err)

	assert.True(t, testutil.FileExists(filepath.Join(root, "src/unused.js")))
	assert.Empty(t, fake.commands())
	assert.Contains(t, out, "Would delete: src/unused.js")
}

func TestAnalyze_UsesLockfilePackageManager(t *testing.T) {
	root := testutil.SampleProject(t)
	testutil.WriteFile(t, filepath.Join(root, "yarn.lock"), "")
	fake := newFakeRunner()

	_, err := run(t, fake, "", "analyze", "-p", root, "--interactive=false", "--auto-delete", "-o", "console")
	require.NoError(t, err)
	assert.Equal(t, []string{"yarn remove unused-package"}, fake.commands())
}

func TestAnalyze_MissingManifest(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, "src/index.js"), "")

	_, err := run(t, newFakeRunner(), "", "analyze", "-p", root, "--no-interactive")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no package.json found")
	assert.False(t, testutil.FileExists(filepath.Join(root, "cleanup-report.json")))
}

func TestAnalyze_InvalidOutputFormat(t *testing.T) {
	root := testutil.SampleProject(t)

	_, err := run(t, newFakeRunner(), "", "analyze", "-p", root, "-o", "xml")
	assert.Error(t, err)
}

func TestAnalyze_CleanProject(t *testing.T) {
	root := testutil.NewProject(t, testutil.Manifest{
		Dependencies: map[string]string{"lodash": "^4.17.21"},
	}, map[string]string{
		"src/index.js": "import lodash from 'lodash';\n",
	})
	fake := &fakeRunner{outputs: map[string]string{
		"unimported": `{"unusedFiles": []}`,
		"depcheck":   `{"dependencies": [], "missing": {}}`,
	}}

	out, err := run(t, fake, "", "analyze", "-p", root, "--no-interactive", "-o", "console")
	require.NoError(t, err)
	assert.Contains(t, out, "🎉 Your project is already clean!")
}

func TestScan_IsReadOnly(t *testing.T) {
	root := testutil.SampleProject(t)
	before := testutil.ListFiles(t, root)
	fake := newFakeRunner()

	out, err := run(t, fake, "", "scan", "-p", root)
	require.NoError(t, err)

	assert.Equal(t, before, testutil.ListFiles(t, root), "no report file, no deletions")
	assert.Empty(t, fake.commands())
	assert.Contains(t, out, "src/unused.js")
}

func TestDefault_JSONOnly(t *testing.T) {
	root := testutil.SampleProject(t)
	fake := newFakeRunner()

	out, err := run(t, fake, "", "--json", root)
	require.NoError(t, err)

	rep := readReport(t, filepath.Join(root, "cleanup-report.json"))
	assert.Equal(t, []string{"src/unused.js"}, rep.UnusedFiles)
	assert.NotContains(t, out, "Unused Files")
	assert.Empty(t, fake.commands())
}

func TestDefault_QuickScan(t *testing.T) {
	root := testutil.SampleProject(t)

	out, err := run(t, newFakeRunner(), "", "-q", root)
	require.NoError(t, err)

	assert.Contains(t, out, "Running quick scan")
	assert.False(t, testutil.FileExists(filepath.Join(root, "cleanup-report.json")))
}

func TestDefault_InteractivePrompts(t *testing.T) {
	root := testutil.SampleProject(t)
	fake := newFakeRunner()

	// Yes to deleting files, no to removing dependencies.
	out, err := run(t, fake, "y\nn\n", root)
	require.NoError(t, err)

	assert.Contains(t, out, "Delete 1 unused files?")
	assert.Contains(t, out, "Remove 1 unused dependencies?")
	assert.False(t, testutil.FileExists(filepath.Join(root, "src/unused.js")))
	assert.Empty(t, fake.commands())
	assert.True(t, testutil.FileExists(filepath.Join(root, "cleanup-report.json")))
}

func TestInit(t *testing.T) {
	for _, format := range []string{"json", "yaml", "toml"} {
		t.Run(format, func(t *testing.T) {
			dir := t.TempDir()

			_, err := run(t, nil, "", "init", "-p", dir, "--format", format)
			require.NoError(t, err)

			path := filepath.Join(dir, ".unusedrc."+format)
			cfg, err := config.Load(path)
			require.NoError(t, err)
			want := config.DefaultConfig()
			assert.Equal(t, want.Ignore, cfg.Ignore)
			assert.Equal(t, want.Extensions, cfg.Extensions)
			assert.Equal(t, want.Dependencies.CustomIgnore, cfg.Dependencies.CustomIgnore)
			assert.Equal(t, want.Git, cfg.Git)
			assert.Equal(t, want.Analysis, cfg.Analysis)
			assert.Equal(t, want.Cache.TTL, cfg.Cache.TTL)

			_, err = run(t, nil, "", "init", "-p", dir, "--format", format)
			assert.Error(t, err, "existing file needs --force")

			_, err = run(t, nil, "", "init", "-p", dir, "--format", format, "--force")
			assert.NoError(t, err)
		})
	}
}

func TestInit_UnknownFormat(t *testing.T) {
	_, err := run(t, nil, "", "init", "-p", t.TempDir(), "--format", "ini")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, ".unusedrc.json")
	testutil.WriteFile(t, good, `{"git": {"remote": "upstream"}}`)

	out, err := run(t, nil, "", "config", "validate", "-p", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid: "+good)

	bad := filepath.Join(dir, "bad.json")
	testutil.WriteFile(t, bad, `{"analysis": {"timeout": -1}}`)
	_, err = run(t, nil, "", "-c", bad, "config", "validate")
	assert.Error(t, err)
}

func TestConfigShow(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, ".unusedrc.yaml"), "git:\n  remote: upstream\n")

	out, err := run(t, nil, "", "config", "show", "-p", dir, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "# Configuration from:")
	assert.Contains(t, out, "remote: upstream")
}

func TestReportHTML(t *testing.T) {
	root := testutil.SampleProject(t)
	_, err := run(t, newFakeRunner(), "", "--json", root)
	require.NoError(t, err)

	input := filepath.Join(root, "cleanup-report.json")
	_, err = run(t, nil, "", "report", "html", "-i", input)
	require.NoError(t, err)

	html := testutil.ReadFile(t, filepath.Join(root, "cleanup-report.html"))
	assert.Contains(t, html, "src/unused.js")

	out, err := run(t, nil, "", "report", "show", "-i", input)
	require.NoError(t, err)
	assert.Contains(t, out, "unused-package")
}

func TestCache(t *testing.T) {
	root := testutil.SampleProject(t)
	cacheDir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "cfg.json")
	testutil.WriteFile(t, cfgPath, `{"cache": {"enabled": true, "dir": "`+filepath.ToSlash(cacheDir)+`"}}`)

	_, err := run(t, newFakeRunner(), "", "-c", cfgPath, "--json", root)
	require.NoError(t, err)

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	out, err := run(t, nil, "", "-c", cfgPath, "cache", "stats", "-p", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Cache directory: "+cacheDir)

	_, err = run(t, nil, "", "-c", cfgPath, "cache", "clear", "-p", root)
	require.NoError(t, err)
	assert.False(t, testutil.FileExists(cacheDir))
}

func TestNewApp_Commands(t *testing.T) {
	app := newApp()
	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.Equal(t, []string{"analyze", "scan", "init", "config", "report", "cache"}, names)

	var flags []string
	for _, f := range app.Flags {
		flags = append(flags, f.Names()[0])
	}
	assert.Subset(t, flags, []string{"config", "verbose", "no-color", "cache", "quick", "json"})
}

var _ cli.ActionFunc = runDefault
