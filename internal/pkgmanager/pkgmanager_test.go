package pkgmanager

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/panbanda/unused-cleaner/internal/runner"
	"github.com/panbanda/unused-cleaner/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  Manager
	}{
		{"no lockfile", nil, NPM},
		{"npm", []string{"package-lock.json"}, NPM},
		{"yarn", []string{"yarn.lock"}, Yarn},
		{"pnpm", []string{"pnpm-lock.yaml"}, PNPM},
		{"pnpm wins over npm", []string{"package-lock.json", "pnpm-lock.yaml"}, PNPM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			for _, f := range tt.files {
				testutil.WriteFile(t, filepath.Join(root, f), "")
			}
			assert.Equal(t, tt.want, Detect(root))
		})
	}
}

func TestParse(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, "yarn.lock"), "")

	m, err := Parse("auto", root)
	require.NoError(t, err)
	assert.Equal(t, Yarn, m)

	m, err = Parse("pnpm", root)
	require.NoError(t, err)
	assert.Equal(t, PNPM, m)

	_, err = Parse("bun", root)
	assert.Error(t, err)
}

func TestUninstallCommand(t *testing.T) {
	cmd := NPM.UninstallCommand("/p", []string{"a", "b"})
	assert.Equal(t, "npm", cmd.Name)
	assert.Equal(t, []string{"uninstall", "a", "b"}, cmd.Args)
	assert.Equal(t, "/p", cmd.Dir)
	assert.Positive(t, cmd.Timeout)

	assert.Equal(t, []string{"remove", "a"}, Yarn.UninstallCommand("/p", []string{"a"}).Args)
	assert.Equal(t, "pnpm remove a", PNPM.UninstallCommand("/p", []string{"a"}).String())
}

func TestUninstall(t *testing.T) {
	var calls []runner.Command
	u := &Uninstaller{
		Manager: NPM,
		Runner: runner.Func(func(ctx context.Context, cmd runner.Command) (runner.Result, error) {
			calls = append(calls, cmd)
			return runner.Result{}, nil
		}),
	}

	require.NoError(t, u.Uninstall(context.Background(), "/p", []string{"left-pad", "unused-package"}))
	require.Len(t, calls, 1, "one call for the whole list")
	assert.Equal(t, []string{"uninstall", "left-pad", "unused-package"}, calls[0].Args)

	require.NoError(t, u.Uninstall(context.Background(), "/p", nil))
	assert.Len(t, calls, 1, "nothing to remove, nothing run")
}

func TestUninstall_Failure(t *testing.T) {
	u := &Uninstaller{
		Manager: Yarn,
		Runner: runner.Func(func(ctx context.Context, cmd runner.Command) (runner.Result, error) {
			return runner.Result{ExitCode: 1}, &runner.ExitError{Name: "yarn", Code: 1}
		}),
	}

	err := u.Uninstall(context.Background(), "/p", []string{"a"})
	require.Error(t, err)
	var exitErr *runner.ExitError
	assert.True(t, errors.As(err, &exitErr))
	assert.Contains(t, err.Error(), "yarn remove a")
}
