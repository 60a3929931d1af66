// Package pkgmanager removes dependencies with the project's package manager.
package pkgmanager

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/panbanda/unused-cleaner/internal/runner"
)

// Manager names a supported package manager.
type Manager string

const (
	NPM  Manager = "npm"
	Yarn Manager = "yarn"
	PNPM Manager = "pnpm"
)

// uninstallTimeout bounds a single uninstall call. Installs can be slow on a
// cold cache, so this is more generous than the analysis timeout.
const uninstallTimeout = 10 * time.Minute

// lockfiles maps lockfile names to their manager, in detection order.
var lockfiles = []struct {
	name    string
	manager Manager
}{
	{"pnpm-lock.yaml", PNPM},
	{"yarn.lock", Yarn},
	{"package-lock.json", NPM},
	{"npm-shrinkwrap.json", NPM},
}

// Parse converts a config value to a Manager. "auto" and "" detect from the
// project's lockfile.
func Parse(name, root string) (Manager, error) {
	switch name {
	case "", "auto":
		return Detect(root), nil
	case "npm":
		return NPM, nil
	case "yarn":
		return Yarn, nil
	case "pnpm":
		return PNPM, nil
	default:
		return "", fmt.Errorf("unsupported package manager %q", name)
	}
}

// Detect picks the manager whose lockfile is present, defaulting to npm.
func Detect(root string) Manager {
	for _, lf := range lockfiles {
		if _, err := os.Stat(filepath.Join(root, lf.name)); err == nil {
			return lf.manager
		}
	}
	return NPM
}

// UninstallCommand builds the command that removes deps from the manifest
// and node_modules in one call.
func (m Manager) UninstallCommand(root string, deps []string) runner.Command {
	verb := "remove"
	if m == NPM {
		verb = "uninstall"
	}
	return runner.Command{
		Name:    string(m),
		Args:    append([]string{verb}, deps...),
		Dir:     root,
		Timeout: uninstallTimeout,
	}
}

// Uninstaller runs uninstall commands. The package manager's own output is
// streamed to Stdout and Stderr.
type Uninstaller struct {
	Runner  runner.Runner
	Manager Manager
	Stdout  io.Writer
	Stderr  io.Writer
}

// Uninstall removes deps from the project at root.
func (u *Uninstaller) Uninstall(ctx context.Context, root string, deps []string) error {
	if len(deps) == 0 {
		return nil
	}
	cmd := u.Manager.UninstallCommand(root, deps)
	cmd.Stdout = u.Stdout
	cmd.Stderr = u.Stderr

	if _, err := u.Runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("%s: %w", cmd.String(), err)
	}
	return nil
}
