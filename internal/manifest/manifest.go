// Package manifest reads the dependency declarations of a package.json.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Filename is the project manifest every analyzed project must have.
const Filename = "package.json"

// ErrNoManifest is returned when the project root has no package.json.
var ErrNoManifest = errors.New("no package.json found in the specified directory")

// Kind classifies a declared dependency.
type Kind string

const (
	KindRuntime     Kind = "runtime"
	KindDevelopment Kind = "development"
	KindPeer        Kind = "peer"
)

// Dependency is a package name declared in the manifest.
type Dependency struct {
	Name string
	Kind Kind
}

// Manifest is the subset of package.json the analysis needs.
// optionalDependencies are left out: they are often platform-only and never
// imported on the machine running the analysis.
type Manifest struct {
	Name             string            `json:"name"`
	Version          string            `json:"version"`
	Dependencies     map[string]string `json:"dependencies"`
	DevDependencies  map[string]string `json:"devDependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
}

// Path returns the manifest location for a project root.
func Path(root string) string {
	return filepath.Join(root, Filename)
}

// Exists reports whether the project root has a manifest.
func Exists(root string) bool {
	info, err := os.Stat(Path(root))
	return err == nil && !info.IsDir()
}

// Read parses the manifest in the project root.
func Read(root string) (*Manifest, error) {
	data, err := os.ReadFile(Path(root))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoManifest, root)
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes manifest JSON.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", Filename, err)
	}
	return &m, nil
}

// Options selects which dependency groups Declared returns.
type Options struct {
	SkipDev  bool
	SkipPeer bool
}

// Declared returns the declared dependencies sorted by name. A name declared
// in several groups is reported once, with the first kind in runtime,
// development, peer order.
func (m *Manifest) Declared(opts Options) []Dependency {
	seen := make(map[string]bool)
	var deps []Dependency

	add := func(group map[string]string, kind Kind) {
		names := make([]string, 0, len(group))
		for name := range group {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			deps = append(deps, Dependency{Name: name, Kind: kind})
		}
	}

	add(m.Dependencies, KindRuntime)
	if !opts.SkipDev {
		add(m.DevDependencies, KindDevelopment)
	}
	if !opts.SkipPeer {
		add(m.PeerDependencies, KindPeer)
	}

	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })
	return deps
}

// Names returns just the dependency names.
func Names(deps []Dependency) []string {
	names := make([]string, len(deps))
	for i, d := range deps {
		names[i] = d.Name
	}
	return names
}
