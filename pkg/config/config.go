package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultCommitMessage is used when neither the CLI nor the config file sets one.
const DefaultCommitMessage = "🧹 Auto-cleanup: removed unused files and dependencies"

// Config holds all configuration options for unused-cleaner.
type Config struct {
	// Glob patterns (gitignore syntax) excluded from scanning and from results
	Ignore []string `koanf:"ignore" json:"ignore" toml:"ignore" yaml:"ignore"`

	// File extensions considered source files
	Extensions []string `koanf:"extensions" json:"extensions" toml:"extensions" yaml:"extensions"`

	// Also honour the project's .gitignore files while scanning
	GitignoreFiles bool `koanf:"gitignoreFiles" json:"gitignoreFiles" toml:"gitignoreFiles" yaml:"gitignoreFiles"`

	// auto, npm, yarn or pnpm
	PackageManager string `koanf:"packageManager" json:"packageManager" toml:"packageManager" yaml:"packageManager"`

	Dependencies DependenciesConfig `koanf:"dependencies" json:"dependencies" toml:"dependencies" yaml:"dependencies"`
	Files        FilesConfig        `koanf:"files" json:"files" toml:"files" yaml:"files"`
	Git          GitConfig          `koanf:"git" json:"git" toml:"git" yaml:"git"`
	Analysis     AnalysisConfig     `koanf:"analysis" json:"analysis" toml:"analysis" yaml:"analysis"`
	Cache        CacheConfig        `koanf:"cache" json:"cache" toml:"cache" yaml:"cache"`
}

// DependenciesConfig controls dependency analysis.
type DependenciesConfig struct {
	SkipDevDependencies    bool     `koanf:"skipDevDependencies" json:"skipDevDependencies" toml:"skipDevDependencies" yaml:"skipDevDependencies"`
	IgnorePeerDependencies bool     `koanf:"ignorePeerDependencies" json:"ignorePeerDependencies" toml:"ignorePeerDependencies" yaml:"ignorePeerDependencies"`
	CustomIgnore           []string `koanf:"customIgnore" json:"customIgnore" toml:"customIgnore" yaml:"customIgnore"`
}

// FilesConfig controls unused-file analysis.
type FilesConfig struct {
	IncludeTests   bool     `koanf:"includeTests" json:"includeTests" toml:"includeTests" yaml:"includeTests"`
	IncludeStories bool     `koanf:"includeStories" json:"includeStories" toml:"includeStories" yaml:"includeStories"`
	CustomIgnore   []string `koanf:"customIgnore" json:"customIgnore" toml:"customIgnore" yaml:"customIgnore"`
}

// GitConfig controls the version-control cleanup stage.
type GitConfig struct {
	DefaultBranch string `koanf:"defaultBranch" json:"defaultBranch" toml:"defaultBranch" yaml:"defaultBranch"`
	CommitMessage string `koanf:"commitMessage" json:"commitMessage" toml:"commitMessage" yaml:"commitMessage"`
	Remote        string `koanf:"remote" json:"remote" toml:"remote" yaml:"remote"`
	AuthorName    string `koanf:"authorName" json:"authorName" toml:"authorName" yaml:"authorName"`
	AuthorEmail   string `koanf:"authorEmail" json:"authorEmail" toml:"authorEmail" yaml:"authorEmail"`
}

// AnalysisConfig controls the external detectors.
type AnalysisConfig struct {
	Timeout        int  `koanf:"timeout" json:"timeout" toml:"timeout" yaml:"timeout"` // milliseconds
	SkipUnimported bool `koanf:"skipUnimported" json:"skipUnimported" toml:"skipUnimported" yaml:"skipUnimported"`
	SkipDepcheck   bool `koanf:"skipDepcheck" json:"skipDepcheck" toml:"skipDepcheck" yaml:"skipDepcheck"`
}

// CacheConfig controls caching of detector output.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" json:"enabled" toml:"enabled" yaml:"enabled"`
	Dir     string `koanf:"dir" json:"dir" toml:"dir" yaml:"dir"`
	TTL     int    `koanf:"ttl" json:"ttl" toml:"ttl" yaml:"ttl"` // TTL in hours
}

// Test and story patterns are applied unless the files section opts in.
var (
	testPatterns  = []string{"**/*.test.*", "**/*.spec.*", "**/__tests__/**"}
	storyPatterns = []string{"**/*.stories.*"}
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Ignore: []string{
			"**/node_modules/**",
			"dist/**",
			"build/**",
			"**/coverage/**",
			"**/.git/**",
		},
		Extensions:     []string{".js", ".jsx", ".ts", ".tsx", ".vue", ".svelte"},
		GitignoreFiles: false,
		PackageManager: "auto",
		Dependencies: DependenciesConfig{
			SkipDevDependencies:    false,
			IgnorePeerDependencies: true,
			CustomIgnore:           []string{"@types/*"},
		},
		Files: FilesConfig{
			IncludeTests:   false,
			IncludeStories: false,
			CustomIgnore:   []string{},
		},
		Git: GitConfig{
			DefaultBranch: "main",
			CommitMessage: DefaultCommitMessage,
			Remote:        "origin",
		},
		Analysis: AnalysisConfig{
			Timeout:        60000,
			SkipUnimported: false,
			SkipDepcheck:   false,
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     "",
			TTL:     24,
		},
	}
}

// Filenames lists the recognized config files, in lookup order.
var Filenames = []string{
	".unusedrc.json",
	".unusedrc.yaml",
	".unusedrc.yml",
	".unusedrc.toml",
	"unused.config.json",
	"unused.config.yaml",
	"unused.config.toml",
}

// executableNames are config files that would require running project code.
// They are never loaded.
var executableNames = []string{".unusedrc.js", "unused.config.js", ".unusedrc.cjs", "unused.config.mjs"}

// defaultsProvider feeds DefaultConfig into koanf as the base layer.
type defaultsProvider struct {
	cfg *Config
}

func (p defaultsProvider) ReadBytes() ([]byte, error) {
	return json.Marshal(p.cfg)
}

func (p defaultsProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("defaults provider does not support Read")
}

// parserFor picks a koanf parser from the file extension.
func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".toml":
		return toml.Parser()
	default:
		return kjson.Parser()
	}
}

// Load loads configuration from a file layered over the defaults.
// Scalars and lists in the file replace the defaults; nested sections are
// merged key by key.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(defaultsProvider{cfg: DefaultConfig()}, kjson.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadResult is the outcome of a config lookup.
type LoadResult struct {
	Config *Config
	// Source is the file the config was read from; empty for defaults.
	Source string
	// Warnings collects non-fatal problems found while searching.
	Warnings []string
}

type loadOptions struct {
	path string
	dir  string
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

// WithPath loads an explicit config file. Failing to load it is an error.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// WithDir searches the given project directory for a config file.
func WithDir(dir string) LoadOption {
	return func(o *loadOptions) {
		o.dir = dir
	}
}

// LoadConfig resolves the effective configuration. Without WithPath, the
// project directory is searched for the recognized filenames and the first
// one that loads wins; broken files are reported as warnings.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := &loadOptions{dir: "."}
	for _, opt := range opts {
		opt(o)
	}

	if o.path != "" {
		cfg, err := Load(o.path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", o.path, err)
		}
		return &LoadResult{Config: cfg, Source: o.path}, nil
	}

	result := &LoadResult{}
	for _, name := range executableNames {
		if _, err := os.Stat(filepath.Join(o.dir, name)); err == nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("ignoring %s: executable config files are not supported, use .unusedrc.json", name))
		}
	}

	for _, name := range Filenames {
		path := filepath.Join(o.dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := Load(path)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("failed to load config from %s: %v", name, err))
			continue
		}
		result.Config = cfg
		result.Source = path
		return result, nil
	}

	result.Config = DefaultConfig()
	return result, nil
}

// Validate checks the config for values the analysis cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Extensions) == 0 {
		errs = append(errs, errors.New("extensions must not be empty"))
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("extension %q must start with a dot", ext))
		}
	}
	if c.Analysis.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("analysis.timeout must be positive (got %d)", c.Analysis.Timeout))
	}
	switch c.PackageManager {
	case "", "auto", "npm", "yarn", "pnpm":
	default:
		errs = append(errs, fmt.Errorf("packageManager must be one of auto, npm, yarn, pnpm (got %q)", c.PackageManager))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must not be negative (got %d)", c.Cache.TTL))
	}
	for _, p := range c.Dependencies.CustomIgnore {
		if _, err := path.Match(p, ""); err != nil {
			errs = append(errs, fmt.Errorf("dependencies.customIgnore pattern %q: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// TimeoutDuration returns the per-detector subprocess timeout.
func (a AnalysisConfig) TimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Millisecond
}

// IgnorePatterns returns the effective ignore globs for file analysis and
// results: the global ignore list plus the files section.
func (c *Config) IgnorePatterns() []string {
	patterns := make([]string, 0, len(c.Ignore)+len(c.Files.CustomIgnore)+len(testPatterns)+len(storyPatterns))
	patterns = append(patterns, c.SourceIgnorePatterns()...)
	patterns = append(patterns, c.Files.CustomIgnore...)
	if !c.Files.IncludeTests {
		patterns = append(patterns, testPatterns...)
	}
	if !c.Files.IncludeStories {
		patterns = append(patterns, storyPatterns...)
	}
	return patterns
}

// SourceIgnorePatterns returns the globs excluded from the dependency usage
// scan. The files section does not apply there, so tests and stories still
// count as usages.
func (c *Config) SourceIgnorePatterns() []string {
	return append([]string(nil), c.Ignore...)
}

// IgnoresDependency reports whether a dependency name matches dependencies.customIgnore.
func (c *Config) IgnoresDependency(name string) bool {
	for _, p := range c.Dependencies.CustomIgnore {
		if matched, _ := path.Match(p, name); matched {
			return true
		}
	}
	return false
}

// HasExtension reports whether the file has one of the configured extensions.
func (c *Config) HasExtension(name string) bool {
	for _, ext := range c.Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// CommitMessage returns the override if set, else the configured message.
func (c *Config) CommitMessage(override string) string {
	if override != "" {
		return override
	}
	if c.Git.CommitMessage != "" {
		return c.Git.CommitMessage
	}
	return DefaultCommitMessage
}

// CacheDir returns the cache directory, defaulting to the user cache dir.
func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "unused-cleaner")
	}
	return filepath.Join(os.TempDir(), "unused-cleaner-cache")
}
