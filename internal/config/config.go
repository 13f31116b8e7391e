// Package config loads the server's own configuration: how to invoke the
// compiler driver, the workspace root, and the glob patterns that keep
// vendored/build-output Solidity files out of path resolution. The
// primary format is a .soliditylsp.kdl file; a project's foundry.toml,
// when present, supplies defaults without requiring one.
package config

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultExcludeGlobs keeps Foundry's vendored dependencies and build
// output out of PathIndex.requestPath resolution: lib/ is vendored
// source that is technically part of root.sources but never the target
// of a rename, and out/ and cache/ are Foundry's own build artifacts.
var defaultExcludeGlobs = []string{
	"**/lib/**",
	"**/out/**",
	"**/cache/**",
}

// Config is the server's own configuration, loaded once at startup.
type Config struct {
	// CompilerCommand is the compiler driver binary to invoke.
	// Defaults to "forge" (Foundry).
	CompilerCommand string
	// CompilerArgs are extra arguments appended to every invocation.
	CompilerArgs []string
	// ProjectRoot is the workspace root: the compiler driver runs from it,
	// and IsExcluded matches absolute paths relative to it.
	ProjectRoot string
	// ExcludeGlobs are doublestar patterns for paths that should never be
	// considered when resolving an editor-supplied URI.
	ExcludeGlobs []string
}

// IsExcluded reports whether path (relative to ProjectRoot, or absolute)
// matches one of ExcludeGlobs.
func (c *Config) IsExcluded(path string) bool {
	rel := path
	if filepath.IsAbs(path) && c.ProjectRoot != "" {
		if r, err := filepath.Rel(c.ProjectRoot, path); err == nil {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range c.ExcludeGlobs {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// defaultConfig returns the server's built-in defaults, rooted at root.
func defaultConfig(root string) *Config {
	excludes := make([]string, len(defaultExcludeGlobs))
	copy(excludes, defaultExcludeGlobs)
	return &Config{
		CompilerCommand: "forge",
		ProjectRoot:     root,
		ExcludeGlobs:    excludes,
	}
}

// Load loads configuration starting from the current working directory.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return LoadWithRoot(cwd)
}

// LoadWithRoot loads configuration rooted at root: first the project's
// .soliditylsp.kdl (if present), enriched with any foundry.toml sniffing,
// falling back to built-in defaults if neither is present.
func LoadWithRoot(root string) (*Config, error) {
	cfg := defaultConfig(root)

	if kdlCfg, err := LoadKDL(root); err != nil {
		return nil, err
	} else if kdlCfg != nil {
		cfg = kdlCfg
	}

	if foundryExcludes, ok := sniffFoundryToml(root); ok {
		cfg.ExcludeGlobs = dedupe(append(cfg.ExcludeGlobs, foundryExcludes...))
	}

	return cfg, nil
}

func dedupe(patterns []string) []string {
	seen := make(map[string]struct{}, len(patterns))
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
