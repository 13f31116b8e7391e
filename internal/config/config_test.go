package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithRootDefaultsWhenNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadWithRoot(dir)
	require.NoError(t, err)
	assert.Equal(t, "forge", cfg.CompilerCommand)
	assert.Contains(t, cfg.ExcludeGlobs, "**/lib/**")
}

func TestLoadKDLParsesCompilerAndExclude(t *testing.T) {
	dir := t.TempDir()
	kdl := `
compiler {
    command "forge"
    args "build" "--ast"
}
project {
    root "."
}
exclude "**/lib/**" "**/out/**" "**/cache/**"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".soliditylsp.kdl"), []byte(kdl), 0644))

	cfg, err := LoadWithRoot(dir)
	require.NoError(t, err)
	assert.Equal(t, "forge", cfg.CompilerCommand)
	assert.Equal(t, []string{"build", "--ast"}, cfg.CompilerArgs)
	assert.ElementsMatch(t, []string{"**/lib/**", "**/out/**", "**/cache/**"}, cfg.ExcludeGlobs)
}

func TestSniffFoundryTomlDerivesExcludes(t *testing.T) {
	dir := t.TempDir()
	toml := `
[profile.default]
src = "src"
out = "out"
libs = ["lib"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foundry.toml"), []byte(toml), 0644))

	cfg, err := LoadWithRoot(dir)
	require.NoError(t, err)
	assert.Contains(t, cfg.ExcludeGlobs, "**/out/**")
	assert.Contains(t, cfg.ExcludeGlobs, "**/lib/**")
}

func TestIsExcludedMatchesRelativeGlobs(t *testing.T) {
	dir := t.TempDir()
	cfg := defaultConfig(dir)

	libPath := filepath.Join(dir, "lib", "forge-std", "src", "Test.sol")
	srcPath := filepath.Join(dir, "src", "Token.sol")

	assert.True(t, cfg.IsExcluded(libPath))
	assert.False(t, cfg.IsExcluded(srcPath))
}
