package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// foundryProfile is the subset of foundry.toml's [profile.default] table
// this server cares about: where Foundry puts sources, build output, and
// vendored library dependencies.
type foundryProfile struct {
	Profile map[string]struct {
		Src  string   `toml:"src"`
		Out  string   `toml:"out"`
		Libs []string `toml:"libs"`
	} `toml:"profile"`
}

// sniffFoundryToml reads root/foundry.toml (if present) and derives
// exclude globs for its declared out/ and libs/ directories, so a
// Foundry project works without a .soliditylsp.kdl of its own.
func sniffFoundryToml(root string) ([]string, bool) {
	data, err := os.ReadFile(filepath.Join(root, "foundry.toml"))
	if err != nil {
		return nil, false
	}

	var profile foundryProfile
	if err := toml.Unmarshal(data, &profile); err != nil {
		return nil, false
	}

	def, ok := profile.Profile["default"]
	if !ok {
		return nil, false
	}

	var globs []string
	if def.Out != "" {
		globs = append(globs, "**/"+def.Out+"/**")
	}
	for _, lib := range def.Libs {
		if lib != "" {
			globs = append(globs, "**/"+lib+"/**")
		}
	}
	if len(globs) == 0 {
		return nil, false
	}
	return globs, true
}
