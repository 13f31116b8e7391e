package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL attempts to load configuration from .soliditylsp.kdl in root.
// Returns (nil, nil) when the file doesn't exist so the caller falls
// back to defaults.
func LoadKDL(root string) (*Config, error) {
	kdlPath := filepath.Join(root, ".soliditylsp.kdl")
	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read .soliditylsp.kdl: %w", err)
	}

	cfg, err := parseKDL(string(content), root)
	if err != nil {
		return nil, err
	}

	if !filepath.IsAbs(cfg.ProjectRoot) {
		cfg.ProjectRoot = filepath.Clean(filepath.Join(root, cfg.ProjectRoot))
	}
	return cfg, nil
}

func parseKDL(content, root string) (*Config, error) {
	cfg := defaultConfig(root)

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "compiler":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "command":
					if s, ok := firstStringArg(cn); ok {
						cfg.CompilerCommand = s
					}
				case "args":
					cfg.CompilerArgs = collectStringArgs(cn)
				}
			}
		case "project":
			for _, cn := range n.Children {
				if nodeName(cn) == "root" {
					if s, ok := firstStringArg(cn); ok {
						cfg.ProjectRoot = s
					}
				}
			}
		case "exclude":
			cfg.ExcludeGlobs = collectStringArgs(n)
		}
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

// collectStringArgs gathers string values from n's inline arguments, or
// (if none) from its child-node block form, matching KDL's two ways of
// writing a list: `exclude "a" "b"` or `exclude { "a"; "b" }`.
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
