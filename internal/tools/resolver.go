// Package tools implements the builtin Handlers registered with the
// Tool Registry: workspace file writes, shell exec, container
// lifecycle, and a read-only HTTP fetch, each declaring the schema and
// default risk tag the registry's Register gate expects.
package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolver confines a relative path to a workspace root, the same
// containment check used by every file-writing tool.
type Resolver struct {
	Root string
}

// Resolve returns an absolute, workspace-contained path for rel.
func (r Resolver) Resolve(rel string) (string, error) {
	clean := strings.TrimSpace(rel)
	if clean == "" {
		return "", fmt.Errorf("tools: path is required")
	}
	root := strings.TrimSpace(r.Root)
	if root == "" {
		root = "."
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("tools: resolve workspace root: %w", err)
	}
	var target string
	if filepath.IsAbs(clean) {
		target = filepath.Clean(clean)
	} else {
		target = filepath.Join(rootAbs, clean)
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("tools: resolve path: %w", err)
	}
	rel2, err := filepath.Rel(rootAbs, targetAbs)
	if err != nil {
		return "", fmt.Errorf("tools: resolve path: %w", err)
	}
	if rel2 == ".." || strings.HasPrefix(rel2, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("tools: path escapes workspace")
	}
	return targetAbs, nil
}
