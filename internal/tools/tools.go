// ABOUTME: Shared helpers for the capability packs.
// ABOUTME: Path containment and pack aggregation.

package tools

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/2389/kforge/internal/capability"
)

// ErrOutsideRoot is returned when a requested path escapes the project root.
var ErrOutsideRoot = errors.New("path escapes the project root")

// All returns every built-in pack in registration order.
func All() []*capability.Descriptor {
	var out []*capability.Descriptor
	out = append(out, KotlinPack()...)
	out = append(out, GradlePack()...)
	out = append(out, AnalysisPack()...)
	out = append(out, SecurityPack()...)
	return out
}

// resolveUnderRoot joins rel onto root and rejects results that leave it.
// rel may contain subdirectories but not traversal back out.
func resolveUnderRoot(root, rel string) (string, error) {
	if root == "" {
		return "", errors.New("no project root configured")
	}
	abs, err := filepath.Abs(filepath.Join(root, rel))
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", rel, err)
	}
	cleanRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving project root: %w", err)
	}
	if abs != cleanRoot && !strings.HasPrefix(abs, cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return abs, nil
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func boolArg(args map[string]any, key string) bool {
	v, ok := args[key].(bool)
	return ok && v
}
