package workspace

import (
	"fmt"
	"path/filepath"
	"strings"
)

// confine joins rel onto root and rejects results that leave root.
func confine(root, rel string) (string, error) {
	if strings.Contains(rel, `\`) {
		return "", fmt.Errorf("path contains backslash: %s", rel)
	}
	clean := filepath.Clean(rel)
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("path must be relative: %s", rel)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt: %s", rel)
	}
	return filepath.Join(root, clean), nil
}

// confineAbs accepts target only when it resolves to an entry inside root.
func confineAbs(root, target string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid root path: %w", err)
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	rel, err := filepath.Rel(absRoot, absTarget)
	if err != nil {
		return "", fmt.Errorf("rel computation failed: %w", err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root: %s", target)
	}
	return absTarget, nil
}
