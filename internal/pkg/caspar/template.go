package caspar

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteTemplateFile stores an HTML template under the configured template
// root. The relative path is validated before any filesystem access: absolute
// paths and parent-directory components are rejected so a caller cannot write
// outside the root.
func (c *Client) WriteTemplateFile(relPath string, content []byte) (string, error) {
	if c.cfg.TemplateRoot == "" {
		return "", fmt.Errorf("template root is not configured")
	}
	if err := validateRelPath(relPath); err != nil {
		return "", err
	}

	full := filepath.Join(c.cfg.TemplateRoot, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create template directory: %w", err)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return "", fmt.Errorf("write template file: %w", err)
	}
	return full, nil
}

func validateRelPath(relPath string) error {
	if relPath == "" {
		return fmt.Errorf("template path is empty")
	}
	if filepath.IsAbs(relPath) || strings.HasPrefix(relPath, "/") {
		return fmt.Errorf("template path must be relative")
	}
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if part == ".." {
			return fmt.Errorf("template path must not contain parent references")
		}
	}
	return nil
}
