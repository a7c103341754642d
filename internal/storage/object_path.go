package storage

import (
	"fmt"
	"path"
	"strings"
)

// cleanObjectName validates a relative object name and normalises slashes.
func cleanObjectName(name string) (string, error) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	trimmed = strings.TrimLeft(trimmed, "/")
	if trimmed == "" {
		return "", fmt.Errorf("storage: empty object name")
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("storage: object name %q escapes the source root", name)
	}
	return cleaned, nil
}

// objectKey builds the bucket key for name under prefix.
func objectKey(prefix, name string) (string, error) {
	cleaned, err := cleanObjectName(name)
	if err != nil {
		return "", err
	}
	return joinPrefix(prefix, cleaned), nil
}

func joinPrefix(prefix, key string) string {
	cleanPrefix := trimPrefix(prefix)
	if cleanPrefix == "" {
		return strings.TrimLeft(key, "/")
	}
	return path.Join(cleanPrefix, strings.TrimLeft(key, "/"))
}

func trimPrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}
