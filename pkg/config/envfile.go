package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultEnvFile = ".env"

// findEnvFile resolves name against dir and each of its parents and returns the
// first existing regular file. An absolute name is only checked in place.
func findEnvFile(name, dir string) (string, error) {
	if name == "" {
		name = defaultEnvFile
	}
	if filepath.IsAbs(name) {
		if isFile(name) {
			return name, nil
		}
		return "", fmt.Errorf("env file %s: %w", name, os.ErrNotExist)
	}

	for curr := filepath.Clean(dir); ; {
		candidate := filepath.Join(curr, name)
		if isFile(candidate) {
			return candidate, nil
		}
		parent := filepath.Dir(curr)
		if parent == curr {
			return "", fmt.Errorf("env file %s above %s: %w", name, dir, os.ErrNotExist)
		}
		curr = parent
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
