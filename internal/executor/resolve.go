package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolve finds the program to run for name. A name containing "/" is used
// as given; otherwise each PATH directory is searched in order for a
// regular executable file. The result is absolute.
func Resolve(name string) (string, error) {
	return resolveIn(name, os.Getenv("PATH"))
}

func resolveIn(name, pathEnv string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	if strings.Contains(name, "/") {
		if !isExecutable(name) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return filepath.Abs(name)
	}

	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return filepath.Abs(candidate)
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0111 != 0
}
