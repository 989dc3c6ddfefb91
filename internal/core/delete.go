package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lakshaymaurya-felt/macmole/internal/config"
)

// ErrProtectedPath is returned by SafeDelete for paths that must never be removed.
var ErrProtectedPath = errors.New("protected path")

// IsProtected reports whether deleting path would remove a never-delete
// location: the path itself is on the list, or it is an ancestor of an
// entry on the list.
func IsProtected(path string) bool {
	clean := filepath.Clean(path)
	if clean == "." || clean == string(filepath.Separator) {
		return true
	}
	home, _ := os.UserHomeDir()
	for _, p := range config.GetNeverDeletePaths(home) {
		if p == "" {
			continue
		}
		if IsWithin(p, clean) {
			return true
		}
	}
	return false
}

// SafeDelete removes path and everything beneath it, returning the number of
// bytes freed. Protected paths are refused. A path that does not exist is not
// an error and frees nothing. With dryRun set the size is measured but
// nothing is touched.
func SafeDelete(path string, dryRun bool) (int64, error) {
	if path == "" {
		return 0, fmt.Errorf("core: delete: empty path: %w", ErrProtectedPath)
	}
	if !filepath.IsAbs(path) {
		return 0, fmt.Errorf("core: delete: refusing relative path %q", path)
	}
	if IsProtected(path) {
		return 0, fmt.Errorf("core: delete %s: %w", path, ErrProtectedPath)
	}

	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("core: delete: stat %s: %w", path, err)
	}

	size, _ := DirSize(path)
	if dryRun {
		return size, nil
	}

	if err := os.RemoveAll(path); err != nil {
		// Partial removal: report what is actually gone.
		remaining, _ := DirSize(path)
		return size - remaining, fmt.Errorf("core: delete %s: %w", path, err)
	}
	return size, nil
}
