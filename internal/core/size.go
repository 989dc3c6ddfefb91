package core

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FormatSize renders a byte count using binary units ("1.5 GB").
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < 0 {
		return "-" + FormatSize(-bytes)
	}
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit && exp < 4; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTP"[exp])
}

// DirSize returns the apparent size of path. Directories are walked without
// following symlinks; unreadable entries are skipped rather than failing
// the whole measurement.
func DirSize(path string) (int64, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}

	var total int64
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Permission denied deep in a cache tree is common; keep going.
			if d != nil && d.IsDir() && p != path {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		fi, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		total += fi.Size()
		return nil
	})
	return total, err
}
