package clean

import (
	"os"
	"path/filepath"

	"github.com/lakshaymaurya-felt/macmole/internal/whitelist"
)

// ─── External Volume Scanning ────────────────────────────────────────────────

// DefaultVolumesDir is where macOS mounts volumes.
const DefaultVolumesDir = "/Volumes"

// volumeJunkDirs are directories at a volume root that Finder recreates.
var volumeJunkDirs = []string{
	".Trashes",
}

// volumeJunkPatterns are file patterns for junk at a volume root.
var volumeJunkPatterns = []string{
	"._*", // AppleDouble resource forks
	".DS_Store",
}

// externalVolumes returns mounted volumes under dir. The boot volume shows
// up as a symlink to "/" and is skipped.
func externalVolumes(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var vols []string
	for _, e := range entries {
		if e.Type()&os.ModeSymlink != 0 || !e.IsDir() {
			continue
		}
		vols = append(vols, filepath.Join(dir, e.Name()))
	}
	return vols
}

// ScanExternalVolumes finds Finder junk at the root of each mounted
// external volume. Items are unsized; the scanner sizes them.
func ScanExternalVolumes(dir string, wl *whitelist.Store) []CleanItem {
	var items []CleanItem

	for _, vol := range externalVolumes(dir) {
		name := filepath.Base(vol)

		for _, junk := range volumeJunkDirs {
			p := filepath.Join(vol, junk)
			if info, err := os.Lstat(p); err != nil || !info.IsDir() {
				continue
			}
			if wl.IsWhitelisted(p) {
				continue
			}
			items = append(items, volumeItem(p, name+": Trash"))
		}

		for _, pattern := range volumeJunkPatterns {
			matches, err := filepath.Glob(filepath.Join(vol, pattern))
			if err != nil {
				continue
			}
			for _, m := range matches {
				info, err := os.Lstat(m)
				if err != nil || info.IsDir() || wl.IsWhitelisted(m) {
					continue
				}
				items = append(items, volumeItem(m, name+": Finder metadata"))
			}
		}
	}

	return items
}

func volumeItem(path, desc string) CleanItem {
	return CleanItem{
		Path:        path,
		Target:      "ExternalVolumes",
		Category:    "volume",
		Description: desc,
		RiskLevel:   "low",
	}
}
