package mdm

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Record is one on-disk MDM artifact.
type Record struct {
	// Path is absolute on the live system.
	Path string
	// Rel is Path relative to the filesystem root it was listed from.
	Rel  string
	Size int64
	Mode fs.FileMode
}

// recordGlobs are enrollment records relative to the filesystem root.
var recordGlobs = []string{
	"var/db/ConfigurationProfiles/Settings/.cloudConfig*",
	"var/db/ConfigurationProfiles/Store/*.plist",
	"var/db/ConfigurationProfiles/Setup/.profileSetupDone",
}

// managedPrefsDir holds preferences pushed by configuration profiles.
const managedPrefsDir = "Library/Managed Preferences"

// ListRecords returns the MDM records found under root ("/" on a live
// system), sorted by path. Directories are walked; only regular files are
// returned.
func ListRecords(root string) ([]Record, error) {
	var records []Record
	seen := make(map[string]bool)

	add := func(path string, info fs.FileInfo) {
		if !info.Mode().IsRegular() || seen[path] {
			return
		}
		seen[path] = true
		rel, _ := filepath.Rel(root, path)
		records = append(records, Record{Path: path, Rel: rel, Size: info.Size(), Mode: info.Mode().Perm()})
	}

	for _, g := range recordGlobs {
		matches, err := filepath.Glob(filepath.Join(root, g))
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			info, err := os.Lstat(m)
			if err != nil {
				continue
			}
			add(m, info)
		}
	}

	prefs := filepath.Join(root, managedPrefsDir)
	err := filepath.WalkDir(prefs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		add(path, info)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return records, nil
}
