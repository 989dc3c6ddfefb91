// Package snapshot fingerprints directory trees so that callers can prove a
// run left them untouched.
package snapshot

import (
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint summarizes a tree. Two equal fingerprints mean no entry was
// added, removed, resized, retouched or rewritten.
type Fingerprint struct {
	Root    string
	Sum     uint64
	Entries int
	Missing bool
}

// Equal compares the content-bearing fields.
func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.Sum == o.Sum && f.Entries == o.Entries && f.Missing == o.Missing
}

func (f Fingerprint) String() string {
	if f.Missing {
		return fmt.Sprintf("%s: missing", f.Root)
	}
	return fmt.Sprintf("%s: %016x (%d entries)", f.Root, f.Sum, f.Entries)
}

// Tree fingerprints root. Every entry contributes its relative path, type,
// mode, size and modification time; regular files also contribute their
// content. Symlinks are hashed by target and not followed. Entries that
// cannot be read contribute a marker instead of failing the walk. A missing
// root yields a Fingerprint with Missing set.
func Tree(root string) (Fingerprint, error) {
	fp := Fingerprint{Root: root}

	if _, err := os.Lstat(root); err != nil {
		if os.IsNotExist(err) {
			fp.Missing = true
			return fp, nil
		}
		return fp, fmt.Errorf("snapshot: stat %s: %w", root, err)
	}

	h := xxhash.New()
	var buf [8]byte

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		rel, _ := filepath.Rel(root, path)
		if walkErr != nil {
			// Unreadable entries are hashed as a marker so permission
			// errors deep in a cache tree neither abort nor hide changes.
			writeUnreadable(h, rel)
			fp.Entries++
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			writeUnreadable(h, rel)
			fp.Entries++
			return nil
		}

		_, _ = h.WriteString(rel)
		_, _ = h.Write([]byte{0})

		binary.LittleEndian.PutUint64(buf[:], uint64(info.Mode()))
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(info.ModTime().UnixNano()))
		_, _ = h.Write(buf[:])

		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			target, _ := os.Readlink(path)
			_, _ = h.WriteString(target)
		case info.Mode().IsRegular():
			binary.LittleEndian.PutUint64(buf[:], uint64(info.Size()))
			_, _ = h.Write(buf[:])
			if err := hashFile(h, path); err != nil {
				_, _ = h.WriteString(unreadableMarker)
			}
		}
		fp.Entries++
		return nil
	})
	if err != nil {
		return fp, fmt.Errorf("snapshot: walk %s: %w", root, err)
	}

	fp.Sum = h.Sum64()
	return fp, nil
}

const unreadableMarker = "\x00unreadable\x00"

func writeUnreadable(h *xxhash.Digest, rel string) {
	_, _ = h.WriteString(rel)
	_, _ = h.WriteString(unreadableMarker)
}

func hashFile(h *xxhash.Digest, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(h, f)
	return err
}

// Trees fingerprints every root, keyed by root. Roots are deduplicated.
func Trees(roots []string) (map[string]Fingerprint, error) {
	out := make(map[string]Fingerprint, len(roots))
	for _, r := range roots {
		if _, ok := out[r]; ok {
			continue
		}
		fp, err := Tree(r)
		if err != nil {
			return nil, err
		}
		out[r] = fp
	}
	return out, nil
}

// Diff returns the roots whose fingerprint changed between before and after,
// sorted. Roots present in only one map count as changed.
func Diff(before, after map[string]Fingerprint) []string {
	seen := make(map[string]bool)
	var changed []string
	for root, b := range before {
		seen[root] = true
		if a, ok := after[root]; !ok || !a.Equal(b) {
			changed = append(changed, root)
		}
	}
	for root := range after {
		if !seen[root] {
			changed = append(changed, root)
		}
	}
	sort.Strings(changed)
	return changed
}
