// Package whitelist stores paths the user never wants cleaned.
package whitelist

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/fsutil"
)

// FileName is the whitelist file inside the MacMole config directory.
const FileName = "whitelist.toml"

type fileFormat struct {
	Paths []string `toml:"paths"`
}

// Store is a TOML-backed set of protected paths.
type Store struct {
	mu       sync.RWMutex
	filePath string
	paths    []string
}

// Load opens the whitelist in dir. A missing file yields an empty store.
func Load(dir string) (*Store, error) {
	s := &Store{filePath: filepath.Join(dir, FileName)}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("whitelist: read: %w", err)
	}

	var f fileFormat
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("whitelist: parse %s: %w", s.filePath, err)
	}
	for _, p := range f.Paths {
		s.paths = appendUnique(s.paths, normalize(p))
	}
	return s, nil
}

// New returns an in-memory store holding paths. Save is a no-op until
// a file path is attached via Load.
func New(paths ...string) *Store {
	s := &Store{}
	for _, p := range paths {
		s.paths = appendUnique(s.paths, normalize(p))
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.filePath
}

// List returns the protected paths, sorted.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.paths))
	copy(out, s.paths)
	sort.Strings(out)
	return out
}

// Add protects path and persists the store. Adding an existing entry is
// not an error.
func (s *Store) Add(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paths = appendUnique(s.paths, normalize(path))
	return s.save()
}

// Remove unprotects path and persists. It reports whether path was present.
func (s *Store) Remove(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := normalize(path)
	for i, p := range s.paths {
		if p == target {
			s.paths = append(s.paths[:i], s.paths[i+1:]...)
			return true, s.save()
		}
	}
	return false, nil
}

// Contains reports whether path is an entry of the store.
func (s *Store) Contains(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target := normalize(path)
	for _, p := range s.paths {
		if p == target {
			return true
		}
	}
	return false
}

// IsWhitelisted reports whether path equals or lies under a protected entry.
// Entries holding glob characters match path or any of its ancestors with
// filepath.Match, so "~/Library/Caches/com.example.*" protects those trees.
func (s *Store) IsWhitelisted(path string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	target := normalize(path)
	for _, p := range s.paths {
		if isGlob(p) {
			if matchesAncestor(p, target) {
				return true
			}
			continue
		}
		if core.IsWithin(target, p) {
			return true
		}
	}
	return false
}

func isGlob(p string) bool {
	return strings.ContainsAny(p, "*?[")
}

// matchesAncestor matches pattern against path and each of its parents.
func matchesAncestor(pattern, path string) bool {
	for {
		if ok, err := filepath.Match(pattern, path); err == nil && ok {
			return true
		}
		parent := filepath.Dir(path)
		if parent == path {
			return false
		}
		path = parent
	}
}

// save writes the store (caller must hold lock).
func (s *Store) save() error {
	if s.filePath == "" {
		return nil
	}
	data, err := toml.Marshal(fileFormat{Paths: s.paths})
	if err != nil {
		return fmt.Errorf("whitelist: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o700); err != nil {
		return fmt.Errorf("whitelist: create dir: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.filePath, data, 0o600); err != nil {
		return fmt.Errorf("whitelist: write: %w", err)
	}
	return nil
}

func normalize(p string) string {
	return filepath.Clean(core.ExpandHome(p))
}

func appendUnique(list []string, p string) []string {
	for _, existing := range list {
		if existing == p {
			return list
		}
	}
	return append(list, p)
}
