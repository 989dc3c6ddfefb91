package harness

import "github.com/lakshaymaurya-felt/macmole/internal/core"

// Deleter removes filesystem subtrees. It exists so tests can prove that
// dry-run never reaches the filesystem.
type Deleter interface {
	RemoveAll(path string) (freed int64, err error)
}

// SafeDeleter deletes through core.SafeDelete, which refuses protected
// system and home locations.
type SafeDeleter struct{}

// RemoveAll implements Deleter.
func (SafeDeleter) RemoveAll(path string) (int64, error) {
	return core.SafeDelete(path, false)
}
