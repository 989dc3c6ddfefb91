// Package clean plans and executes disk cleanup: it scans the configured
// targets, sizes them in parallel, and removes them one by one through the
// harness.
package clean

import (
	"github.com/lakshaymaurya-felt/macmole/internal/config"
)

// CleanItem is one planned removal or command.
type CleanItem struct {
	// Path is the file or directory to remove. Empty for command items.
	Path string

	// Entries, when set, are the children of Path to remove while Path
	// itself is kept.
	Entries []string

	// Command is run instead of removing a path.
	Command []string

	Size        int64
	Target      string
	Category    string
	Description string
	RiskLevel   string
}

// IsCommand reports whether the item runs a command.
func (i CleanItem) IsCommand() bool {
	return len(i.Command) > 0
}

// KeepRoot reports whether the item empties a directory rather than removing it.
func (i CleanItem) KeepRoot() bool {
	return i.Entries != nil
}

// SkippedPath is a path the scanner excluded, with the reason.
type SkippedPath struct {
	Path   string
	Target string
	Reason string
}

func itemFromTarget(t config.CleanTarget, path string) CleanItem {
	return CleanItem{
		Path:        path,
		Command:     t.Command,
		Target:      t.Name,
		Category:    t.Category,
		Description: t.Description,
		RiskLevel:   t.RiskLevel,
	}
}

// TotalSize sums item sizes.
func TotalSize(items []CleanItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Size
	}
	return total
}
