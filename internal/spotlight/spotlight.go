// Package spotlight reports and repairs the Spotlight index of a volume.
package spotlight

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/harness"
	"github.com/lakshaymaurya-felt/macmole/internal/runner"
	"github.com/lakshaymaurya-felt/macmole/internal/ui"
)

// IndexState is the indexing state reported by mdutil.
type IndexState int

const (
	StateUnknown IndexState = iota
	StateEnabled
	StateDisabled
	StateError
)

func (s IndexState) String() string {
	switch s {
	case StateEnabled:
		return "enabled"
	case StateDisabled:
		return "disabled"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Status is the parsed output of `mdutil -s`.
type Status struct {
	Volume string
	State  IndexState
	Detail string
}

// ParseStatus interprets `mdutil -s <volume>` output.
//
//	/:
//		Indexing enabled.
func ParseStatus(volume, out string) Status {
	st := Status{Volume: volume}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		st.Detail = strings.TrimSuffix(line, ".")
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "error"):
			st.State = StateError
		case strings.Contains(lower, "indexing enabled"):
			st.State = StateEnabled
		case strings.Contains(lower, "disabled"):
			st.State = StateDisabled
		}
		if st.State != StateUnknown {
			break
		}
	}
	return st
}

// GetStatus runs `mdutil -s` for volume.
func GetStatus(ctx context.Context, r runner.Runner, volume string) (Status, error) {
	res, err := r.Run(ctx, "mdutil", "-s", volume)
	if err != nil {
		// mdutil exits non-zero for unknown volumes but still explains why.
		if res.Combined() != "" {
			return ParseStatus(volume, res.Combined()), nil
		}
		return Status{Volume: volume}, fmt.Errorf("spotlight: mdutil -s %s: %w", volume, err)
	}
	return ParseStatus(volume, res.Combined()), nil
}

// Rebuild turns indexing off, optionally deletes the on-disk index store
// (aggressive), erases and re-enables the index, and restarts mds. Every
// mutating step goes through the guard; only the root check is fatal.
func Rebuild(ctx context.Context, g *harness.Guard, rc core.RootChecker, volume string) error {
	if err := core.RequireRoot(rc, "rebuilding the Spotlight index"); err != nil {
		return err
	}
	out := g.Out()

	ui.Section(out, "Rebuilding Spotlight index on "+volume)
	if !g.Confirm(fmt.Sprintf("Rebuild the Spotlight index for %s? Search will be incomplete until it finishes.", volume), true) {
		ui.Skipped(out, "rebuild cancelled")
		return nil
	}

	g.Run(ctx, "Disable indexing", true, "mdutil", "-i", "off", volume)
	if g.Options().Aggressive {
		g.RemovePath(ctx, filepath.Join(volume, ".Spotlight-V100"), "Spotlight index store", false)
	}
	g.Run(ctx, "Erase index", true, "mdutil", "-E", volume)
	g.Run(ctx, "Enable indexing", true, "mdutil", "-i", "on", volume)
	g.Run(ctx, "Restart metadata server", true, "killall", "mds")

	if g.Options().DryRun() {
		return nil
	}
	st, err := GetStatus(ctx, g.Runner(), volume)
	if err != nil {
		ui.Warning(out, "could not read index status: %v", err)
		return nil
	}
	ui.Info(out, "%s: indexing %s", volume, st.State)
	return nil
}
