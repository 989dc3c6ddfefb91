package clean

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lakshaymaurya-felt/macmole/internal/config"
	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/harness"
	"github.com/lakshaymaurya-felt/macmole/internal/snapshot"
	"github.com/lakshaymaurya-felt/macmole/internal/ui"
	"github.com/lakshaymaurya-felt/macmole/internal/whitelist"
)

// Request selects what a clean run covers.
type Request struct {
	// Categories limits targets; empty means every category.
	Categories []string
	// SystemRequested is set when --system was passed explicitly.
	SystemRequested bool
	// Volumes includes Finder junk on external volumes.
	Volumes bool
	// Verify fingerprints every scanned root before and after a dry run.
	Verify bool
}

// Summary is the outcome of a clean run.
type Summary struct {
	Items      []CleanItem
	Report     *harness.Report
	FreeBefore uint64
	FreeAfter  uint64
	Changed    []string
}

// Cleaner runs a cleanup.
type Cleaner struct {
	Guard     *harness.Guard
	Config    *config.Config
	Whitelist *whitelist.Store
	Root      core.RootChecker
	Logger    *slog.Logger

	// Home is the user's home directory; VolumesDir is where external
	// volumes are mounted. Both are overridable for tests.
	Home       string
	VolumesDir string
	// DiskPath is the filesystem whose free space is reported.
	DiskPath string
}

// Targets builds the target list for req: the built-in table plus the
// configured extra paths, minus skipped names, filtered by category,
// aggressiveness and privilege. Targets dropped for lack of root are
// returned separately.
func (c *Cleaner) Targets(req Request) (kept, needRoot []config.CleanTarget) {
	targets := config.GetCleanTargets(c.Home)
	if len(c.Config.Clean.ExtraPaths) > 0 {
		paths := make([]string, 0, len(c.Config.Clean.ExtraPaths))
		for _, p := range c.Config.Clean.ExtraPaths {
			paths = append(paths, core.ExpandHome(p))
		}
		targets = append(targets, config.CleanTarget{
			Name:        "ExtraPaths",
			Paths:       paths,
			Description: "Paths from clean.extra_paths",
			Category:    config.CategoryUser,
			RiskLevel:   "medium",
		})
	}
	targets = config.SkipTargets(targets, c.Config.Clean.SkipTargets)
	return config.FilterTargets(targets, req.Categories, c.Guard.Options().Aggressive, c.Root.IsRoot())
}

// Run executes the cleanup. Only precondition failures and a failed
// dry-run verification are returned as errors; individual step failures
// end up in the report.
func (c *Cleaner) Run(ctx context.Context, req Request) (*Summary, error) {
	out := c.Guard.Out()
	log := c.Logger.With("component", "clean")

	if err := Preflight(ctx, c.Guard.Runner(), c.Root, req.SystemRequested); err != nil {
		return nil, err
	}

	targets, needRoot := c.Targets(req)
	for _, t := range needRoot {
		c.Guard.Skip(t.Description, strings.Join(t.Paths, ", "), "requires root")
	}

	scanner := NewScanner(c.Config.Clean.Concurrency, c.Whitelist, c.Config.Clean.MinAgeDays, c.Logger)
	items, err := scanner.Scan(ctx, targets)
	if err != nil {
		return nil, fmt.Errorf("clean: scan: %w", err)
	}
	if req.Volumes {
		vols := ScanExternalVolumes(c.VolumesDir, c.Whitelist)
		if err := scanner.Size(ctx, vols); err != nil {
			return nil, fmt.Errorf("clean: size volumes: %w", err)
		}
		items = append(items, vols...)
	}
	for _, sk := range scanner.Skipped() {
		c.Guard.Skip(sk.Target, sk.Path, sk.Reason)
	}
	log.Debug("scan complete", "items", len(items), "sized", scanner.SizedCount())

	summary := &Summary{Items: items, Report: c.Guard.Report()}
	if u, err := core.FreeSpace(c.DiskPath); err == nil {
		summary.FreeBefore = u.Free
	} else {
		log.Debug("free space unavailable", "error", err)
	}

	verify := req.Verify && c.Guard.Options().DryRun()
	var before map[string]snapshot.Fingerprint
	if verify {
		before, err = snapshot.Trees(itemRoots(items))
		if err != nil {
			return nil, fmt.Errorf("clean: fingerprint: %w", err)
		}
	}

	ui.Section(out, fmt.Sprintf("Cleanup plan: %d items, %s", len(items), core.FormatSize(TotalSize(items))))
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		c.execute(ctx, it)
	}

	if verify {
		after, err := snapshot.Trees(itemRoots(items))
		if err != nil {
			return summary, fmt.Errorf("clean: fingerprint: %w", err)
		}
		summary.Changed = snapshot.Diff(before, after)
		if len(summary.Changed) > 0 {
			return summary, fmt.Errorf("clean: dry-run verification failed: %d roots changed (%s)",
				len(summary.Changed), strings.Join(summary.Changed, ", "))
		}
		ui.Success(out, "verified %d roots unchanged", len(before))
	}

	if u, err := core.FreeSpace(c.DiskPath); err == nil {
		summary.FreeAfter = u.Free
	}
	return summary, nil
}

// execute runs one item through the guard.
func (c *Cleaner) execute(ctx context.Context, it CleanItem) {
	def := it.RiskLevel != "high"

	switch {
	case it.IsCommand():
		if _, err := c.Guard.Runner().LookPath(it.Command[0]); err != nil {
			c.Guard.Skip(it.Description, strings.Join(it.Command, " "), it.Command[0]+" not installed")
			return
		}
		c.Guard.Run(ctx, it.Description, def, it.Command[0], it.Command[1:]...)

	case it.KeepRoot():
		label := fmt.Sprintf("%s (%s)", it.Description, filepath.Base(it.Path))
		if len(it.Entries) == 0 {
			c.Guard.Skip(label, it.Path, "already empty")
			return
		}
		c.Guard.RemovePaths(ctx, label, it.Path, it.Entries, def)

	default:
		c.Guard.RemovePath(ctx, it.Path, it.Description, def)
	}
}

// itemRoots returns the filesystem roots touched by items.
func itemRoots(items []CleanItem) []string {
	var roots []string
	for _, it := range items {
		if it.Path != "" {
			roots = append(roots, it.Path)
		}
	}
	return roots
}

// RenderSummary prints the report plus disk free space.
func RenderSummary(w io.Writer, s *Summary) {
	s.Report.Render(w)
	if s.FreeBefore == 0 {
		return
	}
	rows := [][2]string{{"Free before", core.FormatSize(int64(s.FreeBefore))}}
	if s.FreeAfter > 0 {
		rows = append(rows, [2]string{"Free after", core.FormatSize(int64(s.FreeAfter))})
	}
	ui.KeyValue(w, rows)
}

// HomeDir returns the invoking user's home. Under sudo, HOME may point at
// root's home, so SUDO_USER is consulted first.
func HomeDir() string {
	if u := os.Getenv("SUDO_USER"); u != "" && u != "root" {
		return filepath.Join("/Users", u)
	}
	home, _ := os.UserHomeDir()
	return home
}
