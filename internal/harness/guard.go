package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/fsutil"
	"github.com/lakshaymaurya-felt/macmole/internal/runner"
	"github.com/lakshaymaurya-felt/macmole/internal/ui"
)

// Action is one destructive step handed to Guard.Do.
type Action struct {
	Label  string
	Target string
	// Default is the answer used when the operator cannot be asked.
	Default bool
	// Question overrides the generated prompt.
	Question string
	// Size is reported for dry-run and used in the prompt when positive.
	Size int64
	// Apply performs the mutation and returns bytes freed, if meaningful.
	Apply func(ctx context.Context) (int64, error)
}

// Guard executes actions according to Options. It never returns step
// errors; they are logged, printed as warnings and recorded in the Report.
type Guard struct {
	opts     Options
	prompter Prompter
	deleter  Deleter
	runner   runner.Runner
	out      io.Writer
	logger   *slog.Logger
	report   *Report
}

// NewGuard wires a Guard. A nil deleter selects SafeDeleter.
func NewGuard(opts Options, p Prompter, d Deleter, r runner.Runner, out io.Writer, logger *slog.Logger) *Guard {
	if d == nil {
		d = SafeDeleter{}
	}
	if p == nil {
		p = FixedPrompter(false)
	}
	return &Guard{
		opts:     opts,
		prompter: p,
		deleter:  d,
		runner:   r,
		out:      out,
		logger:   logger.With("component", "harness"),
		report:   &Report{},
	}
}

// Options returns the run options.
func (g *Guard) Options() Options { return g.opts }

// Report returns the accumulated report.
func (g *Guard) Report() *Report { return g.report }

// Runner returns the command runner used for guarded commands. Read-only
// probes may call it directly.
func (g *Guard) Runner() runner.Runner { return g.runner }

// Out returns the writer used for progress output.
func (g *Guard) Out() io.Writer { return g.out }

// Confirm asks a workflow-level question. Assume-yes and dry-run both
// answer yes; in dry-run the steps that follow are simulated anyway.
func (g *Guard) Confirm(question string, def bool) bool {
	switch g.opts.Mode {
	case ModeAssumeYes, ModeDryRun:
		return true
	}
	return g.prompter.Confirm(question, def)
}

// Do runs a single action under the guard's mode.
func (g *Guard) Do(ctx context.Context, a Action) Step {
	step := Step{Label: a.Label, Target: a.Target}

	if g.opts.Mode == ModeDryRun {
		step.Outcome = DryRun
		step.Bytes = a.Size
		ui.DryRun(g.out, "%s", describe(a))
		g.logger.Debug("dry-run", "label", a.Label, "target", a.Target, "bytes", a.Size)
		return g.record(step)
	}

	if g.opts.Mode == ModeInteractive {
		question := a.Question
		if question == "" {
			question = fmt.Sprintf("%s (%s)?", a.Label, a.Target)
			if a.Size > 0 {
				question = fmt.Sprintf("%s (%s, %s)?", a.Label, a.Target, core.FormatSize(a.Size))
			}
		}
		if !g.prompter.Confirm(question, a.Default) {
			step.Outcome = Skipped
			ui.Skipped(g.out, "skipped %s", a.Label)
			return g.record(step)
		}
	}

	if err := ctx.Err(); err != nil {
		step.Outcome = Failed
		step.Err = err
		return g.record(step)
	}

	freed, err := a.Apply(ctx)
	step.Bytes = freed
	if err != nil {
		step.Outcome = Failed
		step.Err = err
		ui.Warning(g.out, "%s failed: %v", a.Label, err)
		g.logger.Warn("step failed", "label", a.Label, "target", a.Target, "error", err)
		return g.record(step)
	}

	step.Outcome = Done
	if freed > 0 {
		ui.Success(g.out, "%s (%s)", a.Label, core.FormatSize(freed))
	} else {
		ui.Success(g.out, "%s", a.Label)
	}
	return g.record(step)
}

func describe(a Action) string {
	if a.Size > 0 {
		return fmt.Sprintf("%s: %s (%s)", a.Label, a.Target, core.FormatSize(a.Size))
	}
	return fmt.Sprintf("%s: %s", a.Label, a.Target)
}

func (g *Guard) record(s Step) Step {
	g.report.Add(s)
	return s
}

// Skip records a step excluded by a rule (whitelist, missing privilege).
func (g *Guard) Skip(label, target, reason string) Step {
	ui.Skipped(g.out, "%s: %s", label, reason)
	return g.record(Step{Label: label, Target: target, Outcome: Skipped, Reason: reason})
}

// ─── Filesystem ──────────────────────────────────────────────────────────────

// RemovePath deletes path and everything under it. A path that does not
// exist is a successful no-op and is never prompted for.
func (g *Guard) RemovePath(ctx context.Context, path, label string, def bool) Step {
	if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
		g.logger.Debug("target missing", "label", label, "path", path)
		return g.record(Step{Label: label, Target: path, Outcome: Missing})
	}

	size, _ := core.DirSize(path)
	return g.Do(ctx, Action{
		Label:    label,
		Target:   path,
		Default:  def,
		Size:     size,
		Question: fmt.Sprintf("Remove %s (%s, %s)?", label, path, core.FormatSize(size)),
		Apply: func(context.Context) (int64, error) {
			return g.deleter.RemoveAll(path)
		},
	})
}

// RemovePaths deletes several paths as one step with a single prompt.
// Individual failures are joined; bytes freed by the successful ones still
// count.
func (g *Guard) RemovePaths(ctx context.Context, label, target string, paths []string, def bool) Step {
	var existing []string
	var size int64
	for _, p := range paths {
		if _, err := os.Lstat(p); err != nil {
			continue
		}
		existing = append(existing, p)
		n, _ := core.DirSize(p)
		size += n
	}
	if len(existing) == 0 {
		return g.record(Step{Label: label, Target: target, Outcome: Missing})
	}

	return g.Do(ctx, Action{
		Label:    label,
		Target:   target,
		Default:  def,
		Size:     size,
		Question: fmt.Sprintf("Remove %s (%d items in %s, %s)?", label, len(existing), target, core.FormatSize(size)),
		Apply: func(ctx context.Context) (int64, error) {
			var freed int64
			var errs []error
			for _, p := range existing {
				if err := ctx.Err(); err != nil {
					errs = append(errs, err)
					break
				}
				n, err := g.deleter.RemoveAll(p)
				freed += n
				if err != nil {
					errs = append(errs, err)
				}
			}
			return freed, errors.Join(errs...)
		},
	})
}

// RemoveContents empties dir but keeps the directory itself.
func (g *Guard) RemoveContents(ctx context.Context, dir, label string, def bool) Step {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return g.record(Step{Label: label, Target: dir, Outcome: Missing})
	}
	if err != nil {
		ui.Warning(g.out, "%s: %v", label, err)
		return g.record(Step{Label: label, Target: dir, Outcome: Failed, Err: err})
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return g.RemovePaths(ctx, label, dir, paths, def)
}

// RemoveGlob deletes every match of pattern. No match yields one Missing step.
func (g *Guard) RemoveGlob(ctx context.Context, pattern, label string, def bool) []Step {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return []Step{g.record(Step{Label: label, Target: pattern, Outcome: Failed, Err: err})}
	}
	if len(matches) == 0 {
		return []Step{g.record(Step{Label: label, Target: pattern, Outcome: Missing})}
	}

	steps := make([]Step, 0, len(matches))
	for _, m := range matches {
		steps = append(steps, g.RemovePath(ctx, m, label, def))
	}
	return steps
}

// WriteFile atomically writes data to path, creating parent directories.
func (g *Guard) WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode, label string, def bool) Step {
	return g.Do(ctx, Action{
		Label:    label,
		Target:   path,
		Default:  def,
		Question: fmt.Sprintf("Write %s (%s)?", label, path),
		Apply: func(context.Context) (int64, error) {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return 0, err
			}
			return 0, fsutil.WriteFileAtomic(path, data, perm)
		},
	})
}

// ─── Commands ────────────────────────────────────────────────────────────────

// Run executes a mutating command. Dry-run prints the command line instead.
func (g *Guard) Run(ctx context.Context, label string, def bool, name string, args ...string) Step {
	cmdLine := runner.Quote(append([]string{name}, args...)...)
	return g.Do(ctx, Action{
		Label:    label,
		Target:   cmdLine,
		Default:  def,
		Question: fmt.Sprintf("%s: run `%s`?", label, cmdLine),
		Apply: func(ctx context.Context) (int64, error) {
			res, err := g.runner.Run(ctx, name, args...)
			if err != nil {
				return 0, err
			}
			g.logger.Debug("command ok", "cmd", cmdLine, "output", res.Combined())
			return 0, nil
		},
	})
}
