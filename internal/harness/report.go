package harness

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/ui"
)

// Outcome is the result of one guarded step.
type Outcome int

const (
	// Done means the action ran and succeeded.
	Done Outcome = iota
	// Skipped means the operator declined or a rule excluded the target.
	Skipped
	// DryRun means the action was only reported.
	DryRun
	// Failed means the action ran and failed; the run continued.
	Failed
	// Missing means the target did not exist. Counts as success.
	Missing
)

func (o Outcome) String() string {
	switch o {
	case Done:
		return "done"
	case Skipped:
		return "skipped"
	case DryRun:
		return "dry-run"
	case Failed:
		return "failed"
	case Missing:
		return "missing"
	}
	return "unknown"
}

// Step records one guarded action.
type Step struct {
	Label   string
	Target  string
	Outcome Outcome
	// Bytes is the space freed (Done) or that would be freed (DryRun).
	Bytes int64
	Err   error
	// Reason explains Skipped outcomes that were not an operator decision.
	Reason string
}

// OK reports whether the step counts as a success.
func (s Step) OK() bool {
	return s.Outcome != Failed
}

// Report accumulates steps for the end-of-run summary. Safe for
// concurrent use.
type Report struct {
	mu    sync.Mutex
	steps []Step
}

// Add records a step.
func (r *Report) Add(s Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, s)
}

// Steps returns a copy of every recorded step.
func (r *Report) Steps() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// Count returns how many steps ended with o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, s := range r.Steps() {
		if s.Outcome == o {
			n++
		}
	}
	return n
}

// Freed sums bytes of completed steps.
func (r *Report) Freed() int64 {
	return r.sumBytes(Done)
}

// WouldFree sums bytes of dry-run steps.
func (r *Report) WouldFree() int64 {
	return r.sumBytes(DryRun)
}

func (r *Report) sumBytes(o Outcome) int64 {
	var total int64
	for _, s := range r.Steps() {
		if s.Outcome == o {
			total += s.Bytes
		}
	}
	return total
}

// Failures returns the failed steps in order.
func (r *Report) Failures() []Step {
	var out []Step
	for _, s := range r.Steps() {
		if s.Outcome == Failed {
			out = append(out, s)
		}
	}
	return out
}

// Render writes the summary block.
func (r *Report) Render(w io.Writer) {
	counts := []string{
		fmt.Sprintf("%d done", r.Count(Done)),
		fmt.Sprintf("%d skipped", r.Count(Skipped)),
		fmt.Sprintf("%d not found", r.Count(Missing)),
		fmt.Sprintf("%d failed", r.Count(Failed)),
	}
	if n := r.Count(DryRun); n > 0 {
		counts = append([]string{fmt.Sprintf("%d simulated", n)}, counts...)
	}

	lines := []string{ui.TitleStyle.Render("Summary"), strings.Join(counts, ", ")}
	if freed := r.Freed(); freed > 0 {
		lines = append(lines, "Freed: "+ui.SuccessStyle.Render(core.FormatSize(freed)))
	}
	if would := r.WouldFree(); would > 0 {
		lines = append(lines, "Would free: "+ui.DryRunStyle.Render(core.FormatSize(would)))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.CardStyle.Render(strings.Join(lines, "\n")))

	for _, f := range r.Failures() {
		ui.Warning(w, "%s: %v", f.Label, f.Err)
	}
}
