package clean

import (
	"context"
	"regexp"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/runner"
)

// tmRunningPattern matches the "Running = 1;" line in `tmutil status`.
var tmRunningPattern = regexp.MustCompile(`(?m)^\s*Running\s*=\s*1;`)

// ParseTMStatus reports whether `tmutil status` output shows a backup in
// progress.
func ParseTMStatus(out string) bool {
	return tmRunningPattern.MatchString(out)
}

// processNames lists running process names. Replaced in tests.
var processNames = func(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// TimeMachineRunning asks tmutil whether a backup is in progress. When
// tmutil cannot answer, a running backupd process is taken as a backup in
// progress.
func TimeMachineRunning(ctx context.Context, r runner.Runner) bool {
	out, err := runner.Output(ctx, r, "tmutil", "status")
	if err == nil {
		return ParseTMStatus(out)
	}

	names, perr := processNames(ctx)
	if perr != nil {
		return false
	}
	for _, n := range names {
		if n == "backupd" {
			return true
		}
	}
	return false
}

// Preflight returns a PreconditionError when cleanup must not start:
// a Time Machine backup is running, or system targets were explicitly
// requested without root.
func Preflight(ctx context.Context, r runner.Runner, rc core.RootChecker, systemRequested bool) error {
	if TimeMachineRunning(ctx, r) {
		return core.Preconditionf("a Time Machine backup is running; wait for it to finish")
	}
	if systemRequested {
		return core.RequireRoot(rc, "cleaning system caches")
	}
	return nil
}
