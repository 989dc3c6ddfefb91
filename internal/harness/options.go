// Package harness runs destructive steps (path removal, mutating commands,
// file writes) under one of three fixed modes and records what happened.
// A failing step is reported as a warning and never aborts the run.
package harness

// Mode selects how guarded actions behave. It is fixed for the lifetime
// of a Guard.
type Mode int

const (
	// ModeInteractive asks before each action, falling back to the step's
	// default answer when no answer can be read.
	ModeInteractive Mode = iota
	// ModeAssumeYes proceeds without asking.
	ModeAssumeYes
	// ModeDryRun reports what would happen and mutates nothing.
	ModeDryRun
)

func (m Mode) String() string {
	switch m {
	case ModeAssumeYes:
		return "assume-yes"
	case ModeDryRun:
		return "dry-run"
	default:
		return "interactive"
	}
}

// Options carries the run-wide settings every workflow receives.
type Options struct {
	Mode       Mode
	Aggressive bool
}

// OptionsFromFlags maps command-line flags onto Options. Dry-run wins over
// --yes so that a combined invocation never mutates anything.
func OptionsFromFlags(dryRun, yes, aggressive bool) Options {
	mode := ModeInteractive
	switch {
	case dryRun:
		mode = ModeDryRun
	case yes:
		mode = ModeAssumeYes
	}
	return Options{Mode: mode, Aggressive: aggressive}
}

// DryRun reports whether the mode is ModeDryRun.
func (o Options) DryRun() bool {
	return o.Mode == ModeDryRun
}
