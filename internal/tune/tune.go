package tune

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/harness"
	"github.com/lakshaymaurya-felt/macmole/internal/runner"
	"github.com/lakshaymaurya-felt/macmole/internal/ui"
)

// ─── Reading ─────────────────────────────────────────────────────────────────

// State is the current versus desired view of both profiles.
type State struct {
	Network []Setting
	Power   []Setting
	// PowerErr is set when pmset could not be read.
	PowerErr error
}

// Read collects current values for every key in the desired profiles.
func Read(ctx context.Context, r runner.Runner, network, power map[string]string) State {
	st := State{Network: Compare(ReadSysctls(ctx, r, keysOf(network)), network)}

	current, err := ReadPower(ctx, r)
	if err != nil {
		st.PowerErr = err
		current = map[string]string{}
	}
	st.Power = Compare(current, power)
	return st
}

func keysOf(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ─── Show ────────────────────────────────────────────────────────────────────

var (
	changedStyle = lipgloss.NewStyle().Foreground(ui.ColorWarning)
	okStyle      = lipgloss.NewStyle().Foreground(ui.ColorSuccess)
)

// Show prints the current versus desired table for both profiles.
func Show(w io.Writer, st State) {
	ui.Section(w, "Network (sysctl)")
	renderSettings(w, st.Network)

	ui.Section(w, "Power (pmset)")
	if st.PowerErr != nil {
		ui.Warning(w, "could not read pmset: %v", st.PowerErr)
	}
	renderSettings(w, st.Power)

	pending := len(Changes(st.Network)) + len(Changes(st.Power))
	fmt.Fprintln(w)
	if pending == 0 {
		ui.Success(w, "all settings match the profile")
		return
	}
	ui.Info(w, "%d settings differ from the profile", pending)
}

func renderSettings(w io.Writer, settings []Setting) {
	rows := make([][2]string, 0, len(settings))
	for _, s := range settings {
		var val string
		switch {
		case !s.Supported:
			val = ui.MutedStyle.Render("unsupported")
		case s.Differs():
			val = changedStyle.Render(fmt.Sprintf("%s -> %s", s.Current, s.Desired))
		default:
			val = okStyle.Render(s.Current)
		}
		rows = append(rows, [2]string{s.Key, val})
	}
	ui.KeyValue(w, rows)
}

// ─── Apply ───────────────────────────────────────────────────────────────────

// ApplyNetwork sets every sysctl whose current value differs from desired.
// Keys the kernel does not expose are reported and skipped.
func ApplyNetwork(ctx context.Context, g *harness.Guard, rc core.RootChecker, desired map[string]string) error {
	if err := core.RequireRoot(rc, "changing network settings"); err != nil {
		return err
	}
	out := g.Out()
	ui.Section(out, "Applying network profile")

	settings := Compare(ReadSysctls(ctx, g.Runner(), keysOf(desired)), desired)
	changed := 0
	for _, s := range settings {
		switch {
		case !s.Supported:
			g.Skip(s.Key, s.Key, "not supported by this kernel")
		case s.Differs():
			g.Run(ctx, fmt.Sprintf("Set %s to %s", s.Key, s.Desired), true,
				"sysctl", "-w", s.Key+"="+s.Desired)
			changed++
		}
	}
	if changed == 0 {
		ui.Success(out, "network settings already match")
	}
	return nil
}

// ApplyPower sets every pmset value that differs from desired, for all
// power sources.
func ApplyPower(ctx context.Context, g *harness.Guard, rc core.RootChecker, desired map[string]string) error {
	if err := core.RequireRoot(rc, "changing power settings"); err != nil {
		return err
	}
	out := g.Out()
	ui.Section(out, "Applying power profile")

	current, err := ReadPower(ctx, g.Runner())
	if err != nil {
		return fmt.Errorf("tune: read pmset: %w", err)
	}

	changed := 0
	for _, s := range Compare(current, desired) {
		// pmset accepts keys it does not print, so unknown keys are still set.
		if s.Supported && !s.Differs() {
			continue
		}
		g.Run(ctx, fmt.Sprintf("Set %s to %s", s.Key, s.Desired), true,
			"pmset", "-a", s.Key, s.Desired)
		changed++
	}
	if changed == 0 {
		ui.Success(out, "power settings already match")
	}
	return nil
}
