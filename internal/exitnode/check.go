package exitnode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/lakshaymaurya-felt/macmole/internal/runner"
	"github.com/lakshaymaurya-felt/macmole/internal/ui"
)

// Check is the result of one health probe.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// tailscaleStatus is the subset of `tailscale status --json` we read.
type tailscaleStatus struct {
	BackendState string `json:"BackendState"`
	Self         struct {
		HostName       string   `json:"HostName"`
		TailscaleIPs   []string `json:"TailscaleIPs"`
		ExitNodeOption bool     `json:"ExitNodeOption"`
	} `json:"Self"`
}

// tailscalePrefs is the subset of `tailscale debug prefs` we read.
type tailscalePrefs struct {
	AdvertiseRoutes []string `json:"AdvertiseRoutes"`
}

// ParseStatus decodes `tailscale status --json`.
func ParseStatus(out string) (backend string, exitNodeOption bool, err error) {
	var st tailscaleStatus
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		return "", false, fmt.Errorf("exitnode: parse tailscale status: %w", err)
	}
	return st.BackendState, st.Self.ExitNodeOption, nil
}

// ParsePrefs returns the advertised routes from `tailscale debug prefs`.
func ParsePrefs(out string) ([]string, error) {
	var p tailscalePrefs
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		return nil, fmt.Errorf("exitnode: parse tailscale prefs: %w", err)
	}
	return p.AdvertiseRoutes, nil
}

// advertisesExitNode reports whether routes include a default route, which
// is how tailscale records --advertise-exit-node.
func advertisesExitNode(routes []string) bool {
	return slices.Contains(routes, "0.0.0.0/0") || slices.Contains(routes, "::/0")
}

// Run performs every read-only check. Probes never mutate the target, so
// they use the runner directly.
func Run(ctx context.Context, r runner.Runner) []Check {
	var checks []Check

	path, err := r.LookPath("tailscale")
	if err != nil {
		return append(checks, Check{Name: "tailscale installed", Detail: "not found in PATH"})
	}
	checks = append(checks, Check{Name: "tailscale installed", OK: true, Detail: path})

	var backend string
	var exitOption bool
	out, err := runner.Output(ctx, r, "tailscale", "status", "--json")
	if err == nil {
		backend, exitOption, err = ParseStatus(out)
	}
	if err != nil {
		checks = append(checks, Check{Name: "tailscaled running", Detail: err.Error()})
	} else {
		checks = append(checks, Check{Name: "tailscaled running", OK: backend == "Running", Detail: "state " + backend})
	}

	fwd, err := runner.Output(ctx, r, "sysctl", "-n", "net.ipv4.ip_forward")
	if err != nil {
		checks = append(checks, Check{Name: "IPv4 forwarding", Detail: err.Error()})
	} else {
		checks = append(checks, Check{Name: "IPv4 forwarding", OK: fwd == "1", Detail: "net.ipv4.ip_forward=" + fwd})
	}

	zone, err := runner.Output(ctx, r, "uci", "-q", "get", "firewall."+ZoneName+".name")
	checks = append(checks, Check{
		Name:   "firewall zone",
		OK:     err == nil && zone == ZoneName,
		Detail: zoneDetail(zone, err),
	})

	advertised := exitOption
	detail := "exit node not advertised"
	if prefs, err := runner.Output(ctx, r, "tailscale", "debug", "prefs"); err == nil {
		if routes, perr := ParsePrefs(prefs); perr == nil && advertisesExitNode(routes) {
			advertised = true
		}
	}
	if advertised {
		detail = "advertised"
		if !exitOption {
			detail = "advertised, awaiting approval"
		}
	}
	checks = append(checks, Check{Name: "exit node advertised", OK: advertised, Detail: detail})

	return checks
}

func zoneDetail(zone string, err error) string {
	if err != nil || zone == "" {
		return "zone " + ZoneName + " missing"
	}
	return "zone " + zone
}

// Healthy reports whether every check passed.
func Healthy(checks []Check) bool {
	for _, c := range checks {
		if !c.OK {
			return false
		}
	}
	return len(checks) > 0
}

// Render prints the checks as a pass/fail list.
func Render(w io.Writer, checks []Check) {
	ui.Section(w, "Exit node health")
	width := 0
	for _, c := range checks {
		width = max(width, len(c.Name))
	}
	for _, c := range checks {
		line := c.Name + strings.Repeat(" ", width-len(c.Name)) + "  " + ui.MutedStyle.Render(c.Detail)
		if c.OK {
			ui.Success(w, "%s", line)
		} else {
			ui.Error(w, "%s", line)
		}
	}
}
