// Package exitnode turns an OpenWrt router into a Tailscale exit node and
// verifies the result. Commands run through a runner.Runner, so the router
// can be the local machine or a host reached over SSH.
package exitnode

import (
	"context"
	"fmt"
	"strings"

	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/harness"
	"github.com/lakshaymaurya-felt/macmole/internal/ui"
)

const (
	// SysctlConfPath holds the forwarding settings that survive reboots.
	SysctlConfPath = "/etc/sysctl.d/99-tailscale.conf"
	// TunnelDevice is the interface tailscaled creates.
	TunnelDevice = "tailscale0"
	// ZoneName is the firewall zone for the tunnel.
	ZoneName = "tailscale"
)

const sysctlConf = "net.ipv4.ip_forward=1\nnet.ipv6.conf.all.forwarding=1\n"

// Command is one install step.
type Command struct {
	Label string
	Args  []string
	// Critical steps stop the install when they fail.
	Critical bool
}

// InstallOptions customise the install.
type InstallOptions struct {
	// AdvertiseRoutes are LAN subnets announced alongside the exit node.
	AdvertiseRoutes []string
}

func cmd(label string, args ...string) Command {
	return Command{Label: label, Args: args}
}

func critical(label string, args ...string) Command {
	return Command{Label: label, Args: args, Critical: true}
}

// InstallPlan returns the ordered install commands.
func InstallPlan(opts InstallOptions) []Command {
	writeConf := fmt.Sprintf("printf %s > %s", shellQuote(sysctlConf), SysctlConfPath)

	up := []string{"tailscale", "up", "--advertise-exit-node"}
	if len(opts.AdvertiseRoutes) > 0 {
		up = append(up, "--advertise-routes="+strings.Join(opts.AdvertiseRoutes, ","))
	}

	return []Command{
		critical("Update package lists", "opkg", "update"),
		critical("Install tailscale", "opkg", "install", "tailscale"),
		cmd("Write forwarding settings", "sh", "-c", writeConf),
		cmd("Load forwarding settings", "sysctl", "-p", SysctlConfPath),
		critical("Enable tailscaled at boot", "/etc/init.d/tailscale", "enable"),
		critical("Start tailscaled", "/etc/init.d/tailscale", "start"),

		cmd("Create tunnel interface", "uci", "set", "network."+TunnelDevice+"=interface"),
		cmd("Set tunnel protocol", "uci", "set", "network."+TunnelDevice+".proto=none"),
		cmd("Bind tunnel device", "uci", "set", "network."+TunnelDevice+".device="+TunnelDevice),
		cmd("Commit network", "uci", "commit", "network"),

		cmd("Create firewall zone", "uci", "set", "firewall."+ZoneName+"=zone"),
		cmd("Name firewall zone", "uci", "set", "firewall."+ZoneName+".name="+ZoneName),
		cmd("Attach zone network", "uci", "set", "firewall."+ZoneName+".network="+TunnelDevice),
		cmd("Zone input policy", "uci", "set", "firewall."+ZoneName+".input=ACCEPT"),
		cmd("Zone output policy", "uci", "set", "firewall."+ZoneName+".output=ACCEPT"),
		cmd("Zone forward policy", "uci", "set", "firewall."+ZoneName+".forward=ACCEPT"),
		cmd("Enable masquerading", "uci", "set", "firewall."+ZoneName+".masq=1"),
		cmd("Enable MSS clamping", "uci", "set", "firewall."+ZoneName+".mtu_fix=1"),
		cmd("Forward tailscale to lan", "uci", "set", "firewall.ts_lan=forwarding"),
		cmd("Forward tailscale to lan (src)", "uci", "set", "firewall.ts_lan.src="+ZoneName),
		cmd("Forward tailscale to lan (dest)", "uci", "set", "firewall.ts_lan.dest=lan"),
		cmd("Forward lan to tailscale", "uci", "set", "firewall.lan_ts=forwarding"),
		cmd("Forward lan to tailscale (src)", "uci", "set", "firewall.lan_ts.src=lan"),
		cmd("Forward lan to tailscale (dest)", "uci", "set", "firewall.lan_ts.dest="+ZoneName),
		cmd("Commit firewall", "uci", "commit", "firewall"),
		cmd("Restart firewall", "/etc/init.d/firewall", "restart"),

		critical("Advertise exit node", up...),
	}
}

// shellQuote single-quotes s for sh, keeping newlines literal for printf.
func shellQuote(s string) string {
	s = strings.ReplaceAll(s, "\n", `\n`)
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Install runs the install plan through the guard. The target must be an
// OpenWrt system with opkg; a failed critical step stops the install.
func Install(ctx context.Context, g *harness.Guard, opts InstallOptions) error {
	r := g.Runner()
	if _, err := r.LookPath("opkg"); err != nil {
		return core.Preconditionf("opkg not found; the target does not look like OpenWrt")
	}

	out := g.Out()
	ui.Section(out, "Installing Tailscale exit node")
	if !g.Confirm("Install and configure Tailscale as an exit node on this router?", true) {
		ui.Skipped(out, "install cancelled")
		return nil
	}

	for _, c := range InstallPlan(opts) {
		step := g.Run(ctx, c.Label, true, c.Args[0], c.Args[1:]...)
		if c.Critical && step.Outcome == harness.Failed {
			return fmt.Errorf("exitnode: install: %s: %w", c.Label, step.Err)
		}
		if c.Critical && step.Outcome == harness.Skipped {
			ui.Warning(out, "stopping: %q is required for the remaining steps", c.Label)
			return nil
		}
	}

	ui.Info(out, "approve the exit node in the Tailscale admin console if auto-approval is off")
	return nil
}
