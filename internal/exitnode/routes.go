package exitnode

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"slices"
	"strings"

	"github.com/lakshaymaurya-felt/macmole/internal/harness"
	"github.com/lakshaymaurya-felt/macmole/internal/runner"
)

// errNoNetlink is returned where netlink route listing is unavailable.
var errNoNetlink = errors.New("netlink not supported on this platform")

// localRoutes lists link-scope IPv4 routes on iface of the current host.
// Replaced in tests.
var localRoutes = netlinkRoutes

// ParseIPRoutes extracts prefixes from `ip -4 route show dev X scope link`:
//
//	192.168.1.0/24 proto kernel src 192.168.1.1
func ParseIPRoutes(out string) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		p, err := netip.ParsePrefix(fields[0])
		if err != nil {
			continue
		}
		prefixes = append(prefixes, p.Masked())
	}
	return normalize(prefixes)
}

// normalize drops default and host routes, then sorts and dedups.
func normalize(prefixes []netip.Prefix) []netip.Prefix {
	var out []netip.Prefix
	for _, p := range prefixes {
		if p.Bits() == 0 || p.IsSingleIP() {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b netip.Prefix) int {
		if c := a.Addr().Compare(b.Addr()); c != 0 {
			return c
		}
		return a.Bits() - b.Bits()
	})
	return slices.Compact(out)
}

// DiscoverRoutes finds the LAN subnets attached to iface. On the local
// host netlink is asked directly; otherwise, or when netlink fails, the
// `ip` command is run through r.
func DiscoverRoutes(ctx context.Context, r runner.Runner, iface string, local bool) ([]netip.Prefix, error) {
	if local {
		if prefixes, err := localRoutes(iface); err == nil {
			return normalize(prefixes), nil
		}
	}
	out, err := runner.Output(ctx, r, "ip", "-4", "route", "show", "dev", iface, "scope", "link")
	if err != nil {
		return nil, fmt.Errorf("exitnode: list routes on %s: %w", iface, err)
	}
	return ParseIPRoutes(out), nil
}

// FormatRoutes joins prefixes for --advertise-routes.
func FormatRoutes(prefixes []netip.Prefix) string {
	parts := make([]string, len(prefixes))
	for i, p := range prefixes {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}

// ApplyRoutes advertises prefixes through tailscale.
func ApplyRoutes(ctx context.Context, g *harness.Guard, prefixes []netip.Prefix) error {
	if len(prefixes) == 0 {
		return errors.New("exitnode: no routes to advertise")
	}
	step := g.Run(ctx, "Advertise LAN routes", true,
		"tailscale", "set", "--advertise-routes="+FormatRoutes(prefixes))
	if step.Outcome == harness.Failed {
		return fmt.Errorf("exitnode: advertise routes: %w", step.Err)
	}
	return nil
}
