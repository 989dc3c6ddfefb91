//go:build linux

package exitnode

import (
	"fmt"
	"net/netip"

	"github.com/vishvananda/netlink"
)

func netlinkRoutes(iface string) ([]netip.Prefix, error) {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return nil, fmt.Errorf("exitnode: lookup interface %q: %w", iface, err)
	}
	routes, err := netlink.RouteList(link, netlink.FAMILY_V4)
	if err != nil {
		return nil, fmt.Errorf("exitnode: list routes on %q: %w", iface, err)
	}

	var prefixes []netip.Prefix
	for _, rt := range routes {
		if rt.Dst == nil || rt.Scope != netlink.SCOPE_LINK {
			continue
		}
		addr, ok := netip.AddrFromSlice(rt.Dst.IP)
		if !ok {
			continue
		}
		ones, _ := rt.Dst.Mask.Size()
		prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), ones))
	}
	return prefixes, nil
}
