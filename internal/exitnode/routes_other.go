//go:build !linux

package exitnode

import "net/netip"

func netlinkRoutes(string) ([]netip.Prefix, error) {
	return nil, errNoNetlink
}
