//go:build darwin

package core

import "golang.org/x/sys/unix"

// productVersion reads kern.osproductversion. Available since macOS 10.13.4.
func productVersion() string {
	v, err := unix.Sysctl("kern.osproductversion")
	if err != nil {
		return ""
	}
	return v
}
