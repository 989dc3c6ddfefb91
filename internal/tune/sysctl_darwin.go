//go:build darwin

package tune

import (
	"encoding/binary"
	"strconv"

	"golang.org/x/sys/unix"
)

// readSysctlNative reads an integer sysctl. Values are 4 or 8 bytes wide
// depending on the kernel type (int or u_long).
func readSysctlNative(key string) (string, bool) {
	raw, err := unix.SysctlRaw(key)
	if err != nil {
		return "", false
	}
	switch len(raw) {
	case 4:
		return strconv.FormatInt(int64(int32(binary.LittleEndian.Uint32(raw))), 10), true
	case 8:
		return strconv.FormatUint(binary.LittleEndian.Uint64(raw), 10), true
	}
	return "", false
}
