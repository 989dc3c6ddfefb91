//go:build !darwin

package tune

func readSysctlNative(string) (string, bool) {
	return "", false
}
