package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// MacOSVersion returns the product version of the running macOS (e.g. "14.5").
// Reads kern.osproductversion directly on darwin and falls back to gopsutil's
// platform information elsewhere. Returns "" when neither source answers.
func MacOSVersion() string {
	if v := productVersion(); v != "" {
		return v
	}
	_, _, version, err := host.PlatformInformation()
	if err != nil {
		return ""
	}
	return version
}

// ParseVersion splits a dotted version string into major, minor and patch
// numbers. Missing components are zero; garbage yields an error.
func ParseVersion(v string) (major, minor, patch int, err error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, 0, 0, fmt.Errorf("core: empty version string")
	}

	parts := strings.SplitN(v, ".", 3)
	nums := make([]int, 3)
	for i, p := range parts {
		n, convErr := strconv.Atoi(p)
		if convErr != nil {
			return 0, 0, 0, fmt.Errorf("core: invalid version %q: %w", v, convErr)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}

// MacOSVersionAtLeast reports whether version is >= major.minor.
func MacOSVersionAtLeast(version string, major, minor int) bool {
	maj, mnr, _, err := ParseVersion(version)
	if err != nil {
		return false
	}
	if maj != major {
		return maj > major
	}
	return mnr >= minor
}

// MacOSVersionString returns a human-readable macOS version string.
// Examples: "macOS Sonoma 14.5", "macOS 10.15.7"
func MacOSVersionString(version string) string {
	major, minor, _, err := ParseVersion(version)
	if err != nil {
		return "macOS (unknown version)"
	}

	var name string
	switch {
	case major >= 26:
		name = "Tahoe"
	case major == 15:
		name = "Sequoia"
	case major == 14:
		name = "Sonoma"
	case major == 13:
		name = "Ventura"
	case major == 12:
		name = "Monterey"
	case major == 11:
		name = "Big Sur"
	case major == 10 && minor == 15:
		name = "Catalina"
	case major == 10 && minor == 14:
		name = "Mojave"
	}

	if name == "" {
		return "macOS " + version
	}
	return fmt.Sprintf("macOS %s %s", name, version)
}
