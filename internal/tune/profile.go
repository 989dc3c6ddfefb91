// Package tune compares and applies the network (sysctl) and power (pmset)
// tuning profiles, and persists the sysctl profile across reboots with a
// LaunchDaemon.
package tune

import (
	"sort"
)

// Setting is one tunable with its current and desired values.
type Setting struct {
	Key     string
	Current string
	Desired string
	// Supported is false when the current value could not be read.
	Supported bool
}

// Differs reports whether applying the setting would change anything.
func (s Setting) Differs() bool {
	return s.Supported && s.Current != s.Desired
}

// Compare pairs desired values with current ones, sorted by key. Keys
// missing from current are marked unsupported.
func Compare(current, desired map[string]string) []Setting {
	keys := make([]string, 0, len(desired))
	for k := range desired {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Setting, 0, len(keys))
	for _, k := range keys {
		cur, ok := current[k]
		out = append(out, Setting{Key: k, Current: cur, Desired: desired[k], Supported: ok})
	}
	return out
}

// Changes returns the settings that differ.
func Changes(settings []Setting) []Setting {
	var out []Setting
	for _, s := range settings {
		if s.Differs() {
			out = append(out, s)
		}
	}
	return out
}
