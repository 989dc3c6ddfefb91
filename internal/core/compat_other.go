//go:build !darwin

package core

func productVersion() string {
	return ""
}
