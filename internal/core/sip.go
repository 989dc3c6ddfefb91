package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/lakshaymaurya-felt/macmole/internal/runner"
)

// SIPState is the System Integrity Protection status reported by csrutil.
type SIPState int

const (
	SIPUnknown SIPState = iota
	SIPEnabled
	SIPDisabled
	// SIPCustom covers "enabled (Custom Configuration)" and similar partial states.
	SIPCustom
)

func (s SIPState) String() string {
	switch s {
	case SIPEnabled:
		return "enabled"
	case SIPDisabled:
		return "disabled"
	case SIPCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// ParseSIPStatus interprets `csrutil status` output.
func ParseSIPStatus(out string) SIPState {
	lower := strings.ToLower(out)
	idx := strings.Index(lower, "system integrity protection status:")
	if idx < 0 {
		return SIPUnknown
	}
	rest := strings.TrimSpace(lower[idx+len("system integrity protection status:"):])
	switch {
	case strings.HasPrefix(rest, "disabled"):
		return SIPDisabled
	case strings.HasPrefix(rest, "enabled") && strings.Contains(rest, "custom configuration"):
		return SIPCustom
	case strings.HasPrefix(rest, "enabled"):
		return SIPEnabled
	case strings.HasPrefix(rest, "unknown"):
		return SIPCustom
	}
	return SIPUnknown
}

// SIPStatus runs `csrutil status` and parses the answer.
func SIPStatus(ctx context.Context, r runner.Runner) (SIPState, error) {
	out, err := runner.Output(ctx, r, "csrutil", "status")
	if err != nil {
		return SIPUnknown, fmt.Errorf("core: csrutil status: %w", err)
	}
	return ParseSIPStatus(out), nil
}
