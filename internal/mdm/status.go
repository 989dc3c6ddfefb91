// Package mdm inspects MDM enrollment and backs up, removes and restores the
// on-disk configuration profile records.
package mdm

import (
	"context"
	"fmt"
	"strings"

	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/runner"
)

var macOSVersion = core.MacOSVersion

// Enrollment is the parsed output of `profiles status -type enrollment`.
type Enrollment struct {
	Enrolled     bool
	UserApproved bool
	DEP          bool
	Server       string
}

// ParseEnrollment interprets `profiles status -type enrollment` output:
//
//	Enrolled via DEP: Yes
//	MDM enrollment: Yes (User Approved)
//	MDM server: https://mdm.example.com/mdm
func ParseEnrollment(out string) Enrollment {
	var e Enrollment
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		yes := strings.HasPrefix(strings.ToLower(value), "yes")

		switch key {
		case "enrolled via dep":
			e.DEP = yes
		case "mdm enrollment":
			e.Enrolled = yes
			e.UserApproved = strings.Contains(strings.ToLower(value), "user approved")
		case "mdm server":
			e.Server = value
		}
	}
	return e
}

// Status queries the enrollment state. `profiles status -type enrollment`
// first shipped with 10.13.
func Status(ctx context.Context, r runner.Runner) (Enrollment, error) {
	if v := macOSVersion(); v != "" && !core.MacOSVersionAtLeast(v, 10, 13) {
		return Enrollment{}, core.Preconditionf("mdm: enrollment status needs macOS 10.13 or later (running %s)", v)
	}
	out, err := runner.Output(ctx, r, "profiles", "status", "-type", "enrollment")
	if err != nil {
		return Enrollment{}, fmt.Errorf("mdm: profiles status: %w", err)
	}
	return ParseEnrollment(out), nil
}
