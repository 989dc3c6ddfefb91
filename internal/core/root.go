package core

import (
	"errors"
	"fmt"
	"os"
)

// ErrPrecondition marks fatal precondition failures (wrong privilege level,
// SIP enabled, Time Machine running, no usable disk). Commands that fail
// with an error wrapping ErrPrecondition exit with status 1 before mutating
// anything.
var ErrPrecondition = errors.New("precondition failed")

// PreconditionError describes why a command refused to start.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPrecondition, e.Reason)
}

// Unwrap lets errors.Is(err, ErrPrecondition) match.
func (e *PreconditionError) Unwrap() error {
	return ErrPrecondition
}

// Preconditionf builds a PreconditionError with a formatted reason.
func Preconditionf(format string, args ...any) error {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...)}
}

// RootChecker abstracts privilege checking for testability.
type RootChecker interface {
	// IsRoot returns true if the current process has root privileges.
	IsRoot() bool
}

// OSRootChecker checks the effective user ID of the running process.
type OSRootChecker struct{}

// IsRoot implements RootChecker.
func (OSRootChecker) IsRoot() bool {
	return IsRoot()
}

// IsRoot reports whether the process runs with an effective UID of 0.
func IsRoot() bool {
	return os.Geteuid() == 0
}

// RequireRoot returns a PreconditionError naming action when rc is not root.
func RequireRoot(rc RootChecker, action string) error {
	if rc.IsRoot() {
		return nil
	}
	return Preconditionf("%s requires root privileges (re-run with sudo)", action)
}
