// Package runner abstracts execution of external commands so that workflows
// can run against the local machine, a remote host over SSH, or a scripted
// fake in tests.
package runner

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Runner executes external commands.
type Runner interface {
	// Run executes name with args and waits for it to finish. A non-zero
	// exit status is reported as *ExitError alongside the captured Result.
	Run(ctx context.Context, name string, args ...string) (Result, error)

	// LookPath reports where name would be found, or an error if it is not
	// installed.
	LookPath(name string) (string, error)
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined returns stdout followed by stderr, trimmed.
func (r Result) Combined() string {
	out := strings.TrimSpace(r.Stdout)
	errOut := strings.TrimSpace(r.Stderr)
	switch {
	case out == "":
		return errOut
	case errOut == "":
		return out
	}
	return out + "\n" + errOut
}

// ExitError is returned when a command exits with a non-zero status.
type ExitError struct {
	Cmd    string
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s failed (exit code %d): %s", e.Cmd, e.Code, e.Output)
	}
	return fmt.Sprintf("%s failed (exit code %d)", e.Cmd, e.Code)
}

// Output runs a read-only probe and returns its trimmed stdout.
func Output(ctx context.Context, r Runner, name string, args ...string) (string, error) {
	res, err := r.Run(ctx, name, args...)
	if err != nil {
		return strings.TrimSpace(res.Stdout), err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// ─── Quoting ─────────────────────────────────────────────────────────────────

// Quote joins args into a single POSIX shell command line. Arguments made
// only of safe characters are left bare; everything else is single-quoted.
func Quote(args ...string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = quoteArg(a)
	}
	return strings.Join(quoted, " ")
}

func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !isSafeRune(r) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isSafeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("-_./=:,+@%", r)
}

// truncateOutput trims s to max bytes without splitting a UTF-8 sequence.
func truncateOutput(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	s = s[:max]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s + "..."
}
