package ui

import (
	"fmt"
	"io"
	"strings"
)

// Section prints a bold section header followed by a blank line.
func Section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", HeaderStyle.Render(title))
}

// Info prints a plain progress line.
func Info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s %s\n", MutedStyle.Render(IconBullet), fmt.Sprintf(format, args...))
}

// Success prints a completed step.
func Success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s %s\n", SuccessStyle.Render(IconSuccess), fmt.Sprintf(format, args...))
}

// Warning prints a best-effort failure that did not stop the run.
func Warning(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s %s\n", WarningStyle.Render(IconWarning), fmt.Sprintf(format, args...))
}

// Error prints a failure.
func Error(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s %s\n", ErrorStyle.Render(IconError), fmt.Sprintf(format, args...))
}

// DryRun prints an action that would have been taken.
func DryRun(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s %s %s\n",
		DryRunStyle.Render(IconDryRun),
		DryRunStyle.Render("[dry-run]"),
		fmt.Sprintf(format, args...))
}

// Skipped prints a step the operator declined or a rule excluded.
func Skipped(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s %s\n", MutedStyle.Render(IconSkip), MutedStyle.Render(fmt.Sprintf(format, args...)))
}

// KeyValue renders aligned "key  value" rows.
func KeyValue(w io.Writer, rows [][2]string) {
	width := 0
	for _, r := range rows {
		if len(r[0]) > width {
			width = len(r[0])
		}
	}
	for _, r := range rows {
		key := r[0] + strings.Repeat(" ", width-len(r[0]))
		fmt.Fprintf(w, "  %s  %s\n", MutedStyle.Render(key), r[1])
	}
}
