package harness

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// maxPromptAttempts bounds re-asking after unrecognized answers.
const maxPromptAttempts = 3

// Prompter asks yes/no questions.
type Prompter interface {
	Confirm(question string, def bool) bool
}

// linePrompter reads answers line by line.
type linePrompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// NewPrompter returns a Prompter reading from in and writing questions to
// out. When interactive is false every question resolves to its default
// without reading input.
func NewPrompter(in io.Reader, out io.Writer, interactive bool) Prompter {
	return &linePrompter{in: bufio.NewReader(in), out: out, interactive: interactive}
}

// StdinIsTerminal reports whether os.Stdin is attached to a terminal.
func StdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Confirm implements Prompter. "y"/"yes" and "n"/"no" are accepted in any
// case; an empty line or end of input selects def.
func (p *linePrompter) Confirm(question string, def bool) bool {
	if !p.interactive {
		return def
	}

	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}

	for attempt := 0; attempt < maxPromptAttempts; attempt++ {
		fmt.Fprintf(p.out, "%s %s ", question, hint)

		line, err := p.in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		switch answer {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		case "":
			if err != nil {
				fmt.Fprintln(p.out)
			}
			return def
		}
		if err != nil {
			fmt.Fprintln(p.out)
			return def
		}
		fmt.Fprintln(p.out, "Please answer y or n.")
	}
	return def
}

// FixedPrompter always answers with its value. Useful for tests and for
// callers that have already decided.
type FixedPrompter bool

// Confirm implements Prompter.
func (f FixedPrompter) Confirm(string, bool) bool { return bool(f) }
