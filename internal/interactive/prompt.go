// Package interactive provides interactive prompts for user confirmation.
package interactive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks questions on a line-oriented reader.
type Prompter struct {
	out     io.Writer
	scanner *bufio.Scanner
}

// NewPrompterWithIO creates a prompter reading answers from in and writing questions to out.
func NewPrompterWithIO(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		out:     out,
		scanner: bufio.NewScanner(in),
	}
}

// Confirm prints "question [y/N] " and reads one line. Only y or yes
// (any case) confirm; anything else, including end of input, declines.
func (p *Prompter) Confirm(question string) (bool, error) {
	_, _ = fmt.Fprintf(p.out, "%s [y/N] ", question)

	if !p.scanner.Scan() {
		_, _ = fmt.Fprintln(p.out)
		if err := p.scanner.Err(); err != nil {
			return false, fmt.Errorf("reading answer: %w", err)
		}
		return false, nil
	}

	switch strings.ToLower(strings.TrimSpace(p.scanner.Text())) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// AutoConfirmer answers yes to everything and says so.
type AutoConfirmer struct {
	out io.Writer
}

// NewAutoConfirmer creates an unattended confirmer writing notices to out.
func NewAutoConfirmer(out io.Writer) *AutoConfirmer {
	if out == nil {
		out = io.Discard
	}
	return &AutoConfirmer{out: out}
}

// Confirm always returns true.
func (a *AutoConfirmer) Confirm(question string) (bool, error) {
	_, _ = fmt.Fprintf(a.out, "Auto-confirming: %s\n", question)
	return true, nil
}

// IsTerminalWriter reports whether w is a terminal.
func IsTerminalWriter(w io.Writer) bool {
	return isTerminalFile(w)
}

// IsTerminalReader reports whether r is a terminal.
func IsTerminalReader(r io.Reader) bool {
	return isTerminalFile(r)
}

func isTerminalFile(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
