// Package terminal drives the interactive session: raw-mode line editing
// with completion on tab and '?', and the read-execute loop around the
// shell.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/routelab/rtsh/internal/shell"
)

// Run reads lines from the terminal and executes them until the operator
// exits or the context is cancelled. The terminal is held in raw mode
// while editing and restored to cooked mode around each command, so
// external stages and the pager see a normal tty.
func Run(ctx context.Context, sh *shell.Shell) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("stdin is not a terminal")
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	rw := struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}
	tm := term.NewTerminal(rw, sh.Hostname()+"# ")
	c := &completer{sh: sh, tm: tm}
	tm.AutoCompleteCallback = c.autoComplete

	for {
		line, err := tm.ReadLine()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		switch strings.TrimSpace(line) {
		case "exit", "quit", "end":
			return nil
		}

		// Cooked mode for the command: the pager and external stages
		// expect a normal tty.
		term.Restore(fd, oldState)
		sh.Execute(ctx, line)
		if _, err := term.MakeRaw(fd); err != nil {
			return fmt.Errorf("raw mode: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// candidate is one completion suggestion from either the command tree or
// the filter registry.
type candidate struct {
	Value string
	Help  string
}

type completer struct {
	sh *shell.Shell
	tm *term.Terminal
}

// autoComplete handles tab and '?'. Tab with a single word candidate
// completes it inline; anything else lists the candidates above the
// prompt and leaves the line untouched.
func (c *completer) autoComplete(line string, pos int, key rune) (string, int, bool) {
	if key != '\t' && key != '?' {
		return "", 0, false
	}

	cands, n := complete(c.sh, line[:pos])
	if len(cands) == 0 {
		// Swallow the key; inserting a literal tab or '?' into a
		// command line is never useful.
		return line, pos, true
	}

	if key == '\t' && len(cands) == 1 && !isHint(cands[0].Value) {
		insert := cands[0].Value[n:] + " "
		newLine := line[:pos] + insert + line[pos:]
		return newLine, pos + len(insert), true
	}

	c.printCandidates(cands)
	return line, pos, true
}

// complete computes the candidates for the text left of the cursor. Text
// after the rightmost '|' completes against the filter registry, provided
// the base command supports piping; everything else completes against the
// command tree.
func complete(sh *shell.Shell, text string) ([]candidate, int) {
	if i := strings.LastIndexByte(text, '|'); i >= 0 {
		first := strings.IndexByte(text, '|')
		m, err := sh.Tree().Resolve(text[:first])
		if err != nil || !m.Pipeable() {
			return nil, 0
		}
		after := strings.TrimLeft(text[i+1:], " \t")
		pcands, n := sh.Pipes().Complete(after)
		cands := make([]candidate, len(pcands))
		for j, pc := range pcands {
			cands[j] = candidate{Value: pc.Value, Help: pc.Help}
		}
		return cands, n
	}

	tcands, n := sh.Tree().Complete(text)
	cands := make([]candidate, len(tcands))
	for j, tc := range tcands {
		cands[j] = candidate{Value: tc.Value, Help: tc.Help}
	}
	return cands, n
}

// isHint reports whether a candidate is an argument placeholder (shown
// uppercase) rather than a completable word.
func isHint(v string) bool {
	return v == strings.ToUpper(v) && v != strings.ToLower(v)
}

func (c *completer) printCandidates(cands []candidate) {
	var b strings.Builder
	for _, cand := range cands {
		fmt.Fprintf(&b, "  %-24s %s\r\n", cand.Value, cand.Help)
	}
	c.tm.Write([]byte(b.String()))
}
