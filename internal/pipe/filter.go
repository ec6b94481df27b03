package pipe

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// The built-in filter bodies. Each consumes its input to EOF and writes
// line-oriented output; per-run state (the begin trigger, the count
// total) lives on the stack of the single chain run.

// Include emits only input lines containing the pattern.
func Include(args []string, r io.Reader, w io.Writer) error {
	pattern := args[0]
	return eachLine(r, w, func(line string, out *bufio.Writer) error {
		if strings.Contains(line, pattern) {
			_, err := fmt.Fprintln(out, line)
			return err
		}
		return nil
	})
}

// Exclude emits only input lines not containing the pattern.
func Exclude(args []string, r io.Reader, w io.Writer) error {
	pattern := args[0]
	return eachLine(r, w, func(line string, out *bufio.Writer) error {
		if !strings.Contains(line, pattern) {
			_, err := fmt.Fprintln(out, line)
			return err
		}
		return nil
	})
}

// Count exhausts its input and emits a single line with the number of
// input lines consumed.
func Count(_ []string, r io.Reader, w io.Writer) error {
	count := 0
	if err := eachLine(r, w, func(string, *bufio.Writer) error {
		count++
		return nil
	}); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, count)
	return err
}

// Begin suppresses all lines until the first line containing the pattern,
// then emits that line and every line after it unchanged.
func Begin(args []string, r io.Reader, w io.Writer) error {
	pattern := args[0]
	started := false
	return eachLine(r, w, func(line string, out *bufio.Writer) error {
		if !started && strings.Contains(line, pattern) {
			started = true
		}
		if started {
			_, err := fmt.Fprintln(out, line)
			return err
		}
		return nil
	})
}

// NoMore passes its input through unchanged. The stage's real effect,
// suppressing the pager, is applied by the chain builder; this body only
// runs if the stage is registered without that handling.
func NoMore(_ []string, r io.Reader, w io.Writer) error {
	_, err := io.Copy(w, r)
	return err
}

// eachLine drives a line-oriented filter: it scans r to EOF, invokes fn
// per line with a shared buffered writer, and flushes before returning.
func eachLine(r io.Reader, w io.Writer, fn func(line string, out *bufio.Writer) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	out := bufio.NewWriter(w)
	for sc.Scan() {
		if err := fn(sc.Text(), out); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return out.Flush()
}
