package terminal

import (
	"io"
	"os"

	"github.com/muesli/termenv"
)

// ColorStderr wraps stderr so diagnostics render in red on capable
// terminals. Dumb terminals and redirected streams get the bytes
// unchanged.
func ColorStderr() io.Writer {
	out := termenv.NewOutput(os.Stderr)
	if out.Profile == termenv.Ascii {
		return os.Stderr
	}
	return &colorWriter{out: out}
}

type colorWriter struct {
	out *termenv.Output
}

func (c *colorWriter) Write(p []byte) (int, error) {
	styled := c.out.String(string(p)).Foreground(termenv.ANSIRed)
	if _, err := io.WriteString(c.out, styled.String()); err != nil {
		return 0, err
	}
	return len(p), nil
}
