package pipe

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// Chain is the live pipe chain built for one command invocation: an
// ordered set of running filter goroutines and external processes wired
// together by byte pipes, exposing a single write endpoint. A Chain must
// always be released with Finish, which is the only path that guarantees
// no process or goroutine outlives the invocation.
type Chain struct {
	endpoint io.WriteCloser
	stages   []stageHandle
	pager    *exec.Cmd
}

// stageHandle tracks one thing Finish must reclaim: either a goroutine
// (done non-nil) or a spawned process (proc non-nil). Handles are
// appended tail-first during construction, so Finish walks them in
// reverse to join from the head of the chain downwards, following the
// direction EOF propagates.
type stageHandle struct {
	name string
	done chan error
	proc *exec.Cmd
}

// Options configure chain construction.
type Options struct {
	UsePager  bool
	PagerPath string
	PagerArgs []string
	Stdout    io.Writer // final output destination, normally the terminal
	Stderr    io.Writer // stderr for external stages and the pager
}

// Build constructs the live chain for the given stages. Construction runs
// right to left (tail first): each stage's downstream sink must exist and
// be ready before the stage writing into it starts. On any spawn failure
// the partial chain is fully unwound before the error is returned.
func Build(stages []ParsedStage, reg *Registry, opts Options) (*Chain, error) {
	usePager := opts.UsePager
	for _, st := range stages {
		if st.Name == NoMoreStage {
			usePager = false
		}
	}

	c := &Chain{}
	var sink io.WriteCloser
	if usePager {
		pager := exec.Command(opts.PagerPath, opts.PagerArgs...)
		pager.Stdout = opts.Stdout
		pager.Stderr = opts.Stderr
		stdin, err := pager.StdinPipe()
		if err != nil {
			return nil, &SpawnError{Stage: "pager", Err: err}
		}
		if err := pager.Start(); err != nil {
			return nil, &SpawnError{Stage: "pager", Err: err}
		}
		c.pager = pager
		sink = stdin
	} else {
		sink = nopWriteCloser{opts.Stdout}
	}

	for i := len(stages) - 1; i >= 0; i-- {
		st := stages[i]
		if st.Name == NoMoreStage {
			continue
		}
		def, ok := reg.Lookup(st.Name)
		if !ok {
			return nil, c.unwind(sink, &SpawnError{Stage: st.Name, Err: fmt.Errorf("stage not registered")})
		}

		if def.External != nil {
			next, err := c.startExternal(def, st, sink, opts.Stderr)
			if err != nil {
				return nil, c.unwind(sink, err)
			}
			sink = next
		} else {
			sink = c.startFilter(def, st, sink)
		}
	}

	c.endpoint = sink
	return c, nil
}

// startExternal spawns an external stage with stdin and stdout piped and
// a relay goroutine copying its output into the downstream sink. The
// returned writer is the process's stdin, the sink for the stage above.
func (c *Chain) startExternal(def StageDefinition, st ParsedStage, sink io.WriteCloser, stderr io.Writer) (io.WriteCloser, error) {
	args := append(append([]string{}, def.External.FixedArgs...), st.Args...)
	cmd := exec.Command(def.External.Binary, args...)
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Stage: st.Name, Err: err}
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &SpawnError{Stage: st.Name, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Stage: st.Name, Err: err}
	}

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(sink, stdout)
		cerr := sink.Close()
		// Closing the read side unblocks the process if the
		// downstream sink broke before it finished writing.
		stdout.Close()
		if err == nil {
			err = cerr
		}
		done <- err
	}()

	// The relay handle sits after the process handle so Finish joins
	// the relay before reaping the process (Wait would close the
	// stdout pipe under the relay otherwise).
	c.stages = append(c.stages,
		stageHandle{name: st.Name, proc: cmd},
		stageHandle{name: st.Name, done: done})
	return stdin, nil
}

// startFilter starts an in-process stage: a byte pipe feeding the filter
// function, writing into the downstream sink. The returned writer is the
// pipe's write end.
func (c *Chain) startFilter(def StageDefinition, st ParsedStage, sink io.WriteCloser) io.WriteCloser {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	filter := def.Filter
	args := st.Args
	go func() {
		err := filter(args, pr, sink)
		cerr := sink.Close()
		// Unblock any upstream writer still holding the write end
		// after an early exit.
		pr.CloseWithError(io.ErrClosedPipe)
		if err == nil {
			err = cerr
		}
		done <- err
	}()
	c.stages = append(c.stages, stageHandle{name: st.Name, done: done})
	return pw
}

// Writer returns the chain's exposed write endpoint. Ownership passes to
// the caller for the duration of the command; Finish reclaims it.
func (c *Chain) Writer() io.Writer {
	return c.endpoint
}

// Finish releases the chain. Closing the endpoint is the sole shutdown
// trigger: each stage observes end-of-stream, flushes, closes its own
// output, and terminates, propagating closure down the chain. Finish then
// joins every goroutine, reaps every spawned process, and waits for the
// pager. It returns the first hard failure as a diagnostic; broken-sink
// conditions and non-zero stage exits are expected and not reported.
func (c *Chain) Finish() error {
	var first error
	record := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	if c.endpoint != nil {
		if err := c.endpoint.Close(); err != nil && !IsBrokenSink(err) {
			record(err)
		}
		c.endpoint = nil
	}

	for i := len(c.stages) - 1; i >= 0; i-- {
		h := c.stages[i]
		switch {
		case h.done != nil:
			if err := <-h.done; err != nil && !IsBrokenSink(err) {
				record(&RelayError{Stage: h.name, Err: err})
			}
		case h.proc != nil:
			if err := h.proc.Wait(); err != nil {
				// A non-zero exit (e.g. grep finding no match)
				// is not a failure.
				var exitErr *exec.ExitError
				if !errors.As(err, &exitErr) {
					record(&RelayError{Stage: h.name, Err: err})
				}
			}
		}
	}
	c.stages = nil

	if c.pager != nil {
		if err := c.pager.Wait(); err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				record(&RelayError{Stage: "pager", Err: err})
			}
		}
		c.pager = nil
	}

	return first
}

// unwind tears down a partially built chain after a construction failure.
// Closing the newest sink cascades end-of-stream through everything built
// so far, so the regular teardown path reclaims it all.
func (c *Chain) unwind(sink io.WriteCloser, cause error) error {
	c.endpoint = sink
	_ = c.Finish()
	return cause
}

// IsBrokenSink reports whether err is the result of a downstream consumer
// closing its input early, e.g. the operator quitting the pager before
// all output was written. Writers tolerate this by terminating cleanly.
func IsBrokenSink(err error) bool {
	return errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
