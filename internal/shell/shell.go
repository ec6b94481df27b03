// Package shell executes command lines: it parses the line, resolves the
// base command against the tree, builds the output pipe chain, runs the
// command's handler into it, and records the invocation in the accounting
// log.
package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/routelab/rtsh/internal/accounting"
	"github.com/routelab/rtsh/internal/command"
	"github.com/routelab/rtsh/internal/config"
	"github.com/routelab/rtsh/internal/pipe"
)

// HandlerFunc implements one executable command. Output goes to w, which
// is the head of the pipe chain; write failures from a downstream stage
// closing early are expected and may be returned as-is.
type HandlerFunc func(ctx context.Context, sh *Shell, args []string, w io.Writer) error

// Shell binds the command tree, the filter registry, and the accounting
// log into a command executor.
type Shell struct {
	cfg      *config.Config
	tree     *command.Tree
	pipes    *pipe.Registry
	acct     *accounting.Logger
	handlers map[string]HandlerFunc
	version  string

	stdout      io.Writer
	stderr      io.Writer
	interactive bool
	started     time.Time
}

// New creates a shell writing to the process's stdout and stderr. The
// accounting logger may be nil, in which case invocations are not
// recorded.
func New(cfg *config.Config, tree *command.Tree, pipes *pipe.Registry, acct *accounting.Logger, version string) *Shell {
	return &Shell{
		cfg:      cfg,
		tree:     tree,
		pipes:    pipes,
		acct:     acct,
		handlers: defaultHandlers(),
		version:  version,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		started:  time.Now(),
	}
}

// SetOutput redirects the shell's default output streams.
func (sh *Shell) SetOutput(stdout, stderr io.Writer) {
	sh.stdout = stdout
	sh.stderr = stderr
}

// SetInteractive marks the shell as driving a terminal, which enables the
// pager for paged executions.
func (sh *Shell) SetInteractive(v bool) {
	sh.interactive = v
}

// RegisterHandler binds a handler name, as referenced from the command
// tree, to its implementation.
func (sh *Shell) RegisterHandler(name string, fn HandlerFunc) {
	sh.handlers[name] = fn
}

// Tree returns the command tree.
func (sh *Shell) Tree() *command.Tree { return sh.tree }

// Pipes returns the filter stage registry.
func (sh *Shell) Pipes() *pipe.Registry { return sh.pipes }

// Config returns the loaded configuration.
func (sh *Shell) Config() *config.Config { return sh.cfg }

// Hostname returns the configured hostname, used in the prompt.
func (sh *Shell) Hostname() string { return sh.cfg.Hostname }

// treeResolver adapts the command tree to the pipe parser.
type treeResolver struct {
	tree *command.Tree
}

func (r treeResolver) Resolve(text string) (pipe.Base, error) {
	return r.tree.Resolve(text)
}

// Execute runs one input line against the shell's default streams. Paging
// follows the shell's interactive flag. It returns the exit status: 0 on
// success, 1 on any failure.
func (sh *Shell) Execute(ctx context.Context, line string) int {
	return sh.ExecuteTo(ctx, line, sh.stdout, sh.stderr, sh.interactive)
}

// ExecuteTo runs one input line with explicit output streams. When paged
// is true and the pager is not disabled by configuration, command output
// flows through the pager.
func (sh *Shell) ExecuteTo(ctx context.Context, line string, stdout, stderr io.Writer, paged bool) int {
	start := time.Now()

	parsed, err := pipe.ParseLine(line, treeResolver{sh.tree}, sh.pipes)
	if err != nil {
		fmt.Fprintf(stderr, "%% %v\n", err)
		sh.account(line, nil, nil, 1, err, start)
		return 1
	}
	if parsed.Base == nil {
		// Blank or comment line.
		return 0
	}

	match := parsed.Base.(*command.Match)
	handler, ok := sh.handlers[match.Handler]
	if !ok {
		err := fmt.Errorf("no handler for command %q", match.String())
		fmt.Fprintf(stderr, "%% %v\n", err)
		sh.account(line, match, parsed.Stages, 1, err, start)
		return 1
	}

	usePager := paged
	if sh.cfg.Pager.Enabled != nil && !*sh.cfg.Pager.Enabled {
		usePager = false
	}

	chain, err := pipe.Build(parsed.Stages, sh.pipes, pipe.Options{
		UsePager:  usePager,
		PagerPath: sh.cfg.Pager.Command,
		PagerArgs: sh.cfg.Pager.Args,
		Stdout:    stdout,
		Stderr:    stderr,
	})
	if err != nil {
		fmt.Fprintf(stderr, "%% %v\n", err)
		sh.account(line, match, parsed.Stages, 1, err, start)
		return 1
	}

	herr := handler(ctx, sh, match.Args, chain.Writer())
	if herr != nil && pipe.IsBrokenSink(herr) {
		// A downstream stage stopped reading; the command itself is
		// fine.
		herr = nil
	}

	ferr := chain.Finish()
	if ferr != nil {
		fmt.Fprintf(stderr, "%% pipe: %v\n", ferr)
	}

	status := 0
	err = herr
	if err == nil {
		err = ferr
	}
	if err != nil {
		if herr != nil {
			fmt.Fprintf(stderr, "%% %v\n", herr)
		}
		status = 1
	}
	sh.account(line, match, parsed.Stages, status, err, start)
	return status
}

func (sh *Shell) account(line string, match *command.Match, stages []pipe.ParsedStage, status int, err error, start time.Time) {
	if sh.acct == nil {
		return
	}
	var words []string
	if match != nil {
		words = match.Path
	}
	names := make([]string, 0, len(stages))
	for _, st := range stages {
		names = append(names, st.Name)
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if aerr := sh.acct.Log(line, words, names, status, msg, time.Since(start)); aerr != nil {
		fmt.Fprintf(sh.stderr, "%% accounting: %v\n", aerr)
	}
}
