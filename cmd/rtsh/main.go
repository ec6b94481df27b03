package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/routelab/rtsh/internal/accounting"
	"github.com/routelab/rtsh/internal/client"
	"github.com/routelab/rtsh/internal/command"
	"github.com/routelab/rtsh/internal/config"
	"github.com/routelab/rtsh/internal/daemon"
	"github.com/routelab/rtsh/internal/ipc"
	"github.com/routelab/rtsh/internal/mcpserver"
	"github.com/routelab/rtsh/internal/pipe"
	"github.com/routelab/rtsh/internal/script"
	"github.com/routelab/rtsh/internal/shell"
	"github.com/routelab/rtsh/internal/terminal"
)

var version = "dev"

// executable is a seam for tests that exercise daemon spawning.
var executable = os.Executable

func main() {
	os.Exit(run())
}

func run() int {
	var (
		oneShot     string
		configPath  string
		noPager     bool
		runDaemon   bool
		runMCP      bool
		acctAction  string
		showVersion bool
	)
	flags := pflag.NewFlagSet("rtsh", pflag.ContinueOnError)
	flags.StringVarP(&oneShot, "command", "c", "", "execute one command line and exit")
	flags.StringVar(&configPath, "config", "", "configuration file path")
	flags.BoolVar(&noPager, "no-pager", false, "disable the output pager")
	flags.BoolVar(&runDaemon, "daemon", false, "run as the background daemon")
	flags.BoolVar(&runMCP, "mcp", false, "serve the MCP interface on stdin/stdout")
	flags.StringVar(&acctAction, "accounting", "", "accounting log action: verify or show")
	flags.BoolVarP(&showVersion, "version", "V", false, "print version and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return 2
	}

	if showVersion {
		fmt.Printf("rtsh %s\n", version)
		return 0
	}

	// Load config.
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtsh: config: %v\n", err)
		return 1
	}
	if noPager {
		disabled := false
		cfg.Pager.Enabled = &disabled
	}

	if acctAction != "" {
		return runAccounting(acctAction, cfg.Accounting.Path)
	}

	// Build the command tree: embedded defaults plus the operator's
	// overlay, if present.
	tree, err := command.Default()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtsh: commands: %v\n", err)
		return 1
	}
	if cfg.Commands.Path != "" {
		if _, serr := os.Stat(cfg.Commands.Path); serr == nil {
			if err := tree.LoadFile(cfg.Commands.Path); err != nil {
				fmt.Fprintf(os.Stderr, "rtsh: commands: %v\n", err)
				return 1
			}
		}
	}

	// Filter registry: built-ins plus user scripts.
	pipes, err := pipe.DefaultRegistry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtsh: filters: %v\n", err)
		return 1
	}
	defs, err := script.Load(cfg.Filters.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtsh: %v\n", err)
		// Continue with whatever loaded cleanly.
	}
	for _, def := range defs {
		if err := pipes.Register(def); err != nil {
			fmt.Fprintf(os.Stderr, "rtsh: %v\n", err)
		}
	}

	// Set up accounting.
	acct, err := accounting.NewLogger(cfg.Accounting.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtsh: accounting: %v\n", err)
		// Continue without accounting.
		acct = nil
	}

	sh := shell.New(cfg, tree, pipes, acct, version)

	// Set up context with cancellation on interrupt.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case runDaemon:
		if err := daemon.New(sh, cfg.Daemon.IdleTimeoutDuration()).Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "rtsh: daemon: %v\n", err)
			return 1
		}
		return 0
	case runMCP:
		if err := mcpserver.New(sh, version).ServeStdio(); err != nil {
			fmt.Fprintf(os.Stderr, "rtsh: mcp: %v\n", err)
			return 1
		}
		return 0
	case oneShot != "":
		return runOneShot(ctx, cfg, sh, oneShot)
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return runScript(ctx, sh)
	}

	sh.SetInteractive(true)
	sh.SetOutput(os.Stdout, terminal.ColorStderr())
	if err := terminal.Run(ctx, sh); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "rtsh: %v\n", err)
		return 1
	}
	return 0
}

// runOneShot executes a single line. Daemon use follows configuration:
// required, forbidden, or (the default) attempted with an in-process
// fallback.
func runOneShot(ctx context.Context, cfg *config.Config, sh *shell.Shell, line string) int {
	enabled := cfg.Daemon.Enabled
	if enabled != nil && !*enabled {
		return sh.Execute(ctx, line)
	}

	// Auto and required modes both spawn a daemon on demand; they differ
	// only in what happens when none can be reached.
	var conn net.Conn
	self, err := executable()
	if err == nil {
		conn, err = client.ConnectOrSpawn(ctx, self)
	}
	if err != nil {
		if enabled != nil && *enabled {
			fmt.Fprintf(os.Stderr, "rtsh: daemon: %v\n", err)
			return 1
		}
		return sh.Execute(ctx, line)
	}
	defer conn.Close()

	restore := client.ForwardSignals(conn)
	defer restore()

	req := &ipc.Request{Line: line, NoPager: true}
	code, err := client.Relay(ctx, conn, req, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtsh: %v\n", err)
	}
	return code
}

// runScript executes lines from stdin, continuing past failures. The exit
// status reports whether any line failed.
func runScript(ctx context.Context, sh *shell.Shell) int {
	status := 0
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if sh.Execute(ctx, sc.Text()) != 0 {
			status = 1
		}
		if ctx.Err() != nil {
			return 1
		}
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "rtsh: read stdin: %v\n", err)
		return 1
	}
	return status
}

func runAccounting(action, path string) int {
	switch action {
	case "verify":
		if err := accounting.Verify(path); err != nil {
			fmt.Fprintf(os.Stderr, "rtsh: accounting: %v\n", err)
			return 1
		}
		fmt.Println("accounting log OK")
		return 0
	case "show":
		entries, err := accounting.Tail(path, 50)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rtsh: accounting: %v\n", err)
			return 1
		}
		for _, e := range entries {
			status := "ok"
			if e.Status != 0 {
				status = "failed"
			}
			fmt.Printf("%4d  %s  %-6s  %s\n",
				e.Seq, e.Time.Local().Format("2006-01-02 15:04:05"), status, e.Line)
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "rtsh: unknown accounting action %q (want verify or show)\n", action)
		return 2
	}
}
