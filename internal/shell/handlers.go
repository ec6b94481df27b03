package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"runtime"
	"strings"
	"time"

	"github.com/routelab/rtsh/internal/accounting"
	"github.com/routelab/rtsh/internal/config"
)

// historyDepth is how many accounting entries show history displays.
const historyDepth = 20

func defaultHandlers() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		"show-version":       showVersion,
		"show-system":        showSystem,
		"show-configuration": showConfiguration,
		"show-history":       showHistory,
		"show-pipe-commands": showPipeCommands,
		"ping":               ping,
	}
}

func showVersion(_ context.Context, sh *Shell, _ []string, w io.Writer) error {
	hostname, _ := os.Hostname()
	_, err := fmt.Fprintf(w, "rtsh %s\n%s %s/%s\nhost: %s\n",
		sh.version, runtime.Version(), runtime.GOOS, runtime.GOARCH, hostname)
	return err
}

func showSystem(_ context.Context, sh *Shell, _ []string, w io.Writer) error {
	hostname, _ := os.Hostname()
	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	uptime := time.Since(sh.started).Round(time.Second)
	_, err := fmt.Fprintf(w, "hostname: %s\nuser:     %s\npid:      %d\nuptime:   %s\n",
		hostname, username, os.Getpid(), uptime)
	return err
}

func showConfiguration(_ context.Context, sh *Shell, _ []string, w io.Writer) error {
	cfg := sh.Config()
	_, err := fmt.Fprintf(w, "config file: %s\ncommands:    %s\naccounting:  %s\nfilters:     %s\n",
		config.ConfigPath(), cfg.Commands.Path, cfg.Accounting.Path, cfg.Filters.Dir)
	return err
}

func showHistory(_ context.Context, sh *Shell, _ []string, w io.Writer) error {
	if sh.acct == nil {
		_, err := fmt.Fprintln(w, "accounting is not enabled")
		return err
	}
	entries, err := accounting.Tail(sh.acct.Path(), historyDepth)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		status := "ok"
		if e.Status != 0 {
			status = "failed"
		}
		if _, err := fmt.Fprintf(w, "%4d  %s  %-6s  %s\n",
			e.Seq, e.Time.Local().Format("2006-01-02 15:04:05"), status, e.Line); err != nil {
			return err
		}
	}
	return nil
}

func showPipeCommands(_ context.Context, sh *Shell, _ []string, w io.Writer) error {
	for _, def := range sh.pipes.Stages() {
		usage := def.Name
		if len(def.Args) > 0 {
			usage += " " + strings.ToUpper(strings.Join(def.Args, " "))
		}
		if def.Variadic {
			usage += "..."
		}
		if _, err := fmt.Fprintf(w, "%-24s %s\n", usage, def.Help); err != nil {
			return err
		}
	}
	return nil
}

func ping(ctx context.Context, _ *Shell, args []string, w io.Writer) error {
	cmd := exec.CommandContext(ctx, "ping", "-c", "4", args[0])
	cmd.Stdout = w
	cmd.Stderr = w
	if err := cmd.Run(); err != nil {
		// An unreachable host exits non-zero; its output already says
		// so.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return err
	}
	return nil
}
