// Package daemon runs the persistent rtsh process: it listens on a unix
// socket, executes command lines sent by thin clients, and exits after an
// idle period.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/routelab/rtsh/internal/ipc"
	"github.com/routelab/rtsh/internal/shell"
)

// Server is the persistent daemon process that accepts IPC connections
// and executes command lines on behalf of clients.
type Server struct {
	sh          *shell.Shell
	idleTimeout time.Duration

	mu        sync.Mutex
	idleTimer *time.Timer
	active    sync.WaitGroup
}

// New creates a daemon server.
func New(sh *shell.Shell, idleTimeout time.Duration) *Server {
	return &Server{
		sh:          sh,
		idleTimeout: idleTimeout,
	}
}

// Run creates a listener at the standard socket path and calls Serve.
func (s *Server) Run(ctx context.Context) error {
	sockPath, err := ipc.SocketPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(sockPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}

	if err := cleanStaleSocket(sockPath); err != nil {
		return err
	}

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	if err := os.Chmod(sockPath, 0600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	if err := writePidFile(); err != nil {
		ln.Close()
		return fmt.Errorf("write pid: %w", err)
	}

	defer func() {
		os.Remove(sockPath)
		if pidPath, err := ipc.PidPath(); err == nil {
			os.Remove(pidPath)
		}
	}()

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or the idle timer
// fires. The listener is closed on return. This method is exported for
// testability; tests pass a listener on a temp socket.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	// Idle timer cancels idleCtx when no connections arrive for idleTimeout.
	idleCtx, idleCancel := context.WithCancel(ctx)
	defer idleCancel()

	s.mu.Lock()
	s.idleTimer = time.AfterFunc(s.idleTimeout, idleCancel)
	s.mu.Unlock()

	// Close the listener when the context is done (idle or parent cancel).
	go func() {
		<-idleCtx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			// Check if this is a clean shutdown.
			select {
			case <-idleCtx.Done():
				s.active.Wait()
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		s.resetIdle()

		s.active.Add(1)
		go func() {
			defer s.active.Done()
			defer conn.Close()
			defer s.resetIdle()
			s.handleConnection(idleCtx, conn)
		}()
	}
}

func (s *Server) resetIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimer != nil {
		s.idleTimer.Reset(s.idleTimeout)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	// Read request frame.
	tag, payload, err := ipc.ReadFrame(conn)
	if err != nil {
		writeExit(conn, 2, fmt.Sprintf("read request: %v", err))
		return
	}
	if tag != ipc.TagRequest {
		writeExit(conn, 2, fmt.Sprintf("expected request frame (0x%02x), got 0x%02x", ipc.TagRequest, tag))
		return
	}

	var req ipc.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		writeExit(conn, 2, fmt.Sprintf("unmarshal request: %v", err))
		return
	}

	// Per-request context with cancellation for signal handling.
	reqCtx, reqCancel := context.WithCancel(ctx)
	defer reqCancel()

	// Demux goroutine: discards stdin frames (commands here take no
	// input) and watches for signal frames.
	go func() {
		for {
			t, p, err := ipc.ReadFrame(conn)
			if err != nil {
				return
			}
			switch t {
			case ipc.TagStdinEOF:
				return
			case ipc.TagSignal:
				var sig ipc.SignalMsg
				if json.Unmarshal(p, &sig) == nil && sig.Signal == "INT" {
					reqCancel()
				}
			}
		}
	}()

	// Stdout and stderr frame writers share a mutex on the connection
	// to prevent interleaved frame bytes from concurrent goroutines.
	var connMu sync.Mutex
	stdoutW := newFrameWriter(conn, &connMu, ipc.TagStdoutData)
	stderrW := newFrameWriter(conn, &connMu, ipc.TagStderrData)

	// The client's terminal is on the other side of the socket, so the
	// daemon never pages; the client asked not to anyway when NoPager is
	// set.
	exitCode := s.sh.ExecuteTo(reqCtx, req.Line, stdoutW, stderrW, false)

	connMu.Lock()
	defer connMu.Unlock()
	ipc.WriteJSON(conn, ipc.TagExit, ipc.ExitResult{Code: exitCode})
}

func writeExit(conn net.Conn, code int, msg string) {
	ipc.WriteJSON(conn, ipc.TagExit, ipc.ExitResult{Code: code, Error: msg})
}
