// Package mcpserver exposes the shell over the Model Context Protocol so
// automation agents can run show commands and inspect the command set
// without a terminal.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/routelab/rtsh/internal/shell"
)

// Server wraps the shell and exposes it as an MCP server.
type Server struct {
	sh        *shell.Shell
	mcpServer *server.MCPServer
}

// New creates an MCP server for the given shell.
func New(sh *shell.Shell, version string) *Server {
	s := &Server{
		sh:        sh,
		mcpServer: server.NewMCPServer("rtsh", version),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("execute_command",
		mcp.WithDescription("Execute one shell command line, including optional output filters after '|' (e.g. \"show version | include Go\"). Returns the command's output."),
		mcp.WithString("line", mcp.Required(), mcp.Description("The command line to execute")),
	), s.handleExecute)

	s.mcpServer.AddTool(mcp.NewTool("list_commands",
		mcp.WithDescription("List every executable command with its help text and whether it supports output filters."),
	), s.handleListCommands)

	s.mcpServer.AddTool(mcp.NewTool("list_pipe_commands",
		mcp.WithDescription("List the available output filter stages usable after '|'."),
	), s.handleListPipeCommands)
}

func (s *Server) handleExecute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	line, _ := request.GetArguments()["line"].(string)
	if line == "" {
		return mcp.NewToolResultError("line is required"), nil
	}

	var stdout, stderr bytes.Buffer
	status := s.sh.ExecuteTo(ctx, line, &stdout, &stderr, false)
	if status != 0 {
		msg := stderr.String()
		if msg == "" {
			msg = fmt.Sprintf("command failed with status %d", status)
		}
		return mcp.NewToolResultError(msg), nil
	}
	out := stdout.String()
	if stderr.Len() > 0 {
		out += stderr.String()
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) handleListCommands(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type commandDoc struct {
		Command  string `json:"command"`
		Help     string `json:"help,omitempty"`
		Pipeable bool   `json:"pipeable"`
	}
	var docs []commandDoc
	for _, info := range s.sh.Tree().Commands() {
		docs = append(docs, commandDoc{
			Command:  info.Path,
			Help:     info.Help,
			Pipeable: info.Pipeable,
		})
	}
	jsonBytes, _ := json.Marshal(docs)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleListPipeCommands(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type stageDoc struct {
		Name string   `json:"name"`
		Help string   `json:"help,omitempty"`
		Args []string `json:"args,omitempty"`
	}
	var docs []stageDoc
	for _, def := range s.sh.Pipes().Stages() {
		docs = append(docs, stageDoc{
			Name: def.Name,
			Help: def.Help,
			Args: def.Args,
		})
	}
	jsonBytes, _ := json.Marshal(docs)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
