package mcpserver

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/routelab/rtsh/internal/command"
	"github.com/routelab/rtsh/internal/config"
	"github.com/routelab/rtsh/internal/pipe"
	"github.com/routelab/rtsh/internal/shell"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	tree, err := command.Load([]byte(`
commands:
  - word: show
    help: Show operational state
    children:
      - word: test
        help: Emit fixed test lines
        pipeable: true
        handler: show-test
`))
	if err != nil {
		t.Fatal(err)
	}
	reg, err := pipe.DefaultRegistry()
	if err != nil {
		t.Fatal(err)
	}
	sh := shell.New(config.DefaultConfig(), tree, reg, nil, "test")
	sh.RegisterHandler("show-test", func(_ context.Context, _ *shell.Shell, _ []string, w io.Writer) error {
		_, err := fmt.Fprint(w, "alpha\nbeta\ngamma\n")
		return err
	})
	return New(sh, "test")
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T", res.Content[0])
	}
	return text.Text
}

func TestExecuteCommandTool(t *testing.T) {
	s := testServer(t)

	res, err := s.handleExecute(context.Background(), callRequest(map[string]any{"line": "show test | include ph"}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if got := resultText(t, res); got != "alpha\n" {
		t.Errorf("output = %q", got)
	}
}

func TestExecuteCommandToolFailure(t *testing.T) {
	s := testServer(t)

	res, err := s.handleExecute(context.Background(), callRequest(map[string]any{"line": "frobnicate"}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("expected tool error for unknown command")
	}

	res, err = s.handleExecute(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("expected tool error for missing line")
	}
}

func TestListCommandsTool(t *testing.T) {
	s := testServer(t)

	res, err := s.handleListCommands(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatal(err)
	}
	got := resultText(t, res)
	if !strings.Contains(got, `"show test"`) || !strings.Contains(got, `"pipeable":true`) {
		t.Errorf("listing = %s", got)
	}
}

func TestListPipeCommandsTool(t *testing.T) {
	s := testServer(t)

	res, err := s.handleListPipeCommands(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatal(err)
	}
	got := resultText(t, res)
	for _, name := range []string{"include", "exclude", "count", "begin", "no-more"} {
		if !strings.Contains(got, fmt.Sprintf("%q", name)) {
			t.Errorf("listing missing %q: %s", name, got)
		}
	}
}
