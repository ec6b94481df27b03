package pipe

import (
	"errors"
	"fmt"
	"testing"
)

// stubBase and stubResolver stand in for the command-tree resolver.
type stubBase struct {
	text     string
	pipeable bool
}

func (b stubBase) Pipeable() bool { return b.pipeable }

type stubResolver struct {
	commands map[string]bool // command text -> pipeable
}

func (r stubResolver) Resolve(text string) (Base, error) {
	pipeable, ok := r.commands[text]
	if !ok {
		return nil, fmt.Errorf("unknown command: %q", text)
	}
	return stubBase{text: text, pipeable: pipeable}, nil
}

func testResolver() stubResolver {
	return stubResolver{commands: map[string]bool{
		"show route":        true,
		"show version":      true,
		"clear bgp neighbor": false,
	}}
}

func testParseRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := DefaultRegistry()
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestSplitLine(t *testing.T) {
	tests := []struct {
		line string
		base string
		segs []string
	}{
		{"show route", "show route", nil},
		{"  show route  ", "show route", nil},
		{"show route | include 10.0.0", "show route", []string{"include 10.0.0"}},
		{"show route|count", "show route", []string{"count"}},
		{"show route | exclude x | count", "show route", []string{"exclude x", "count"}},
		{"", "", nil},
		{"   ", "", nil},
		{"! a comment", "", nil},
		{"# another comment", "", nil},
	}
	for _, tt := range tests {
		base, segs := SplitLine(tt.line)
		if base != tt.base {
			t.Errorf("SplitLine(%q) base = %q, want %q", tt.line, base, tt.base)
		}
		if len(segs) != len(tt.segs) {
			t.Errorf("SplitLine(%q) segs = %v, want %v", tt.line, segs, tt.segs)
			continue
		}
		for i := range segs {
			if segs[i] != tt.segs[i] {
				t.Errorf("SplitLine(%q) seg %d = %q, want %q", tt.line, i, segs[i], tt.segs[i])
			}
		}
	}
}

func TestParseLineNoStages(t *testing.T) {
	parsed, err := ParseLine("show route", testResolver(), testParseRegistry(t))
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Base == nil {
		t.Fatal("expected resolved base command")
	}
	if len(parsed.Stages) != 0 {
		t.Errorf("stages = %v, want empty", parsed.Stages)
	}
}

func TestParseLineBlankAndComment(t *testing.T) {
	for _, line := range []string{"", "   ", "! note to self", "# disabled command"} {
		parsed, err := ParseLine(line, testResolver(), testParseRegistry(t))
		if err != nil {
			t.Fatalf("ParseLine(%q): %v", line, err)
		}
		if parsed.Base != nil || len(parsed.Stages) != 0 {
			t.Errorf("ParseLine(%q) = %+v, want no-op", line, parsed)
		}
	}
}

func TestParseLineSingleStage(t *testing.T) {
	parsed, err := ParseLine("show route | include 10.0.0", testResolver(), testParseRegistry(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed.Stages) != 1 {
		t.Fatalf("stages = %v, want 1", parsed.Stages)
	}
	st := parsed.Stages[0]
	if st.Name != "include" {
		t.Errorf("stage name = %q, want include", st.Name)
	}
	if len(st.Args) != 1 || st.Args[0] != "10.0.0" {
		t.Errorf("stage args = %v, want [10.0.0]", st.Args)
	}
}

func TestParseLineAbbreviatedStage(t *testing.T) {
	parsed, err := ParseLine("show route | inc 10.0.0 | co", testResolver(), testParseRegistry(t))
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Stages[0].Name != "include" || parsed.Stages[1].Name != "count" {
		t.Errorf("stages = %v, want canonical names", parsed.Stages)
	}
}

func TestParseLineNotPipeable(t *testing.T) {
	// The capability check runs before any stage name is resolved, so
	// even an unknown stage name must report NotPipeable.
	_, err := ParseLine("clear bgp neighbor | frobnicate", testResolver(), testParseRegistry(t))
	if !errors.Is(err, ErrNotPipeable) {
		t.Fatalf("err = %v, want ErrNotPipeable", err)
	}
}

func TestParseLineUnknownStage(t *testing.T) {
	_, err := ParseLine("show route | frobnicate", testResolver(), testParseRegistry(t))
	var unknown *UnknownStageError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownStageError", err)
	}
	if unknown.Name != "frobnicate" {
		t.Errorf("offending name = %q, want frobnicate", unknown.Name)
	}
}

func TestParseLineFirstUnknownStageWins(t *testing.T) {
	_, err := ParseLine("show route | bogus | alsobogus", testResolver(), testParseRegistry(t))
	var unknown *UnknownStageError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownStageError", err)
	}
	if unknown.Name != "bogus" {
		t.Errorf("offending name = %q, want the leftmost unresolved stage", unknown.Name)
	}
}

func TestParseLineArgCount(t *testing.T) {
	_, err := ParseLine("show route | include", testResolver(), testParseRegistry(t))
	var argErr *ArgCountError
	if !errors.As(err, &argErr) {
		t.Fatalf("err = %v, want ArgCountError", err)
	}
	if argErr.Stage != "include" || argErr.Expected != 1 || argErr.Got != 0 {
		t.Errorf("arg count error = %+v", argErr)
	}

	if _, err := ParseLine("show route | count extra", testResolver(), testParseRegistry(t)); err == nil {
		t.Error("expected error for count with arguments")
	}

	// Variadic stages accept extra arguments but still require the minimum.
	if _, err := ParseLine("show route | grep -i foo", testResolver(), testParseRegistry(t)); err != nil {
		t.Errorf("grep with flags: %v", err)
	}
	if _, err := ParseLine("show route | grep", testResolver(), testParseRegistry(t)); err == nil {
		t.Error("expected error for grep with no arguments")
	}
}

func TestParseLineBaseResolverError(t *testing.T) {
	_, err := ParseLine("show bogus", testResolver(), testParseRegistry(t))
	if err == nil {
		t.Fatal("expected resolver error to propagate")
	}
}
