package pipe

import (
	"bytes"
	"strings"
	"testing"
)

func runFilter(t *testing.T, fn FilterFunc, args []string, lines ...string) []string {
	t.Helper()
	input := strings.Join(lines, "\n")
	if len(lines) > 0 {
		input += "\n"
	}
	var out bytes.Buffer
	if err := fn(args, strings.NewReader(input), &out); err != nil {
		t.Fatalf("filter: %v", err)
	}
	if out.Len() == 0 {
		return nil
	}
	return strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
}

func TestInclude(t *testing.T) {
	got := runFilter(t, Include, []string{"b"}, "a", "bb", "ccc")
	if len(got) != 1 || got[0] != "bb" {
		t.Errorf("include b = %v, want [bb]", got)
	}
}

func TestExclude(t *testing.T) {
	got := runFilter(t, Exclude, []string{"b"}, "a", "bb", "ccc")
	if len(got) != 2 || got[0] != "a" || got[1] != "ccc" {
		t.Errorf("exclude b = %v, want [a ccc]", got)
	}
}

func TestCount(t *testing.T) {
	got := runFilter(t, Count, nil, "a", "bb", "ccc")
	if len(got) != 1 || got[0] != "3" {
		t.Errorf("count = %v, want [3]", got)
	}

	got = runFilter(t, Count, nil)
	if len(got) != 1 || got[0] != "0" {
		t.Errorf("count of empty input = %v, want [0]", got)
	}
}

func TestBegin(t *testing.T) {
	got := runFilter(t, Begin, []string{"b"}, "a", "bb", "ccc")
	if len(got) != 2 || got[0] != "bb" || got[1] != "ccc" {
		t.Errorf("begin b = %v, want [bb ccc]", got)
	}

	// No match suppresses everything.
	if got := runFilter(t, Begin, []string{"zzz"}, "a", "bb"); len(got) != 0 {
		t.Errorf("begin zzz = %v, want none", got)
	}
}

func TestNoMorePassesThrough(t *testing.T) {
	got := runFilter(t, NoMore, nil, "a", "bb")
	if len(got) != 2 || got[0] != "a" || got[1] != "bb" {
		t.Errorf("no-more = %v, want input unchanged", got)
	}
}
