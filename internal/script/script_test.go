package script

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMissingDir(t *testing.T) {
	defs, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing dir should not be an error: %v", err)
	}
	if len(defs) != 0 {
		t.Errorf("defs = %v", defs)
	}
}

func TestLoadKeepFilter(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "shout.star", `
help = "Keep lines containing the pattern, uppercased"
args = ["pattern"]

def filter(line, args):
    if args[0] in line:
        return line.upper()
    return False
`)

	defs, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != 1 {
		t.Fatalf("defs = %d, want 1", len(defs))
	}
	def := defs[0]
	if def.Name != "shout" {
		t.Errorf("name = %q", def.Name)
	}
	if def.Help != "Keep lines containing the pattern, uppercased" {
		t.Errorf("help = %q", def.Help)
	}
	if len(def.Args) != 1 || def.Args[0] != "pattern" {
		t.Errorf("args = %v", def.Args)
	}

	var out bytes.Buffer
	err = def.Filter([]string{"b"}, strings.NewReader("abc\nxyz\nbbb\n"), &out)
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != "ABC\nBBB\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestLoadBooleanFilter(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "short.star", `
def filter(line, args):
    return len(line) < 3
`)

	defs, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := defs[0].Filter(nil, strings.NewReader("a\nlong line\nbb\n"), &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "a\nbb\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestLoadNoneDropsLine(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "drop.star", `
def filter(line, args):
    return None
`)

	defs, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := defs[0].Filter(nil, strings.NewReader("a\nb\n"), &out); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("output = %q, want none", out.String())
	}
}

func TestLoadRejectsMissingFilter(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "broken.star", `help = "no filter function here"`)

	if _, err := Load(dir); err == nil {
		t.Error("expected error for script without filter function")
	}
}

func TestLoadRejectsSyntaxError(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "bad.star", `def filter(line, args`)

	if _, err := Load(dir); err == nil {
		t.Error("expected error for unparsable script")
	}
}

func TestFilterRuntimeError(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "boom.star", `
def filter(line, args):
    return args[5]
`)

	defs, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := defs[0].Filter(nil, strings.NewReader("a\n"), &out); err == nil {
		t.Error("expected runtime error to surface")
	}
}

func TestFilterBadReturnType(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "num.star", `
def filter(line, args):
    return 42
`)

	defs, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	err = defs[0].Filter(nil, strings.NewReader("a\n"), &out)
	if err == nil || !strings.Contains(err.Error(), "int") {
		t.Errorf("err = %v, want bad-return-type error", err)
	}
}

func TestLoadIgnoresNonStarFiles(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "README.md", "not a script")
	writeScript(t, dir, "keep.star", `
def filter(line, args):
    return True
`)

	defs, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != 1 || defs[0].Name != "keep" {
		t.Errorf("defs = %v", defs)
	}
}
