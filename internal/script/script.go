// Package script loads user-defined filter stages written in Starlark.
// Each *.star file in the filter directory defines one stage named after
// the file. The file must define a `filter` function taking the current
// line and the stage arguments; it may also define `help` and `args`.
//
// The filter function decides each line's fate by its return value:
// True keeps the line, False or None drops it, and a string replaces it.
package script

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.starlark.net/starlark"

	"github.com/routelab/rtsh/internal/pipe"
)

// Load reads every *.star file in dir and returns one stage definition
// per script. A missing directory yields no stages and no error.
func Load(dir string) ([]pipe.StageDefinition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read filter dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".star") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var defs []pipe.StageDefinition
	for _, name := range names {
		def, err := loadFile(filepath.Join(dir, name))
		if err != nil {
			return defs, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func loadFile(path string) (pipe.StageDefinition, error) {
	name := strings.TrimSuffix(filepath.Base(path), ".star")

	thread := &starlark.Thread{Name: "load " + name}
	globals, err := starlark.ExecFile(thread, path, nil, nil)
	if err != nil {
		return pipe.StageDefinition{}, fmt.Errorf("load filter %s: %w", name, err)
	}

	fn, ok := globals["filter"].(starlark.Callable)
	if !ok {
		return pipe.StageDefinition{}, fmt.Errorf("filter %s: no filter function defined", name)
	}

	def := pipe.StageDefinition{
		Name:   name,
		Help:   fmt.Sprintf("User filter (%s)", filepath.Base(path)),
		Filter: filterFunc(name, fn),
	}
	if help, ok := globals["help"].(starlark.String); ok {
		def.Help = help.GoString()
	}
	if args, ok := globals["args"].(*starlark.List); ok {
		for i := 0; i < args.Len(); i++ {
			if s, ok := args.Index(i).(starlark.String); ok {
				def.Args = append(def.Args, s.GoString())
			}
		}
	}
	return def, nil
}

// filterFunc wraps a Starlark callable as a line filter. The callable is
// invoked once per line; scripts hold no cross-call state beyond their
// own globals.
func filterFunc(name string, fn starlark.Callable) pipe.FilterFunc {
	return func(args []string, r io.Reader, w io.Writer) error {
		argv := make([]starlark.Value, len(args))
		for i, a := range args {
			argv[i] = starlark.String(a)
		}
		argList := starlark.NewList(argv)

		bw := bufio.NewWriter(w)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		thread := &starlark.Thread{Name: "filter " + name}
		for sc.Scan() {
			line := sc.Text()
			res, err := starlark.Call(thread, fn, starlark.Tuple{starlark.String(line), argList}, nil)
			if err != nil {
				return fmt.Errorf("filter %s: %w", name, err)
			}
			switch v := res.(type) {
			case starlark.Bool:
				if !bool(v) {
					continue
				}
			case starlark.String:
				line = v.GoString()
			case starlark.NoneType:
				continue
			default:
				return fmt.Errorf("filter %s: returned %s, want bool, string, or None", name, res.Type())
			}
			if _, err := fmt.Fprintln(bw, line); err != nil {
				return err
			}
		}
		if err := sc.Err(); err != nil {
			return err
		}
		return bw.Flush()
	}
}
