// Package pipe implements the shell's output filtering engine: a registry
// of named filter stages, the parser that splits an input line into a base
// command and stage invocations, and the live chain of processes and
// goroutines that command output flows through.
package pipe

import (
	"fmt"
	"io"
	"strings"
)

// FilterFunc is the contract for an in-process filter stage. It consumes
// line-oriented input from r until EOF and writes zero or more output
// lines to w. It must not hold buffered state past input exhaustion; the
// chain closes w after the function returns.
type FilterFunc func(args []string, r io.Reader, w io.Writer) error

// External describes a stage implemented by an external program. The
// operator's arguments are appended after FixedArgs.
type External struct {
	Binary    string
	FixedArgs []string
}

// StageDefinition describes one named pipe stage. Exactly one of External
// and Filter must be set.
type StageDefinition struct {
	Name     string
	Help     string
	Args     []string // argument placeholders, shown during completion
	Variadic bool     // accept extra arguments beyond len(Args)
	External *External
	Filter   FilterFunc
}

func (d StageDefinition) minArgs() int { return len(d.Args) }

// Registry holds stage definitions in registration order. It is assembled
// once during startup and read-only afterwards, so lookups need no
// synchronization.
type Registry struct {
	stages []StageDefinition
	byName map[string]int
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds a stage definition. A duplicate name is a programming
// error, not a runtime condition, and is rejected.
func (r *Registry) Register(def StageDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("pipe stage definition has no name")
	}
	if (def.External == nil) == (def.Filter == nil) {
		return fmt.Errorf("pipe stage %q must have exactly one implementation", def.Name)
	}
	if _, ok := r.byName[def.Name]; ok {
		return fmt.Errorf("duplicate pipe stage %q", def.Name)
	}
	r.byName[def.Name] = len(r.stages)
	r.stages = append(r.stages, def)
	return nil
}

// Lookup returns the definition registered under the exact name.
func (r *Registry) Lookup(name string) (StageDefinition, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return StageDefinition{}, false
	}
	return r.stages[idx], true
}

// Find resolves a possibly abbreviated stage name. An unambiguous prefix
// matches; an exact match wins over longer names sharing the prefix.
func (r *Registry) Find(name string) (StageDefinition, error) {
	if name == "" {
		return StageDefinition{}, &UnknownStageError{Name: name}
	}
	var matches []int
	for i, def := range r.stages {
		if def.Name == name {
			return def, nil
		}
		if strings.HasPrefix(def.Name, name) {
			matches = append(matches, i)
		}
	}
	switch len(matches) {
	case 0:
		return StageDefinition{}, &UnknownStageError{Name: name}
	case 1:
		return r.stages[matches[0]], nil
	default:
		names := make([]string, len(matches))
		for i, idx := range matches {
			names[i] = r.stages[idx].Name
		}
		return StageDefinition{}, &AmbiguousStageError{Name: name, Matches: names}
	}
}

// Names returns all stage names in registration order, for the completion
// collaborator.
func (r *Registry) Names() []string {
	names := make([]string, len(r.stages))
	for i, def := range r.stages {
		names[i] = def.Name
	}
	return names
}

// Stages returns all definitions in registration order.
func (r *Registry) Stages() []StageDefinition {
	return r.stages
}

// NoMoreStage is the stage name that suppresses the pager for one command.
// It is handled by the chain builder rather than run as a filter.
const NoMoreStage = "no-more"

// DefaultRegistry returns a registry with the built-in filter stages.
func DefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	defs := []StageDefinition{
		{Name: "include", Help: "Keep only lines matching a pattern", Args: []string{"pattern"}, Filter: Include},
		{Name: "exclude", Help: "Remove lines matching a pattern", Args: []string{"pattern"}, Filter: Exclude},
		{Name: "count", Help: "Count output lines", Filter: Count},
		{Name: "begin", Help: "Start output at the first line matching a pattern", Args: []string{"pattern"}, Filter: Begin},
		{Name: NoMoreStage, Help: "Disable the output pager", Filter: NoMore},
		{Name: "grep", Help: "Filter output using the system grep binary", Args: []string{"pattern"}, Variadic: true,
			External: &External{Binary: "grep", FixedArgs: []string{"--color=never"}}},
	}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}
