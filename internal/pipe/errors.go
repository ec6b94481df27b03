package pipe

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotPipeable is returned when stage segments follow a base command
// whose definition does not permit piping. No stage name is resolved in
// that case.
var ErrNotPipeable = errors.New("this command does not support piping")

// UnknownStageError names the first pipe segment whose leading word does
// not resolve against the stage registry.
type UnknownStageError struct {
	Name string
}

func (e *UnknownStageError) Error() string {
	if e.Name == "" {
		return "missing pipe command"
	}
	return fmt.Sprintf("unknown pipe command %q", e.Name)
}

// AmbiguousStageError reports an abbreviation matching more than one
// registered stage.
type AmbiguousStageError struct {
	Name    string
	Matches []string
}

func (e *AmbiguousStageError) Error() string {
	return fmt.Sprintf("ambiguous pipe command %q: %s", e.Name, strings.Join(e.Matches, ", "))
}

// ArgCountError reports a stage invoked with the wrong number of
// arguments.
type ArgCountError struct {
	Stage    string
	Expected int
	Variadic bool
	Got      int
}

func (e *ArgCountError) Error() string {
	if e.Variadic {
		return fmt.Sprintf("pipe command %q expects at least %d argument(s), got %d", e.Stage, e.Expected, e.Got)
	}
	return fmt.Sprintf("pipe command %q expects %d argument(s), got %d", e.Stage, e.Expected, e.Got)
}

// SpawnError reports a failure to construct the chain. The partially
// built chain is fully unwound before this is returned, and the base
// command is never invoked.
type SpawnError struct {
	Stage string
	Err   error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start pipe stage %q: %v", e.Stage, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// RelayError reports a hard I/O failure inside a running chain. It is
// collected during teardown and surfaced as a diagnostic only; the
// command itself has already completed.
type RelayError struct {
	Stage string
	Err   error
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("pipe stage %q: %v", e.Stage, e.Err)
}

func (e *RelayError) Unwrap() error { return e.Err }
