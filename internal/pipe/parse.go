package pipe

import "strings"

// Base is the resolved base command as seen by the pipe engine. The
// concrete type belongs to the command-tree resolver.
type Base interface {
	Pipeable() bool
}

// Resolver resolves the text before the first pipe separator into a base
// command.
type Resolver interface {
	Resolve(text string) (Base, error)
}

// ParsedStage is one stage invocation: the canonical stage name and the
// operator-supplied arguments.
type ParsedStage struct {
	Name string
	Args []string
}

// ParsedLine is the result of parsing one input line. Base is nil for
// blank and comment lines, which the caller treats as no-ops.
type ParsedLine struct {
	Base   Base
	Stages []ParsedStage
}

// SplitLine splits a raw input line into the base command text and the
// raw stage segments. The split rule is deliberately simple: the line is
// split on every '|' character, with no quoting or escaping, and each
// segment is trimmed. A line whose first non-blank character is '!' or
// '#' is a comment and yields an empty base.
func SplitLine(line string) (string, []string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || trimmed[0] == '!' || trimmed[0] == '#' {
		return "", nil
	}
	base, rest, found := strings.Cut(trimmed, "|")
	base = strings.TrimSpace(base)
	if !found {
		return base, nil
	}
	segs := strings.Split(rest, "|")
	for i, seg := range segs {
		segs[i] = strings.TrimSpace(seg)
	}
	return base, segs
}

// ParseLine parses a raw input line: it resolves the base command, checks
// its pipe capability before looking at any stage, then resolves each
// stage segment left to right against the registry. The first failing
// segment aborts the parse.
func ParseLine(line string, res Resolver, reg *Registry) (*ParsedLine, error) {
	base, segs := SplitLine(line)
	if base == "" {
		// Blank or comment line; stage segments without a base
		// command have nothing to filter.
		return &ParsedLine{}, nil
	}

	b, err := res.Resolve(base)
	if err != nil {
		return nil, err
	}
	if len(segs) > 0 && !b.Pipeable() {
		return nil, ErrNotPipeable
	}

	parsed := &ParsedLine{Base: b}
	for _, seg := range segs {
		stage, err := parseStage(seg, reg)
		if err != nil {
			return nil, err
		}
		parsed.Stages = append(parsed.Stages, stage)
	}
	return parsed, nil
}

func parseStage(seg string, reg *Registry) (ParsedStage, error) {
	words := strings.Fields(seg)
	if len(words) == 0 {
		return ParsedStage{}, &UnknownStageError{}
	}
	def, err := reg.Find(words[0])
	if err != nil {
		return ParsedStage{}, err
	}
	args := words[1:]
	if def.Variadic {
		if len(args) < def.minArgs() {
			return ParsedStage{}, &ArgCountError{Stage: def.Name, Expected: def.minArgs(), Variadic: true, Got: len(args)}
		}
	} else if len(args) != len(def.Args) {
		return ParsedStage{}, &ArgCountError{Stage: def.Name, Expected: len(def.Args), Got: len(args)}
	}
	return ParsedStage{Name: def.Name, Args: args}, nil
}
