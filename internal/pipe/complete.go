package pipe

import (
	"strings"
	"unicode"
)

// Candidate is one completion suggestion offered to the front end.
type Candidate struct {
	Value string
	Help  string
}

// Complete returns completion candidates for the text after the rightmost
// pipe separator, along with the length of the partial word being
// completed. While the first word is being typed it offers stage names;
// once a stage is fully entered it offers argument placeholder hints.
func (r *Registry) Complete(afterPipe string) ([]Candidate, int) {
	words := strings.Fields(afterPipe)
	partial := false
	if afterPipe != "" {
		last := rune(afterPipe[len(afterPipe)-1])
		partial = !unicode.IsSpace(last)
	}

	first := ""
	if len(words) > 0 {
		first = words[0]
	}

	if def, ok := r.Lookup(first); ok && (len(words) > 1 || !partial) {
		// Stage name fully entered: hint at remaining arguments.
		provided := len(words) - 1
		if partial {
			provided--
		}
		if !partial && provided < len(def.Args) {
			var cands []Candidate
			for _, arg := range def.Args[provided:] {
				cands = append(cands, Candidate{Value: strings.ToUpper(arg), Help: def.Help})
			}
			return cands, 0
		}
		return nil, 0
	}

	var cands []Candidate
	for _, def := range r.stages {
		if first == "" || strings.HasPrefix(def.Name, first) {
			cands = append(cands, Candidate{Value: def.Name, Help: def.Help})
		}
	}
	prefixLen := 0
	if partial {
		prefixLen = len(first)
	}
	return cands, prefixLen
}
