package command

import (
	"fmt"
	"strings"
)

// UnknownWordError names the first input word that matches nothing in the
// tree.
type UnknownWordError struct {
	Word string
}

func (e *UnknownWordError) Error() string {
	return fmt.Sprintf("unknown command word %q", e.Word)
}

// AmbiguousWordError reports an abbreviation matching several sibling
// words.
type AmbiguousWordError struct {
	Word    string
	Matches []string
}

func (e *AmbiguousWordError) Error() string {
	return fmt.Sprintf("ambiguous command word %q: %s", e.Word, strings.Join(e.Matches, ", "))
}

// IncompleteError reports input that stops at a non-executable node.
type IncompleteError struct {
	Path []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("incomplete command: %q", strings.Join(e.Path, " "))
}

// Resolve matches a sequence of input words against the tree. Word nodes
// accept their name or an unambiguous prefix; argument nodes accept any
// word and collect it. The input must end on an executable node.
func (t *Tree) Resolve(text string) (*Match, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, &IncompleteError{}
	}

	m := &Match{}
	nodes := t.roots
	var current *Node
	for _, word := range words {
		n, err := matchWord(nodes, word)
		if err != nil {
			return nil, err
		}
		if n.Kind == KindArgument {
			m.Args = append(m.Args, word)
		}
		m.Path = append(m.Path, n.Name)
		current = n
		nodes = n.Children
	}

	if current.Handler == "" {
		return nil, &IncompleteError{Path: m.Path}
	}
	m.Handler = current.Handler
	m.pipeable = current.Pipeable
	return m, nil
}

// matchWord selects the child matching one input word. An exact word
// match wins; otherwise an unambiguous prefix; otherwise an argument
// node, which accepts anything.
func matchWord(nodes []*Node, word string) (*Node, error) {
	var prefix []*Node
	var argument *Node
	for _, n := range nodes {
		switch n.Kind {
		case KindWord:
			if n.Name == word {
				return n, nil
			}
			if strings.HasPrefix(n.Name, word) {
				prefix = append(prefix, n)
			}
		case KindArgument:
			if argument == nil {
				argument = n
			}
		}
	}
	switch len(prefix) {
	case 1:
		return prefix[0], nil
	case 0:
		if argument != nil {
			return argument, nil
		}
		return nil, &UnknownWordError{Word: word}
	default:
		names := make([]string, len(prefix))
		for i, n := range prefix {
			names[i] = n.Name
		}
		return nil, &AmbiguousWordError{Word: word, Matches: names}
	}
}

// Candidate is one completion suggestion.
type Candidate struct {
	Value string
	Help  string
}

// Complete returns completion candidates for a partial input line and the
// length of the partial word being completed. Argument placeholders are
// offered only when a fresh word is being started.
func (t *Tree) Complete(text string) ([]Candidate, int) {
	partial := false
	if text != "" {
		last := text[len(text)-1]
		partial = last != ' ' && last != '\t'
	}

	words := strings.Fields(text)
	walkWords := words
	lastWord := ""
	if partial && len(words) > 0 {
		lastWord = words[len(words)-1]
		walkWords = words[:len(words)-1]
	}

	nodes := t.roots
	for _, word := range walkWords {
		n, err := matchWord(nodes, word)
		if err != nil {
			return nil, 0
		}
		nodes = n.Children
	}

	var cands []Candidate
	for _, n := range nodes {
		switch n.Kind {
		case KindWord:
			if lastWord == "" || strings.HasPrefix(n.Name, lastWord) {
				cands = append(cands, Candidate{Value: n.Name, Help: n.Help})
			}
		case KindArgument:
			if !partial {
				cands = append(cands, Candidate{Value: n.Name, Help: n.Help})
			}
		}
	}
	return cands, len(lastWord)
}
