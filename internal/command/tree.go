// Package command implements the shell's command tree: the declarative
// definition of every command word, resolution of operator input against
// it, and the completion candidates offered by the front end.
package command

import (
	"fmt"
	"strings"
)

// Kind distinguishes literal command words from argument tokens.
type Kind int

const (
	KindWord Kind = iota
	KindArgument
)

// Node is one token in the command tree. Argument nodes match any input
// word and collect it; word nodes match their name (or an unambiguous
// prefix of it). A node with a handler name is executable.
type Node struct {
	Name     string
	Help     string
	Kind     Kind
	Pipeable bool
	Handler  string
	Children []*Node
}

// Tree is the immutable command tree, built once at startup.
type Tree struct {
	roots []*Node
}

// Match is a fully resolved command invocation: the canonical word path,
// the collected argument tokens, the handler name, and the command's
// pipe capability. It satisfies the pipe engine's Base interface.
type Match struct {
	Path     []string
	Args     []string
	Handler  string
	pipeable bool
}

// Pipeable reports whether filter stages may follow this command.
func (m *Match) Pipeable() bool { return m.pipeable }

// String returns the canonical command words joined by spaces.
func (m *Match) String() string { return strings.Join(m.Path, " ") }

// CommandInfo describes one executable command for listing interfaces.
type CommandInfo struct {
	Path     string
	Help     string
	Pipeable bool
}

// Commands returns every executable command in definition order.
func (t *Tree) Commands() []CommandInfo {
	var infos []CommandInfo
	var walk func(prefix []string, nodes []*Node)
	walk = func(prefix []string, nodes []*Node) {
		for _, n := range nodes {
			path := append(append([]string{}, prefix...), n.Name)
			if n.Handler != "" {
				infos = append(infos, CommandInfo{
					Path:     strings.Join(path, " "),
					Help:     n.Help,
					Pipeable: n.Pipeable,
				})
			}
			walk(path, n.Children)
		}
	}
	walk(nil, t.roots)
	return infos
}

func (n *Node) validate() error {
	if n.Name == "" {
		return fmt.Errorf("command node has no name")
	}
	if n.Handler == "" && len(n.Children) == 0 {
		return fmt.Errorf("command node %q is neither executable nor has children", n.Name)
	}
	for _, child := range n.Children {
		if err := child.validate(); err != nil {
			return err
		}
	}
	return nil
}
