package command

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed commands.yaml
var defaultCommands []byte

// nodeSpec is the YAML shape of one command-tree node. Exactly one of
// word and arg must be set; arg names an argument placeholder.
type nodeSpec struct {
	Word     string     `yaml:"word"`
	Arg      string     `yaml:"arg"`
	Help     string     `yaml:"help"`
	Pipeable bool       `yaml:"pipeable"`
	Handler  string     `yaml:"handler"`
	Children []nodeSpec `yaml:"children"`
}

type treeSpec struct {
	Commands []nodeSpec `yaml:"commands"`
}

// Default returns the tree built from the embedded command definitions.
func Default() (*Tree, error) {
	return Load(defaultCommands)
}

// Load builds a tree from YAML command definitions.
func Load(data []byte) (*Tree, error) {
	var spec treeSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse command definitions: %w", err)
	}
	t := &Tree{}
	for _, ns := range spec.Commands {
		n, err := buildNode(ns)
		if err != nil {
			return nil, err
		}
		t.roots = append(t.roots, n)
	}
	for _, n := range t.roots {
		if err := n.validate(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// LoadFile reads additional command definitions and merges them into the
// tree. Nodes with the same word path are merged; new nodes are appended.
func (t *Tree) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read command definitions: %w", err)
	}
	extra, err := Load(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	t.roots = mergeNodes(t.roots, extra.roots)
	return nil
}

func buildNode(ns nodeSpec) (*Node, error) {
	if (ns.Word == "") == (ns.Arg == "") {
		return nil, fmt.Errorf("command node must set exactly one of word and arg (word=%q arg=%q)", ns.Word, ns.Arg)
	}
	n := &Node{
		Name:     ns.Word,
		Help:     ns.Help,
		Kind:     KindWord,
		Pipeable: ns.Pipeable,
		Handler:  ns.Handler,
	}
	if ns.Arg != "" {
		n.Name = ns.Arg
		n.Kind = KindArgument
	}
	for _, child := range ns.Children {
		c, err := buildNode(child)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, c)
	}
	return n, nil
}

func mergeNodes(base, extra []*Node) []*Node {
	for _, e := range extra {
		merged := false
		for _, b := range base {
			if b.Name == e.Name && b.Kind == e.Kind {
				if e.Help != "" {
					b.Help = e.Help
				}
				if e.Handler != "" {
					b.Handler = e.Handler
					b.Pipeable = e.Pipeable
				}
				b.Children = mergeNodes(b.Children, e.Children)
				merged = true
				break
			}
		}
		if !merged {
			base = append(base, e)
		}
	}
	return base
}
