// Package rules holds the graph of build rules produced by parsing a build description.
package rules

import (
	"fmt"

	"github.com/agenium-scale/nsconfig/diag"
	"github.com/agenium-scale/nsconfig/toolchain"
	"github.com/agenium-scale/nsconfig/util"
)

// Kind tells how a rule produces its output.
type Kind int

const (
	// SingleFile builds one file.
	SingleFile Kind = iota
	// MultipleFiles builds one file per item, it is expanded into SingleFile rules.
	MultipleFiles
	// Phony groups dependencies and produces no file.
	Phony
	// SelfRegenerate rebuilds the build file itself.
	SelfRegenerate
)

func (k Kind) String() string {
	switch k {
	case SingleFile:
		return "build_file"
	case MultipleFiles:
		return "build_files"
	case Phony:
		return "phony"
	default:
		return "self"
	}
}

// Item is one (output, input) pair of a MultipleFiles rule.
type Item struct {
	Output string
	Input  string
}

// Descriptor describes a rule: what it builds, from what and how.
type Descriptor struct {
	Kind Kind
	// Target is the name of the rule in the graph, Output the file it produces.
	Target   string
	Output   string
	Deps     []string
	Commands []string
	Items    []Item

	Autodeps     bool
	AutodepsBy   toolchain.Family
	AutodepsFile string

	// Force rules always rebuild their output.
	Force  bool
	Cursor diag.Cursor
}

// Clone returns a deep copy of the descriptor.
func (d *Descriptor) Clone() *Descriptor {
	c := *d
	c.Deps = append([]string(nil), d.Deps...)
	c.Commands = append([]string(nil), d.Commands...)
	c.Items = append([]Item(nil), d.Items...)
	return &c
}

// IsPhony reports whether the rule produces no file, either by declaration or because it has no commands.
func (d *Descriptor) IsPhony() bool {
	return d.Kind == Phony || len(d.Commands) == 0
}

// ForceTarget returns the name of the rule forcing the rebuild of output.
func ForceTarget(output string) string {
	return "f_" + util.DottedName(output)
}

// InstallPath is a file or directory to copy under Dir when installing.
type InstallPath struct {
	Dir    string
	Source string
}

// Graph maps rule names to their descriptors.
type Graph struct {
	rules         util.OrderedMap[string, *Descriptor]
	forceByOutput map[string]*Descriptor

	FileInstalls []InstallPath
	DirInstalls  []InstallPath
}

func NewGraph() *Graph {
	return &Graph{
		rules:         util.NewOrderedMap[string, *Descriptor](),
		forceByOutput: map[string]*Descriptor{},
	}
}

// Insert adds a rule to the graph. A rule with the same target must not exist.
func (g *Graph) Insert(d *Descriptor) error {
	if prev, ok := g.rules.Lookup(d.Target); ok {
		return &diag.Diagnostic{
			Cursor:  d.Cursor,
			Message: fmt.Sprintf("rule name '%s' already defined at line %d", d.Target, prev.Cursor.Line),
		}
	}
	g.rules.Insert(d.Target, d)
	if d.Force {
		g.forceByOutput[d.Output] = d
	}
	return nil
}

// Lookup returns the rule named target.
func (g *Graph) Lookup(target string) (*Descriptor, bool) {
	return g.rules.Lookup(target)
}

// ForceByOutput returns the force rule producing output.
func (g *Graph) ForceByOutput(output string) (*Descriptor, bool) {
	d, ok := g.forceByOutput[output]
	return d, ok
}

// Rules returns every rule, ordered by target.
func (g *Graph) Rules() []*Descriptor {
	return g.rules.Values()
}

func (g *Graph) Len() int {
	return g.rules.Len()
}

// ResolveForceDeps rewrites the dependencies of force rules so that forcing a file also forces the files it is
// built from. Dependencies without a force rule are dropped, except buildFile which is kept as is.
func (g *Graph) ResolveForceDeps(buildFile string) {
	for _, d := range g.rules.Values() {
		if !d.Force {
			continue
		}
		deps := d.Deps
		d.Deps = nil
		for _, dep := range deps {
			if dep == buildFile {
				d.Deps = append(d.Deps, dep)
			} else if f, ok := g.forceByOutput[dep]; ok {
				d.Deps = append(d.Deps, f.Target)
			}
		}
	}
}
