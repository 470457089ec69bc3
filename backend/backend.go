// Package backend writes a graph of rules as a build file for ninja or make.
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/agenium-scale/nsconfig/log"
	"github.com/agenium-scale/nsconfig/rules"
	"github.com/agenium-scale/nsconfig/sys"
	"github.com/agenium-scale/nsconfig/toolchain"
	"github.com/agenium-scale/nsconfig/util"
)

// Backend renders the build file of a graph.
type Backend interface {
	// Render returns the content of the build file. Backends may write auxiliary files while rendering.
	Render(g *rules.Graph) ([]byte, error)
	// SelfRegenerating tells whether the build tool reloads the build file once regenerated.
	SelfRegenerating() bool
	// HeaderDeps tells whether the build tool reads the header dependencies written by compilers.
	HeaderDeps() bool
	// Command is the command running the build.
	Command() string
}

// Header is the comment block starting every generated file.
type Header struct {
	CommandLine string
	// Revision is the commit of the source directory, empty when unknown.
	Revision string
}

func (h Header) String() string {
	var b strings.Builder
	b.WriteString("#\n# File generated by nsconfig\n")
	fmt.Fprintf(&b, "# Command line: %s\n", h.CommandLine)
	if h.Revision != "" {
		fmt.Fprintf(&b, "# Source revision: %s\n", h.Revision)
	}
	b.WriteString("#\n\n")
	return b.String()
}

var lastTargets = []string{"install", "clean"}

// ordered returns the rules in output order: all first, then every other rule by name, then install and clean.
func ordered(g *rules.Graph) []*rules.Descriptor {
	var result []*rules.Descriptor
	if d, ok := g.Lookup("all"); ok {
		result = append(result, d)
	}
	for _, d := range g.Rules() {
		if d.Target != "all" && d.Target != "install" && d.Target != "clean" {
			result = append(result, d)
		}
	}
	for _, name := range lastTargets {
		if d, ok := g.Lookup(name); ok {
			result = append(result, d)
		}
	}
	return result
}

// outputDir returns the directory a rule must create before running its commands, "" if none.
func outputDir(d *rules.Descriptor) string {
	if d.Kind == rules.Phony || len(d.Commands) == 0 {
		return ""
	}
	return util.Dirname(d.Output)
}

// MSVCDepsPrefix returns the prefix cl.exe puts before included files when one of the resolved compilers is
// MSVC, "" otherwise.
func MSVCDepsPrefix(ctx context.Context, reg *toolchain.Registry) (string, error) {
	for _, info := range reg.Infos() {
		if info.Family == toolchain.MSVC {
			return reg.MSVCDepsPrefix(ctx, info.Path)
		}
	}
	return "", nil
}

// Write renders g with b and writes the result to name.
func Write(fs sys.FS, name string, b Backend, g *rules.Graph) error {
	data, err := b.Render(g)
	if err != nil {
		return err
	}
	if err := fs.WriteFile(name, data, util.FileMode); err != nil {
		return errors.Wrapf(err, "Failed to write %s", name)
	}
	log.Success("Build file written to %s\n", name)
	return nil
}
