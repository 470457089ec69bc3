package parser

import (
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/agenium-scale/nsconfig/diag"
	"github.com/agenium-scale/nsconfig/log"
	"github.com/agenium-scale/nsconfig/rules"
	"github.com/agenium-scale/nsconfig/shell"
	"github.com/agenium-scale/nsconfig/toolchain"
	"github.com/agenium-scale/nsconfig/util"
)

// ErrNothingToDo is returned by Parse for descriptions without any rule.
var ErrNothingToDo = errors.New("No rule given, nothing to do")

// close adds the open rule to the graph.
func (c *Context) close() {
	if c.open == nil {
		return
	}
	d := c.open
	c.open = nil
	c.addTarget(d, false)
}

func (c *Context) insert(d *rules.Descriptor, quiet bool) {
	if err := c.Graph.Insert(d); err != nil {
		diag.Die(d.Cursor, "%s", err.(*diag.Diagnostic).Message)
	}
	if !quiet {
		log.Log("Add new target: '%s'\n", d.Target)
	}
}

// addTarget inserts the rules described by d: the rule itself, named after its output, and unless it is a
// phony or the regeneration rule, its force variant. build_files rules are expanded into one rule per item.
func (c *Context) addTarget(d *rules.Descriptor, quiet bool) {
	if d.Kind == rules.MultipleFiles {
		for _, item := range d.Items {
			input := c.Translator.Ify(item.Input)
			single := &rules.Descriptor{
				Kind:         rules.SingleFile,
				Output:       item.Output,
				Autodeps:     d.Autodeps,
				AutodepsBy:   d.AutodepsBy,
				AutodepsFile: item.Output + ".d",
				Cursor:       d.Cursor,
			}
			for _, dep := range d.Deps {
				if dep == "@item" {
					dep = input
				}
				single.Deps = append(single.Deps, dep)
			}
			for _, cmd := range d.Commands {
				single.Commands = append(single.Commands, strings.ReplaceAll(cmd, "@item", input))
			}
			c.addTarget(single, true)
		}
		if !quiet {
			log.Log("Add %d new targets from globbing: '%s'\n", len(d.Items), d.Output)
		}
		return
	}

	output := c.Translator.Ify(d.Output)
	input := strings.Join(c.Translator.IfyAll(d.Deps), " ")
	expanded := util.MappedSlice(d.Commands, func(cmd string) string {
		return strings.ReplaceAll(strings.ReplaceAll(cmd, "@out", output), "@in", input)
	})

	asIs := d.Clone()
	asIs.Target = d.Output
	flags := ""
	if d.Autodeps && d.AutodepsBy != toolchain.None {
		flags = c.Translator.AutodepsFlags(d.AutodepsBy, d.AutodepsFile)
	}
	asIs.Commands = util.MappedSlice(expanded, func(cmd string) string { return withAutodeps(cmd, flags) })
	if c.regenerate {
		asIs.Deps = append(asIs.Deps, c.OutputFile)
	}
	c.insert(asIs, quiet)

	if !d.IsPhony() {
		c.outputs = append(c.outputs, c.Translator.Sanitize(d.Output))
	}
	if d.Kind == rules.Phony || d.Kind == rules.SelfRegenerate {
		return
	}

	force := asIs.Clone()
	force.Target = rules.ForceTarget(d.Output)
	force.Force = true
	force.Autodeps = false
	force.Commands = util.MappedSlice(expanded, func(cmd string) string { return withAutodeps(cmd, "") })
	c.insert(force, quiet)
}

// withAutodeps replaces the autodeps placeholder of a command by flags, or removes it.
func withAutodeps(cmd, flags string) string {
	if flags == "" {
		cmd = strings.ReplaceAll(cmd, " "+shell.AutodepsPlaceholder, "")
		return strings.ReplaceAll(cmd, shell.AutodepsPlaceholder, "")
	}
	return strings.ReplaceAll(cmd, shell.AutodepsPlaceholder, flags)
}

func (c *Context) addPhony(name string, cmds, deps []string) {
	c.addTarget(&rules.Descriptor{Kind: rules.Phony, Output: name, Deps: deps, Commands: cmds}, false)
}

// installCommands returns the commands copying the installed files and directories under prefix, and the
// files they need.
func (c *Context) installCommands(prefix string) (cmds, deps []string) {
	t := c.Translator
	created := map[string]bool{}
	mkdir := func(dir string) {
		if !created[dir] {
			cmds = append(cmds, t.MkdirP(dir))
			created[dir] = true
		}
	}
	for _, p := range c.Graph.FileInstalls {
		dest := path.Join(prefix, p.Dir)
		mkdir(dest)
		cmds = append(cmds, t.Cp(false, p.Source, dest))
		deps = append(deps, p.Source)
	}
	for _, p := range c.Graph.DirInstalls {
		dest := path.Join(prefix, p.Dir)
		mkdir(dest)
		cmds = append(cmds, t.Cp(true, p.Source, dest))
	}
	return cmds, deps
}

// rerunBanner stops a build whose backend cannot reload its build file once regenerated.
func rerunBanner(makeCommand string) []string {
	return []string{
		"@echo x",
		"@echo x x x",
		"@echo x x x x x",
		"@echo x x x x x x . . . RERUN " + makeCommand,
		"@echo x x x x x",
		"@echo x x x",
		"@echo x",
		"@exit 99",
	}
}

// finish checks the parse went through and adds the targets every build file has.
func (c *Context) finish() error {
	if c.inBlock {
		diag.Die(c.blockCursor, "unfinished 'begin_translate_if'")
	}
	if err := c.Store.CheckUsed(); err != nil {
		return err
	}
	if c.Graph.Len() == 0 {
		return ErrNothingToDo
	}
	t := c.Translator
	missing := func(target string) bool {
		_, ok := c.Graph.Lookup(target)
		return !ok
	}

	if c.genClean && missing("clean") {
		c.addPhony("clean", util.MappedSlice(c.outputs, func(o string) string { return t.Rm(false, o) }), nil)
	}
	if c.genAll && missing("all") {
		c.addPhony("all", nil, append([]string(nil), c.outputs...))
	}
	if c.genInstall && missing("install") {
		cmds, deps := c.installCommands(c.Prefix)
		c.addPhony("install", cmds, deps)
	}
	if c.genPack && missing("package") {
		archive := c.packageName + ".tar.bz2"
		if c.HostOS == util.Windows {
			archive = c.packageName + ".zip"
		}
		cmds := []string{t.Rm(true, c.packageName), t.Rm(false, archive)}
		install, deps := c.installCommands(c.packageName)
		cmds = append(append(cmds, install...), t.Zip(c.packageName))
		c.addPhony("package", cmds, deps)
	}

	regenerate := c.regenerate
	c.regenerate = false
	if c.genUpdate && missing("update") {
		c.addPhony("update", []string{c.CommandLine}, nil)
	}
	if regenerate && missing(c.OutputFile) {
		cmds := []string{c.CommandLine}
		if !c.SelfRegenerating {
			cmds = append(cmds, rerunBanner(c.MakeCommand)...)
		}
		c.addTarget(&rules.Descriptor{
			Kind:     rules.SelfRegenerate,
			Output:   c.OutputFile,
			Deps:     []string{c.DescriptionFile},
			Commands: cmds,
		}, false)
	}
	c.regenerate = regenerate

	c.Graph.ResolveForceDeps(c.OutputFile)
	return nil
}
