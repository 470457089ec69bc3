package backend

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/agenium-scale/nsconfig/log"
	"github.com/agenium-scale/nsconfig/rules"
	"github.com/agenium-scale/nsconfig/shell"
	"github.com/agenium-scale/nsconfig/sys"
	"github.com/agenium-scale/nsconfig/toolchain"
	"github.com/agenium-scale/nsconfig/util"
)

// Ninja writes build.ninja files. Rules whose commands do not fit on the host command line are written to
// scripts under BuildDir/_ninja_build_scripts.
type Ninja struct {
	Header     Header
	Translator *shell.Translator
	FS         sys.FS
	BuildDir   string
	// MSVCDepsPrefix is set when a rule is compiled by cl.exe.
	MSVCDepsPrefix string
	// MaxCommandLen overrides the host command line limit when positive.
	MaxCommandLen int

	// ruleTargets maps the rule names given so far to their target.
	ruleTargets map[string]string
}

func (n *Ninja) SelfRegenerating() bool { return true }
func (n *Ninja) HeaderDeps() bool       { return true }
func (n *Ninja) Command() string        { return "ninja" }

func (n *Ninja) windows() bool {
	return n.Translator.HostOS == util.Windows
}

// maxCommandLen returns the longest command line the host accepts, minus the terminating null.
func (n *Ninja) maxCommandLen() int {
	if n.MaxCommandLen > 0 {
		return n.MaxCommandLen
	}
	switch n.Translator.HostOS {
	case util.Windows:
		// cmd.exe limit
		return 8191 - 1
	case "darwin", "freebsd", "netbsd", "openbsd", "dragonfly":
		return 262144 - 1
	}
	// execve accepts at least 32 pages
	return 32*sys.PageSize() - 1
}

// commandsLen is the length of the command line ninja runs for cmds.
func (n *Ninja) commandsLen(cmds []string) int {
	perCommand, constant := 4, 0
	if n.windows() {
		perCommand, constant = 8, 9
	}
	total := constant
	for _, cmd := range cmds {
		total += len(cmd) + perCommand
	}
	return total
}

// ninjaEscape escapes a path used in a build statement.
func ninjaEscape(s string) string {
	return strings.NewReplacer("$", "$$", " ", "$ ", ":", "$:", "\n", "$\n").Replace(s)
}

// ruleName turns a target into a ninja identifier.
func ruleName(target string) string {
	b := []byte(util.DottedName(target))
	for i, c := range b {
		ok := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' ||
			c == '.' || c == '-'
		if !ok {
			b[i] = '_'
		}
	}
	return string(b) + "_rule"
}

// uniqueRuleName returns the rule name of target, adding the checksum of the target when another target already
// got the same name, as in a/b.o and a.b.o.
func (n *Ninja) uniqueRuleName(target string) string {
	name := ruleName(target)
	if other, ok := n.ruleTargets[name]; ok && other != target {
		name = fmt.Sprintf("%s_%08x", strings.TrimSuffix(name, "_rule"), crc32.ChecksumIEEE([]byte(target))) + "_rule"
	}
	n.ruleTargets[name] = target
	return name
}

func (n *Ninja) Render(g *rules.Graph) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(n.Header.String())
	n.ruleTargets = map[string]string{}
	if n.MSVCDepsPrefix != "" {
		fmt.Fprintf(&b, "msvc_deps_prefix = %s\n\n", n.MSVCDepsPrefix)
	}
	for _, d := range ordered(g) {
		if err := n.rule(&b, d); err != nil {
			return nil, err
		}
		if d.Target == "all" {
			b.WriteString("default all\n\n")
		}
	}
	return b.Bytes(), nil
}

func (n *Ninja) rule(b *bytes.Buffer, d *rules.Descriptor) error {
	b.WriteString("# ---\n\n")
	deps := util.MappedSlice(d.Deps, ninjaEscape)
	if len(d.Commands) == 0 {
		b.WriteString("build " + ninjaEscape(d.Target) + ": phony")
		for _, dep := range deps {
			b.WriteString(" " + dep)
		}
		b.WriteString("\n\n")
		return nil
	}

	cmds := append([]string(nil), d.Commands...)
	if dir := outputDir(d); dir != "" {
		cmds = append([]string{n.Translator.MkdirP(dir)}, cmds...)
	}
	name := n.uniqueRuleName(d.Target)
	fmt.Fprintf(b, "rule %s\n", name)
	if n.commandsLen(d.Commands) >= n.maxCommandLen() {
		script, err := n.script(name, cmds)
		if err != nil {
			return err
		}
		if n.windows() {
			fmt.Fprintf(b, "  command = cmd /C %s", n.Translator.Sanitize(script))
		} else {
			fmt.Fprintf(b, "  command = sh %s", script)
		}
	} else {
		escaped := util.MappedSlice(cmds, func(cmd string) string { return strings.ReplaceAll(cmd, "$", "$$") })
		if n.windows() && len(escaped) > 1 {
			fmt.Fprintf(b, "  command = cmd /c ( %s )", strings.Join(escaped, " ) && ( "))
		} else {
			fmt.Fprintf(b, "  command = %s", strings.Join(escaped, " && "))
		}
	}
	if d.Kind == rules.SelfRegenerate {
		b.WriteString("\n  generator = 1")
	}
	if d.Autodeps {
		switch d.AutodepsBy {
		case toolchain.None:
		case toolchain.MSVC:
			b.WriteString("\n  deps = msvc")
		default:
			b.WriteString("\n  deps = gcc")
			b.WriteString("\n  depfile = " + ninjaEscape(d.AutodepsFile))
		}
	}

	fmt.Fprintf(b, "\n\nbuild %s: %s", ninjaEscape(d.Target), name)
	for _, dep := range deps {
		b.WriteString(" " + dep)
	}
	b.WriteString("\n\n")
	return nil
}

// script writes cmds to a script run in place of a command line too long for the host. It returns the path of
// the script relative to the build directory.
func (n *Ninja) script(name string, cmds []string) (string, error) {
	dir := path.Join(n.BuildDir, util.NinjaScriptsDir)
	if err := n.FS.MkdirAll(dir); err != nil {
		return "", errors.Wrapf(err, "Failed to create %s", dir)
	}
	var b strings.Builder
	file := name
	if n.windows() {
		file += ".bat"
		b.WriteString("@echo on\n\n")
		for _, cmd := range cmds {
			b.WriteString(cmd + "\nif %errorlevel% neq 0 exit /B %errorlevel%\n\n")
		}
	} else {
		file += ".sh"
		b.WriteString("#!/bin/bash\n\nset -e\nset -x\n\n")
		for _, cmd := range cmds {
			b.WriteString(cmd + "\n\n")
		}
	}
	if err := n.FS.WriteFile(path.Join(dir, file), []byte(b.String()), util.ScriptFileMode); err != nil {
		return "", errors.Wrapf(err, "Failed to write script %s", file)
	}
	log.Debug("Commands of %s written to %s\n", name, file)
	return path.Join(util.NinjaScriptsDir, file), nil
}
