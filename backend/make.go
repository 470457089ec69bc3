package backend

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/agenium-scale/nsconfig/rules"
	"github.com/agenium-scale/nsconfig/shell"
	"github.com/agenium-scale/nsconfig/util"
)

// Dialect is a flavor of make.
type Dialect int

const (
	POSIX Dialect = iota
	GNU
	NMake
)

func (d Dialect) String() string {
	switch d {
	case GNU:
		return "gnumake"
	case NMake:
		return "nmake"
	}
	return "make"
}

// Make writes makefiles. Make reads no header dependencies and does not reload a regenerated makefile.
type Make struct {
	Header     Header
	Dialect    Dialect
	Translator *shell.Translator
}

func (m *Make) SelfRegenerating() bool { return false }
func (m *Make) HeaderDeps() bool       { return false }

func (m *Make) Command() string {
	if m.Dialect == NMake {
		return "nmake"
	}
	return "make"
}

// makeEscape escapes a file name used in a target or prerequisite list.
func (m *Make) makeEscape(s string) string {
	s = strings.ReplaceAll(s, "$", "$$")
	if m.Dialect == NMake {
		return shell.Stringify(s)
	}
	return strings.ReplaceAll(s, " ", "\\ ")
}

func (m *Make) Render(g *rules.Graph) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(m.Header.String())
	if m.Dialect == POSIX {
		b.WriteString(".POSIX:\n\n")
	}
	rs := ordered(g)
	if m.Dialect == GNU {
		var phony []string
		for _, d := range rs {
			if d.Kind == rules.Phony || d.Force {
				phony = append(phony, m.makeEscape(d.Target))
			}
		}
		phony = util.OrderedSlice(phony)
		if len(phony) > 0 {
			fmt.Fprintf(&b, ".PHONY: %s\n\n", strings.Join(phony, " "))
		}
	}
	for _, d := range rs {
		m.rule(&b, d)
	}
	return b.Bytes(), nil
}

func (m *Make) rule(b *bytes.Buffer, d *rules.Descriptor) {
	b.WriteString(m.makeEscape(d.Target) + ":")
	for _, dep := range d.Deps {
		b.WriteString(" " + m.makeEscape(dep))
	}
	b.WriteByte('\n')
	cmds := d.Commands
	if dir := outputDir(d); dir != "" {
		cmds = append([]string{m.Translator.MkdirP(dir)}, cmds...)
	}
	for _, cmd := range cmds {
		b.WriteString("\t" + strings.ReplaceAll(cmd, "$", "$$") + "\n")
	}
	b.WriteByte('\n')
}
