// Package shell translates the portable commands of build descriptions into host shell commands.
package shell

import (
	"context"
	"strings"

	"github.com/agenium-scale/nsconfig/diag"
	"github.com/agenium-scale/nsconfig/toolchain"
	"github.com/agenium-scale/nsconfig/util"
)

// Action selects how strictly a command line is translated.
type Action int

const (
	// Translate rejects unknown commands and unknown compiler options.
	Translate Action = iota
	// Raw copies the command line as is.
	Raw
	// Permissive translates what it knows and passes the rest through.
	Permissive
)

// AutodepsPlaceholder marks where header dependency flags go in a translated compiler invocation.
// It is replaced when the rule is closed, as the flags depend on the rule's output.
const AutodepsPlaceholder = "@@autodeps_flags"

// Autodeps collects what is needed to generate header dependency information for a command.
type Autodeps struct {
	// By is MSVC when cl.exe reports the headers, GCC for compilers writing a depfile,
	// None while no compiler invocation has been seen.
	By toolchain.Family
}

// Translator translates commands for one host. Compiler heads are resolved through Toolchains.
type Translator struct {
	HostOS     string
	Toolchains *toolchain.Registry

	d *dialect
}

func NewTranslator(hostOS string, toolchains *toolchain.Registry) *Translator {
	return &Translator{HostOS: hostOS, Toolchains: toolchains, d: dialectFor(hostOS)}
}

// Stringify double-quotes s when it contains a blank.
func Stringify(s string) string {
	if strings.ContainsAny(s, " \t") {
		return "\"" + s + "\""
	}
	return s
}

// Sanitize converts a path to the host's separator.
func (t *Translator) Sanitize(p string) string {
	return util.Sanitize(t.HostOS, p)
}

// Ify makes a path ready to be used as a single shell word on the host.
func (t *Translator) Ify(p string) string {
	return Stringify(t.Sanitize(p))
}

// IfyAll applies Ify to every path.
func (t *Translator) IfyAll(paths []string) []string {
	return util.MappedSlice(paths, t.Ify)
}

func (t *Translator) raw(tokens []diag.Token) string {
	return strings.Join(util.MappedSlice(diag.Texts(tokens), t.Ify), " ")
}

func (t *Translator) fileArgs(tokens []diag.Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		b.WriteByte(' ')
		b.WriteString(t.Ify(tok.Text))
	}
	return b.String()
}

func isSeparator(s string) bool {
	switch s {
	case "&&", "||", "|", ";", ">", ">>", "<":
		return true
	}
	return false
}

func isRedirection(s string) bool {
	return s == ">" || s == ">>" || s == "<"
}

// Translate converts a tokenized command line to a host command.
// When ad is not nil, compiler invocations receive the AutodepsPlaceholder and ad.By records their kind.
// Errors abort through diag.Die.
func (t *Translator) Translate(ctx context.Context, tokens []diag.Token, action Action, ad *Autodeps) string {
	if len(tokens) == 0 {
		return ""
	}
	if action == Raw {
		return t.raw(tokens)
	}

	var b strings.Builder
	i0 := 0
	for i0 < len(tokens) {
		if isSeparator(tokens[i0].Text) {
			diag.Die(tokens[i0].Cursor, "expected command before")
		}
		// separators inside the blocks of an if belong to the blocks
		i1, depth := i0+1, 0
		for ; i1 < len(tokens) && (depth > 0 || !isSeparator(tokens[i1].Text)); i1++ {
			switch tokens[i1].Text {
			case "(":
				depth++
			case ")":
				depth--
			}
		}
		b.WriteString(t.single(ctx, tokens[i0:i1], action, ad))

		// redirections glue to their file and may be chained
		for i1 < len(tokens) && isRedirection(tokens[i1].Text) {
			if i1+1 >= len(tokens) {
				diag.Die(tokens[i1].Cursor, "expected file after")
			}
			b.WriteString(" " + tokens[i1].Text + t.Ify(tokens[i1+1].Text))
			i1 += 2
		}
		if i1 >= len(tokens) {
			break
		}
		if tokens[i1].Text == ";" {
			b.WriteString(t.d.sequence)
		} else {
			b.WriteString(" " + tokens[i1].Text + " ")
		}
		if i1+1 >= len(tokens) {
			diag.Die(tokens[i1].Cursor, "expected command after")
		}
		i0 = i1 + 1
	}
	return b.String()
}

func (t *Translator) single(ctx context.Context, tokens []diag.Token, action Action, ad *Autodeps) string {
	head := tokens[0].Text
	if builtin, ok := builtins[head]; ok {
		return builtin(t, ctx, tokens, action, ad)
	}
	if toolchain.IsCompiler(head) {
		info, err := t.Toolchains.Resolve(ctx, head)
		if err != nil {
			diag.Die(tokens[0].Cursor, "%s", err.Error())
		}
		args := t.compile(ctx, info, tokens, action)
		if ad == nil || len(args) < 2 {
			return strings.Join(args, " ")
		}
		if info.Family == toolchain.MSVC {
			ad.By = toolchain.MSVC
			if len(args) > 4 {
				return strings.Join(args[:4], " ") + " " + AutodepsPlaceholder + " " + strings.Join(args[4:], " ")
			}
			return strings.Join(args, " ") + " " + AutodepsPlaceholder
		}
		ad.By = toolchain.GCC
		return strings.Join(args, " ") + " " + AutodepsPlaceholder
	}
	if action == Raw || action == Permissive {
		return t.raw(tokens)
	}
	diag.Die(tokens[0].Cursor, "unknown command")
	return ""
}

// AutodepsFlags returns the flags making a compiler of the given kind report header dependencies.
func (t *Translator) AutodepsFlags(by toolchain.Family, depfile string) string {
	if by == toolchain.MSVC {
		return "/showIncludes"
	}
	return "-MMD -MF " + t.Ify(depfile)
}

// LibBasename strips the "lib" prefix and the library extension from a library file name.
func LibBasename(name string) string {
	base := strings.TrimPrefix(name, "lib")
	for _, ext := range []string{".so", ".a", ".lib", ".dll", ".dylib"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return base
}
