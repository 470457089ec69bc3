// Package parser interprets build descriptions and turns them into a graph of rules.
//
// A build description is a list of statements, one per line, and of commands. Commands are the lines starting
// with a tab, they belong to the rule opened by the last build_file, build_files or phony statement.
package parser

import (
	"context"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/xyproto/env/v2"

	"github.com/agenium-scale/nsconfig/diag"
	"github.com/agenium-scale/nsconfig/rules"
	"github.com/agenium-scale/nsconfig/shell"
	"github.com/agenium-scale/nsconfig/sys"
	"github.com/agenium-scale/nsconfig/toolchain"
	"github.com/agenium-scale/nsconfig/util"
)

// Options are the settings of one run, as given on the command line.
type Options struct {
	HostOS    string
	SourceDir string
	BuildDir  string
	// DescriptionFile is the build description to parse, usually SourceDir/build.nsconfig.
	DescriptionFile string
	// OutputFile is the generated build file.
	OutputFile  string
	CommandLine string
	MakeCommand string
	Prefix      string

	// Regenerate adds a rule regenerating OutputFile when the description changes, and makes every rule
	// depend on OutputFile.
	Regenerate bool
	// SelfRegenerating tells whether the backend reloads its build file once regenerated. When it does not,
	// the regeneration rule stops the build and asks the user to run it again.
	SelfRegenerating bool
	// HeaderDeps tells whether the backend tracks header dependencies.
	HeaderDeps bool
}

// Help is the description attached to a variable by ifnot_set.
type Help struct {
	Name        string
	Description string
	Cursor      diag.Cursor
}

// Context holds everything needed to interpret a build description.
// It is built once per run and must not be used for more than one Parse or ListVariables.
type Context struct {
	Options

	Store      *Store
	Graph      *rules.Graph
	Toolchains *toolchain.Registry
	Translator *shell.Translator
	FS         sys.FS
	Runner     sys.Runner
	// Stdout receives the output of echo statements.
	Stdout io.Writer
	Getenv func(name string) string

	// ctx is the context of the running Parse or ListVariables.
	ctx context.Context

	// open is the rule receiving commands, nil before the first rule of a file.
	open *rules.Descriptor
	ad   shell.Autodeps

	// translating is false inside a begin_translate_if block whose condition does not hold.
	translating bool
	inBlock     bool
	blockCursor diag.Cursor

	includes []string
	outputs  []string
	helps    []Help

	packageName                                      string
	genAll, genClean, genUpdate, genInstall, genPack bool
	regenerate                                       bool
}

func NewContext(opts Options, fs sys.FS, runner sys.Runner) *Context {
	toolchains := toolchain.NewRegistry(opts.HostOS, opts.BuildDir, fs, runner)
	return &Context{
		Options:     opts,
		Store:       NewStore(),
		Graph:       rules.NewGraph(),
		Toolchains:  toolchains,
		Translator:  shell.NewTranslator(opts.HostOS, toolchains),
		FS:          fs,
		Runner:      runner,
		Stdout:      os.Stdout,
		Getenv:      func(name string) string { return env.Str(name) },
		translating: true,
		packageName: "package",
		genAll:      true,
		genClean:    true,
		genUpdate:   true,
		genInstall:  true,
		genPack:     true,
		regenerate:  opts.Regenerate,
	}
}

// Parse interprets the description file and returns the complete graph of rules.
// It returns ErrNothingToDo when the description defines no rule.
func (c *Context) Parse(ctx context.Context) (g *rules.Graph, err error) {
	data, err := c.FS.ReadFile(c.DescriptionFile)
	if err != nil {
		return nil, err
	}
	defer diag.Recover(&err)
	c.ctx = ctx
	c.parse(c.DescriptionFile, data, diag.Cursor{File: c.DescriptionFile})
	if err := c.finish(); err != nil {
		return nil, err
	}
	return c.Graph, nil
}

// ListVariables walks the description file and returns the variables documented by ifnot_set.
// Only set and ifnot_set statements are interpreted, unknown variables expand to their own name.
func (c *Context) ListVariables(ctx context.Context) (helps []Help, err error) {
	data, err := c.FS.ReadFile(c.DescriptionFile)
	if err != nil {
		return nil, err
	}
	defer diag.Recover(&err)
	c.ctx = ctx
	c.Store.ListMode = true
	c.parse(c.DescriptionFile, data, diag.Cursor{File: c.DescriptionFile})
	return c.helps, nil
}

// parse interprets the content of one file. from locates the statement that asked for it.
func (c *Context) parse(name string, data []byte, from diag.Cursor) {
	abs, err := c.FS.Abs(name)
	if err != nil {
		diag.Die(from, "%s", err)
	}
	if slices.Contains(c.includes, abs) {
		diag.Die(from, "circular inclusion of %q", name)
	}
	c.includes = append(c.includes, abs)
	defer func() { c.includes = c.includes[:len(c.includes)-1] }()

	lines := strings.Split(string(data), "\n")
	cursor := diag.Cursor{File: name}
	for n := 0; n < len(lines); n++ {
		raw := lines[n]
		cursor.Line = n + 1
		line := strings.TrimSpace(raw)
		if line == "" || line[0] == '#' {
			continue
		}
		line = c.expand(line, &cursor)
		tokens := Tokenize(nil, line, cursor)

		for len(tokens) > 0 && tokens[len(tokens)-1].Text == "\\" && n+1 < len(lines) {
			tokens = tokens[:len(tokens)-1]
			n++
			cursor.Line = n + 1
			next := c.expand(strings.TrimSpace(lines[n]), &cursor)
			if next == "" {
				break
			}
			if next[0] == '#' {
				continue
			}
			tokens = Tokenize(tokens, next, cursor)
		}
		if len(tokens) == 0 {
			continue
		}
		c.line(tokens, strings.HasPrefix(raw, "\t"))
	}
	c.close()
}

// expand substitutes the variables of a physical line, unless it is in a block being skipped.
// It leaves cursor pointing into the result.
func (c *Context) expand(line string, cursor *diag.Cursor) string {
	cursor.Phase = diag.During
	if c.translating {
		line = c.Store.Substitute(line, *cursor)
	}
	cursor.Phase = diag.After
	cursor.Source = line
	return line
}

func isModifier(s string) bool {
	return (len(s) == 3 && s[0] == '[' && s[2] == ']') || (len(s) == 5 && s[0] == '[' && s[2] == ':' && s[4] == ']')
}

func (c *Context) line(tokens []diag.Token, cmd bool) {
	action := shell.Translate
	if m := tokens[0]; isModifier(m.Text) {
		host := m.Text[1]
		if host != 'L' && host != 'W' && host != '*' {
			diag.Die(m.Cursor.At(m.Cursor.Col+1), "expected 'L', 'W' or '*'")
		}
		if len(m.Text) == 5 {
			switch m.Text[3] {
			case 'R':
				action = shell.Raw
			case 'T':
				action = shell.Translate
			case 'P':
				action = shell.Permissive
			default:
				diag.Die(m.Cursor.At(m.Cursor.Col+3), "expected 'P', 'T' or 'R'")
			}
		}
		windows := c.HostOS == util.Windows
		if (host == 'L' && windows) || (host == 'W' && !windows) {
			return
		}
		tokens = tokens[1:]
		if len(tokens) == 0 {
			diag.Die(m.Cursor, "expected statement or command after")
		}
	}

	kind := KindUnknown
	if !cmd {
		kind = Classify(tokens[0].Text)
	}
	if c.Store.ListMode {
		if kind == KindSet || kind == KindIfnotSet {
			c.set(tokens, kind)
		}
		return
	}
	if kind == KindBeginTranslateIf && c.inBlock {
		diag.Die(tokens[0].Cursor, "'begin_translate_if' cannot be nested, the current block starts at line %d",
			c.blockCursor.Line)
	}
	if kind == KindEndTranslate {
		c.endTranslate(tokens)
		return
	}
	if !c.translating {
		return
	}
	if cmd {
		c.command(tokens, action)
		return
	}

	switch kind {
	case KindSet, KindIfnotSet:
		c.set(tokens, kind)
	case KindGetenv:
		c.getenv(tokens)
	case KindGlob, KindIfnotGlob:
		c.glob(tokens, kind)
	case KindPopen:
		c.popen(tokens)
	case KindFindExe:
		c.findExe(tokens)
	case KindFindHeader:
		c.findHeader(tokens)
	case KindFindLib:
		c.findLib(tokens)
	case KindInclude:
		c.include(tokens)
	case KindBuildFile, KindPhony:
		c.buildFile(tokens, kind)
	case KindBuildFiles:
		c.buildFiles(tokens)
	case KindBeginTranslateIf:
		c.beginTranslate(tokens)
	case KindEcho:
		c.echo(tokens)
	case KindPackageName:
		c.setPackageName(tokens)
	case KindInstallFile, KindInstallDir:
		c.install(tokens, kind)
	case KindDisableAll, KindDisableClean, KindDisableUpdate, KindDisableInstall, KindDisablePackage:
		c.disable(tokens, kind)
	case KindEndTranslate:
		// handled above
	case KindUnknown:
		diag.Die(tokens[0].Cursor, "unknown statement %q%s", tokens[0].Text, util.DidYouMean(tokens[0].Text, Keywords))
	}
}

func (c *Context) command(tokens []diag.Token, action shell.Action) {
	if c.open == nil {
		diag.Die(tokens[0].Cursor, "command given outside of any rule")
	}
	var ad *shell.Autodeps
	if c.open.Autodeps {
		ad = &c.ad
	}
	c.open.Commands = append(c.open.Commands, c.Translator.Translate(c.ctx, tokens, action, ad))
	if ad != nil {
		c.open.AutodepsBy = ad.By
	}
}

func (c *Context) beginTranslate(tokens []diag.Token) {
	switch {
	case len(tokens) == 1:
		diag.Die(tokens[0].Cursor, "expecting expression after")
	case len(tokens) == 2:
		diag.Die(tokens[1].Cursor, "expecting comparison operator after")
	case tokens[2].Text != "==" && tokens[2].Text != "!=":
		diag.Die(tokens[2].Cursor, "comparison operator must be '==' or '!='")
	case len(tokens) == 3:
		diag.Die(tokens[2].Cursor, "expecting expression after")
	case len(tokens) > 4:
		diag.Die(tokens[4].Cursor, "unexpected token")
	}
	equal := tokens[1].Text == tokens[3].Text
	c.translating = equal == (tokens[2].Text == "==")
	c.inBlock = true
	c.blockCursor = tokens[0].Cursor
}

func (c *Context) endTranslate(tokens []diag.Token) {
	if !c.inBlock {
		diag.Die(tokens[0].Cursor, "unexpected 'end_translate', no corresponding 'begin_translate_if'")
	}
	if len(tokens) > 1 {
		diag.Die(tokens[1].Cursor, "unexpected token here")
	}
	c.translating = true
	c.inBlock = false
}
