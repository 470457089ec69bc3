package parser

import (
	"fmt"
	"strings"

	"github.com/agenium-scale/nsconfig/diag"
	"github.com/agenium-scale/nsconfig/rules"
	"github.com/agenium-scale/nsconfig/shell"
	"github.com/agenium-scale/nsconfig/toolchain"
	"github.com/agenium-scale/nsconfig/util"
)

// set handles `set VAR = VALUE...` and `ifnot_set "HELP" VAR = VALUE...`.
func (c *Context) set(tokens []diag.Token, kind Kind) {
	if len(tokens) == 1 && kind == KindIfnotSet {
		diag.Die(tokens[0].Cursor, "expected variable description after")
	}
	i := 1
	if kind == KindIfnotSet {
		i = 2
	}
	if len(tokens) == i {
		diag.Die(tokens[i-1].Cursor, "expected variable name after")
	}
	i++
	if len(tokens) == i {
		diag.Die(tokens[i-1].Cursor, "expected '=' after")
	}
	if tokens[i].Text != "=" {
		diag.Die(tokens[i].Cursor, "expected '=' here")
	}
	name := tokens[i-1].Text
	value := strings.Join(diag.Texts(tokens[i+1:]), " ")
	if strings.HasPrefix(value, "@") && !c.Store.ListMode {
		value = c.constant(value, tokens[i+1].Cursor)
	}

	if kind == KindSet {
		c.Store.Set(name, value)
		return
	}
	c.Store.SetIfAbsent(name, value)
	c.helps = append(c.helps, Help{Name: name, Description: tokens[1].Text, Cursor: tokens[0].Cursor})
}

func (c *Context) resolve(name string, cursor diag.Cursor) toolchain.Info {
	info, err := c.Toolchains.Resolve(c.ctx, name)
	if err != nil {
		diag.Die(cursor, "%s", err)
	}
	return info
}

func (c *Context) constant(value string, cursor diag.Cursor) string {
	switch value {
	case "@source_dir":
		return strings.ReplaceAll(c.SourceDir, "\\", "/")
	case "@build_dir":
		return strings.ReplaceAll(c.BuildDir, "\\", "/")
	case "@make_command":
		return c.MakeCommand
	case "@prefix":
		return c.Prefix
	case "@obj_ext", "@asm_ext", "@static_lib_ext", "@shared_lib_ext", "@shared_link_ext", "@exe_ext":
		return extension(c.resolve("cc", cursor).Family, c.HostOS, value)
	case "@ccomp_suite":
		return c.resolve("cc", cursor).Suite()
	case "@ccomp_path":
		return c.resolve("cc", cursor).Path
	case "@cppcomp_suite":
		return c.resolve("c++", cursor).Suite()
	case "@cppcomp_path":
		return c.resolve("c++", cursor).Path
	}
	diag.Die(cursor, "unknown constant %q%s", value, util.DidYouMean(value, constants))
	return ""
}

// extension returns the file extension a compiler family uses on a host for the kind of file named by constant.
func extension(f toolchain.Family, hostOS, constant string) string {
	windows := hostOS == util.Windows
	switch {
	case f == toolchain.MSVC || (f == toolchain.NVCC && windows):
		switch constant {
		case "@asm_ext":
			return ".asm"
		case "@obj_ext":
			return ".obj"
		case "@static_lib_ext", "@shared_link_ext":
			return ".lib"
		case "@shared_lib_ext":
			return ".dll"
		}
		return ".exe"
	case f == toolchain.Emscripten:
		switch constant {
		case "@asm_ext":
			return ".s"
		case "@exe_ext":
			return ".js"
		}
		return ".o"
	}
	switch constant {
	case "@asm_ext":
		return ".s"
	case "@obj_ext":
		return ".o"
	case "@static_lib_ext":
		return ".a"
	case "@shared_lib_ext":
		switch {
		case windows:
			return ".dll"
		case hostOS == "darwin":
			return ".dylib"
		}
		return ".so"
	case "@shared_link_ext":
		if windows {
			return ".a"
		}
		return ".so"
	}
	if windows {
		return ".exe"
	}
	return ""
}

func (c *Context) getenv(tokens []diag.Token) {
	switch {
	case len(tokens) == 1:
		diag.Die(tokens[0].Cursor, "expected variable name after")
	case len(tokens) == 2:
		diag.Die(tokens[1].Cursor, "expected '='")
	case tokens[2].Text != "=":
		diag.Die(tokens[2].Cursor, "expected '='")
	case len(tokens) == 3:
		diag.Die(tokens[2].Cursor, "expected environment variable name")
	case len(tokens) > 4:
		diag.Die(tokens[4].Cursor, "this is unexpected")
	}
	value := c.Getenv(tokens[3].Text)
	if c.HostOS == util.Windows {
		value = strings.ReplaceAll(value, "\\", "/")
	}
	c.Store.Set(tokens[1].Text, value)
}

// assignment checks the `VAR = ...` part of glob, ifnot_glob and popen.
func assignment(tokens []diag.Token, what string) {
	switch {
	case len(tokens) == 1:
		diag.Die(tokens[0].Cursor, "expected variable name after")
	case len(tokens) == 2:
		diag.Die(tokens[1].Cursor, "expected '='")
	case tokens[2].Text != "=":
		diag.Die(tokens[2].Cursor, "expected '='")
	case len(tokens) == 3:
		diag.Die(tokens[2].Cursor, "expected %s after", what)
	}
}

func (c *Context) glob(tokens []diag.Token, kind Kind) {
	assignment(tokens, "globbing expression")
	name := tokens[1].Text
	if kind == KindIfnotGlob && c.Store.Has(name) {
		return
	}
	var words []string
	for _, tok := range tokens[3:] {
		files, err := c.FS.Glob(tok.Text)
		if err != nil {
			diag.Die(tok.Cursor, "%s", err)
		}
		words = append(words, util.MappedSlice(files, shell.Stringify)...)
	}
	c.Store.Set(name, strings.Join(words, " "))
}

func (c *Context) run(command string, cursor diag.Cursor) string {
	res, err := c.Runner.Run(c.ctx, command)
	if err != nil {
		diag.Die(cursor, "%s", err)
	}
	if res.Code != 0 {
		diag.Die(cursor, "process failed with code %d", res.Code)
	}
	return res.Stdout
}

func (c *Context) popen(tokens []diag.Token) {
	assignment(tokens, "command")
	command := strings.Join(diag.Texts(tokens[3:]), " ")
	c.Store.Set(tokens[1].Text, strings.TrimSpace(c.run(command, tokens[3].Cursor)))
}

func (c *Context) echo(tokens []diag.Token) {
	fmt.Fprintln(c.Stdout, strings.Join(append([]string{"--"}, diag.Texts(tokens[1:])...), " "))
}

func (c *Context) setPackageName(tokens []diag.Token) {
	if len(tokens) == 1 {
		diag.Die(tokens[0].Cursor, "expecting package name after")
	}
	if len(tokens) > 2 {
		diag.Die(tokens[2].Cursor, "extra token here")
	}
	c.packageName = tokens[1].Text
}

// install handles `install_file FILES... DIR` and `install_dir DIRS... DIR`.
func (c *Context) install(tokens []diag.Token, kind Kind) {
	switch len(tokens) {
	case 1:
		diag.Die(tokens[0].Cursor, "expected file to install after")
	case 2:
		diag.Die(tokens[1].Cursor, "expected path for installation")
	}
	dest := tokens[len(tokens)-1].Text
	for _, tok := range tokens[1 : len(tokens)-1] {
		p := rules.InstallPath{Dir: dest, Source: tok.Text}
		if kind == KindInstallFile {
			c.Graph.FileInstalls = append(c.Graph.FileInstalls, p)
		} else {
			c.Graph.DirInstalls = append(c.Graph.DirInstalls, p)
		}
	}
}

func (c *Context) disable(tokens []diag.Token, kind Kind) {
	if len(tokens) > 1 {
		diag.Die(tokens[1].Cursor, "unexpected token here")
	}
	switch kind {
	case KindDisableAll:
		c.genAll = false
	case KindDisableClean:
		c.genClean = false
	case KindDisableUpdate:
		c.genUpdate = false
	case KindDisableInstall:
		c.genInstall = false
	case KindDisablePackage:
		c.genPack = false
	}
}

func (c *Context) include(tokens []diag.Token) {
	if len(tokens) == 1 {
		diag.Die(tokens[0].Cursor, "no file given to include")
	}
	for _, tok := range tokens[1:] {
		if !c.FS.Exists(tok.Text) || c.FS.IsDir(tok.Text) {
			diag.Die(tok.Cursor, "file does not seem to exist")
		}
		data, err := c.FS.ReadFile(tok.Text)
		if err != nil {
			diag.Die(tok.Cursor, "%s", err)
		}
		// the included file has its own rules, the one opened here keeps receiving commands afterwards
		open, ad := c.open, c.ad
		c.open = nil
		c.parse(tok.Text, data, tok.Cursor)
		c.open, c.ad = open, ad
	}
}
