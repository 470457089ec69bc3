package parser

import (
	"path"
	"strings"

	"github.com/agenium-scale/nsconfig/diag"
	"github.com/agenium-scale/nsconfig/log"
	"github.com/agenium-scale/nsconfig/rules"
	"github.com/agenium-scale/nsconfig/shell"
	"github.com/agenium-scale/nsconfig/util"
)

// defineName turns a file name into the identifier used in -DHAS_... flags.
func defineName(s string) string {
	b := []byte(strings.ToUpper(s))
	for i, c := range b {
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') && c != '_' {
			b[i] = '_'
		}
	}
	return string(b)
}

// lookFor returns the first directory of dirs holding a file among names, trying every name in a directory
// before moving on to the next one.
func (c *Context) lookFor(dirs, names []string) (dir, name string, found bool) {
	for _, d := range dirs {
		for _, n := range names {
			if p := path.Join(d, n); c.FS.Exists(p) && !c.FS.IsDir(p) {
				return d, n, true
			}
		}
	}
	return "", "", false
}

func (c *Context) pathDirs() []string {
	sep := ":"
	if c.HostOS == util.Windows {
		sep = ";"
	}
	var dirs []string
	for _, d := range strings.Split(c.Getenv("PATH"), sep) {
		if d != "" {
			dirs = append(dirs, strings.ReplaceAll(d, "\\", "/"))
		}
	}
	return dirs
}

// findArgs checks `[optional] VAR = FILE PATHS...` and returns its parts.
func findArgs(tokens []diag.Token, what string) (optional bool, variable, file diag.Token, paths []string) {
	if len(tokens) == 1 {
		diag.Die(tokens[0].Cursor, "expected variable name or 'optional' keyword after")
	}
	optional = tokens[1].Text == "optional"
	i := 1
	if optional {
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
	i++
	if len(tokens) == i {
		diag.Die(tokens[i-1].Cursor, "expected %s after", what)
	}
	return optional, tokens[i-2], tokens[i], diag.Texts(tokens[i+1:])
}

func (c *Context) findExe(tokens []diag.Token) {
	optional, variable, file, paths := findArgs(tokens, "executable name")
	name := file.Text
	if c.HostOS == util.Windows {
		name += ".exe"
	}
	dir, _, found := c.lookFor(append(paths, c.pathDirs()...), []string{name})
	if !found {
		log.Log("Program '%s' not found\n", file.Text)
		if !optional {
			diag.Die(file.Cursor, "cannot find program '%s'", file.Text)
		}
		c.Store.Define(variable.Text+".dir", "")
		c.Store.Define(variable.Text, "")
		return
	}
	log.Log("Program '%s' found\n", file.Text)
	log.Debug("Program '%s' found in '%s'\n", file.Text, dir)
	c.Store.Define(variable.Text+".dir", dir)
	c.Store.Define(variable.Text, path.Join(dir, name))
}

func (c *Context) findHeader(tokens []diag.Token) {
	optional, variable, file, paths := findArgs(tokens, "header path")
	v := variable.Text
	dir, _, found := c.lookFor(paths, []string{file.Text})
	if !found {
		log.Log("Header '%s' not found\n", file.Text)
		if !optional {
			diag.Die(file.Cursor, "cannot find header '%s'", file.Text)
		}
		for _, suffix := range []string{".dir", ".flags", ".cflags"} {
			c.Store.Define(v+suffix, "")
		}
		return
	}
	log.Log("Header '%s' found\n", file.Text)
	log.Debug("Header '%s' found in '%s'\n", file.Text, dir)
	flags := "-DHAS_" + defineName(file.Text) + " -I" + dir
	c.Store.Define(v+".dir", dir)
	c.Store.Define(v+".flags", flags)
	c.Store.Define(v+".cflags", flags)
}

type libKind int

const (
	anyLib libKind = iota
	dynamicLib
	staticLib
)

// findLib handles `find_lib [optional|dynamic|static|import]... VAR = HEADER BINARY PATHS...`.
func (c *Context) findLib(tokens []diag.Token) {
	if len(tokens) == 1 {
		diag.Die(tokens[0].Cursor, "expected variable name, 'optional', 'dynamic' or 'static' after")
	}
	optional, imported, kind := false, false, anyLib
	i := 1
modifiers:
	for ; i < 3 && i < len(tokens); i++ {
		switch tokens[i].Text {
		case "optional":
			optional = true
		case "dynamic":
			kind = dynamicLib
		case "static":
			kind = staticLib
		case "import":
			imported = true
		default:
			break modifiers
		}
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
	i++
	if len(tokens) == i {
		diag.Die(tokens[i-1].Cursor, "expected header path after")
	}
	i++
	if len(tokens) == i {
		diag.Die(tokens[i-1].Cursor, "expected binary file after")
	}
	v, header, binary := tokens[i-3].Text, tokens[i-1].Text, tokens[i]
	paths := diag.Texts(tokens[i+1:])

	hdirs := append([]string(nil), paths...)
	ldirs := append([]string(nil), paths...)
	for _, p := range paths {
		hdirs = append(hdirs, p+"/include")
		ldirs = append(ldirs, p+"/lib", p+"/lib64")
	}
	lib := shell.LibBasename(util.Basename(binary.Text))
	var binaries []string
	switch {
	case c.HostOS == util.Windows:
		binaries = []string{lib + ".lib", "lib" + lib + ".lib", lib + ".a", "lib" + lib + ".a"}
	case kind == dynamicLib:
		binaries = []string{"lib" + lib + ".so"}
	case kind == staticLib:
		binaries = []string{"lib" + lib + ".a"}
	default:
		binaries = []string{"lib" + lib + ".so", "lib" + lib + ".a"}
	}

	hdir, _, hfound := c.lookFor(hdirs, []string{header})
	ldir, lname, lfound := c.lookFor(ldirs, binaries)
	if !hfound || !lfound {
		log.Log("Library '%s' not found\n", lib)
		if !optional {
			diag.Die(binary.Cursor, "cannot find library '%s'", lib)
		}
		for _, suffix := range []string{".header_dir", ".lib_dir", ".flags", ".cflags", ".ldflags", ".deps"} {
			c.Store.Define(v+suffix, "")
		}
		return
	}
	log.Log("Library '%s' found\n", lib)
	log.Debug("Library '%s' found, header in '%s' and binary in '%s'\n", lib, hdir, ldir)

	file := path.Join(ldir, lname)
	link := " -l:" + lname
	if strings.HasPrefix(strings.ToLower(lname), "lib") {
		link = " -l" + lib
	}
	cflags := "-DHAS_" + defineName(lib) + " -I" + hdir
	var ldflags string
	c.Store.Define(v+".header_dir", hdir)
	if imported {
		ldflags = "-L$ORIGIN" + link
		c.importLib(tokens[0].Cursor, file, lname)
		c.Store.Define(v+".lib_dir", ".")
		c.Store.Define(v+".deps", lname)
	} else {
		ldflags = "-L" + ldir + link
		c.Store.Define(v+".lib_dir", ldir)
		c.Store.Define(v+".deps", file)
	}
	c.Store.Define(v+".flags", cflags+" "+ldflags)
	c.Store.Define(v+".cflags", cflags)
	c.Store.Define(v+".ldflags", ldflags)
}

// importLib copies a library into the build directory and adds the rule keeping the copy up to date.
// The import library of a DLL comes along.
func (c *Context) importLib(cursor diag.Cursor, file, name string) {
	log.Log("Importing library: %s\n", file)
	copies := [][2]string{{file, name}}
	if root, ext := util.SplitExt(file); strings.EqualFold(ext, ".dll") {
		nroot, _ := util.SplitExt(name)
		copies = append(copies, [2]string{path.Join(path.Dir(file), root+".lib"), nroot + ".lib"})
	}

	d := &rules.Descriptor{Kind: rules.SingleFile, Target: name, Output: name, Deps: []string{file}, Cursor: cursor}
	for _, cp := range copies {
		if err := c.FS.Copy(cp[0], path.Join(c.BuildDir, cp[1])); err != nil {
			diag.Die(cursor, "%s", err)
		}
		d.Commands = append(d.Commands, c.Translator.Cp(false, cp[0], cp[1]))
	}
	c.addTarget(d, false)
}
