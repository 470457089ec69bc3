package parser

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agenium-scale/nsconfig/diag"
	"github.com/agenium-scale/nsconfig/rules"
	"github.com/agenium-scale/nsconfig/sys"
	"github.com/agenium-scale/nsconfig/toolchain"
)

var gnu = map[string]string{
	"cc":  "gcc,gcc,9.3.0,x86_64",
	"c++": "g++,g++,9.3.0,x86_64",
}

func options() Options {
	return Options{
		HostOS:           "linux",
		SourceDir:        "/work",
		BuildDir:         "/work",
		DescriptionFile:  "build.nsconfig",
		OutputFile:       "build.ninja",
		CommandLine:      "nsconfig .",
		MakeCommand:      "ninja",
		Prefix:           "/opt/local",
		SelfRegenerating: true,
		HeaderDeps:       true,
	}
}

// newContext returns a context reading description from an in-memory file system holding files.
func newContext(t *testing.T, opts Options, description string, files map[string]string) *Context {
	t.Helper()
	all := map[string]string{"/work/build.nsconfig": description}
	for name, content := range files {
		all[name] = content
	}
	c := NewContext(opts, sys.NewMemFS(all), &sys.FakeRunner{})
	for name, decl := range gnu {
		d, err := toolchain.ParseDeclaration(decl)
		require.NoError(t, err)
		require.NoError(t, c.Toolchains.Declare(name, d))
	}
	c.Stdout = &bytes.Buffer{}
	c.Getenv = func(string) string { return "" }
	return c
}

func parse(t *testing.T, description string, files map[string]string) (*rules.Graph, error) {
	t.Helper()
	return newContext(t, options(), description, files).Parse(context.Background())
}

func mustParse(t *testing.T, description string, files map[string]string) *rules.Graph {
	t.Helper()
	g, err := parse(t, description, files)
	require.NoError(t, err)
	return g
}

func mustFail(t *testing.T, description string, message string) *diag.Diagnostic {
	t.Helper()
	_, err := parse(t, description, nil)
	var d *diag.Diagnostic
	require.ErrorAs(t, err, &d)
	require.Contains(t, d.Message, message)
	return d
}

func lookup(t *testing.T, g *rules.Graph, target string) *rules.Descriptor {
	t.Helper()
	d, ok := g.Lookup(target)
	require.True(t, ok, "no rule %q", target)
	return d
}

func TestObjectFile(t *testing.T) {
	g := mustParse(t, "set o = @obj_ext\nbuild_file a$o deps a.c\n\tcc -c a.c -o @out\n", nil)

	a := lookup(t, g, "a.o")
	require.False(t, a.Force)
	require.Equal(t, []string{"a.c"}, a.Deps)
	require.Equal(t, []string{"gcc -c a.c -o a.o"}, a.Commands)
	require.Equal(t, 2, a.Cursor.Line)

	f := lookup(t, g, "f_a.o")
	require.True(t, f.Force)
	require.Equal(t, "a.o", f.Output)
	require.Empty(t, f.Deps)
	require.Equal(t, a.Commands, f.Commands)

	all := lookup(t, g, "all")
	require.Equal(t, rules.Phony, all.Kind)
	require.Equal(t, []string{"a.o"}, all.Deps)
	require.Equal(t, []string{"rm -f a.o"}, lookup(t, g, "clean").Commands)
	require.Equal(t, []string{"nsconfig ."}, lookup(t, g, "update").Commands)
	_, ok := g.Lookup("f_all")
	require.False(t, ok)
}

func TestForceRulesFollowDependencies(t *testing.T) {
	g := mustParse(t, "build_file a.o deps a.c\n\tcc -c a.c -o @out\n"+
		"build_file a.so deps a.o\n\tcc -shared @in -o @out\n", nil)

	so := lookup(t, g, "a.so")
	require.Equal(t, []string{"gcc -shared a.o -o a.so"}, so.Commands)
	require.Equal(t, []string{"f_a.o"}, lookup(t, g, "f_a.so").Deps)
}

func TestAutodeps(t *testing.T) {
	g := mustParse(t, "build_file a.o autodeps a.c\n\tcc -c a.c -o @out\n", nil)

	a := lookup(t, g, "a.o")
	require.True(t, a.Autodeps)
	require.Equal(t, toolchain.GCC, a.AutodepsBy)
	require.Equal(t, "a.o.d", a.AutodepsFile)
	require.Equal(t, []string{"gcc -c a.c -o a.o -MMD -MF a.o.d"}, a.Commands)

	f := lookup(t, g, "f_a.o")
	require.False(t, f.Autodeps)
	require.Equal(t, []string{"gcc -c a.c -o a.o"}, f.Commands)
}

func TestAutodepsWithoutHeaderDeps(t *testing.T) {
	opts := options()
	opts.HeaderDeps = false
	g, err := newContext(t, opts, "build_file a.o autodeps a.c\n\tcc -c a.c -o @out\n", nil).
		Parse(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"gcc -c a.c -o a.o"}, lookup(t, g, "a.o").Commands)
}

func TestRegeneration(t *testing.T) {
	opts := options()
	opts.OutputFile = "Makefile"
	opts.MakeCommand = "make"
	opts.Regenerate = true
	opts.SelfRegenerating = false
	g, err := newContext(t, opts, "build_file a.o deps a.c\n\tcc -c a.c -o @out\n", nil).Parse(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"a.c", "Makefile"}, lookup(t, g, "a.o").Deps)
	require.Equal(t, []string{"Makefile"}, lookup(t, g, "f_a.o").Deps)

	self := lookup(t, g, "Makefile")
	require.Equal(t, rules.SelfRegenerate, self.Kind)
	require.Equal(t, []string{"build.nsconfig"}, self.Deps)
	require.Equal(t, "nsconfig .", self.Commands[0])
	require.Contains(t, self.Commands, "@echo x x x x x x . . . RERUN make")
	require.Equal(t, "@exit 99", self.Commands[len(self.Commands)-1])
	_, ok := g.Lookup("f_Makefile")
	require.False(t, ok)
}

func TestDuplicateTarget(t *testing.T) {
	d := mustFail(t, "phony a\nset x = y\nphony $x\nphony a\n", "rule name 'a' already defined at line 1")
	require.Equal(t, 4, d.Cursor.Line)
}

func TestUnusedVariable(t *testing.T) {
	_, err := parse(t, "set used = a.c\nset unused = b.c\nphony p deps $used\n", nil)
	var unused *UnusedVariablesError
	require.ErrorAs(t, err, &unused)
	require.Equal(t, []string{"unused"}, unused.Variables)
}

func TestNothingToDo(t *testing.T) {
	c := newContext(t, options(), "set X = 1\necho value is $X\n", nil)
	_, err := c.Parse(context.Background())
	require.ErrorIs(t, err, ErrNothingToDo)
	require.Equal(t, "-- value is 1\n", c.Stdout.(*bytes.Buffer).String())
}

func TestStatementErrors(t *testing.T) {
	for _, tt := range [][2]string{
		{"buildfile a.o", `unknown statement "buildfile", did you mean "build_file"?`},
		{"\techo hi", "command given outside of any rule"},
		{"set X 1", "expected '=' here"},
		{"set", "expected variable name after"},
		{"ifnot_set", "expected variable description after"},
		{"set X = @nope", `unknown constant "@nope"`},
		{"build_file", "no name given to the file to build"},
		{"build_file a.o needs b", "expected 'deps' keyword here"},
		{"build_files obj foreach a.c", "expected 'as' keyword after"},
		{"build_files obj foreach as %b.o", "keyword 'as' unexpected, expected some files/globs here"},
		{"build_files obj foreach glob:*.nothing as %b.o", "cannot find any file for the given globbing(s)"},
		{"begin_translate_if a = a", "comparison operator must be '==' or '!='"},
		{"end_translate", "unexpected 'end_translate', no corresponding 'begin_translate_if'"},
		{"begin_translate_if a == a\nphony p", "unfinished 'begin_translate_if'"},
		{"include", "no file given to include"},
		{"include missing.nsconfig", "file does not seem to exist"},
		{"[X] phony a", "expected 'L', 'W' or '*'"},
		{"[L:Q] phony a", "expected 'P', 'T' or 'R'"},
		{"[L]", "expected statement or command after"},
		{"find_exe X = nope", "cannot find program 'nope'"},
		{"package_name a b", "extra token here"},
		{"disable_clean now", "unexpected token here"},
	} {
		t.Run(tt[0], func(t *testing.T) {
			mustFail(t, tt[0], tt[1])
		})
	}
}

func TestNestedTranslateBlock(t *testing.T) {
	d := mustFail(t, "phony p\nbegin_translate_if a == b\nbegin_translate_if c == c\nend_translate\n",
		"'begin_translate_if' cannot be nested, the current block starts at line 2")
	require.Equal(t, 3, d.Cursor.Line)
}

func TestTranslateBlock(t *testing.T) {
	g := mustParse(t, "set os = linux\n"+
		"begin_translate_if $os == windows\n"+
		"phony w\n"+
		"set ignored = $undefined\n"+
		"end_translate\n"+
		"begin_translate_if $os != windows\n"+
		"phony l\n"+
		"end_translate\n", nil)
	_, ok := g.Lookup("w")
	require.False(t, ok)
	lookup(t, g, "l")
}

func TestHostModifiers(t *testing.T) {
	g := mustParse(t, "[W] phony w\n[L] phony l\n[*] phony s\n"+
		"phony cmds\n\t[W] echo windows\n\t[L:R] cc -frobnicate\n\t[*:P] cc -frobnicate x.c\n", nil)
	_, ok := g.Lookup("w")
	require.False(t, ok)
	lookup(t, g, "l")
	lookup(t, g, "s")
	require.Equal(t, []string{"cc -frobnicate", "gcc -frobnicate x.c"}, lookup(t, g, "cmds").Commands)
}

func TestContinuationLines(t *testing.T) {
	g := mustParse(t, "phony all deps a \\\n  b \\\n  c\n", nil)
	require.Equal(t, []string{"a", "b", "c"}, lookup(t, g, "all").Deps)
}

func TestInclude(t *testing.T) {
	g := mustParse(t, "phony outer\ninclude rules.nsconfig\n\tcc -c b.c\n", map[string]string{
		"/work/rules.nsconfig": "phony included\n",
	})
	require.Equal(t, []string{"gcc -c b.c"}, lookup(t, g, "outer").Commands)
	require.Empty(t, lookup(t, g, "included").Commands)
}

func TestIncludeCycle(t *testing.T) {
	_, err := parse(t, "include a.nsconfig\n", map[string]string{
		"/work/a.nsconfig": "include b.nsconfig\n",
		"/work/b.nsconfig": "include a.nsconfig\n",
	})
	var d *diag.Diagnostic
	require.ErrorAs(t, err, &d)
	require.Equal(t, `circular inclusion of "a.nsconfig"`, d.Message)
	require.Equal(t, "b.nsconfig", d.Cursor.File)
}

func TestBuildFiles(t *testing.T) {
	g := mustParse(t, "set o = @obj_ext\n"+
		"build_files obj foreach glob:src/**/*.c as %r$o deps @item\n"+
		"\tcc -c @item -o @out\n"+
		"phony objs deps $obj.files\n", map[string]string{
		"/work/src/a.c":     "",
		"/work/src/sub/b.c": "",
		"/work/src/b.h":     "",
	})

	a := lookup(t, g, "a.o")
	require.Equal(t, []string{"src/a.c"}, a.Deps)
	require.Equal(t, []string{"gcc -c src/a.c -o a.o"}, a.Commands)
	b := lookup(t, g, "sub.b.o")
	require.Equal(t, []string{"src/sub/b.c"}, b.Deps)
	require.Equal(t, []string{"gcc -c src/sub/b.c -o sub.b.o"}, b.Commands)
	lookup(t, g, "f_sub.b.o")

	require.Equal(t, []string{"a.o", "sub.b.o"}, lookup(t, g, "objs").Deps)
	require.Equal(t, []string{"rm -f a.o", "rm -f sub.b.o"}, lookup(t, g, "clean").Commands)
}

func TestBuildFilesFormats(t *testing.T) {
	require.Equal(t, "a.c.o", formatName("%b.o", "a.c"))
	require.Equal(t, "a-c.o", formatName("%r-%e.o", "a.c"))
	require.Equal(t, "sub.b.obj", formatName("%r.obj", "sub.b.c"))
}

func TestBuildFilesFromCommand(t *testing.T) {
	c := newContext(t, options(), "build_files obj foreach popen:list-sources as %r.o\n\tcc -c @item -o @out\n", nil)
	c.Runner = &sys.FakeRunner{Results: map[string]sys.Result{
		"list-sources": {Stdout: "# sources\nsrc;x/a.c\nlib/b.c\n"},
	}}
	g, err := c.Parse(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"gcc -c src/x/a.c -o x.a.o"}, lookup(t, g, "x.a.o").Commands)
	require.Equal(t, []string{"gcc -c lib/b.c -o b.o"}, lookup(t, g, "b.o").Commands)
}

func TestPopenGlobGetenv(t *testing.T) {
	c := newContext(t, options(), "popen V = git describe\n"+
		"glob SRC = *.c\n"+
		"ifnot_glob SRC = *.h\n"+
		"getenv H = HOME\n"+
		"phony p deps $V $SRC $H\n", map[string]string{
		"/work/a.c": "",
		"/work/b.c": "",
		"/work/a.h": "",
	})
	c.Runner = &sys.FakeRunner{Results: map[string]sys.Result{"git describe": {Stdout: "v1.0\n"}}}
	c.Getenv = func(name string) string { return "/home/" + strings.ToLower(name) }
	g, err := c.Parse(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"v1.0", "a.c", "b.c", "/home/home"}, lookup(t, g, "p").Deps)

	_, err = parse(t, "popen V = false\n", nil)
	var d *diag.Diagnostic
	require.ErrorAs(t, err, &d)
	require.Equal(t, "process failed with code 127", d.Message)
}

func TestFind(t *testing.T) {
	files := map[string]string{
		"/usr/bin/python3":           "",
		"/opt/inc/foo.h":             "",
		"/opt/z/include/zlib.h":      "",
		"/opt/z/lib/libz.so":         "",
		"/opt/z/lib/libz.a":          "",
		"/opt/static/include/zlib.h": "",
		"/opt/static/lib64/libz.a":   "",
	}
	c := newContext(t, options(), "find_exe PY = python3\n"+
		"find_exe optional NOPE = nope\n"+
		"find_header H = foo.h /opt/none /opt/inc\n"+
		"find_lib Z = zlib.h libz.so /opt/z\n"+
		"find_lib static S = zlib.h libz.a /opt/static\n"+
		"phony p\n"+
		"\techo $PY $PY.dir [${NOPE}]\n"+
		"\techo $H.flags\n"+
		"\techo $Z.cflags $Z.ldflags $Z.deps\n"+
		"\techo $S.ldflags\n", files)
	c.Getenv = func(name string) string {
		if name == "PATH" {
			return "/bin:/usr/bin"
		}
		return ""
	}
	g, err := c.Parse(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{
		"echo /usr/bin/python3 /usr/bin []",
		"echo -DHAS_FOO_H -I/opt/inc",
		"echo -DHAS_Z -I/opt/z/include -L/opt/z/lib -lz /opt/z/lib/libz.so",
		"echo -L/opt/static/lib64 -lz",
	}, lookup(t, g, "p").Commands)
}

func TestFindImportedLib(t *testing.T) {
	c := newContext(t, options(), "find_lib import Z = zlib.h libz.so /opt/z\nphony p deps $Z.deps\n",
		map[string]string{
			"/opt/z/include/zlib.h": "",
			"/opt/z/lib/libz.so":    "binary",
		})
	g, err := c.Parse(context.Background())
	require.NoError(t, err)

	cp := lookup(t, g, "libz.so")
	require.Equal(t, []string{"/opt/z/lib/libz.so"}, cp.Deps)
	require.Equal(t, []string{"cp -f /opt/z/lib/libz.so libz.so"}, cp.Commands)
	require.Equal(t, []string{"libz.so"}, lookup(t, g, "p").Deps)

	data, err := c.FS.ReadFile("/work/libz.so")
	require.NoError(t, err)
	require.Equal(t, "binary", string(data))
}

func TestInstallAndDisable(t *testing.T) {
	g := mustParse(t, "build_file a.out deps a.c\n\tcc a.c -o @out\n"+
		"install_file a.out bin\n"+
		"install_dir doc share\n"+
		"disable_clean\n"+
		"disable_package\n", nil)

	install := lookup(t, g, "install")
	require.Equal(t, []string{
		"mkdir -p /opt/local/bin",
		"cp -f a.out /opt/local/bin",
		"mkdir -p /opt/local/share",
		"cp -rf doc /opt/local/share",
	}, install.Commands)
	require.Equal(t, []string{"a.out"}, install.Deps)

	for _, name := range []string{"clean", "package"} {
		_, ok := g.Lookup(name)
		require.False(t, ok, name)
	}
}

func TestPackage(t *testing.T) {
	g := mustParse(t, "phony p\npackage_name mylib\n", nil)
	pkg := lookup(t, g, "package")
	require.Equal(t, "rm -rf mylib", pkg.Commands[0])
	require.Equal(t, "rm -f mylib.tar.bz2", pkg.Commands[1])
	require.Equal(t, "tar -cvjSf mylib.tar.bz2 mylib", pkg.Commands[len(pkg.Commands)-1])
}

func TestUserDefinedDefaultTargets(t *testing.T) {
	g := mustParse(t, "phony all deps x\nphony clean\n\trm -r build\n", nil)
	require.Equal(t, []string{"x"}, lookup(t, g, "all").Deps)
	require.Equal(t, []string{"rm -rf build"}, lookup(t, g, "clean").Commands)
}

func TestListVariables(t *testing.T) {
	c := newContext(t, options(), "ifnot_set \"the C compiler\" CC = gcc\n"+
		"set FLAGS = $CC -O2 $UNKNOWN\n"+
		"set OBJ = @obj_ext\n"+
		"ifnot_set \"where to install\" PREFIX = /usr\n"+
		"build_file a.o\n"+
		"\t$CC -c $UNKNOWN\n", nil)
	helps, err := c.ListVariables(context.Background())
	require.NoError(t, err)
	require.Len(t, helps, 2)
	require.Equal(t, "CC", helps[0].Name)
	require.Equal(t, "the C compiler", helps[0].Description)
	require.Equal(t, "PREFIX", helps[1].Name)
	require.Equal(t, "where to install", helps[1].Description)
	require.Equal(t, 0, c.Graph.Len())
}
