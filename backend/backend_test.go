package backend

import (
	"context"
	"fmt"
	"hash/crc32"
	"io/fs"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/agenium-scale/nsconfig/rules"
	"github.com/agenium-scale/nsconfig/shell"
	"github.com/agenium-scale/nsconfig/sys"
	"github.com/agenium-scale/nsconfig/toolchain"
	"github.com/agenium-scale/nsconfig/util"
)

func translator(hostOS string) *shell.Translator {
	return shell.NewTranslator(hostOS, toolchain.NewRegistry(hostOS, ".", sys.NewMemFS(nil), &sys.FakeRunner{}))
}

func graph(t *testing.T, ds ...*rules.Descriptor) *rules.Graph {
	t.Helper()
	g := rules.NewGraph()
	for _, d := range ds {
		if d.Target == "" {
			d.Target = d.Output
		}
		require.NoError(t, g.Insert(d))
	}
	return g
}

// objectGraph is what `build_file a.o deps a.c` compiled by gcc gives, with self regeneration.
func objectGraph(t *testing.T) *rules.Graph {
	cmds := []string{"gcc -c a.c -o a.o"}
	return graph(t,
		&rules.Descriptor{Kind: rules.Phony, Output: "clean", Commands: []string{"rm -f a.o"}},
		&rules.Descriptor{Kind: rules.SingleFile, Output: "a.o", Deps: []string{"a.c", "build.ninja"}, Commands: cmds},
		&rules.Descriptor{Kind: rules.SingleFile, Target: "f_a.o", Output: "a.o", Deps: []string{"build.ninja"},
			Commands: cmds, Force: true},
		&rules.Descriptor{Kind: rules.Phony, Output: "all", Deps: []string{"a.o"}},
		&rules.Descriptor{Kind: rules.SelfRegenerate, Output: "build.ninja", Deps: []string{"build.nsconfig"},
			Commands: []string{"nsconfig ."}},
	)
}

const header = "#\n# File generated by nsconfig\n# Command line: nsconfig .\n#\n\n"

func render(t *testing.T, b Backend, g *rules.Graph) string {
	t.Helper()
	data, err := b.Render(g)
	require.NoError(t, err)
	return string(data)
}

func expect(t *testing.T, want, got string) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Output mismatch (-want +got):\n%s", diff)
	}
}

func ninja(hostOS string) *Ninja {
	return &Ninja{
		Header:     Header{CommandLine: "nsconfig ."},
		Translator: translator(hostOS),
		FS:         sys.NewMemFS(nil),
		BuildDir:   "/work",
	}
}

func TestNinjaObject(t *testing.T) {
	n := ninja("linux")
	got := render(t, n, objectGraph(t))
	expect(t, header+
		"# ---\n\nbuild all: phony a.o\n\n"+
		"default all\n\n"+
		"# ---\n\nrule a.o_rule\n  command = gcc -c a.c -o a.o\n\nbuild a.o: a.o_rule a.c build.ninja\n\n"+
		"# ---\n\nrule build.ninja_rule\n  command = nsconfig .\n  generator = 1\n\n"+
		"build build.ninja: build.ninja_rule build.nsconfig\n\n"+
		"# ---\n\nrule f_a.o_rule\n  command = gcc -c a.c -o a.o\n\nbuild f_a.o: f_a.o_rule build.ninja\n\n"+
		"# ---\n\nrule clean_rule\n  command = rm -f a.o\n\nbuild clean: clean_rule\n\n", got)

	// regenerating gives the same bytes
	require.Equal(t, got, render(t, n, objectGraph(t)))
}

func TestNinjaRevisionAndMSVCPrefix(t *testing.T) {
	n := ninja("windows")
	n.Header.Revision = "0123abcd"
	n.MSVCDepsPrefix = "Note: including file:"
	g := graph(t, &rules.Descriptor{
		Kind:       rules.SingleFile,
		Output:     "obj/a.obj",
		Deps:       []string{"a.cpp"},
		Commands:   []string{"cl /c a.cpp /showIncludes", "echo done"},
		Autodeps:   true,
		AutodepsBy: toolchain.MSVC,
	})
	expect(t, "#\n# File generated by nsconfig\n# Command line: nsconfig .\n# Source revision: 0123abcd\n#\n\n"+
		"msvc_deps_prefix = Note: including file:\n\n"+
		"# ---\n\nrule obj.a.obj_rule\n"+
		"  command = cmd /c ( if not exist obj md obj ) && ( cl /c a.cpp /showIncludes ) && ( echo done )\n"+
		"  deps = msvc\n\n"+
		"build obj/a.obj: obj.a.obj_rule a.cpp\n\n", render(t, n, g))
}

func TestNinjaAutodepsAndEscaping(t *testing.T) {
	g := graph(t,
		&rules.Descriptor{
			Kind:         rules.SingleFile,
			Output:       "obj/a.o",
			Deps:         []string{"my src/a.c", "C:/inc"},
			Commands:     []string{"gcc -c \"my src/a.c\" -o obj/a.o -MMD -MF obj/a.o.d", "echo $HOME"},
			Autodeps:     true,
			AutodepsBy:   toolchain.GCC,
			AutodepsFile: "obj/a.o.d",
		},
		&rules.Descriptor{Kind: rules.SingleFile, Output: "touched", Commands: []string{"touch touched"},
			Autodeps: true, AutodepsBy: toolchain.None},
	)
	expect(t, header+
		"# ---\n\nrule obj.a.o_rule\n"+
		"  command = mkdir -p obj && gcc -c \"my src/a.c\" -o obj/a.o -MMD -MF obj/a.o.d && echo $$HOME\n"+
		"  deps = gcc\n  depfile = obj/a.o.d\n\n"+
		"build obj/a.o: obj.a.o_rule my$ src/a.c C$:/inc\n\n"+
		"# ---\n\nrule touched_rule\n  command = touch touched\n\nbuild touched: touched_rule\n\n",
		render(t, ninja("linux"), g))
}

func TestNinjaLongCommandsGoToScript(t *testing.T) {
	n := ninja("linux")
	n.MaxCommandLen = 20
	g := graph(t, &rules.Descriptor{
		Kind:     rules.SingleFile,
		Output:   "lib/long",
		Commands: []string{"echo $HOME > lib/long", "echo again >> lib/long"},
	})
	expect(t, header+
		"# ---\n\nrule lib.long_rule\n  command = sh _ninja_build_scripts/lib.long_rule.sh\n\n"+
		"build lib/long: lib.long_rule\n\n", render(t, n, g))

	memfs := n.FS.(*sys.MemFS)
	script, err := memfs.ReadFile("/work/_ninja_build_scripts/lib.long_rule.sh")
	require.NoError(t, err)
	require.Equal(t, "#!/bin/bash\n\nset -e\nset -x\n\n"+
		"mkdir -p lib\n\necho $HOME > lib/long\n\necho again >> lib/long\n\n", string(script))
	require.Equal(t, fs.FileMode(util.ScriptFileMode), memfs.Modes["/work/_ninja_build_scripts/lib.long_rule.sh"])
}

func TestNinjaLongCommandsOnWindows(t *testing.T) {
	n := ninja("windows")
	n.MaxCommandLen = 10
	g := graph(t, &rules.Descriptor{Kind: rules.Phony, Output: "docs", Commands: []string{"doxygen"}})
	expect(t, header+
		"# ---\n\nrule docs_rule\n  command = cmd /C _ninja_build_scripts\\docs_rule.bat\n\n"+
		"build docs: docs_rule\n\n", render(t, n, g))

	script, err := n.FS.ReadFile("/work/_ninja_build_scripts/docs_rule.bat")
	require.NoError(t, err)
	require.Equal(t, "@echo on\n\ndoxygen\nif %errorlevel% neq 0 exit /B %errorlevel%\n\n", string(script))
}

func TestNinjaRuleNamesDoNotCollide(t *testing.T) {
	g := graph(t,
		&rules.Descriptor{Output: "a/b.o", Commands: []string{"gcc -c b.c -o a/b.o"}},
		&rules.Descriptor{Output: "a.b.o", Commands: []string{"gcc -c b.c -o a.b.o"}},
	)
	n := ninja("linux")
	got := render(t, n, g)
	second := fmt.Sprintf("a.b.o_%08x_rule", crc32.ChecksumIEEE([]byte("a/b.o")))
	require.Contains(t, got, "rule a.b.o_rule\n")
	require.Contains(t, got, "build a.b.o: a.b.o_rule\n")
	require.Contains(t, got, "rule "+second+"\n")
	require.Contains(t, got, "build a/b.o: "+second+"\n")
	require.Equal(t, got, render(t, n, g))
}

func TestCommandLimits(t *testing.T) {
	require.Equal(t, 8190, ninja("windows").maxCommandLen())
	require.Equal(t, 262143, ninja("darwin").maxCommandLen())
	require.Equal(t, 32*sys.PageSize()-1, ninja("linux").maxCommandLen())

	n := ninja("linux")
	require.Equal(t, 20, n.commandsLen([]string{"abcd", "efghijkl"}))
	require.Equal(t, 27, ninja("windows").commandsLen([]string{"ab", ""}))

	// commands as long as the limit do not fit
	n.MaxCommandLen = 20
	g := graph(t, &rules.Descriptor{Kind: rules.Phony, Output: "p", Commands: []string{"abcd", "efghijkl"}})
	require.Contains(t, render(t, n, g), "command = sh _ninja_build_scripts/p_rule.sh")
	n.MaxCommandLen = 21
	require.Contains(t, render(t, n, g), "command = abcd && efghijkl")
}

func TestMSVCDepsPrefix(t *testing.T) {
	runner := &sys.FakeRunner{Results: map[string]sys.Result{
		"cd _compiler_infos & cl /nologo /showIncludes msvc_deps_prefix.cpp": {
			Stdout: "Note: including file: C:\\b\\_compiler_infos\\4294967291.hpp\n",
		},
	}}
	reg := toolchain.NewRegistry("windows", ".", sys.NewMemFS(nil), runner)
	prefix, err := MSVCDepsPrefix(context.Background(), reg)
	require.NoError(t, err)
	require.Equal(t, "", prefix)

	d, err := toolchain.ParseDeclaration("msvc,cl,19.28,x86_64")
	require.NoError(t, err)
	require.NoError(t, reg.Declare("cl", d))
	prefix, err = MSVCDepsPrefix(context.Background(), reg)
	require.NoError(t, err)
	require.Equal(t, "Note: including file:", prefix)
}

func TestMake(t *testing.T) {
	g := graph(t,
		&rules.Descriptor{Kind: rules.Phony, Output: "all", Deps: []string{"obj/a.o"}},
		&rules.Descriptor{Kind: rules.SingleFile, Output: "obj/a.o", Deps: []string{"my a.c"},
			Commands: []string{"gcc -c \"my a.c\" -o obj/a.o", "echo $HOME"}},
		&rules.Descriptor{Kind: rules.SingleFile, Target: "f_obj.a.o", Output: "obj/a.o",
			Commands: []string{"gcc -c \"my a.c\" -o obj/a.o"}, Force: true},
		&rules.Descriptor{Kind: rules.Phony, Output: "clean", Commands: []string{"rm -f obj/a.o"}},
		&rules.Descriptor{Kind: rules.Phony, Output: "install"},
	)
	m := &Make{Header: Header{CommandLine: "nsconfig ."}, Dialect: POSIX, Translator: translator("linux")}
	body := "all: obj/a.o\n\n" +
		"f_obj.a.o:\n\tmkdir -p obj\n\tgcc -c \"my a.c\" -o obj/a.o\n\n" +
		"obj/a.o: my\\ a.c\n\tmkdir -p obj\n\tgcc -c \"my a.c\" -o obj/a.o\n\techo $$HOME\n\n" +
		"install:\n\n" +
		"clean:\n\trm -f obj/a.o\n\n"
	expect(t, header+".POSIX:\n\n"+body, render(t, m, g))

	m.Dialect = GNU
	expect(t, header+".PHONY: all clean f_obj.a.o install\n\n"+body, render(t, m, g))
	require.False(t, m.SelfRegenerating())
	require.False(t, m.HeaderDeps())
	require.Equal(t, "make", m.Command())
}

func TestNMake(t *testing.T) {
	g := graph(t,
		&rules.Descriptor{Kind: rules.Phony, Output: "all", Deps: []string{"obj/a.obj"}},
		&rules.Descriptor{Kind: rules.SingleFile, Output: "obj/a.obj", Deps: []string{"my a.c"},
			Commands: []string{"cl /c \"my a.c\" /Foobj\\a.obj"}},
	)
	m := &Make{Header: Header{CommandLine: "nsconfig ."}, Dialect: NMake, Translator: translator("windows")}
	expect(t, header+
		"all: obj/a.obj\n\n"+
		"obj/a.obj: \"my a.c\"\n\tif not exist obj md obj\n\tcl /c \"my a.c\" /Foobj\\a.obj\n\n", render(t, m, g))
	require.Equal(t, "nmake", m.Command())
}

func TestWrite(t *testing.T) {
	memfs := sys.NewMemFS(nil)
	n := ninja("linux")
	require.NoError(t, Write(memfs, "/work/build.ninja", n, objectGraph(t)))
	data, err := memfs.ReadFile("build.ninja")
	require.NoError(t, err)
	require.Equal(t, render(t, n, objectGraph(t)), string(data))
}
