package rules

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agenium-scale/nsconfig/diag"
)

func rule(target, output string, force bool, line int, deps ...string) *Descriptor {
	return &Descriptor{
		Kind:     SingleFile,
		Target:   target,
		Output:   output,
		Deps:     deps,
		Commands: []string{"touch " + output},
		Force:    force,
		Cursor:   diag.Cursor{File: "build.nsconfig", Line: line},
	}
}

func TestInsertRejectsDuplicates(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Insert(rule("a.o", "a.o", false, 3)))

	err := g.Insert(rule("a.o", "a.o", false, 7))
	require.Error(t, err)
	d, ok := err.(*diag.Diagnostic)
	require.True(t, ok)
	require.Equal(t, "rule name 'a.o' already defined at line 3", d.Message)
	require.Equal(t, 7, d.Cursor.Line)
	require.Equal(t, 1, g.Len())
}

func TestRulesAreSorted(t *testing.T) {
	g := NewGraph()
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, g.Insert(rule(name, name, false, 1)))
	}
	var targets []string
	for _, d := range g.Rules() {
		targets = append(targets, d.Target)
	}
	require.Equal(t, []string{"a", "b", "c"}, targets)
}

func TestForceTarget(t *testing.T) {
	require.Equal(t, "f_build.obj.a.o", ForceTarget("build/obj/a.o"))
	require.Equal(t, "f_lib.so", ForceTarget("lib.so"))
}

func TestResolveForceDeps(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Insert(rule("a.o", "a.o", false, 1, "a.c", "build.ninja")))
	require.NoError(t, g.Insert(rule(ForceTarget("a.o"), "a.o", true, 1, "a.c", "build.ninja")))
	require.NoError(t, g.Insert(rule("lib.so", "lib.so", false, 2, "a.o", "build.ninja")))
	require.NoError(t, g.Insert(rule(ForceTarget("lib.so"), "lib.so", true, 2, "a.o", "x.o", "build.ninja")))

	g.ResolveForceDeps("build.ninja")

	d, ok := g.Lookup("f_a.o")
	require.True(t, ok)
	require.Equal(t, []string{"build.ninja"}, d.Deps)

	d, ok = g.Lookup("f_lib.so")
	require.True(t, ok)
	require.Equal(t, []string{"f_a.o", "build.ninja"}, d.Deps)

	// as-is rules are left alone
	d, ok = g.Lookup("lib.so")
	require.True(t, ok)
	require.Equal(t, []string{"a.o", "build.ninja"}, d.Deps)

	f, ok := g.ForceByOutput("lib.so")
	require.True(t, ok)
	require.Equal(t, "f_lib.so", f.Target)
}

func TestCloneIsDeep(t *testing.T) {
	d := rule("a", "a", false, 1, "x")
	c := d.Clone()
	c.Deps[0] = "y"
	c.Commands = append(c.Commands, "echo")
	require.Equal(t, []string{"x"}, d.Deps)
	require.Len(t, d.Commands, 1)
}

func TestIsPhony(t *testing.T) {
	d := rule("a", "a", false, 1)
	require.False(t, d.IsPhony())
	d.Commands = nil
	require.True(t, d.IsPhony())
	require.True(t, (&Descriptor{Kind: Phony, Commands: []string{"echo"}}).IsPhony())
}
