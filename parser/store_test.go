package parser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/agenium-scale/nsconfig/diag"
)

func substitute(s *Store, text string) (out string, err error) {
	defer diag.Recover(&err)
	return s.Substitute(text, diag.Cursor{File: "build.nsconfig", Line: 1}), nil
}

func tokenize(line string) (texts []string, err error) {
	defer diag.Recover(&err)
	return diag.Texts(Tokenize(nil, line, diag.Cursor{File: "build.nsconfig", Line: 1})), nil
}

func TestTokenize(t *testing.T) {
	for _, tt := range []struct {
		line string
		want []string
	}{
		{"set X = 1", []string{"set", "X", "=", "1"}},
		{"  a\t\tb  ", []string{"a", "b"}},
		{`echo "hello world" again`, []string{"echo", "hello world", "again"}},
		{`cc -DFOO=\"bar\"`, []string{"cc", `-DFOO=\"bar\"`}},
		{`a"b c"d`, []string{"ab cd"}},
		{"phony all # the default target", []string{"phony", "all"}},
		{`echo "# not a comment"`, []string{"echo", "# not a comment"}},
		{"# nothing", []string{}},
	} {
		got, err := tokenize(tt.line)
		require.NoError(t, err, tt.line)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Tokenize(%q) mismatch (-want +got):\n%s", tt.line, diff)
		}
	}
}

func TestTokenizeColumns(t *testing.T) {
	tokens := Tokenize(nil, `a "b c" d`, diag.Cursor{Line: 4})
	require.Len(t, tokens, 3)
	require.Equal(t, []int{0, 2, 8}, []int{tokens[0].Cursor.Col, tokens[1].Cursor.Col, tokens[2].Cursor.Col})
	require.Equal(t, 4, tokens[2].Cursor.Line)
}

func TestTokenizeUnterminatedQuote(t *testing.T) {
	_, err := tokenize(`echo "abc`)
	var d *diag.Diagnostic
	require.ErrorAs(t, err, &d)
	require.Equal(t, "cannot find ending double-quote", d.Message)
	require.Equal(t, 5, d.Cursor.Col)
}

func TestSubstitute(t *testing.T) {
	s := NewStore()
	s.Set("X", "1")
	s.Set("name", "X")
	s.Set("dir", "src")

	for _, tt := range [][2]string{
		{"nothing to do", "nothing to do"},
		{"a $X b", "a 1 b"},
		{"pre$X$post", "pre1post"},
		{"${X}.o", "1.o"},
		{"${$name}", "1"},
		{"$dir/a.c", "src/a.c"},
		{"cost: $$5", "cost: $5"},
		{"$X", "1"},
	} {
		got, err := substitute(s, tt[0])
		require.NoError(t, err, tt[0])
		require.Equal(t, tt[1], got, tt[0])
	}
}

func TestSubstituteErrors(t *testing.T) {
	s := NewStore()
	s.Set("CFLAGS", "-O2")

	for _, tt := range [][2]string{
		{"echo $", "unexpected end of line"},
		{"echo ${CFLAGS", "cannot find closing '}'"},
		{"echo $CFLAG", `don't know how to expand this: "CFLAG", did you mean "CFLAGS"?`},
	} {
		_, err := substitute(s, tt[0])
		var d *diag.Diagnostic
		require.ErrorAs(t, err, &d, tt[0])
		require.Equal(t, tt[1], d.Message, tt[0])
	}
}

func TestSubstituteListMode(t *testing.T) {
	s := NewStore()
	s.ListMode = true
	s.Set("X", "1")
	got, err := substitute(s, "$X $UNKNOWN")
	require.NoError(t, err)
	require.Equal(t, "1 UNKNOWN", got)
}

func TestUnusedVariables(t *testing.T) {
	s := NewStore()
	s.Set("used", "a")
	s.Set("unused", "b")
	s.Define("computed", "c")
	require.True(t, s.SetIfAbsent("fresh", "d"))
	require.False(t, s.SetIfAbsent("fresh", "e"))

	_, err := substitute(s, "$used $fresh")
	require.NoError(t, err)

	err = s.CheckUsed()
	var unused *UnusedVariablesError
	require.ErrorAs(t, err, &unused)
	require.Equal(t, []string{"unused"}, unused.Variables)
	require.True(t, strings.HasPrefix(err.Error(), `variable "unused" defined but not used`))

	// setting a variable again makes it unused until the next expansion
	s.Set("used", "z")
	s.Set("unused", "z")
	_, err = substitute(s, "$unused")
	require.NoError(t, err)
	require.ErrorAs(t, s.CheckUsed(), &unused)
	require.Equal(t, []string{"used"}, unused.Variables)

	_, err = substitute(s, "$used")
	require.NoError(t, err)
	require.NoError(t, s.CheckUsed())
}
