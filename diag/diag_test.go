package diag

import (
	"errors"
	"strings"
	"testing"
)

func TestWithoutSource(t *testing.T) {
	d := &Diagnostic{Cursor: Cursor{File: "build.nsconfig", Line: 3}, Message: "no rule given"}
	if d.Error() != "build.nsconfig:3: no rule given" {
		t.Fatalf("unexpected message %q", d.Error())
	}
}

func TestCaret(t *testing.T) {
	c := Cursor{File: "f", Line: 1, Col: 4, Phase: During, Source: "set X = $Y"}
	d := &Diagnostic{Cursor: c, Message: "boom"}
	want := "f:1: during variable expansion\n\nset X = $Y\n    ^~~~~ boom"
	if d.Error() != want {
		t.Fatalf("got\n%s\nwant\n%s", d.Error(), want)
	}
}

func TestLongLineIsTruncated(t *testing.T) {
	src := strings.Repeat("a", 50) + "X" + strings.Repeat("b", 50)
	d := &Diagnostic{Cursor: Cursor{File: "f", Line: 2, Col: 50, Phase: After, Source: src}, Message: "here"}
	lines := strings.Split(d.Error(), "\n")
	if len(lines) != 4 {
		t.Fatalf("unexpected message %q", d.Error())
	}
	if !strings.HasPrefix(lines[2], "... ") || !strings.HasSuffix(lines[2], " ...") {
		t.Fatalf("context not truncated: %q", lines[2])
	}
	if lines[2][strings.Index(lines[3], "^")] != 'X' {
		t.Fatalf("caret does not point at the column: %q / %q", lines[2], lines[3])
	}
}

func TestRecover(t *testing.T) {
	parse := func() (err error) {
		defer Recover(&err)
		Die(Cursor{File: "f", Line: 7}, "expected %q", "=")
		return nil
	}
	err := parse()
	var d *Diagnostic
	if !errors.As(err, &d) || d.Message != `expected "="` || d.Cursor.Line != 7 {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRecoverRepanics(t *testing.T) {
	defer func() {
		if recover() != "other" {
			t.Fatal("foreign panic was swallowed")
		}
	}()
	func() (err error) {
		defer Recover(&err)
		panic("other")
	}()
}
