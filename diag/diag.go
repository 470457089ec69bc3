// Package diag locates and reports errors in build descriptions.
package diag

import (
	"fmt"
	"strings"
)

// Phase tells whether a cursor points into a line before, during or after variable expansion.
type Phase int

const (
	Before Phase = iota
	During
	After
)

func (p Phase) String() string {
	switch p {
	case Before:
		return "before"
	case During:
		return "during"
	default:
		return "after"
	}
}

// Cursor is a position inside a build description.
type Cursor struct {
	File   string
	Line   int
	Col    int
	Phase  Phase
	Source string
}

// At returns a copy of the cursor moved to column col.
func (c Cursor) At(col int) Cursor {
	c.Col = col
	return c
}

// Token is a word of a statement together with where it starts.
type Token struct {
	Text   string
	Cursor Cursor
}

// Texts returns the text of every token.
func Texts(tokens []Token) []string {
	result := make([]string, len(tokens))
	for i, t := range tokens {
		result[i] = t.Text
	}
	return result
}

// Diagnostic is a fatal error anchored at a cursor.
type Diagnostic struct {
	Cursor  Cursor
	Message string
}

const contextWidth = 30

func (d *Diagnostic) Error() string {
	c := d.Cursor
	if c.Source == "" {
		return fmt.Sprintf("%s:%d: %s", c.File, c.Line, d.Message)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d: %s variable expansion\n\n", c.File, c.Line, c.Phase)
	col := c.Col
	if col < 0 {
		col = 0
	}
	if col > len(c.Source) {
		col = len(c.Source)
	}
	i0 := max(0, col-contextWidth)
	i1 := min(len(c.Source), col+contextWidth)
	caret := col - i0
	if i0 > 0 {
		b.WriteString("... ")
		caret += 4
	}
	b.WriteString(c.Source[i0:i1])
	if i1 < len(c.Source) {
		b.WriteString(" ...")
	}
	b.WriteByte('\n')
	b.WriteString(strings.Repeat(" ", caret))
	b.WriteString("^~~~~ ")
	b.WriteString(d.Message)
	return b.String()
}

// Die aborts the current parse with a diagnostic at c.
// It must only be called below a function that recovers with Recover.
func Die(c Cursor, format string, a ...interface{}) {
	panic(&Diagnostic{Cursor: c, Message: fmt.Sprintf(format, a...)})
}

// Recover turns a panic raised by Die into an error stored in errp. Other panics are re-raised.
//
//	func Parse(...) (err error) {
//		defer diag.Recover(&err)
//		...
//	}
func Recover(errp *error) {
	e := recover()
	if e == nil {
		return
	}
	d, ok := e.(*Diagnostic)
	if !ok {
		panic(e)
	}
	*errp = d
}
