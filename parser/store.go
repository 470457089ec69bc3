package parser

import (
	"fmt"
	"strings"

	"github.com/agenium-scale/nsconfig/diag"
	"github.com/agenium-scale/nsconfig/util"
)

type variable struct {
	value string
	used  bool
}

// Store holds the variables of a build description.
//
// Variables set by the user are tracked: they must be expanded at least once before the end of the parse.
// Variables computed by nsconfig itself are not.
type Store struct {
	vars util.OrderedMap[string, *variable]

	// ListMode echoes unknown variable names instead of failing, so that a description can be walked without
	// knowing the values of its variables.
	ListMode bool
}

func NewStore() *Store {
	return &Store{vars: util.NewOrderedMap[string, *variable]()}
}

func (s *Store) put(name, value string, used bool) {
	if v, ok := s.vars.Lookup(name); ok {
		v.value = value
		v.used = used
		return
	}
	s.vars.Insert(name, &variable{value: value, used: used})
}

// Set sets a tracked variable, overwriting any previous value.
func (s *Store) Set(name, value string) {
	s.put(name, value, false)
}

// SetIfAbsent sets a tracked variable unless it already exists. It reports whether the variable was set.
func (s *Store) SetIfAbsent(name, value string) bool {
	if s.vars.Has(name) {
		return false
	}
	s.put(name, value, false)
	return true
}

// Define sets an untracked variable.
func (s *Store) Define(name, value string) {
	s.put(name, value, true)
}

func (s *Store) Has(name string) bool {
	return s.vars.Has(name)
}

// Lookup returns the value of a variable and marks it as used.
func (s *Store) Lookup(name string) (string, bool) {
	v, ok := s.vars.Lookup(name)
	if !ok {
		return "", false
	}
	v.used = true
	return v.value, true
}

// Names returns the names of every variable, sorted.
func (s *Store) Names() []string {
	return s.vars.Keys()
}

// Unused returns the sorted names of the variables never expanded, and of those that were.
func (s *Store) Unused() (unused []string, used []string) {
	for _, e := range s.vars.Entries() {
		if e.Value.used {
			used = append(used, e.Key)
		} else {
			unused = append(unused, e.Key)
		}
	}
	return unused, used
}

// Substitute expands the variables of text:
//
//	$$        a literal '$'
//	$NAME     the value of NAME, the name ends at the next '$' (which is consumed) or blank
//	${EXPR}   the value of the variable whose name is EXPR once expanded
//
// Errors abort through diag.Die with c pointing into text.
func (s *Store) Substitute(text string, c diag.Cursor) string {
	c.Source = text
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		if text[i] != '$' {
			b.WriteByte(text[i])
			continue
		}
		if i+1 >= len(text) {
			diag.Die(c.At(i+1), "unexpected end of line")
		}
		if text[i+1] == '$' {
			b.WriteByte('$')
			i++
			continue
		}

		var key string
		i1 := i + 1
		if text[i+1] == '{' {
			i0 := i + 2
			depth := 1
			for i1 = i0; i1 < len(text); i1++ {
				if text[i1] == '$' && i1+1 < len(text) && text[i1+1] == '{' {
					depth++
				}
				if text[i1] == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			if depth > 0 {
				diag.Die(c.At(i+1), "cannot find closing '}'")
			}
			key = s.Substitute(text[i0:i1], c)
		} else {
			for ; i1 < len(text) && text[i1] != '$' && !isBlank(text[i1]); i1++ {
			}
			key = text[i+1 : i1]
		}

		if value, ok := s.Lookup(key); ok {
			b.WriteString(value)
		} else if s.ListMode {
			b.WriteString(key)
		} else {
			diag.Die(c.At(i), "%s", unknownVariable(key, s.Names()))
		}
		if i1 < len(text) && isBlank(text[i1]) {
			b.WriteByte(text[i1])
		}
		i = i1
	}
	return b.String()
}

func unknownVariable(key string, names []string) string {
	return fmt.Sprintf("don't know how to expand this: %q%s", key, util.DidYouMean(key, names))
}

// UnusedVariablesError lists the tracked variables that were never expanded.
type UnusedVariablesError struct {
	Variables []string
	used      []string
}

func (e *UnusedVariablesError) Error() string {
	var b strings.Builder
	for i, name := range e.Variables {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "variable %q defined but not used%s", name, util.DidYouMean(name, e.used))
	}
	return b.String()
}

// CheckUsed returns an *UnusedVariablesError when some tracked variable was never expanded.
func (s *Store) CheckUsed() error {
	unused, used := s.Unused()
	if len(unused) == 0 {
		return nil
	}
	return &UnusedVariablesError{Variables: unused, used: used}
}
