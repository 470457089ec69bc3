package util

import (
	"fmt"
	"strings"

	"github.com/agext/levenshtein"
)

// Suggest returns every candidate at the minimal edit distance from word, in candidate order.
func Suggest(word string, candidates []string) []string {
	best := -1
	var result []string
	for _, c := range candidates {
		d := levenshtein.Distance(word, c, nil)
		switch {
		case best < 0 || d < best:
			best = d
			result = []string{c}
		case d == best:
			result = append(result, c)
		}
	}
	return result
}

// DidYouMean formats the suggestions for word as `, did you mean "a" or "b"?`, or "" without candidates.
func DidYouMean(word string, candidates []string) string {
	s := Suggest(word, candidates)
	if len(s) == 0 {
		return ""
	}
	quoted := MappedSlice(s, func(v string) string { return fmt.Sprintf("%q", v) })
	return ", did you mean " + strings.Join(quoted, " or ") + "?"
}
