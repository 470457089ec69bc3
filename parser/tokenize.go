package parser

import (
	"github.com/agenium-scale/nsconfig/diag"
)

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\v' || c == '\f'
}

// Tokenize splits line into words and appends them to tokens. A '#' outside of double quotes ends the line.
// Double quotes group blanks into a word, \" is kept as is. Token cursors are c moved to the first character.
func Tokenize(tokens []diag.Token, line string, c diag.Cursor) []diag.Token {
	var buf []byte
	start := -1
	for i := 0; i < len(line); i++ {
		switch ch := line[i]; {
		case ch == '#':
			i = len(line)
		case isBlank(ch):
			if start >= 0 {
				tokens = append(tokens, diag.Token{Text: string(buf), Cursor: c.At(start)})
				buf = buf[:0]
				start = -1
			}
		case ch == '"':
			quote := i
			if start < 0 {
				start = i
			}
			for i++; i < len(line) && line[i] != '"'; i++ {
				buf = append(buf, line[i])
			}
			if i == len(line) {
				diag.Die(c.At(quote), "cannot find ending double-quote")
			}
		default:
			if start < 0 {
				start = i
			}
			if ch == '\\' && i+1 < len(line) && line[i+1] == '"' {
				buf = append(buf, '\\', '"')
				i++
			} else {
				buf = append(buf, ch)
			}
		}
	}
	if start >= 0 {
		tokens = append(tokens, diag.Token{Text: string(buf), Cursor: c.At(start)})
	}
	return tokens
}
