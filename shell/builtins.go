package shell

import (
	"context"
	"strings"

	"github.com/agenium-scale/nsconfig/diag"
	"github.com/agenium-scale/nsconfig/util"
)

// dialect holds the host specific spelling of the portable commands.
type dialect struct {
	sequence  string
	removeF   string
	removeRF  string
	cat       string
	move      string
	touch     func(file string) string
	copy      func(recursive bool, from, to string) string
	mkdir     func(dir string) string
	archive   func(lib string, objs string) string
	echoEmpty string
	ifThen    func(negate bool, a, b string) string
	ifElse    string
	ifEnd     string
	zip       func(dir string) string
}

var posix = &dialect{
	sequence: " ; ",
	removeF:  "rm -f",
	removeRF: "rm -rf",
	cat:      "cat",
	move:     "mv",
	touch:    func(file string) string { return "touch " + file },
	copy: func(recursive bool, from, to string) string {
		if recursive {
			return "cp -rf " + from + " " + to
		}
		return "cp -f " + from + " " + to
	},
	mkdir:   func(dir string) string { return "mkdir -p " + dir },
	archive: func(lib, objs string) string { return "ar rcs " + lib + objs },
	ifThen: func(negate bool, a, b string) string {
		op := "="
		if negate {
			op = "!="
		}
		return "if [ \"" + a + "\" " + op + " \"" + b + "\" ]; then "
	},
	ifElse: " ; else ",
	ifEnd:  " ; fi",
	zip: func(dir string) string {
		return "tar -cvjSf " + Stringify(dir+".tar.bz2") + " " + Stringify(dir)
	},
}

var cmdExe = &dialect{
	sequence: " & ",
	removeF:  "del /F /Q",
	removeRF: "rd /S /Q",
	cat:      "type",
	move:     "move /Y",
	touch:    func(file string) string { return "echo >" + file },
	copy: func(recursive bool, from, to string) string {
		if recursive {
			// xcopy copies the content of a directory, not the directory itself
			return "xcopy " + from + " " + Stringify(strings.Trim(to, "\"")+"\\"+util.Basename(strings.Trim(from, "\""))) +
				" /E /C /I /Q /G /H /R /Y"
		}
		return "xcopy " + from + " " + to + " /C /I /Q /G /H /Y"
	},
	mkdir:     func(dir string) string { return "if not exist " + dir + " md " + dir },
	archive:   func(lib, objs string) string { return "lib /nologo /out:" + lib + objs },
	echoEmpty: "echo.",
	ifThen: func(negate bool, a, b string) string {
		if negate {
			return "if not \"" + a + "\" == \"" + b + "\" ( "
		}
		return "if \"" + a + "\" == \"" + b + "\" ( "
	},
	ifElse: " ) else ( ",
	ifEnd:  " )",
	zip: func(dir string) string {
		return "powershell -Command Compress-Archive -Force -Path " + Stringify(dir) +
			" -DestinationPath " + Stringify(dir+".zip")
	},
}

func dialectFor(hostOS string) *dialect {
	if hostOS == util.Windows {
		return cmdExe
	}
	return posix
}

type builtin func(t *Translator, ctx context.Context, tokens []diag.Token, action Action, ad *Autodeps) string

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"touch": touch,
		"cd":    cd,
		"rm":    rm,
		"cp":    cp,
		"mkdir": mkdir,
		"cat":   cat,
		"echo":  echo,
		"mv":    mv,
		"ar":    ar,
		"if":    if_,
	}
}

func touch(t *Translator, _ context.Context, tokens []diag.Token, _ Action, _ *Autodeps) string {
	if len(tokens) != 2 {
		diag.Die(tokens[0].Cursor, "touch must have only one argument")
	}
	return t.d.touch(t.Ify(tokens[1].Text))
}

func cd(t *Translator, _ context.Context, tokens []diag.Token, _ Action, _ *Autodeps) string {
	if len(tokens) != 2 {
		diag.Die(tokens[0].Cursor, "cd must have only one directory")
	}
	return "cd " + t.Ify(tokens[1].Text)
}

func rm(t *Translator, _ context.Context, tokens []diag.Token, _ Action, _ *Autodeps) string {
	if len(tokens) == 1 {
		diag.Die(tokens[0].Cursor, "expected at least one file to delete")
	}
	if tokens[1].Text == "-r" {
		if len(tokens) == 2 {
			diag.Die(tokens[1].Cursor, "expected at least one directory to delete after")
		}
		return t.d.removeRF + t.fileArgs(tokens[2:])
	}
	return t.d.removeF + t.fileArgs(tokens[1:])
}

func cp(t *Translator, _ context.Context, tokens []diag.Token, _ Action, _ *Autodeps) string {
	recursive := len(tokens) > 1 && tokens[1].Text == "-r"
	args := tokens[1:]
	if recursive {
		args = tokens[2:]
	}
	if len(args) != 2 {
		diag.Die(tokens[0].Cursor, "expected exactly one source and one destination")
	}
	return t.d.copy(recursive, t.Ify(args[0].Text), t.Ify(args[1].Text))
}

func mkdir(t *Translator, _ context.Context, tokens []diag.Token, _ Action, _ *Autodeps) string {
	switch {
	case len(tokens) == 1:
		diag.Die(tokens[0].Cursor, "expected one folder to create after")
	case len(tokens) > 2:
		diag.Die(tokens[2].Cursor, "can only deal with one folder at a time")
	}
	return t.d.mkdir(t.Ify(tokens[1].Text))
}

func cat(t *Translator, _ context.Context, tokens []diag.Token, _ Action, _ *Autodeps) string {
	if len(tokens) == 1 {
		diag.Die(tokens[0].Cursor, "expected at least one file to dump")
	}
	return t.d.cat + t.fileArgs(tokens[1:])
}

func echo(t *Translator, _ context.Context, tokens []diag.Token, _ Action, _ *Autodeps) string {
	if len(tokens) == 1 && t.d.echoEmpty != "" {
		return t.d.echoEmpty
	}
	return "echo" + t.fileArgs(tokens[1:])
}

func mv(t *Translator, _ context.Context, tokens []diag.Token, _ Action, _ *Autodeps) string {
	if len(tokens) != 3 {
		diag.Die(tokens[0].Cursor, "mv must have only two arguments")
	}
	return t.d.move + t.fileArgs(tokens[1:])
}

func ar(t *Translator, _ context.Context, tokens []diag.Token, _ Action, _ *Autodeps) string {
	if len(tokens) < 4 {
		diag.Die(tokens[0].Cursor, "ar must have at least two arguments")
	}
	if tokens[1].Text != "rcs" {
		diag.Die(tokens[1].Cursor, "only accepted argument is 'rcs'")
	}
	return t.d.archive(t.Ify(tokens[2].Text), t.fileArgs(tokens[3:]))
}

// matchingParen returns the index of the parenthesis closing the one at i0, or len(tokens).
func matchingParen(tokens []diag.Token, i0 int) int {
	depth := 0
	for i := i0; i < len(tokens); i++ {
		switch tokens[i].Text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(tokens)
}

// if_ translates `if A ==|!= B ( THEN ) [else ( ELSE )]`.
func if_(t *Translator, ctx context.Context, tokens []diag.Token, action Action, ad *Autodeps) string {
	switch len(tokens) {
	case 1:
		diag.Die(tokens[0].Cursor, "expected first operand for comparison after")
	case 2:
		diag.Die(tokens[1].Cursor, "expected comparison operator after")
	case 3:
		if tokens[2].Text != "==" && tokens[2].Text != "!=" {
			diag.Die(tokens[2].Cursor, "expected valid comparison operator '==' or '!='")
		}
		diag.Die(tokens[2].Cursor, "expected second operand for comparison after")
	case 4:
		diag.Die(tokens[3].Cursor, "expected '(' after")
	}
	if tokens[2].Text != "==" && tokens[2].Text != "!=" {
		diag.Die(tokens[2].Cursor, "expected valid comparison operator '==' or '!='")
	}
	if tokens[4].Text != "(" {
		diag.Die(tokens[4].Cursor, "expected '(' here")
	}

	var b strings.Builder
	b.WriteString(t.d.ifThen(tokens[2].Text == "!=", tokens[1].Text, tokens[3].Text))
	i := matchingParen(tokens, 4)
	if i >= len(tokens) {
		diag.Die(tokens[4].Cursor, "cannot find corresponding ')'")
	}
	b.WriteString(t.Translate(ctx, tokens[5:i], action, ad))
	if i == len(tokens)-1 {
		b.WriteString(t.d.ifEnd)
		return b.String()
	}

	i++
	if tokens[i].Text != "else" {
		diag.Die(tokens[i].Cursor, "expected 'else' keyword here")
	}
	i++
	if i >= len(tokens) {
		diag.Die(tokens[i-1].Cursor, "expected '(' after")
	}
	if tokens[i].Text != "(" {
		diag.Die(tokens[i].Cursor, "expected '(' here")
	}
	open := i
	i = matchingParen(tokens, open)
	if i >= len(tokens) {
		diag.Die(tokens[open].Cursor, "cannot find corresponding ')'")
	}
	if i != len(tokens)-1 {
		diag.Die(tokens[i+1].Cursor, "unexpected token after 'else' block")
	}
	b.WriteString(t.d.ifElse)
	b.WriteString(t.Translate(ctx, tokens[open+1:i], action, ad))
	b.WriteString(t.d.ifEnd)
	return b.String()
}

// Rm returns the host command deleting a file, or a directory tree when recursive.
func (t *Translator) Rm(recursive bool, name string) string {
	if recursive {
		return t.d.removeRF + " " + t.Ify(name)
	}
	return t.d.removeF + " " + t.Ify(name)
}

// Cp returns the host command copying a file, or a directory tree when recursive.
func (t *Translator) Cp(recursive bool, from, to string) string {
	return t.d.copy(recursive, t.Ify(from), t.Ify(to))
}

// MkdirP returns the host command creating a directory and its parents.
func (t *Translator) MkdirP(dir string) string {
	return t.d.mkdir(t.Ify(dir))
}

// Zip returns the host command archiving a directory next to itself.
func (t *Translator) Zip(dir string) string {
	return t.d.zip(t.Sanitize(dir))
}

// Sequence is the host separator between two commands run one after the other.
func (t *Translator) Sequence() string {
	return t.d.sequence
}
