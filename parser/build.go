package parser

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/agenium-scale/nsconfig/diag"
	"github.com/agenium-scale/nsconfig/rules"
	"github.com/agenium-scale/nsconfig/shell"
	"github.com/agenium-scale/nsconfig/util"
)

// openRule closes the current rule, d then receives the commands that follow.
func (c *Context) openRule(d *rules.Descriptor) {
	c.close()
	c.open = d
	c.ad = shell.Autodeps{}
}

// buildFile handles `build_file OUTPUT [deps|autodeps DEPS...]` and `phony NAME [deps DEPS...]`.
func (c *Context) buildFile(tokens []diag.Token, kind Kind) {
	c.close()
	if len(tokens) == 1 {
		if kind == KindBuildFile {
			diag.Die(tokens[0].Cursor, "no name given to the file to build")
		}
		diag.Die(tokens[0].Cursor, "no name given to the phony target")
	}
	d := &rules.Descriptor{Kind: rules.SingleFile, Output: tokens[1].Text, Cursor: tokens[1].Cursor}
	if kind == KindPhony {
		d.Kind = rules.Phony
	}
	if d.Output == "" {
		diag.Die(tokens[1].Cursor, "cannot have empty rule name")
	}
	if len(tokens) >= 3 {
		switch tokens[2].Text {
		case "autodeps":
			d.Autodeps = c.HeaderDeps
			d.AutodepsFile = d.Output + ".d"
		case "deps":
		default:
			diag.Die(tokens[2].Cursor, "expected 'deps' keyword here")
		}
		d.Deps = diag.Texts(tokens[3:])
	}
	c.openRule(d)
}

// buildFiles handles `build_files [optional] PREFIX foreach SOURCES... as FORMAT [deps|autodeps DEPS...]`.
func (c *Context) buildFiles(tokens []diag.Token) {
	c.close()
	if len(tokens) == 1 {
		diag.Die(tokens[0].Cursor, "expected variable name or 'optional' after")
	}
	optional := tokens[1].Text == "optional"
	i := 1
	if optional {
		i = 2
	}
	if len(tokens) == i {
		diag.Die(tokens[i-1].Cursor, "no variable name given after")
	}
	prefix := tokens[i]

	i++
	if len(tokens) == i {
		diag.Die(tokens[i-1].Cursor, "expected 'foreach' keyword after")
	}
	if tokens[i].Text != "foreach" {
		diag.Die(tokens[i].Cursor, "expected 'foreach' keyword here")
	}
	begin, end := i+1, i+1
	for end < len(tokens) && tokens[end].Text != "as" {
		end++
	}
	if !optional && begin == end {
		if begin < len(tokens) {
			diag.Die(tokens[begin].Cursor, "keyword 'as' unexpected, expected some files/globs here")
		}
		diag.Die(tokens[i].Cursor, "expected some files/globs here")
	}
	if end >= len(tokens) {
		diag.Die(tokens[len(tokens)-1].Cursor, "expected 'as' keyword after")
	}
	i = end + 1
	if len(tokens) == i {
		diag.Die(tokens[i-1].Cursor, "expected filename format after")
	}
	format := tokens[i].Text

	d := &rules.Descriptor{Kind: rules.MultipleFiles, Output: prefix.Text, Cursor: prefix.Cursor}
	for _, source := range tokens[begin:end] {
		d.Items = append(d.Items, c.items(source, format)...)
	}
	if len(d.Items) == 0 && !optional {
		diag.Die(tokens[begin].Cursor, "cannot find any file for the given globbing(s)")
	}

	i++
	if i < len(tokens) {
		switch tokens[i].Text {
		case "autodeps":
			d.Autodeps = c.HeaderDeps
		case "deps":
		default:
			diag.Die(tokens[i].Cursor, "expected 'deps' or 'autodeps' keyword here")
		}
		d.Deps = diag.Texts(tokens[i+1:])
	}

	outputs := util.MappedSlice(d.Items, func(it rules.Item) string { return it.Output })
	c.Store.Define(prefix.Text+".files", strings.Join(outputs, " "))
	c.openRule(d)
}

// items expands one source of build_files: a path, `glob:PATTERN` or `popen:COMMAND`.
func (c *Context) items(source diag.Token, format string) []rules.Item {
	var items []rules.Item
	switch {
	case strings.HasPrefix(source.Text, "glob:"):
		pattern := strings.TrimPrefix(source.Text, "glob:")
		base, _ := doublestar.SplitPattern(pattern)
		files, err := c.FS.Glob(pattern)
		if err != nil {
			diag.Die(source.Cursor, "%s", err)
		}
		for _, f := range files {
			rel := f
			if base != "." {
				rel = strings.TrimPrefix(f, base+"/")
			}
			items = append(items, rules.Item{Output: formatName(format, util.DottedName(rel)), Input: f})
		}

	case strings.HasPrefix(source.Text, "popen:"):
		output := c.run(strings.TrimPrefix(source.Text, "popen:"), source.Cursor)
		for _, line := range strings.Split(output, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || line[0] == '#' {
				continue
			}
			if !strings.Contains(line, ";") {
				items = append(items, rules.Item{Output: formatName(format, util.Basename(line)), Input: line})
				continue
			}
			// DIR;RELATIVE_PATH
			parts := strings.Split(line, ";")
			if len(parts) != 2 {
				diag.Die(source.Cursor, "output of command misformed")
			}
			items = append(items, rules.Item{
				Output: formatName(format, util.DottedName(parts[1])),
				Input:  parts[0] + "/" + parts[1],
			})
		}

	default:
		items = append(items, rules.Item{Output: formatName(format, util.Basename(source.Text)), Input: source.Text})
	}
	return items
}

// formatName replaces %b, %r and %e in format by the basename, rootname and extension of name.
func formatName(format, name string) string {
	root, ext := util.SplitExt(name)
	return strings.NewReplacer(
		"%b", util.Basename(name),
		"%e", strings.TrimPrefix(ext, "."),
		"%r", root,
	).Replace(format)
}
