package shell

import (
	"context"
	"strconv"
	"strings"

	"github.com/agenium-scale/nsconfig/diag"
	"github.com/agenium-scale/nsconfig/log"
	"github.com/agenium-scale/nsconfig/toolchain"
	"github.com/agenium-scale/nsconfig/util"
)

// compile translates a compiler invocation. tokens[0] is the compiler head.
func (t *Translator) compile(ctx context.Context, info toolchain.Info, tokens []diag.Token, action Action) []string {
	switch info.Family {
	case toolchain.GCC, toolchain.Clang, toolchain.ARMClang:
		return t.gccClang(info, tokens, action)
	case toolchain.FCCTrad, toolchain.FCCClang:
		return t.fcc(info, tokens, action)
	case toolchain.XLC:
		return t.generic(info, []string{info.Path}, "-qversion", xlcFlags(), tokens, action)
	case toolchain.Emscripten:
		return t.generic(info, []string{info.Path, "-Wno-version-check", "-Wno-emcc"}, "--version",
			emscriptenFlags(), tokens, action)
	case toolchain.MSVC:
		return t.msvc(info, tokens, action)
	case toolchain.ICC:
		return t.icc(info, tokens, action)
	case toolchain.NVCC:
		return t.nvcc(ctx, info, tokens, action)
	case toolchain.HIPCC, toolchain.HCC, toolchain.DPCpp:
		return t.generic(info, []string{info.Path}, "--version", hipFlags(), tokens, action)
	}
	diag.Die(tokens[0].Cursor, "invalid compiler")
	return nil
}

func isBSD(hostOS string) bool {
	switch hostOS {
	case "darwin", "freebsd", "netbsd", "openbsd", "dragonfly":
		return true
	}
	return false
}

// rpath returns the linker option embedding dir in the runtime search path, "" when the compiler has none.
// Relative directories are made relative to the binary with $ORIGIN.
func (t *Translator) rpath(dir string, info toolchain.Info) string {
	if info.Family == toolchain.MSVC || info.Family == toolchain.Emscripten {
		return ""
	}
	switch {
	case dir == ".":
		dir = "$ORIGIN"
	case strings.HasPrefix(dir, "./"):
		dir = "$ORIGIN/" + dir[2:]
	}
	if isBSD(t.HostOS) {
		return "-rpath," + dir
	}
	return "-rpath=" + dir
}

func (t *Translator) withRpath(ret []string, dir string, info toolchain.Info) []string {
	if r := t.rpath(dir, info); r != "" {
		ret = append(ret, "'-Wl,"+r+"'")
	}
	return ret
}

func ignored(arg string, compiler string) {
	log.Debug("Option %s is not supported or known by %s, ignoring it\n", arg, compiler)
}

// translateArg translates one argument of a GCC-like compiler through its flag table.
func (t *Translator) translateArg(info toolchain.Info, table flagTable, tok diag.Token, action Action) []string {
	arg := tok.Text
	switch {
	case arg == "-lpthread" || arg == "-lm":
		return []string{arg}
	case arg == "-L.":
		return t.withRpath([]string{"-L."}, ".", info)
	case !strings.HasPrefix(arg, "-"):
		return []string{Stringify(t.Sanitize(arg))}
	case strings.HasPrefix(arg, "-l:"):
		if len(arg) == 3 {
			diag.Die(tok.Cursor, "no file/directory given here")
		}
		return []string{"-l:" + t.Ify(arg[3:])}
	case strings.HasPrefix(arg, "-l"), strings.HasPrefix(arg, "-L"), strings.HasPrefix(arg, "-I"):
		if len(arg) == 2 {
			diag.Die(tok.Cursor, "no file/directory given here")
		}
		switch arg[1] {
		case 'l':
			return []string{"-l" + t.Ify(LibBasename(arg[2:]))}
		case 'L':
			dir := t.Ify(arg[2:])
			return t.withRpath([]string{"-L" + dir}, dir, info)
		}
		return []string{"-I" + t.Ify(arg[2:])}
	case strings.HasPrefix(arg, "-D"):
		if len(arg) == 2 {
			diag.Die(tok.Cursor, "no macro name given here")
		}
		return []string{arg}
	}
	if out, ok := table[arg]; ok {
		if out == "" {
			ignored(arg, info.Path)
			return nil
		}
		return []string{out}
	}
	if action == Permissive {
		return []string{arg}
	}
	diag.Die(tok.Cursor, "unknown compiler option")
	return nil
}

// generic translates the arguments of compilers needing nothing beyond their flag table.
func (t *Translator) generic(info toolchain.Info, head []string, version string, table flagTable,
	tokens []diag.Token, action Action) []string {
	ret := head
	for _, tok := range tokens[1:] {
		if tok.Text == "--version" {
			return []string{info.Path, version}
		}
		ret = append(ret, t.translateArg(info, table, tok, action)...)
	}
	return util.Uniq(ret)
}

func (t *Translator) gccClang(info toolchain.Info, tokens []diag.Token, action Action) []string {
	table := gccClangFlags(info)
	ret := []string{info.Path}
	for _, tok := range tokens[1:] {
		switch tok.Text {
		case "--version":
			return []string{info.Path, "--version"}
		case "-lm":
			// only C needs libm explicitly, clang++ warns about it
			if info.Lang == toolchain.C {
				ret = append(ret, "-lm")
			}
			continue
		}
		ret = append(ret, t.translateArg(info, table, tok, action)...)
	}
	return util.Uniq(ret)
}

func (t *Translator) icc(info toolchain.Info, tokens []diag.Token, action Action) []string {
	table := iccFlags()
	ret := []string{info.Path}
	fastMath := false
	for _, tok := range tokens[1:] {
		switch tok.Text {
		case "--version":
			return []string{info.Path, "--version"}
		case "-ffast-math":
			fastMath = true
			continue
		}
		ret = append(ret, t.translateArg(info, table, tok, action)...)
	}
	if !fastMath {
		ret = append(ret, "-fp-model strict")
	}
	return util.Uniq(ret)
}

func (t *Translator) fcc(info toolchain.Info, tokens []diag.Token, action Action) []string {
	table := fccFlags(info)
	ret := []string{info.Path, "-Nclang"}
	if info.Family == toolchain.FCCTrad {
		ret[1] = "-Nnoclang"
	}
	sve := false
	for i := 1; i < len(tokens); i++ {
		switch tokens[i].Text {
		case "--version":
			return []string{info.Path, "--version"}
		case "-x":
			if i+1 >= len(tokens) {
				diag.Die(tokens[i].Cursor, "argument -x must be followed by the language")
			}
			i++
			continue
		case "-msve", "-msve128", "-msve256", "-msve512":
			sve = true
		}
		ret = append(ret, t.translateArg(info, table, tokens[i], action)...)
	}
	if !sve {
		if info.Family == toolchain.FCCTrad {
			ret = append(ret, "-KNOSVE")
		} else {
			ret = append(ret, "-mcpu=generic+nosve")
		}
	}
	return util.Uniq(ret)
}

type msvcStage int

const (
	assemble msvcStage = iota
	compileOnly
	compileLink
)

func (t *Translator) msvc(info toolchain.Info, tokens []diag.Token, action Action) []string {
	table := msvcFlags(info)
	ret := []string{"cl", "/nologo", "/EHsc", "/D_CRT_SECURE_NO_WARNINGS"}
	var linker []string
	stage := compileLink
	debug, fastMath := false, false
	output := ""

	for i := 1; i < len(tokens); i++ {
		tok := tokens[i]
		arg := tok.Text
		switch arg {
		case "--version":
			return []string{"cl"}
		case "-lpthread":
			ret = append(ret, "/MT")
			continue
		case "-lm", "-L.":
			continue
		case "-ffast-math":
			fastMath = true
			continue
		}
		if !strings.HasPrefix(arg, "-") {
			ret = append(ret, t.Ify(arg))
			continue
		}
		switch {
		case len(arg) == 2 && strings.ContainsRune("IlL", rune(arg[1])):
			diag.Die(tok.Cursor, "no file/directory given here")
		case arg == "-D":
			diag.Die(tok.Cursor, "no macro name given here")
		case arg == "-l:":
			diag.Die(tok.Cursor, "no file given here")
		}
		switch {
		case strings.HasPrefix(arg, "-I"):
			ret = append(ret, "/I"+t.Ify(arg[2:]))
		case strings.HasPrefix(arg, "-D"):
			ret = append(ret, "/D"+Stringify(arg[2:]))
		case strings.HasPrefix(arg, "-L"):
			linker = append(linker, "/LIBPATH:"+t.Ify(arg[2:]))
		case strings.HasPrefix(arg, "-l:"):
			ret = append(ret, t.Ify(arg[3:]))
		case strings.HasPrefix(arg, "-l"):
			ret = append(ret, t.Ify("lib"+arg[2:]+".lib"))
		case arg == "-o":
			if i == len(tokens)-1 {
				diag.Die(tok.Cursor, "no filename given after -o")
			}
			i++
			output = tokens[i].Text
		case arg == "-x":
			if i == len(tokens)-1 {
				diag.Die(tok.Cursor, "no language given after")
			}
			i++
			switch tokens[i].Text {
			case "c":
				ret = append(ret, "/TC")
			case "c++":
				ret = append(ret, "/TP")
			}
		default:
			out, ok := table[arg]
			switch {
			case !ok && action == Permissive:
				ret = append(ret, arg)
				continue
			case !ok:
				diag.Die(tok.Cursor, "unknown compiler option")
			}
			switch arg {
			case "-c":
				stage = compileOnly
			case "-S":
				stage = assemble
			case "-g":
				debug = true
			}
			if out == "" {
				ignored(arg, "msvc")
			} else {
				ret = append(ret, out)
			}
		}
	}

	// cl.exe always leaves object files named after the source next to the output, so each output
	// gets its own directory for them
	resdir := "cl.exe-side-files\\"
	if output != "" {
		resdir += t.Ify(t.Sanitize(output) + "-side-files\\")
	}
	if output != "" {
		switch stage {
		case assemble:
			ret = append(ret, "/Fa"+t.Ify(output), "/Fe"+resdir, "/Fo"+resdir)
		case compileOnly:
			ret = append(ret, "/Fo"+t.Ify(output))
		case compileLink:
			ret = append(ret, "/Fe"+t.Ify(output), "/Fo"+resdir)
		}
	}
	if debug {
		ret = append(ret, "/Fd"+resdir)
	}
	if fastMath {
		ret = append(ret, "/fp:fast")
	} else {
		ret = append(ret, "/fp:strict")
	}
	ret = append(ret, "/link", "/INCREMENTAL:NO")
	ret = append(ret, linker...)
	if debug || stage != assemble {
		ret[0] = "cmd /c ( if not exist " + resdir + " md " + resdir + " ) & cl"
	}
	return util.Uniq(ret)
}

var nvccStd = map[string]bool{
	"-std=c++03": true, "-std=c++11": true, "-std=c++14": true, "-std=c++17": true, "-std=c++20": true,
}

// nvcc keeps its own few options and hands everything else to the host compiler through -Xcompiler.
func (t *Translator) nvcc(ctx context.Context, info toolchain.Info, tokens []diag.Token, action Action) []string {
	host, err := t.Toolchains.Resolve(ctx, t.Toolchains.Host(info))
	if err != nil {
		diag.Die(tokens[0].Cursor, "%s", err.Error())
	}
	table := nvccFlags()
	ret := []string{info.Path, "-ccbin " + host.Path, "-m" + strconv.Itoa(info.Bits)}
	const xIndex = 2
	hostTokens := []diag.Token{tokens[0]}
	onlyCPP := true
	language := ""
	nextIsOutput := false

	for i := 1; i < len(tokens); i++ {
		tok := tokens[i]
		arg := tok.Text
		if arg == "--version" {
			return []string{info.Path, "--version"}
		}
		if arg == "-x" {
			if i == len(tokens)-1 {
				diag.Die(tok.Cursor, "no language given after")
			}
			i++
			language = tokens[i].Text
			continue
		}
		if arg == "-o" {
			nextIsOutput = true
		}
		if out, ok := table[arg]; ok {
			ret = append(ret, out)
			continue
		}
		switch {
		case arg == "-lm" || arg == "-lpthread":
			hostTokens = append(hostTokens, tok)
		case nvccStd[arg]:
			ret = append(ret, "-std c++"+arg[8:])
			hostTokens = append(hostTokens, tok)
		case arg == "-ffast-math":
			ret = append(ret, "--use_fast_math")
			hostTokens = append(hostTokens, tok)
		case strings.HasPrefix(arg, "-l:"):
			if len(arg) == 3 {
				diag.Die(tok.Cursor, "no file/directory given here")
			}
			ret = append(ret, "-l:"+t.Ify(arg[3:]))
		case len(arg) >= 2 && strings.ContainsRune("lLI", rune(arg[1])) && arg[0] == '-':
			if len(arg) == 2 {
				diag.Die(tok.Cursor, "no file/directory given here")
			}
			switch arg[1] {
			case 'l':
				ret = append(ret, "-l"+t.Ify(LibBasename(arg[2:])))
			case 'L':
				dir := t.Ify(arg[2:])
				ret = append(ret, "-L"+dir)
				if r := t.rpath(dir, host); r != "" {
					ret = append(ret, "-Xlinker '"+r+"'")
				}
			default:
				ret = append(ret, "-I"+t.Ify(arg[2:]))
			}
		case strings.HasPrefix(arg, "-D"):
			if len(arg) == 2 {
				diag.Die(tok.Cursor, "no macro name given here")
			}
			hostTokens = append(hostTokens, tok)
			ret = append(ret, arg)
		case strings.HasPrefix(arg, "-"):
			hostTokens = append(hostTokens, tok)
		default:
			// nvcc treats C++ sources as host only code, unlike the other offloading compilers
			if !nextIsOutput {
				lower := strings.ToLower(arg)
				if !strings.HasSuffix(lower, ".cc") && !strings.HasSuffix(lower, ".cpp") &&
					!strings.HasSuffix(lower, ".cxx") {
					onlyCPP = false
				}
			}
			ret = append(ret, Stringify(t.Sanitize(arg)))
			nextIsOutput = false
		}
	}

	switch {
	case language != "":
		ret = insertAt(ret, xIndex, "-x "+language)
	case onlyCPP:
		ret = insertAt(ret, xIndex, "-x cu")
	}

	hostArgs := t.compile(ctx, host, hostTokens, action)[1:]
	if len(hostArgs) > 0 {
		// nvcc output is not standard C++, -pedantic would flood the logs
		quoted := util.MappedSlice(hostArgs, func(a string) string {
			a = strings.ReplaceAll(a, " -pedantic", "")
			if strings.Contains(a, " ") {
				return "\"" + a + "\""
			}
			return a
		})
		ret = append(ret, "-Xcompiler "+strings.Join(quoted, ","))
	}
	return ret
}

func insertAt(s []string, i int, v string) []string {
	s = append(s, "")
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
