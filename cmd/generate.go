package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/agenium-scale/nsconfig/backend"
	"github.com/agenium-scale/nsconfig/config"
	"github.com/agenium-scale/nsconfig/log"
	"github.com/agenium-scale/nsconfig/parser"
	"github.com/agenium-scale/nsconfig/sys"
	"github.com/agenium-scale/nsconfig/toolchain"
	"github.com/agenium-scale/nsconfig/util"
	"github.com/agenium-scale/nsconfig/vcs"
)

const listVarsGenerator = "list-vars"

type generatorInfo struct{ name, description string }

var generators = []generatorInfo{
	{"make", "POSIX Makefile"},
	{"gnumake", "GNU Makefile"},
	{"nmake", "Microsoft Visual Studio NMake Makefile"},
	{"ninja", "Ninja build file (this is the default)"},
	{listVarsGenerator, "List project specific variables"},
}

func generatorNames() []string {
	return util.MappedSlice(generators, func(g generatorInfo) string { return g.name })
}

type generateFlags struct {
	defines   []string
	generator string
	comps     []string
	suite     string
	ccomp     string
	cppcomp   string
	output    string
	prefix    string
	listVars  bool
	nodev     bool
}

var flags generateFlags

func init() {
	f := rootCmd.Flags()
	f.StringArrayVarP(&flags.defines, "define", "D", nil, "Define variable VAR as VALUE, given as VAR=VALUE")
	f.StringVarP(&flags.generator, "generator", "G", "", "Generate a build file for GEN, help lists the generators")
	f.StringArrayVar(&flags.comps, "comp", nil, "Use a compiler for COMMAND, given as COMMAND,SUITE[,PATH[,VERSION,ARCH]]")
	f.StringVar(&flags.suite, "suite", "", "Use SUITE for the C compiler and its C++ counterpart for the C++ compiler")
	f.StringVar(&flags.ccomp, "ccomp", "", "Use a C compiler, given as SUITE,PATH[,VERSION,ARCH], help lists the suites")
	f.StringVar(&flags.cppcomp, "cppcomp", "", "Use a C++ compiler, given as SUITE,PATH[,VERSION,ARCH], help lists the suites")
	f.StringVarP(&flags.output, "output", "o", "", "Output file, build.ninja or Makefile by default")
	f.StringVar(&flags.prefix, "prefix", "", "Installation prefix")
	f.BoolVar(&flags.listVars, "list-vars", false, "List project specific variables")
	f.BoolVar(&flags.nodev, "nodev", false, "Build system will never call nsconfig")

	rootCmd.RegisterFlagCompletionFunc("generator",
		func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return generatorNames(), cobra.ShellCompDirectiveNoFileComp
		})
}

func runGenerate(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	srcDir := "."
	if len(args) == 1 {
		srcDir = args[0]
	}
	if err := generate(ctx, cmd.OutOrStdout(), flags, srcDir, os.Args); err != nil {
		log.Fatal("%s\n", err)
	}
}

// generate runs nsconfig on the sources in srcDir. argv is the command line written into the generated file.
func generate(ctx context.Context, out io.Writer, f generateFlags, srcDir string, argv []string) error {
	cfg := config.Get()
	if cfg.Verbose {
		log.Verbose = true
	}

	generator := f.generator
	if f.listVars {
		generator = listVarsGenerator
	}
	if generator == "" {
		generator = cfg.Generator
	}
	if generator == "help" {
		printGenerators(out)
		return nil
	}
	if f.ccomp == "help" || f.cppcomp == "help" {
		printSuites(out)
		return nil
	}

	hostOS := runtime.GOOS
	srcAbs, err := filepath.Abs(srcDir)
	if err != nil {
		return errors.Wrapf(err, "cannot access source directory %s", srcDir)
	}
	if !util.DirExists(srcAbs) {
		return errors.Errorf("source directory %s does not exist", srcDir)
	}
	srcAbs = filepath.ToSlash(srcAbs)

	b, defaultOutput, err := newBackend(generator)
	if err != nil {
		return err
	}
	output := f.output
	if output == "" {
		output = defaultOutput
	}
	buildDir, err := filepath.Abs(filepath.Dir(output))
	if err != nil {
		return errors.Wrapf(err, "cannot access build directory of %s", output)
	}
	prefix := f.prefix
	if prefix == "" {
		prefix = cfg.Prefix
	}
	if prefix == "" {
		prefix = defaultPrefix(hostOS)
	}

	opts := parser.Options{
		HostOS:          hostOS,
		SourceDir:       srcAbs,
		BuildDir:        filepath.ToSlash(buildDir),
		DescriptionFile: path.Join(srcAbs, util.DescriptionFileName),
		OutputFile:      filepath.ToSlash(output),
		CommandLine:     sys.Command(argv...),
		Prefix:          prefix,
		Regenerate:      !f.nodev,
	}
	if b != nil {
		opts.MakeCommand = b.Command()
		opts.SelfRegenerating = b.SelfRegenerating()
		opts.HeaderDeps = b.HeaderDeps()
	}
	log.Debug("Source directory: %s, build directory: %s\n", opts.SourceDir, opts.BuildDir)

	fs := sys.OSFileSystem{}
	c := parser.NewContext(opts, fs, sys.ShellRunner{})
	c.Stdout = out

	decls, err := declarations(cfg.Toolchains, f)
	if err != nil {
		return err
	}
	for _, name := range util.OrderedKeys(decls) {
		if err := c.Toolchains.Declare(name, decls[name]); err != nil {
			return err
		}
	}
	for _, d := range f.defines {
		name, value, err := parseDefine(d)
		if err != nil {
			return err
		}
		c.Store.SetIfAbsent(name, value)
	}

	if b == nil {
		helps, err := c.ListVariables(ctx)
		if err != nil {
			return err
		}
		printVariables(out, helps)
		return nil
	}

	g, err := c.Parse(ctx)
	if errors.Is(err, parser.ErrNothingToDo) {
		fmt.Fprintln(out, err)
		return nil
	}
	if err != nil {
		return err
	}

	revision, err := vcs.SourceRevision(srcAbs)
	if err != nil {
		log.Warning("Cannot read the source revision: %s\n", err)
	}
	header := backend.Header{CommandLine: opts.CommandLine, Revision: revision}
	switch b := b.(type) {
	case *backend.Ninja:
		b.Header = header
		b.Translator = c.Translator
		b.FS = fs
		b.BuildDir = opts.BuildDir
		if b.MSVCDepsPrefix, err = backend.MSVCDepsPrefix(ctx, c.Toolchains); err != nil {
			return err
		}
	case *backend.Make:
		b.Header = header
		b.Translator = c.Translator
	}
	return backend.Write(fs, output, b, g)
}

// newBackend returns the backend of a generator with its default output file. It returns a nil backend for
// list-vars.
func newBackend(generator string) (backend.Backend, string, error) {
	switch generator {
	case "ninja":
		return &backend.Ninja{}, "build.ninja", nil
	case "make":
		return &backend.Make{Dialect: backend.POSIX}, "Makefile", nil
	case "gnumake":
		return &backend.Make{Dialect: backend.GNU}, "Makefile", nil
	case "nmake":
		return &backend.Make{Dialect: backend.NMake}, "Makefile", nil
	case listVarsGenerator:
		return nil, "", nil
	}
	return nil, "", errors.Errorf("unknown generator %q%s", generator, util.DidYouMean(generator, generatorNames()))
}

func defaultPrefix(hostOS string) string {
	if hostOS == util.Windows {
		return "C:/Program Files"
	}
	return "/opt/local"
}

func parseDefine(s string) (string, string, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return "", "", errors.Errorf("cannot parse define directive %q, expected VAR=VALUE", s)
	}
	return name, value, nil
}

// declarations merges the compilers of the configuration with those of the command line. --comp wins over
// --ccomp and --cppcomp, which win over --suite.
func declarations(configured []config.Toolchain, f generateFlags) (map[string]toolchain.Declaration, error) {
	decls := map[string]toolchain.Declaration{}
	for _, t := range configured {
		decls[t.Command] = t.Declaration
	}

	if f.suite != "" {
		cpp := toolchain.CorrespondingCPP(f.suite)
		if cpp == "" {
			return nil, errors.Errorf("cannot get corresponding C++ compiler of %q", f.suite)
		}
		decls["cc"] = toolchain.Declaration{Suite: f.suite}
		decls["c++"] = toolchain.Declaration{Suite: cpp}
	}

	for name, s := range map[string]string{"cc": f.ccomp, "c++": f.cppcomp} {
		if s == "" {
			continue
		}
		if n := strings.Count(s, ",") + 1; n != 2 && n != 4 {
			return nil, errors.Errorf("wrong format for %s compiler %q, expected SUITE,PATH[,VERSION,ARCH]",
				name, s)
		}
		d, err := toolchain.ParseDeclaration(s)
		if err != nil {
			return nil, err
		}
		decls[name] = d
	}

	for _, s := range f.comps {
		name, rest, ok := strings.Cut(s, ",")
		if !ok || name == "" {
			return nil, errors.Errorf("wrong format for compiler %q, expected COMMAND,SUITE[,PATH[,VERSION,ARCH]]", s)
		}
		d, err := toolchain.ParseDeclaration(rest)
		if err != nil {
			return nil, err
		}
		decls[name] = d
	}
	return decls, nil
}

func printGenerators(out io.Writer) {
	fmt.Fprintln(out, "Supported generators:")
	for _, g := range generators {
		fmt.Fprintf(out, "  %-10s %s\n", g.name, g.description)
	}
}

func printSuites(out io.Writer) {
	fmt.Fprintln(out, "Supported compiler suites:")
	for _, s := range toolchain.Suites() {
		fmt.Fprintf(out, "  %s\n", s)
	}
}

// printVariables prints the variables documented by a project as a two-column table.
func printVariables(out io.Writer, helps []parser.Help) {
	if len(helps) == 0 {
		fmt.Fprintln(out, "Project variables list: (none)")
		return
	}
	wname, wdesc := len("name"), len("description")
	for _, h := range helps {
		wname = max(wname, len(h.Name))
		wdesc = max(wdesc, len(h.Description))
	}
	wname++
	wdesc++

	fmt.Fprintln(out, "Project variables list:")
	fmt.Fprintf(out, "%-*s| description\n", wname, "name")
	fmt.Fprintf(out, "%s|%s\n", strings.Repeat("-", wname), strings.Repeat("-", wdesc))
	for _, h := range helps {
		fmt.Fprintf(out, "%-*s| %s\n", wname, h.Name, h.Description)
	}
}
