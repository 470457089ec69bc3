package toolchain

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/agenium-scale/nsconfig/log"
	"github.com/agenium-scale/nsconfig/sys"
	"github.com/agenium-scale/nsconfig/util"
)

// Declaration is a compiler given explicitly by the user, as "SUITE,PATH[,VERSION,ARCH]".
type Declaration struct {
	Suite   string `yaml:"suite" mapstructure:"suite"`
	Path    string `yaml:"path" mapstructure:"path"`
	Version string `yaml:"version,omitempty" mapstructure:"version"`
	Arch    string `yaml:"arch,omitempty" mapstructure:"arch"`
}

// ParseDeclaration parses "SUITE,PATH[,VERSION,ARCH]". PATH may be empty to use the suite's default driver.
func ParseDeclaration(s string) (Declaration, error) {
	parts := strings.Split(s, ",")
	switch len(parts) {
	case 1:
		return Declaration{Suite: parts[0]}, nil
	case 2:
		return Declaration{Suite: parts[0], Path: parts[1]}, nil
	case 4:
		return Declaration{Suite: parts[0], Path: parts[1], Version: parts[2], Arch: parts[3]}, nil
	}
	return Declaration{}, fmt.Errorf("wrong format for compiler %q, expected SUITE,PATH[,VERSION,ARCH]", s)
}

// Registry resolves compiler heads to toolchain infos. Every compiler is resolved at most once per run.
type Registry struct {
	HostOS   string
	BuildDir string
	FS       sys.FS
	Runner   sys.Runner

	infos   util.OrderedMap[string, Info]
	pending map[string]Info
}

func NewRegistry(hostOS, buildDir string, fs sys.FS, runner sys.Runner) *Registry {
	return &Registry{
		HostOS:   hostOS,
		BuildDir: buildDir,
		FS:       fs,
		Runner:   runner,
		infos:    util.NewOrderedMap[string, Info](),
		pending:  map[string]Info{},
	}
}

func roleLang(name string, s suite) Lang {
	switch name {
	case "cc":
		return C
	case "c++", "cuda-host-c++":
		return CPP
	}
	return s.lang
}

// Declare records an explicit compiler for a role or command. It must happen before the first Resolve of name.
func (r *Registry) Declare(name string, d Declaration) error {
	if r.infos.Has(name) {
		return fmt.Errorf("compiler %q is declared after its first use", name)
	}
	s, ok := suites[d.Suite]
	if !ok {
		return fmt.Errorf("unknown compiler type %q%s", d.Suite, util.DidYouMean(d.Suite, Suites()))
	}
	info := Info{Name: name, Path: d.Path, Family: s.family, Lang: roleLang(name, s)}
	if info.Path == "" {
		info.Path = s.path
	}
	if (d.Version == "") != (d.Arch == "") {
		return fmt.Errorf("compiler %q: version and architecture must be given together", name)
	}
	if d.Version == "" {
		r.pending[name] = info
		return nil
	}
	var err error
	if info.Version, err = ParseVersion(d.Version, info.Family); err != nil {
		return errors.Wrapf(err, "compiler %q", name)
	}
	if info.Arch, info.Bits, err = ParseArch(d.Arch); err != nil {
		return errors.Wrapf(err, "compiler %q", name)
	}
	r.infos.Insert(name, info)
	return nil
}

// Declared reports whether name was given by the user or already resolved.
func (r *Registry) Declared(name string) bool {
	_, ok := r.pending[name]
	return ok || r.infos.Has(name)
}

// Host returns the name of the host compiler driven by a cross compiler.
func (r *Registry) Host(cross Info) string {
	if cross.Name == "c++" || r.Declared("cuda-host-c++") {
		return "cuda-host-c++"
	}
	return "c++"
}

// Infos returns the resolved compilers ordered by name.
func (r *Registry) Infos() []Info {
	return r.infos.Values()
}

// Resolve returns the infos of a compiler head, detecting and probing it on first use.
func (r *Registry) Resolve(ctx context.Context, name string) (Info, error) {
	if info, ok := r.infos.Lookup(name); ok {
		return info, nil
	}
	info, ok := r.pending[name]
	if !ok {
		var err error
		if info, err = r.detect(ctx, name); err != nil {
			return Info{}, err
		}
	}
	if err := r.fill(ctx, &info); err != nil {
		return Info{}, err
	}
	delete(r.pending, name)
	r.infos.Insert(name, info)
	log.Debug("Compiler: %s\n", info)
	return info, nil
}

func (r *Registry) canExec(ctx context.Context, argv ...string) bool {
	res, err := r.Runner.Run(ctx, sys.Command(argv...))
	return err == nil && res.Code == 0
}

func (r *Registry) detect(ctx context.Context, name string) (Info, error) {
	var candidates []string
	switch name {
	case "cc":
		log.Debug("Automatic C compiler detection\n")
		candidates = []string{"clang", "gcc"}
	case "c++", "cuda-host-c++":
		log.Debug("Automatic C++ compiler detection\n")
		candidates = []string{"clang++", "g++"}
	default:
		s, ok := suites[name]
		if !ok {
			return Info{}, fmt.Errorf("unknown compiler %q", name)
		}
		return Info{Name: name, Path: s.path, Family: s.family, Lang: roleLang(name, s)}, nil
	}
	if r.HostOS == util.Windows {
		candidates = append([]string{"cl"}, candidates...)
	}
	for _, c := range candidates {
		s := suites[c]
		args := []string{c, "--version"}
		if s.family == MSVC {
			args = args[:1]
		}
		if r.canExec(ctx, args...) {
			return Info{Name: name, Path: s.path, Family: s.family, Lang: roleLang(name, s)}, nil
		}
	}
	return Info{}, errors.New("Cannot find a viable compiler")
}

func (r *Registry) fill(ctx context.Context, info *Info) error {
	switch {
	case probed(info.Family):
		output, err := r.probe(ctx, *info)
		if err != nil {
			return err
		}
		if info.Version, err = EncodeVersion(VersionDigits(output, info.Family), info.Family); err != nil {
			return errors.Wrapf(err, "%s", info.Path)
		}
		if info.Arch, info.Bits, err = ParseArchitecture(output, info.Family); err != nil {
			return errors.Wrapf(err, "%s", info.Path)
		}
	case info.Family.Cross():
		host, err := r.Resolve(ctx, r.Host(*info))
		if err != nil {
			return errors.Wrapf(err, "host compiler of %s", info.Path)
		}
		info.Arch, info.Bits = host.Arch, host.Bits
	default:
		var err error
		if info.Arch, info.Bits, err = ParseArchitecture("", info.Family); err != nil {
			return errors.Wrapf(err, "%s", info.Path)
		}
	}
	return nil
}

// probe runs the compiler to print its banner, keeping a copy under the compiler infos directory.
func (r *Registry) probe(ctx context.Context, info Info) (string, error) {
	command := sys.Command(append([]string{info.Path}, probeArgs(info.Family)...)...)
	stop := log.Progress("Probing " + info.Path)
	res, err := r.Runner.Run(ctx, command)
	stop()
	if err != nil {
		return "", err
	}
	if res.Code != 0 {
		return "", fmt.Errorf("Command %q fails", command)
	}
	dir := path.Join(r.BuildDir, util.CompilerInfosDir)
	if err := r.FS.MkdirAll(dir); err != nil {
		return "", err
	}
	name := path.Join(dir, util.DottedName(info.Path)+"-version.txt")
	if err := r.FS.WriteFile(name, []byte(res.Output()), util.FileMode); err != nil {
		return "", err
	}
	return res.Output(), nil
}

const msvcProbeHeader = "4294967291.hpp"

// MSVCDepsPrefix finds the prefix cl.exe prints in front of /showIncludes lines, as needed by ninja's msvc deps.
func (r *Registry) MSVCDepsPrefix(ctx context.Context, cl string) (string, error) {
	dir := path.Join(r.BuildDir, util.CompilerInfosDir)
	if err := r.FS.MkdirAll(dir); err != nil {
		return "", err
	}
	src := "msvc_deps_prefix.cpp"
	if err := r.FS.WriteFile(path.Join(dir, msvcProbeHeader), []byte("#define FOO\n"), util.FileMode); err != nil {
		return "", err
	}
	code := "#include \"" + msvcProbeHeader + "\"\nint main() {return 0;}"
	if err := r.FS.WriteFile(path.Join(dir, src), []byte(code), util.FileMode); err != nil {
		return "", err
	}
	command := "cd " + sys.Command(dir) + " & " + sys.Command(cl) + " /nologo /showIncludes " + src
	res, err := r.Runner.Run(ctx, command)
	if err == nil && res.Code == 0 {
		for _, line := range strings.Split(res.Stdout, "\n") {
			if !strings.Contains(line, msvcProbeHeader) {
				continue
			}
			first := strings.IndexByte(line, ':')
			if first < 0 {
				break
			}
			second := strings.IndexByte(line[first+1:], ':')
			if second < 0 {
				break
			}
			return line[:first+second+2], nil
		}
	}
	return "", errors.New("Cannot get MSVC prefix when /showIncludes")
}
