// Package toolchain discovers compilers and determines their family, version and target architecture.
package toolchain

import (
	"fmt"
	"sort"
	"strings"
)

// Family identifies the command line dialect of a compiler.
type Family int

const (
	None Family = iota
	GCC
	Clang
	ARMClang
	MSVC
	ICC
	NVCC
	HIPCC
	HCC
	DPCpp
	Emscripten
	XLC
	FCCTrad
	FCCClang
)

var familyNames = map[Family]string{
	None:       "none",
	GCC:        "gcc",
	Clang:      "clang",
	ARMClang:   "armclang",
	MSVC:       "msvc",
	ICC:        "icc",
	NVCC:       "nvcc",
	HIPCC:      "hipcc",
	HCC:        "hcc",
	DPCpp:      "dpcpp",
	Emscripten: "emscripten",
	XLC:        "xlc",
	FCCTrad:    "fcc_trad_mode",
	FCCClang:   "fcc_clang_mode",
}

func (f Family) String() string {
	return familyNames[f]
}

// Cross reports whether the compiler drives a host compiler and inherits its architecture.
func (f Family) Cross() bool {
	return f == NVCC || f == HIPCC || f == HCC || f == DPCpp
}

// Arch is the target architecture of a compiler.
type Arch int

const (
	Intel Arch = iota
	ARMEL
	ARMHF
	AArch64
	PPC64EL
	WASM
)

func (a Arch) String() string {
	switch a {
	case Intel:
		return "Intel"
	case ARMEL, ARMHF, AArch64:
		return "ARM"
	case PPC64EL:
		return "POWER"
	default:
		return "WebAssembly"
	}
}

// Lang is the language a compiler role is detected for.
type Lang int

const (
	Unknown Lang = iota
	C
	CPP
)

// Info describes a resolved compiler.
type Info struct {
	// Name is the role or command the compiler was asked under: "cc", "c++", "nvcc"...
	Name    string
	Path    string
	Family  Family
	Arch    Arch
	Bits    int
	Version int
	Lang    Lang
}

func (i Info) String() string {
	return fmt.Sprintf("%q version %d for %s %d bits", i.Path, i.Version, i.Arch, i.Bits)
}

// Suite returns the compiler suite as given to -comp, "g++" or "clang++" for C++ roles.
func (i Info) Suite() string {
	if i.Lang == CPP {
		switch i.Family {
		case GCC:
			return "g++"
		case Clang:
			return "clang++"
		}
	}
	if i.Family == ARMClang {
		return "clang"
	}
	return i.Family.String()
}

type suite struct {
	family Family
	path   string
	lang   Lang
}

// suites maps every command accepted as a compiler head to its family and default executable.
var suites = map[string]suite{
	"gcc":            {GCC, "gcc", C},
	"g++":            {GCC, "g++", CPP},
	"mingw":          {GCC, "gcc", C},
	"clang":          {Clang, "clang", C},
	"clang++":        {Clang, "clang++", CPP},
	"armclang":       {ARMClang, "armclang", C},
	"armclang++":     {ARMClang, "armclang++", CPP},
	"msvc":           {MSVC, "cl", Unknown},
	"cl":             {MSVC, "cl", Unknown},
	"icc":            {ICC, "icc", Unknown},
	"nvcc":           {NVCC, "nvcc", CPP},
	"hipcc":          {HIPCC, "hipcc", CPP},
	"hcc":            {HCC, "hcc", CPP},
	"dpcpp":          {DPCpp, "dpcpp", CPP},
	"emcc":           {Emscripten, "emcc", C},
	"em++":           {Emscripten, "em++", CPP},
	"xlc":            {XLC, "xlc", C},
	"xlc++":          {XLC, "xlc++", CPP},
	"fcc_trad_mode":  {FCCTrad, "fcc", C},
	"FCC_trad_mode":  {FCCTrad, "FCC", CPP},
	"fcc_clang_mode": {FCCClang, "fcc", C},
	"FCC_clang_mode": {FCCClang, "FCC", CPP},
}

// Roles are compiler heads resolved by detection or declaration instead of by name.
var Roles = []string{"cc", "c++", "cuda-host-c++"}

// FamilyOf returns the family of a suite name such as "gcc" or "clang++".
func FamilyOf(name string) (Family, bool) {
	s, ok := suites[name]
	return s.family, ok
}

// IsCompiler reports whether a command head designates a compiler.
func IsCompiler(head string) bool {
	if _, ok := suites[head]; ok {
		return true
	}
	for _, r := range Roles {
		if r == head {
			return true
		}
	}
	return false
}

// Suites returns the sorted list of accepted suite names.
func Suites() []string {
	names := make([]string, 0, len(suites))
	for n := range suites {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// CorrespondingCPP returns the C++ driver matching a C suite, or "" if there is none.
func CorrespondingCPP(c string) string {
	switch c {
	case "gcc":
		return "g++"
	case "cl", "msvc":
		return "cl"
	case "clang":
		return "clang++"
	case "armclang":
		return "armclang++"
	case "icc":
		return "icc"
	case "emcc":
		return "em++"
	case "xlc":
		return "xlc++"
	}
	return ""
}

// ParseArch converts the architecture names accepted on the command line.
func ParseArch(s string) (Arch, int, error) {
	switch strings.ToLower(s) {
	case "x86":
		return Intel, 32, nil
	case "x86_64":
		return Intel, 64, nil
	case "arm", "armel":
		return ARMEL, 32, nil
	case "armhf":
		return ARMHF, 32, nil
	case "aarch64":
		return AArch64, 64, nil
	case "ppc64el", "ppc64le":
		return PPC64EL, 64, nil
	case "wasm":
		return WASM, 32, nil
	}
	return 0, 0, fmt.Errorf("unknown architecture %q, expected x86, x86_64, arm, armhf, aarch64, ppc64el or wasm", s)
}
