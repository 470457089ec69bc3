package shell

import (
	"github.com/agenium-scale/nsconfig/toolchain"
)

// flagTable maps a portable compiler flag to its translation. An empty translation drops the flag.
type flagTable map[string]string

var (
	stdFlags = []string{
		"-std=c89", "-std=c99", "-std=c11",
		"-std=c++98", "-std=c++03", "-std=c++11", "-std=c++14", "-std=c++17", "-std=c++20",
	}
	sseFlags  = []string{"-msse", "-msse2", "-msse3", "-mssse3", "-msse41", "-msse42"}
	avxFlags  = []string{"-mavx", "-mavx2", "-mavx512_knl", "-mavx512_skylake"}
	armFlags  = []string{"-mneon64", "-mneon128", "-maarch64"}
	sveFlags  = []string{"-msve", "-msve128", "-msve256", "-msve512", "-msve1024", "-msve2048"}
	cudaFlags = []string{"-msm_35", "-msm_50", "-msm_53", "-msm_60", "-msm_61", "-msm_62", "-msm_70", "-msm_72", "-msm_75"}
	miscFlags = []string{
		"-O0", "-O1", "-O2", "-O3", "-ffast-math", "-g", "-S", "-c", "-x", "-o", "-Wall", "-fPIC",
		"-static-libstdc++", "-mfma", "-mfp16", "-mvmx", "-mvsx", "-mwasm_simd128", "-fopenmp", "-shared",
		"-fdiagnostics-color=always", "-fno-omit-frame-pointer", "-vec-report", "-Werror", "--coverage",
	}
)

// unsupported returns a table knowing every portable flag, translating none of them.
func unsupported() flagTable {
	t := flagTable{}
	for _, group := range [][]string{stdFlags, sseFlags, avxFlags, armFlags, sveFlags, cudaFlags, miscFlags} {
		for _, f := range group {
			t[f] = ""
		}
	}
	return t
}

func (t flagTable) same(flags ...string) {
	for _, f := range flags {
		t[f] = f
	}
}

func (t flagTable) pedanticStd() {
	for _, f := range stdFlags {
		t[f] = f + " -pedantic"
	}
}

const (
	wallFull     = "-Wall -Wextra -Wdouble-promotion -Wconversion -Wsign-conversion"
	wallNoDouble = "-Wall -Wextra -Wconversion -Wsign-conversion"
	avx512KNL    = "-mavx512f -mavx512pf -mavx512er -mavx512cd"
	avx512SKL    = "-mavx512f -mavx512dq -mavx512cd -mavx512bw -mavx512vl"
	clangVecRpt  = "-Rpass=loop-vectorize -Rpass-missed=loop-vectorize -Rpass-analysis=loop-vectorize"
	clangNoOmit  = "-fno-omit-frame-pointer -mno-omit-leaf-frame-pointer"
	avxNoSplit   = " -mno-avx256-split-unaligned-load -mno-avx256-split-unaligned-store"
	sveArch      = "-march=armv8.2-a+sve"
)

func gccClangFlags(info toolchain.Info) flagTable {
	gcc := info.Family == toolchain.GCC
	t := unsupported()
	t.pedanticStd()
	if gcc && info.Version < 40801 {
		t["-std=c++11"] = "-std=c++0x"
	}
	if gcc && info.Version < 50000 {
		t["-std=c++14"] = "-std=c++1y"
	}
	t.same("-O0", "-O1", "-O2", "-O3", "-ffast-math", "-g", "-S", "-c", "-x", "-o", "-fPIC",
		"-msse", "-msse2", "-msse3", "-mssse3", "-mavx", "-mavx2",
		"-fopenmp", "-shared", "-fdiagnostics-color=always", "-fno-omit-frame-pointer", "-Werror", "--coverage")
	t["-Wall"] = wallFull
	if gcc && info.Version < 40500 {
		t["-Wall"] = wallNoDouble
	}
	t["-static-libstdc++"] = "-static-libstdc++ -static-libgcc"
	t["-msse41"] = "-msse4.1"
	t["-msse42"] = "-msse4.2"
	if gcc {
		t["-mavx"] += avxNoSplit
		t["-mavx2"] += avxNoSplit
	}
	t["-mavx512_knl"] = avx512KNL
	t["-mavx512_skylake"] = avx512SKL
	if info.Arch == toolchain.ARMEL {
		t["-mneon64"] = "-mfloat-abi=softfp -mfpu=neon"
		t["-mneon128"] = "-mfloat-abi=softfp -mfpu=neon"
	} else {
		t["-mneon64"] = "-mfpu=neon"
		t["-mneon128"] = "-mfpu=neon"
	}
	t["-msve"] = sveArch
	for _, bits := range []string{"128", "256", "512", "1024", "2048"} {
		t["-msve"+bits] = sveArch + " -msve-vector-bits=" + bits
	}
	t["-mvmx"] = "-mcpu=powerpc64le -maltivec"
	t["-mvsx"] = "-mcpu=powerpc64le -mvsx"
	if !gcc {
		for _, f := range cudaFlags {
			t[f] = "--cuda-gpu-arch=" + f[2:]
		}
		t["-mwasm_simd128"] = "-msimd128"
		t["-fno-omit-frame-pointer"] = clangNoOmit
	}
	switch info.Arch {
	case toolchain.Intel:
		t["-mfma"] = "-mfma"
		t["-mfp16"] = "-mf16c"
	case toolchain.AArch64:
		t["-mfp16"] = "-mfp16-format=ieee -march=armv8.2-a+fp16"
	}
	switch {
	case gcc && info.Version <= 40900:
		t["-vec-report"] = "-ftree-vectorizer-verbose=7"
	case gcc:
		t["-vec-report"] = "-fopt-info-vec-all"
	default:
		t["-vec-report"] = clangVecRpt
	}
	return t
}

func iccFlags() flagTable {
	t := unsupported()
	t.pedanticStd()
	t["-std=c++03"] = ""
	t.same("-O0", "-O1", "-O2", "-O3", "-g", "-S", "-c", "-o", "-x", "-fPIC",
		"-msse", "-msse2", "-msse3", "-mssse3", "-mavx", "-mavx2", "-mfma", "-fopenmp", "-shared", "-Werror")
	t["-Wall"] = wallNoDouble
	t["-static-libstdc++"] = "-static-libstdc++ -static-libgcc"
	t["-msse41"] = "-msse4.1"
	t["-msse42"] = "-msse4.2"
	t["-mavx512_knl"] = avx512KNL
	t["-mavx512_skylake"] = avx512SKL + " -march=skylake-avx512"
	t["-mfp16"] = "-mf16c"
	t["-fno-omit-frame-pointer"] = "-fno-omit-frame-pointer -mno-omit-leaf_frame-pointer"
	t["-vec-report"] = "-qopt-report -qopt-report-phase=vec -qopt-report-file=stdout"
	return t
}

func hipFlags() flagTable {
	t := unsupported()
	t.pedanticStd()
	t.same("-O0", "-O1", "-O2", "-O3", "-ffast-math", "-g", "-S", "-c", "-o", "-x", "-fPIC",
		"-fopenmp", "-shared", "-fdiagnostics-color=always", "-Werror", "--coverage")
	t["-Wall"] = wallFull
	t["-static-libstdc++"] = "-static-libstdc++ -static-libgcc"
	for _, f := range cudaFlags {
		t[f] = "--cuda-gpu-arch=" + f[2:]
	}
	t["-fno-omit-frame-pointer"] = clangNoOmit
	t["-vec-report"] = clangVecRpt
	return t
}

func emscriptenFlags() flagTable {
	t := unsupported()
	t.pedanticStd()
	delete(t, "-ffast-math")
	t.same("-O0", "-O1", "-O2", "-O3", "-g", "-S", "-c", "-o", "-x", "-shared", "-Werror")
	t["-Wall"] = wallFull
	t["-mwasm_simd128"] = "-msimd128"
	t["-vec-report"] = clangVecRpt
	return t
}

func xlcFlags() flagTable {
	t := unsupported()
	t["-std=c89"] = "-qlanglvl=stdc89"
	t["-std=c99"] = "-qlanglvl=stdc99"
	t["-std=c11"] = "-qlanglvl=stdc11"
	t["-std=c++11"] = "-qlanglvl=extended0x"
	t["-std=c++14"] = "-qlanglvl=extended1y"
	t["-std=c++17"] = "-qlanglvl=extended1y"
	t["-std=c++20"] = "-qlanglvl=extended1y"
	t["-O1"] = "-qoptimize=0"
	t["-O2"] = "-qoptimize=2"
	t["-O3"] = "-qoptimize=4"
	t.same("-g", "-S", "-c", "-o", "-x")
	t["-fPIC"] = "-qpic"
	t["-fopenmp"] = "-qsmp=omp"
	t["-shared"] = "-qmkshrobj"
	t["-Werror"] = "-qhalt=w"
	return t
}

func fccFlags(info toolchain.Info) flagTable {
	t := unsupported()
	delete(t, "-x")
	for _, f := range stdFlags {
		t[f] = f
	}
	t["-std=c++98"] = "-std=c++03"
	t["-std=c++20"] = "-std=c++17"
	t.same("-O0", "-O1", "-O2", "-O3", "-g", "-S", "-c", "-o", "-fPIC", "-fopenmp", "-shared",
		"-fno-omit-frame-pointer")
	if info.Family == toolchain.FCCClang {
		t["-Werror"] = "-Werror"
	}
	if info.Family == toolchain.FCCTrad {
		t["-msve"] = "-KSVE -Ksimd_reg_size=agnostic"
		t["-msve128"] = "-KSVE -Ksimd_reg_size=128"
		t["-msve256"] = "-KSVE -Ksimd_reg_size=256"
		t["-msve512"] = "-KSVE -Ksimd_reg_size=512"
	} else {
		t["-msve"] = "-mcpu=generic+sve+fp16"
	}
	return t
}

func msvcFlags(info toolchain.Info) flagTable {
	t := unsupported()
	switch {
	case info.Version >= 1911:
		t["-std=c++14"] = "/std:c++14"
		t["-std=c++17"] = "/std:c++17"
		t["-std=c++20"] = "/std:c++latest"
	case info.Version >= 1900:
		t["-std=c++14"] = "/std:c++14"
		t["-std=c++17"] = "/std:c++latest"
		t["-std=c++20"] = "/std:c++latest"
	}
	if info.Version > 1900 {
		for _, f := range []string{"-std=c++98", "-std=c++03", "-std=c++11", "-std=c++14", "-std=c++17", "-std=c++20"} {
			if t[f] == "" {
				t[f] = "/Zc:__cplusplus"
			} else {
				t[f] += " /Zc:__cplusplus"
			}
		}
	}
	t["-O0"] = "/Od"
	t["-O1"] = "/O2"
	t["-O2"] = "/Ox"
	t["-O3"] = "/Ox"
	t["-g"] = "/Zi"
	t["-S"] = "/FA"
	t["-c"] = "/c"
	t["-Wall"] = "/W3"
	t["-Werror"] = "/WX"
	t["-static-libstdc++"] = "/MT"
	if info.Bits == 32 {
		t["-msse"] = "/arch:SSE"
		t["-msse2"] = "/arch:SSE2"
		t["-fno-omit-frame-pointer"] = "/Oy-"
	}
	t["-mavx"] = "/arch:AVX"
	t["-mavx2"] = "/arch:AVX2"
	t["-mavx512_knl"] = "/arch:AVX512"
	t["-mavx512_skylake"] = "/arch:AVX512"
	if info.Arch == toolchain.ARMEL {
		t["-mfma"] = "/arch:VFPv4"
	}
	t["-fopenmp"] = "/openmp"
	t["-shared"] = "/LD"
	if info.Version >= 1800 {
		t["-vec-report"] = "/Qvec-report:2"
	}
	return t
}

func nvccFlags() flagTable {
	t := flagTable{}
	for _, f := range cudaFlags {
		t[f] = "-arch=" + f[2:]
	}
	t.same("-c", "-o", "-shared")
	t["-S"] = "--ptx"
	t["-g"] = "-g -G -lineinfo"
	return t
}
