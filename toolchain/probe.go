package toolchain

import (
	"errors"
	"strconv"
	"strings"
)

var (
	errVersion = errors.New("Cannot determine compiler version")
	errArch    = errors.New("Cannot determine compiler target architecture")
)

// probeArgs returns the arguments making a compiler print its version banner.
func probeArgs(f Family) []string {
	switch f {
	case MSVC:
		return nil
	case GCC:
		return []string{"--verbose"}
	case XLC:
		return []string{"-qversion"}
	}
	return []string{"--version"}
}

// probed reports whether the version and architecture of a family are read from its banner.
func probed(f Family) bool {
	switch f {
	case GCC, Clang, ARMClang, MSVC, ICC:
		return true
	}
	return false
}

func isVersionNumber(word string) bool {
	if word == "" || strings.Trim(word, ".") == "" {
		return false
	}
	for _, c := range word {
		if c != '.' && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// VersionDigits extracts the version components from a compiler banner.
// The last line mentioning a version wins; its first word made of digits and dots is the version.
func VersionDigits(output string, f Family) []int {
	var digits []int
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "version") && !strings.Contains(line, "Version") &&
			!(f == ICC && strings.Contains(line, "icc (ICC) ")) {
			continue
		}
		digits = nil
		line = strings.NewReplacer("+", " ", "-", " ", ",", " ").Replace(line)
		for _, word := range strings.Fields(line) {
			if !isVersionNumber(word) {
				continue
			}
			for _, part := range strings.Split(word, ".") {
				n, _ := strconv.Atoi(part)
				digits = append(digits, n)
			}
			break
		}
	}
	return digits
}

// EncodeVersion turns version components into the integer compared by the flag tables:
// major*10000 + minor*100 + patch for most families (4.8.1 gives 40801), major*100 + minor for MSVC
// (19.28 gives 1928, the value of _MSC_VER).
func EncodeVersion(digits []int, f Family) (int, error) {
	if len(digits) < 2 {
		return 0, errVersion
	}
	if f == MSVC {
		return digits[0]*100 + digits[1], nil
	}
	v := digits[0]*10000 + min(digits[1], 99)*100
	if len(digits) > 2 {
		v += min(digits[2], 99)
	}
	return v, nil
}

// ParseArchitecture reads the target architecture out of a compiler banner.
func ParseArchitecture(output string, f Family) (Arch, int, error) {
	lines := strings.Split(strings.ReplaceAll(output, "\r", ""), "\n")
	switch f {
	case MSVC:
		words := strings.Fields(lines[0])
		if len(words) == 0 {
			return 0, 0, errArch
		}
		switch words[len(words)-1] {
		case "x64":
			return Intel, 64, nil
		case "x86":
			return Intel, 32, nil
		case "ARM":
			return ARMHF, 32, nil
		case "ARM64":
			return AArch64, 64, nil
		}
		return 0, 0, errArch
	case ICC:
		return Intel, 64, nil
	case GCC, Clang, ARMClang:
		found := false
		arch, bits := Intel, 32
		for _, line := range lines {
			if !strings.HasPrefix(line, "Target:") && !strings.HasPrefix(line, "Cible :") {
				continue
			}
			found = true
			switch {
			case strings.Contains(line, "aarch64"), strings.Contains(line, "arm64"):
				arch, bits = AArch64, 64
			case strings.Contains(line, "arm") && strings.Contains(line, "hf"):
				arch, bits = ARMHF, 32
			case strings.Contains(line, "arm"):
				arch, bits = ARMEL, 32
			case strings.Contains(line, "x86_64"):
				arch, bits = Intel, 64
			case strings.Contains(line, "powerpc64le"):
				arch, bits = PPC64EL, 64
			default:
				arch, bits = Intel, 32
			}
		}
		if !found {
			return 0, 0, errArch
		}
		return arch, bits, nil
	case Emscripten:
		return WASM, 32, nil
	case XLC:
		return PPC64EL, 64, nil
	case FCCTrad, FCCClang:
		return AArch64, 64, nil
	}
	return 0, 0, errArch
}

// ParseVersion encodes a version given on the command line, such as "9.3.0".
func ParseVersion(s string, f Family) (int, error) {
	if !isVersionNumber(s) {
		return 0, errVersion
	}
	var digits []int
	for _, part := range strings.Split(s, ".") {
		n, _ := strconv.Atoi(part)
		digits = append(digits, n)
	}
	if len(digits) == 1 {
		digits = append(digits, 0)
	}
	return EncodeVersion(digits, f)
}
