package util

import (
	"os"
	"path"
	"strings"
)

// FileMode is the default FileMode used when creating files.
const FileMode = 0664

// ScriptFileMode is used for the shell scripts a backend writes next to its build file.
const ScriptFileMode = 0755

// DescriptionFileName is the name of the build description read from the source directory.
const DescriptionFileName = "build.nsconfig"

// CompilerInfosDir holds the captured outputs of toolchain probes.
const CompilerInfosDir = "_compiler_infos"

// NinjaScriptsDir holds the scripts that replace commands too long for the host shell.
const NinjaScriptsDir = "_ninja_build_scripts"

// Windows is the GOOS value of the only host whose shell syntax differs from POSIX sh.
const Windows = "windows"

// DirExists checks whether some directory exists.
func DirExists(dir string) bool {
	stat, err := os.Stat(dir)
	return err == nil && stat.IsDir()
}

// Sanitize converts a slash-separated path to the native form of the host.
func Sanitize(hostOS, p string) string {
	if hostOS == Windows {
		return strings.ReplaceAll(p, "/", "\\")
	}
	return p
}

// Basename returns the last element of a path, accepting both separators.
func Basename(p string) string {
	if i := strings.LastIndexAny(p, "/\\"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Dirname returns everything before the last separator, or "" if there is none.
func Dirname(p string) string {
	if i := strings.LastIndexAny(p, "/\\"); i >= 0 {
		return p[:i]
	}
	return ""
}

// SplitExt splits the basename of p into its root and extension. The extension keeps its leading dot.
func SplitExt(p string) (string, string) {
	base := Basename(p)
	ext := path.Ext(base)
	return strings.TrimSuffix(base, ext), ext
}

// DottedName replaces path separators by dots so that a path can be used as a flat identifier.
func DottedName(p string) string {
	return strings.NewReplacer("/", ".", "\\", ".").Replace(p)
}
