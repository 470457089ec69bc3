package parser

// Kind is the kind of a statement, given by its first word.
type Kind int

const (
	KindUnknown Kind = iota
	KindSet
	KindIfnotSet
	KindGetenv
	KindGlob
	KindIfnotGlob
	KindPopen
	KindFindExe
	KindFindHeader
	KindFindLib
	KindInclude
	KindBuildFile
	KindBuildFiles
	KindPhony
	KindBeginTranslateIf
	KindEndTranslate
	KindEcho
	KindPackageName
	KindInstallFile
	KindInstallDir
	KindDisableAll
	KindDisableClean
	KindDisableUpdate
	KindDisableInstall
	KindDisablePackage
)

// Keywords lists the statements in the order they are suggested to the user.
var Keywords = []string{
	"disable_all",
	"disable_update",
	"disable_clean",
	"disable_install",
	"disable_package",
	"set",
	"ifnot_set",
	"glob",
	"popen",
	"ifnot_glob",
	"getenv",
	"build_file",
	"phony",
	"build_files",
	"find_exe",
	"find_lib",
	"find_header",
	"echo",
	"include",
	"install_dir",
	"install_file",
	"package_name",
	"begin_translate_if",
	"end_translate",
}

var kinds = map[string]Kind{
	"set":                KindSet,
	"ifnot_set":          KindIfnotSet,
	"getenv":             KindGetenv,
	"glob":               KindGlob,
	"ifnot_glob":         KindIfnotGlob,
	"popen":              KindPopen,
	"find_exe":           KindFindExe,
	"find_header":        KindFindHeader,
	"find_lib":           KindFindLib,
	"include":            KindInclude,
	"build_file":         KindBuildFile,
	"build_files":        KindBuildFiles,
	"phony":              KindPhony,
	"begin_translate_if": KindBeginTranslateIf,
	"end_translate":      KindEndTranslate,
	"echo":               KindEcho,
	"package_name":       KindPackageName,
	"install_file":       KindInstallFile,
	"install_dir":        KindInstallDir,
	"disable_all":        KindDisableAll,
	"disable_clean":      KindDisableClean,
	"disable_update":     KindDisableUpdate,
	"disable_install":    KindDisableInstall,
	"disable_package":    KindDisablePackage,
}

// Classify returns the kind of the statement starting with head.
func Classify(head string) Kind {
	return kinds[head]
}

// constants are the values of `set` and `ifnot_set` computed by nsconfig.
var constants = []string{
	"@source_dir",
	"@build_dir",
	"@obj_ext",
	"@asm_ext",
	"@static_lib_ext",
	"@shared_lib_ext",
	"@shared_link_ext",
	"@exe_ext",
	"@make_command",
	"@prefix",
	"@ccomp_suite",
	"@ccomp_path",
	"@cppcomp_suite",
	"@cppcomp_path",
}
