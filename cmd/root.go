package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenium-scale/nsconfig/log"
)

var rootCmd = &cobra.Command{
	Use:   "nsconfig [flags] [SOURCE_DIR]",
	Short: "Generates build files for ninja and make",
	Long: `nsconfig reads the build.nsconfig description of a project and generates
the build file of ninja (the default) or make in the current directory.
SOURCE_DIR defaults to the current directory. Long options may also be
given with a single dash, as in -comp=cc,gcc or -prefix=/usr.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	Run:           runGenerate,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	execute(os.Args[1:])
}

func execute(args []string) {
	rootCmd.PersistentFlags().BoolVarP(&log.Verbose, "verbose", "v", false, "Print debug output")
	rootCmd.SetArgs(singleDashLongOptions(args))
	if err := rootCmd.Execute(); err != nil {
		log.Error("%s\n", err)
		os.Exit(1)
	}
}

// singleDashLongOptions rewrites -NAME[=VALUE] into --NAME[=VALUE] when NAME is a long option of the root
// command. Other arguments, and every argument after "--", are kept.
func singleDashLongOptions(args []string) []string {
	result := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			return append(result, args[i:]...)
		}
		if len(arg) > 2 && arg[0] == '-' && arg[1] != '-' {
			name, _, _ := strings.Cut(arg[1:], "=")
			if len(name) > 1 && (rootCmd.Flags().Lookup(name) != nil || rootCmd.PersistentFlags().Lookup(name) != nil) {
				arg = "-" + arg
			}
		}
		result = append(result, arg)
	}
	return result
}
