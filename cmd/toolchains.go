package cmd

import (
	"github.com/spf13/cobra"
)

var toolchainsCmd = &cobra.Command{
	Use:   "toolchains",
	Args:  cobra.NoArgs,
	Short: "Lists the supported compiler suites",
	Long: `Lists the compiler suites that can be given to --suite, --ccomp, --cppcomp and --comp,
or declared in the toolchains section of the configuration file.`,
	Run: func(cmd *cobra.Command, args []string) {
		printSuites(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(toolchainsCmd)
}
