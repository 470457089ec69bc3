package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/agenium-scale/nsconfig/log"
)

var listVarsCmd = &cobra.Command{
	Use:   "list-vars [SOURCE_DIR]",
	Args:  cobra.MaximumNArgs(1),
	Short: "Lists the variables a project can be configured with",
	Long: `Lists the variables documented by the ifnot_set statements of build.nsconfig.
Their values can be given with -D when generating the build file.`,
	Run: runListVars,
}

func init() {
	rootCmd.AddCommand(listVarsCmd)
}

func runListVars(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	srcDir := "."
	if len(args) == 1 {
		srcDir = args[0]
	}
	if err := generate(ctx, cmd.OutOrStdout(), generateFlags{listVars: true}, srcDir, os.Args); err != nil {
		log.Fatal("%s\n", err)
	}
}
