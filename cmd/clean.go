package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agenium-scale/nsconfig/log"
	"github.com/agenium-scale/nsconfig/util"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [BUILD_DIR]",
	Args:  cobra.MaximumNArgs(1),
	Short: "Removes the files nsconfig writes besides the build file",
	Long: `Removes the compiler probes and the scripts of long ninja commands from
BUILD_DIR, the current directory by default.`,
	Run: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) {
	buildDir := "."
	if len(args) == 1 {
		buildDir = args[0]
	}
	if err := clean(buildDir); err != nil {
		log.Fatal("%s\n", err)
	}
}

func clean(buildDir string) error {
	for _, name := range []string{util.CompilerInfosDir, util.NinjaScriptsDir} {
		dir := filepath.Join(buildDir, name)
		log.Debug("Removing '%s' directory '%s'.\n", name, dir)
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	return nil
}
