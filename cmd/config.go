package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agenium-scale/nsconfig/config"
	"github.com/agenium-scale/nsconfig/log"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Args:  cobra.NoArgs,
	Short: "Prints the configuration in effect",
	Long: `Prints the configuration in effect as YAML. The configuration is read from
config.yaml in $NSCONFIG_CONFIG_DIR, $XDG_CONFIG_HOME/nsconfig or ~/.config/nsconfig.
Every key can be overridden by an environment variable such as NSCONFIG_GENERATOR.`,
	Run: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) {
	if dir, err := config.Dir(); err == nil {
		log.Debug("Configuration directory: %s\n", dir)
	}
	data, err := config.Get().Dump()
	if err != nil {
		log.Fatal("Failed to print the configuration: %s\n", err)
	}
	cmd.OutOrStdout().Write(data)
}
