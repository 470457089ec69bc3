package cmd

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish]",
	Short: "Prints a shell completion script",
	Long: `Prints the completion script of nsconfig for bash, zsh or fish.

  $ source <(nsconfig completion bash)
  $ nsconfig completion zsh > "${fpath[1]}/_nsconfig"
  $ nsconfig completion fish > ~/.config/fish/completions/nsconfig.fish

With zsh, completion must be enabled once with "autoload -U compinit; compinit".`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			cmd.Root().GenBashCompletionV2(cmd.OutOrStdout(), true)
		case "zsh":
			cmd.Root().GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
