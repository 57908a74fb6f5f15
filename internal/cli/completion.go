package cli

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate a shell completion script for immich-tools.

Bash:
  $ source <(immich-tools completion bash)

Zsh:
  $ immich-tools completion zsh > "${fpath[1]}/_immich-tools"

Fish:
  $ immich-tools completion fish > ~/.config/fish/completions/immich-tools.fish

PowerShell:
  PS> immich-tools completion powershell | Out-String | Invoke-Expression
`,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	DisableFlagsInUseLine: true,
	Run:                   runCompletion,
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

func runCompletion(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()

	var err error
	switch args[0] {
	case "bash":
		err = rootCmd.GenBashCompletionV2(out, true)
	case "zsh":
		err = rootCmd.GenZshCompletion(out)
	case "fish":
		err = rootCmd.GenFishCompletion(out, true)
	case "powershell":
		err = rootCmd.GenPowerShellCompletionWithDesc(out)
	}
	if err != nil {
		exitError("failed to generate completion: %v", err)
	}
}
