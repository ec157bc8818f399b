package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// completionCommand creates the shell completion command.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for nocsched.

To load completions:

Bash:
  $ source <(nocsched completion bash)

  # To load completions for each session, execute once:
  $ nocsched completion bash > /etc/bash_completion.d/nocsched

Zsh:
  # To load completions for each session, execute once:
  $ nocsched completion zsh > "${fpath[1]}/_nocsched"

Fish:
  $ nocsched completion fish | source

  # To load completions for each session, execute once:
  $ nocsched completion fish > ~/.config/fish/completions/nocsched.fish

PowerShell:
  PS> nocsched completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}
