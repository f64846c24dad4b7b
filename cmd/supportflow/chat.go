package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ritotombe/supportflow"
	"github.com/ritotombe/supportflow/internal/presentation/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive support conversation",
	Long: `Reads one message per line from stdin and prints the assistant replies.
Markdown replies are rendered when stdout is a terminal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		headless, _ := cmd.Flags().GetBool("headless")

		// Logs go to stderr so they don't interleave with the conversation.
		a, err := newApp(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		runner := &supportflow.Runner{
			Input:    cmd.InOrStdin(),
			Output:   cmd.OutOrStdout(),
			Headless: headless,
			Request:  requestFromFlags(cmd),
		}
		if !headless && tui.IsInteractive(os.Stdout) {
			tui.PrintBanner(cmd.OutOrStdout())
			if render, err := tui.NewRenderer(); err == nil {
				runner.Renderer = render
			} else {
				a.logger.Warn("markdown renderer unavailable", "error", err)
			}
		}
		return runner.Run(cmd.Context(), a.engine)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	addRequestFlags(chatCmd)
	chatCmd.Flags().Bool("headless", false, "Disable prompts, banner and markdown rendering")
}
