package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ritotombe/supportflow/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the workflow graph",
	Long: `Prints the workflow as a Mermaid flowchart. With --trace the message is
processed first and the path it took is highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		trace, _ := cmd.Flags().GetString("trace")

		a, err := newApp(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		nodes := a.engine.Inspect()
		switch format {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(nodes)
		case "mermaid":
		default:
			return fmt.Errorf("unknown format %q (use mermaid or json)", format)
		}

		var overlay *graph.GraphOverlay
		if trace != "" {
			req := requestFromFlags(cmd)
			req.Message = trace
			state, err := a.engine.Handle(cmd.Context(), req)
			if err != nil {
				return err
			}
			overlay = graph.OverlayFromState(state)
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(nodes, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("format", "f", "mermaid", "Output format (mermaid or json)")
	graphCmd.Flags().String("trace", "", "Process this message and highlight the path it took")
	addRequestFlags(graphCmd)
}
