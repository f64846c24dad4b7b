package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ritotombe/supportflow"
	"github.com/ritotombe/supportflow/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the workflow as a Model Context Protocol server",
	Long: `Serves the handle_message, get_thread and get_graph tools and the graph
resources over stdio, or over SSE when --sse is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sse, _ := cmd.Flags().GetBool("sse")
		addr, _ := cmd.Flags().GetString("addr")

		// stdout carries the protocol in stdio mode.
		a, err := newApp(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		srv := mcp.NewServer(a.engine, supportflow.Version, a.logger.With("component", "mcp"))
		if !sse {
			return srv.ServeStdio()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return srv.ServeSSE(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().Bool("sse", false, "Serve over SSE instead of stdio")
	mcpCmd.Flags().String("addr", ":8081", "Address for the SSE transport")
}
