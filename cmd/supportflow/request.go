package main

import (
	"github.com/spf13/cobra"

	"github.com/ritotombe/supportflow"
)

// addRequestFlags registers the per-turn identifiers shared by run and chat.
func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().String("thread", "", "Thread ID to continue (a new one is created when empty)")
	cmd.Flags().String("account", "", "Account ID (defaults to the configured account)")
	cmd.Flags().String("user", "", "External user ID (defaults to the configured user)")
	cmd.Flags().String("ticket", "", "Ticket ID")
	cmd.Flags().Float64("min-confidence", 0, "Minimum knowledge base confidence (defaults to the configured value)")
}

func requestFromFlags(cmd *cobra.Command) supportflow.Request {
	var req supportflow.Request
	req.ThreadID, _ = cmd.Flags().GetString("thread")
	req.AccountID, _ = cmd.Flags().GetString("account")
	req.UserID, _ = cmd.Flags().GetString("user")
	req.TicketID, _ = cmd.Flags().GetString("ticket")
	if cmd.Flags().Changed("min-confidence") {
		v, _ := cmd.Flags().GetFloat64("min-confidence")
		req.MinConfidence = &v
	}
	return req
}
