package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ritotombe/supportflow/pkg/domain"
)

// runResult is what run prints for one turn.
type runResult struct {
	ThreadID string       `json:"thread_id"`
	Intent   string       `json:"intent"`
	Path     []string     `json:"path"`
	Replies  []string     `json:"replies"`
	State    domain.State `json:"state"`
}

var runCmd = &cobra.Command{
	Use:   "run <message>...",
	Short: "Process a single message and print the turn as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		req := requestFromFlags(cmd)
		req.Message = strings.Join(args, " ")

		state, err := a.engine.Handle(cmd.Context(), req)
		if err != nil {
			return err
		}

		path := make([]string, len(state.History))
		for i, id := range state.History {
			path[i] = string(id)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(runResult{
			ThreadID: state.ThreadID,
			Intent:   string(state.Intent),
			Path:     path,
			Replies:  domain.LatestReplies(state.Messages),
			State:    state,
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRequestFlags(runCmd)
}
