package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var threadCmd = &cobra.Command{
	Use:   "thread",
	Short: "Manage stored conversation threads",
	Long:  `List, inspect, and remove threads in the configured thread store.`,
}

var threadLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored threads",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.engine.Threads(cmd.Context())
		if err != nil {
			return fmt.Errorf("list threads: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No threads found.")
			return nil
		}
		fmt.Fprintln(out, "Threads:")
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var threadInspectCmd = &cobra.Command{
	Use:   "inspect <thread-id>",
	Short: "Print a stored thread as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		thread, err := a.engine.Thread(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("load thread '%s': %w", args[0], err)
		}
		data, err := json.MarshalIndent(thread, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal thread: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var threadRmCmd = &cobra.Command{
	Use:   "rm <thread-id>...",
	Short: "Remove one or more threads",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		var errs []error
		for _, id := range args {
			if err := a.engine.DeleteThread(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("remove '%s': %w", id, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed thread '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(threadCmd)
	threadCmd.AddCommand(threadLsCmd)
	threadCmd.AddCommand(threadInspectCmd)
	threadCmd.AddCommand(threadRmCmd)
}
