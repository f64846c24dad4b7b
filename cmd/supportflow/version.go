package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ritotombe/supportflow"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "supportflow %s\n", supportflow.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
