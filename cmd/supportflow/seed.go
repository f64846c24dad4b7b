package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ritotombe/supportflow/pkg/adapters/sqlite"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo account, customers and knowledge base",
	Long: `Creates the configured databases if needed and inserts the demo data.
Running it again refreshes the demo rows.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		paths := []string{cfg.Storage.CustomerDB}
		if cfg.Storage.TicketDB != cfg.Storage.CustomerDB {
			paths = append(paths, cfg.Storage.TicketDB)
		}
		for _, path := range paths {
			if err := seedDB(cmd, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s\n", path)
		}
		return nil
	},
}

func seedDB(cmd *cobra.Command, path string) error {
	db, err := sqlite.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()
	if err := db.SeedDemo(cmd.Context()); err != nil {
		return fmt.Errorf("seed %s: %w", path, err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
