package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shortcircuit/internal/logger"
	"shortcircuit/internal/sde"
)

var importCmd = &cobra.Command{
	Use:   "import-sde <sqlite-dump>",
	Short: "Generate the reference tables from an SDE SQLite dump",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := sde.ImportSQLite(cmd.Context(), args[0], cfg.DataDir)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		logger.Section("Import")
		logger.Stats("Systems", stats.Systems)
		logger.Stats("Jumps", stats.Jumps)
		return nil
	},
}
