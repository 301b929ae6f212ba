package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soundrank/soundrank/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "soundrank",
	Short: "Daily music chart aggregation pipeline",
	Long:  "Fetches the Top 50 ranking playlist for each configured market, builds per-market and global artist rollups, and persists them to parquet files or a database.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
