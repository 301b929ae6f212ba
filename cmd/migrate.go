package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Prepare the configured sink",
	Long:  "Creates the bronze, silver and gold tables and their indexes for database sinks, or the output directory for the files sink.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		snk, err := initSink(ctx)
		if err != nil {
			return err
		}
		defer snk.Close()

		if err := snk.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate sink")
		}

		zap.L().Info("sink ready", zap.String("driver", cfg.Sink.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
