package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soundrank/soundrank/internal/extract"
	"github.com/soundrank/soundrank/internal/model"
	"github.com/soundrank/soundrank/internal/pipeline"
	"github.com/soundrank/soundrank/pkg/spotify"
)

var runDate string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch today's charts and persist the snapshot",
	Long:  "Fetches every configured market's ranking playlist, builds the bronze, silver and gold tables, and writes them to the configured sink. Re-running a date replaces that date's rows.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		date, err := parseDateFlag(runDate)
		if err != nil {
			return err
		}

		snk, err := initSink(ctx)
		if err != nil {
			return err
		}
		defer snk.Close()

		if err := snk.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate sink")
		}

		client := spotify.NewClient(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret,
			spotify.WithBaseURL(cfg.Spotify.BaseURL),
			spotify.WithTokenURL(cfg.Spotify.TokenURL),
			spotify.WithRateLimit(cfg.Spotify.RatePerSec),
		)
		extractor := extract.New(client, cfg.Markets, cfg.Fetch)

		result, err := pipeline.New(extractor, snk).Run(ctx, date)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run complete",
			zap.String("run_id", result.RunID),
			zap.String("status", result.Status),
			zap.Int("markets", len(result.Markets)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// parseDateFlag interprets an optional YYYY-MM-DD value, defaulting to the
// current UTC day.
func parseDateFlag(value string) (time.Time, error) {
	if value == "" {
		return model.Day(time.Now().UTC()), nil
	}
	date, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "invalid --date %q (want YYYY-MM-DD)", value)
	}
	return date, nil
}

func init() {
	runCmd.Flags().StringVar(&runDate, "date", "", "snapshot date as YYYY-MM-DD (default: today, UTC)")
	rootCmd.AddCommand(runCmd)
}
