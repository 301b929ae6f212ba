package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/soundrank/soundrank/internal/model"
	"github.com/soundrank/soundrank/internal/sink"
)

var statusDate string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show row counts for a snapshot date",
	Long:  "Reports how many bronze, silver and gold rows the configured sink holds for a snapshot date.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		date, err := parseDateFlag(statusDate)
		if err != nil {
			return err
		}

		snk, err := initSink(ctx)
		if err != nil {
			return err
		}
		defer snk.Close()

		counts, err := snk.Counts(ctx, date)
		if err != nil {
			return eris.Wrap(err, "sink counts")
		}

		formatCounts(os.Stdout, model.DateString(date), counts)
		return nil
	},
}

// formatCounts writes a tabular per-table row count summary to w.
func formatCounts(out io.Writer, date string, counts map[string]int64) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATE\tTABLE\tROWS")
	_, _ = fmt.Fprintln(w, "----\t-----\t----")
	for _, table := range []string{sink.BronzeTable, sink.SilverTable, sink.GoldTable} {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\n", date, table, counts[table])
	}
	_ = w.Flush()
}

func init() {
	statusCmd.Flags().StringVar(&statusDate, "date", "", "snapshot date as YYYY-MM-DD (default: today, UTC)")
	rootCmd.AddCommand(statusCmd)
}
