// Package pipeline orchestrates one full snapshot run: fetch the charts,
// build the bronze, silver and gold tables, and persist them.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/soundrank/soundrank/internal/extract"
	"github.com/soundrank/soundrank/internal/model"
	"github.com/soundrank/soundrank/internal/sink"
	"github.com/soundrank/soundrank/internal/transform"
)

// Extractor fetches one ranked snapshot per market.
type Extractor interface {
	Snapshots(ctx context.Context) (snaps []extract.MarketSnapshot, skipped []string, err error)
}

// Run statuses reported in Result.
const (
	StatusComplete = "complete"
	StatusPartial  = "partial"
	StatusFailed   = "failed"
)

// Result summarizes a single run.
type Result struct {
	RunID          string            `json:"run_id"`
	SnapshotDate   string            `json:"snapshot_date"`
	Status         string            `json:"status"`
	Markets        []string          `json:"markets"`
	SkippedMarkets []string          `json:"skipped_markets,omitempty"`
	Rows           map[string]int64  `json:"rows"`
	Files          map[string]string `json:"files,omitempty"`
	DurationMS     int64             `json:"duration_ms"`
}

// Pipeline wires the extractor to a sink.
type Pipeline struct {
	extractor Extractor
	sink      sink.Sink
}

// New creates a Pipeline.
func New(extractor Extractor, snk sink.Sink) *Pipeline {
	return &Pipeline{extractor: extractor, sink: snk}
}

// Run executes one snapshot run for the given date. The date is truncated to
// a UTC day; re-running the same date replaces that day's rows in the sink.
func (p *Pipeline) Run(ctx context.Context, snapshotDate time.Time) (*Result, error) {
	runID := uuid.NewString()
	day := model.Day(snapshotDate)

	log := zap.L().With(
		zap.String("run_id", runID),
		zap.String("snapshot_date", model.DateString(day)),
	)
	log.Info("pipeline: run starting")
	start := time.Now()

	result := &Result{
		RunID:        runID,
		SnapshotDate: model.DateString(day),
		Status:       StatusFailed,
	}

	snaps, skipped, err := p.extractor.Snapshots(ctx)
	if err != nil {
		return result, eris.Wrap(err, "pipeline: extract")
	}
	result.SkippedMarkets = skipped
	for _, s := range snaps {
		result.Markets = append(result.Markets, s.Market)
	}
	log.Info("pipeline: extract complete",
		zap.Int("markets", len(snaps)),
		zap.Strings("skipped", skipped),
	)

	tables := model.Tables{
		SnapshotDate: day,
		Bronze:       transform.ToBronze(snaps, day),
	}
	tables.Silver = transform.ToSilver(tables.Bronze)
	tables.Gold = transform.ToGold(tables.Silver)
	log.Info("pipeline: transform complete",
		zap.Int("bronze", len(tables.Bronze)),
		zap.Int("silver", len(tables.Silver)),
		zap.Int("gold", len(tables.Gold)),
	)

	wr, err := p.sink.Write(ctx, tables)
	if err != nil {
		return result, eris.Wrap(err, "pipeline: write")
	}
	result.Rows = wr.Rows
	result.Files = wr.Files

	result.Status = StatusComplete
	if len(skipped) > 0 {
		result.Status = StatusPartial
	}
	result.DurationMS = time.Since(start).Milliseconds()

	log.Info("pipeline: run complete",
		zap.String("status", result.Status),
		zap.Int64("duration_ms", result.DurationMS),
	)
	return result, nil
}
