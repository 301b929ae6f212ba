package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/soundrank/soundrank/internal/sink"
)

// initSink constructs the configured sink driver.
func initSink(ctx context.Context) (sink.Sink, error) {
	switch cfg.Sink.Driver {
	case "files":
		return sink.NewParquet(cfg.Sink.OutputDir), nil
	case "postgres":
		if cfg.Sink.DatabaseURL == "" {
			return nil, eris.New("sink: postgres driver requires sink.database_url")
		}
		return sink.NewPostgres(ctx, cfg.Sink.DatabaseURL)
	case "sqlite":
		if cfg.Sink.DatabaseURL == "" {
			return nil, eris.New("sink: sqlite driver requires sink.database_url")
		}
		return sink.NewSQLite(cfg.Sink.DatabaseURL)
	default:
		return nil, eris.Errorf("sink: unknown driver %q (want files, postgres or sqlite)", cfg.Sink.Driver)
	}
}
