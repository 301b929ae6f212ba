package sink

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/soundrank/soundrank/internal/model"
)

var _ Sink = (*ParquetSink)(nil)

// ParquetSink writes one parquet snapshot file per table per date into an
// output directory. Re-running a date rewrites the files wholesale.
type ParquetSink struct {
	OutputDir string
}

// NewParquet creates a ParquetSink rooted at the given directory.
func NewParquet(outputDir string) *ParquetSink {
	return &ParquetSink{OutputDir: outputDir}
}

// On-disk parquet schemas. Snapshot dates are stored as YYYY-MM-DD strings
// so files stay self-describing.

type bronzeRecord struct {
	SnapshotDate string   `parquet:"snapshot_date"`
	Market       string   `parquet:"market"`
	PlaylistID   string   `parquet:"playlist_id"`
	PlaylistName string   `parquet:"playlist_name"`
	Rank         int32    `parquet:"rank"`
	TrackID      string   `parquet:"track_id"`
	TrackName    string   `parquet:"track_name"`
	ArtistIDs    []string `parquet:"artist_ids,list"`
	ArtistNames  []string `parquet:"artist_names,list"`
	Score        int32    `parquet:"score"`
}

type silverRecord struct {
	SnapshotDate string `parquet:"snapshot_date"`
	Market       string `parquet:"market"`
	ArtistID     string `parquet:"artist_id"`
	ArtistName   string `parquet:"artist_name"`
	Tracks       int32  `parquet:"tracks"`
	TotalScore   int32  `parquet:"total_score"`
	BestRank     int32  `parquet:"best_rank"`
}

type goldRecord struct {
	SnapshotDate string `parquet:"snapshot_date"`
	ArtistID     string `parquet:"artist_id"`
	ArtistName   string `parquet:"artist_name"`
	Markets      int32  `parquet:"markets"`
	TotalScore   int32  `parquet:"total_score"`
	BestRank     int32  `parquet:"best_rank"`
}

// Migrate ensures the output directory exists.
func (s *ParquetSink) Migrate(_ context.Context) error {
	if err := os.MkdirAll(s.OutputDir, 0o755); err != nil {
		return eris.Wrapf(err, "parquet: create output dir %s", s.OutputDir)
	}
	return nil
}

// Write persists all three tables for the snapshot date.
func (s *ParquetSink) Write(ctx context.Context, tables model.Tables) (*WriteResult, error) {
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}

	date := tables.SnapshotDate
	paths := s.paths(date)

	bronze := make([]bronzeRecord, 0, len(tables.Bronze))
	for _, r := range tables.Bronze {
		bronze = append(bronze, bronzeRecord{
			SnapshotDate: model.DateString(r.SnapshotDate),
			Market:       r.Market,
			PlaylistID:   r.PlaylistID,
			PlaylistName: r.PlaylistName,
			Rank:         int32(r.Rank),
			TrackID:      r.TrackID,
			TrackName:    r.TrackName,
			ArtistIDs:    r.ArtistIDs,
			ArtistNames:  r.ArtistNames,
			Score:        int32(r.Score),
		})
	}
	silver := make([]silverRecord, 0, len(tables.Silver))
	for _, r := range tables.Silver {
		silver = append(silver, silverRecord{
			SnapshotDate: model.DateString(r.SnapshotDate),
			Market:       r.Market,
			ArtistID:     r.ArtistID,
			ArtistName:   r.ArtistName,
			Tracks:       int32(r.Tracks),
			TotalScore:   int32(r.TotalScore),
			BestRank:     int32(r.BestRank),
		})
	}
	gold := make([]goldRecord, 0, len(tables.Gold))
	for _, r := range tables.Gold {
		gold = append(gold, goldRecord{
			SnapshotDate: model.DateString(r.SnapshotDate),
			ArtistID:     r.ArtistID,
			ArtistName:   r.ArtistName,
			Markets:      int32(r.Markets),
			TotalScore:   int32(r.TotalScore),
			BestRank:     int32(r.BestRank),
		})
	}

	if err := writeParquetFile(paths[BronzeTable], bronze); err != nil {
		return nil, eris.Wrapf(err, "parquet: write %s", BronzeTable)
	}
	if err := writeParquetFile(paths[SilverTable], silver); err != nil {
		return nil, eris.Wrapf(err, "parquet: write %s", SilverTable)
	}
	if err := writeParquetFile(paths[GoldTable], gold); err != nil {
		return nil, eris.Wrapf(err, "parquet: write %s", GoldTable)
	}

	for table, path := range paths {
		zap.L().Info("parquet: snapshot written",
			zap.String("table", table),
			zap.String("path", path),
		)
	}

	return &WriteResult{
		Rows: map[string]int64{
			BronzeTable: int64(len(bronze)),
			SilverTable: int64(len(silver)),
			GoldTable:   int64(len(gold)),
		},
		Files: paths,
	}, nil
}

// Counts reads the snapshot files back and reports their row counts.
// Missing files count as zero.
func (s *ParquetSink) Counts(_ context.Context, date time.Time) (map[string]int64, error) {
	paths := s.paths(date)

	bronze, err := readParquetCount[bronzeRecord](paths[BronzeTable])
	if err != nil {
		return nil, err
	}
	silver, err := readParquetCount[silverRecord](paths[SilverTable])
	if err != nil {
		return nil, err
	}
	gold, err := readParquetCount[goldRecord](paths[GoldTable])
	if err != nil {
		return nil, err
	}

	return map[string]int64{
		BronzeTable: bronze,
		SilverTable: silver,
		GoldTable:   gold,
	}, nil
}

// Close is a no-op for the file sink.
func (s *ParquetSink) Close() error { return nil }

// paths returns the per-table snapshot file paths for a date.
// Layout: <OutputDir>/<table>_<YYYY-MM-DD>.parquet
func (s *ParquetSink) paths(date time.Time) map[string]string {
	suffix := "_" + model.DateString(date) + ".parquet"
	return map[string]string{
		BronzeTable: filepath.Join(s.OutputDir, BronzeTable+suffix),
		SilverTable: filepath.Join(s.OutputDir, SilverTable+suffix),
		GoldTable:   filepath.Join(s.OutputDir, GoldTable+suffix),
	}
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetCount[T any](path string) (int64, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return 0, nil
	}
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return 0, eris.Wrapf(err, "parquet: read %s", path)
	}
	return int64(len(rows)), nil
}
