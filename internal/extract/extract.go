// Package extract fetches the ranking playlist for each configured market
// and normalizes the result for the bronze builder.
package extract

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/soundrank/soundrank/internal/config"
	"github.com/soundrank/soundrank/internal/resilience"
	"github.com/soundrank/soundrank/pkg/spotify"
)

// TrackEntry is one ranked playlist entry, in playlist order.
type TrackEntry struct {
	TrackID     string
	TrackName   string
	ArtistIDs   []string
	ArtistNames []string
}

// MarketSnapshot is the ranked track list fetched for one market.
type MarketSnapshot struct {
	Market       string
	PlaylistID   string
	PlaylistName string
	Tracks       []TrackEntry
}

// Extractor fans out per-market playlist fetches.
type Extractor struct {
	client  spotify.Client
	markets config.MarketsConfig
	fetch   config.FetchConfig
}

// New creates an Extractor. Configuration is passed in explicitly so the
// extractor stays testable against a fake client.
func New(client spotify.Client, markets config.MarketsConfig, fetch config.FetchConfig) *Extractor {
	return &Extractor{client: client, markets: markets, fetch: fetch}
}

// Snapshots fetches every configured market's ranking playlist. In strict
// mode the first failure aborts the run. Otherwise failed or empty markets
// are skipped and returned in skipped; the run fails only when no market
// produced data. Credential errors are always fatal.
func (e *Extractor) Snapshots(ctx context.Context) (snaps []MarketSnapshot, skipped []string, err error) {
	markets := e.markets.Codes
	results := make([]*MarketSnapshot, len(markets))
	failures := make([]error, len(markets))

	g, gctx := errgroup.WithContext(ctx)
	concurrency := e.fetch.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	g.SetLimit(concurrency)

	for i, market := range markets {
		g.Go(func() error {
			snap, ferr := e.fetchMarket(gctx, market)
			if ferr != nil {
				if e.fetch.Strict || errors.Is(ferr, spotify.ErrAuth) {
					return ferr
				}
				zap.L().Error("extract: market fetch failed, skipping",
					zap.String("market", market),
					zap.Error(ferr),
				)
				failures[i] = ferr
				return nil
			}
			if len(snap.Tracks) == 0 {
				zap.L().Warn("extract: playlist returned no tracks, skipping market",
					zap.String("market", market),
					zap.String("playlist_id", snap.PlaylistID),
				)
				failures[i] = eris.Errorf("extract: market %s: playlist %s has no tracks", market, snap.PlaylistID)
				return nil
			}
			results[i] = snap
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var errMsgs []string
	for i, market := range markets {
		if results[i] != nil {
			snaps = append(snaps, *results[i])
			continue
		}
		skipped = append(skipped, market)
		if failures[i] != nil {
			errMsgs = append(errMsgs, failures[i].Error())
		}
	}

	if len(snaps) == 0 {
		if len(errMsgs) == 0 {
			return nil, skipped, eris.New("extract: no market produced data")
		}
		return nil, skipped, eris.Errorf("extract: all markets failed: %s", strings.Join(errMsgs, "; "))
	}
	return snaps, skipped, nil
}

// fetchMarket resolves the market's playlist and fetches its tracks,
// truncated to the configured rank cap.
func (e *Extractor) fetchMarket(ctx context.Context, market string) (*MarketSnapshot, error) {
	if e.fetch.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.fetch.TimeoutSecs)*time.Second)
		defer cancel()
	}

	retry := resilience.RetryConfig{
		InitialBackoff: time.Duration(e.fetch.RetryBackoffMS) * time.Millisecond,
		OnRetry:        resilience.RetryLogger("spotify", "fetch market "+market),
	}

	playlistID, ok := e.markets.PlaylistFor(market)
	if !ok {
		ref, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (spotify.PlaylistRef, error) {
			return spotify.FindTopChart(ctx, e.client, market)
		})
		if err != nil {
			return nil, eris.Wrapf(err, "extract: resolve playlist for market %s", market)
		}
		playlistID = ref.ID
		zap.L().Info("extract: resolved chart playlist via search",
			zap.String("market", market),
			zap.String("playlist_id", playlistID),
			zap.String("playlist_name", ref.Name),
		)
	}

	playlist, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*spotify.Playlist, error) {
		return e.client.Playlist(ctx, playlistID, market)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "extract: fetch market %s", market)
	}

	name := playlist.Name
	if name == "" {
		name = playlistID
	}

	snap := &MarketSnapshot{
		Market:       market,
		PlaylistID:   playlistID,
		PlaylistName: name,
	}
	for _, item := range playlist.Tracks.Items {
		if e.fetch.RankCap > 0 && len(snap.Tracks) >= e.fetch.RankCap {
			break
		}
		if item.Track == nil {
			continue
		}
		entry := TrackEntry{
			TrackID:   item.Track.ID,
			TrackName: item.Track.Name,
		}
		for _, artist := range item.Track.Artists {
			if artist.ID == "" {
				continue
			}
			entry.ArtistIDs = append(entry.ArtistIDs, artist.ID)
			entry.ArtistNames = append(entry.ArtistNames, artist.Name)
		}
		snap.Tracks = append(snap.Tracks, entry)
	}

	zap.L().Info("extract: market fetched",
		zap.String("market", market),
		zap.String("playlist_id", playlistID),
		zap.String("playlist_name", name),
		zap.Int("tracks", len(snap.Tracks)),
	)
	return snap, nil
}
