package spotify

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// FindTopChart locates the official "Top 50" ranking playlist for a market
// via playlist search. Spotify-owned playlists named "Top 50 ..." win;
// otherwise any Spotify-owned playlist mentioning the market code is taken.
func FindTopChart(ctx context.Context, c Client, market string) (PlaylistRef, error) {
	refs, err := c.SearchPlaylists(ctx, "Top 50 - "+market, 10)
	if err != nil {
		return PlaylistRef{}, err
	}
	for _, ref := range refs {
		if spotifyOwned(ref) && strings.Contains(strings.ToLower(ref.Name), "top 50") {
			return ref, nil
		}
	}

	// Broader fallback: any Spotify chart playlist naming the market.
	refs, err = c.SearchPlaylists(ctx, "top 50", 20)
	if err != nil {
		return PlaylistRef{}, err
	}
	for _, ref := range refs {
		if spotifyOwned(ref) && strings.Contains(strings.ToLower(ref.Name), strings.ToLower(market)) {
			return ref, nil
		}
	}

	return PlaylistRef{}, eris.Errorf("spotify: no top chart playlist found for market %s", market)
}

func spotifyOwned(ref PlaylistRef) bool {
	return strings.Contains(strings.ToLower(ref.Owner.DisplayName), "spotify") ||
		strings.EqualFold(ref.Owner.ID, "spotify")
}
