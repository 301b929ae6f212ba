// Package spotify is a minimal Spotify Web API client using the
// client-credentials flow. It covers the two calls the ETL needs:
// playlist reads (with pagination) and playlist search.
package spotify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/soundrank/soundrank/internal/resilience"
)

const (
	defaultBaseURL  = "https://api.spotify.com/v1"
	defaultTokenURL = "https://accounts.spotify.com/api/token"

	// tokenSlack refreshes the access token this long before it expires.
	tokenSlack = 30 * time.Second
)

// ErrAuth marks credential failures. Callers treat these as fatal for the
// whole run rather than per-market.
var ErrAuth = eris.New("spotify: authentication failed")

// Client performs requests against the Spotify Web API.
type Client interface {
	// Playlist returns playlist metadata and ALL track items, following
	// the tracks paging cursor to the end.
	Playlist(ctx context.Context, playlistID, market string) (*Playlist, error)

	// SearchPlaylists runs a playlist search and returns up to limit refs.
	SearchPlaylists(ctx context.Context, query string, limit int) ([]PlaylistRef, error)
}

// Playlist is a playlist with its full track listing.
type Playlist struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Owner  Owner     `json:"owner"`
	Tracks TrackPage `json:"tracks"`
}

// Owner identifies the playlist owner.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// TrackPage is one page of playlist track items.
type TrackPage struct {
	Items []PlaylistItem `json:"items"`
	Next  string         `json:"next"`
}

// PlaylistItem wraps a track entry; Track is nil for unavailable entries.
type PlaylistItem struct {
	Track *Track `json:"track"`
}

// Track is the subset of track fields the pipeline consumes.
type Track struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Artists []Artist `json:"artists"`
}

// Artist identifies one performing artist on a track.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlaylistRef is a search result entry.
type PlaylistRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner Owner  `json:"owner"`
}

type searchResponse struct {
	Playlists struct {
		Items []*PlaylistRef `json:"items"`
	} `json:"playlists"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithTokenURL overrides the default token endpoint.
func WithTokenURL(u string) Option {
	return func(c *httpClient) { c.tokenURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit overrides the default request rate limit.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(perSec), 1) }
}

type httpClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	tokenURL     string
	http         *http.Client
	limiter      *rate.Limiter

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a Spotify API client.
func NewClient(clientID, clientSecret string, opts ...Option) Client {
	c := &httpClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      defaultBaseURL,
		tokenURL:     defaultTokenURL,
		limiter:      rate.NewLimiter(5, 1),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Playlist(ctx context.Context, playlistID, market string) (*Playlist, error) {
	endpoint := c.baseURL + "/playlists/" + url.PathEscape(playlistID)
	if market != "" {
		endpoint += "?market=" + url.QueryEscape(market)
	}

	var playlist Playlist
	if err := c.getJSON(ctx, endpoint, &playlist); err != nil {
		return nil, eris.Wrapf(err, "spotify: fetch playlist %s", playlistID)
	}

	// Follow the paging cursor until the track list is complete.
	next := playlist.Tracks.Next
	for next != "" {
		var page TrackPage
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, eris.Wrapf(err, "spotify: fetch playlist %s page", playlistID)
		}
		playlist.Tracks.Items = append(playlist.Tracks.Items, page.Items...)
		next = page.Next
	}
	playlist.Tracks.Next = ""

	zap.L().Debug("spotify: playlist fetched",
		zap.String("playlist_id", playlistID),
		zap.String("name", playlist.Name),
		zap.Int("tracks", len(playlist.Tracks.Items)),
	)
	return &playlist, nil
}

func (c *httpClient) SearchPlaylists(ctx context.Context, query string, limit int) ([]PlaylistRef, error) {
	if limit <= 0 {
		limit = 10
	}
	endpoint := c.baseURL + "/search?" + url.Values{
		"q":     {query},
		"type":  {"playlist"},
		"limit": {strconv.Itoa(limit)},
	}.Encode()

	var result searchResponse
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return nil, eris.Wrapf(err, "spotify: search playlists %q", query)
	}

	// The API pads result pages with nulls.
	refs := make([]PlaylistRef, 0, len(result.Playlists.Items))
	for _, ref := range result.Playlists.Items {
		if ref != nil && ref.ID != "" {
			refs = append(refs, *ref)
		}
	}
	return refs, nil
}

// getJSON performs a rate-limited, token-authenticated GET and decodes the
// body into out. A 401 forces one token refresh and retry; 429 honors
// Retry-After.
func (c *httpClient) getJSON(ctx context.Context, endpoint string, out any) error {
	refreshed := false
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limiter wait")
		}

		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return eris.Wrap(err, "create request")
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.http.Do(req)
		if err != nil {
			return eris.Wrap(err, "send request")
		}
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return eris.Wrap(err, "read response")
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized && !refreshed:
			zap.L().Info("spotify: token rejected, refreshing", zap.String("url", endpoint))
			c.invalidateToken()
			refreshed = true
			continue
		case resp.StatusCode == http.StatusUnauthorized:
			return eris.Wrapf(ErrAuth, "unauthorized after token refresh: %s", string(body))
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfter(resp.Header)
			zap.L().Warn("spotify: rate limited, backing off", zap.Duration("retry_after", wait))
			if err := sleepCtx(ctx, wait); err != nil {
				return eris.Wrap(err, "backoff wait")
			}
			continue
		case resp.StatusCode != http.StatusOK:
			err := eris.Errorf("unexpected status %d from %s: %s", resp.StatusCode, endpoint, string(body))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return resilience.NewTransientError(err, resp.StatusCode)
			}
			return err
		}

		if err := json.Unmarshal(body, out); err != nil {
			return eris.Wrap(err, "unmarshal response")
		}
		return nil
	}
}

// accessToken returns a valid bearer token, requesting a new one via the
// client-credentials grant when the cached token is missing or stale.
func (c *httpClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenSlack)) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", eris.Wrap(err, "create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "token request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "read token response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Wrapf(ErrAuth, "token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", eris.Wrap(err, "unmarshal token response")
	}
	if tok.AccessToken == "" {
		return "", eris.Wrap(ErrAuth, "token endpoint returned no access_token")
	}

	c.token = tok.AccessToken
	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	c.tokenExpiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
	return c.token, nil
}

func (c *httpClient) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

func retryAfter(h http.Header) time.Duration {
	if secs, err := strconv.Atoi(h.Get("Retry-After")); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
