// Package config loads application configuration from config.yaml and
// SOUNDRANK_-prefixed environment variables.
package config

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Spotify SpotifyConfig `yaml:"spotify" mapstructure:"spotify"`
	Markets MarketsConfig `yaml:"markets" mapstructure:"markets"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Sink    SinkConfig    `yaml:"sink" mapstructure:"sink"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SpotifyConfig holds Spotify Web API credentials and endpoints.
type SpotifyConfig struct {
	ClientID     string  `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string  `yaml:"client_secret" mapstructure:"client_secret"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	TokenURL     string  `yaml:"token_url" mapstructure:"token_url"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// MarketsConfig selects which markets to snapshot and how each market maps
// to a ranking playlist. Codes without an explicit playlist entry are
// resolved through playlist search at run time.
type MarketsConfig struct {
	Codes     []string          `yaml:"codes" mapstructure:"codes"`
	Playlists map[string]string `yaml:"playlists" mapstructure:"playlists"`
	File      string            `yaml:"file" mapstructure:"file"`
}

// FetchConfig configures the per-market fetch fan-out.
type FetchConfig struct {
	// Strict aborts the whole run on the first market fetch failure.
	// When false, failed markets are skipped and the run fails only if
	// every market failed.
	Strict      bool `yaml:"strict" mapstructure:"strict"`
	Concurrency int  `yaml:"concurrency" mapstructure:"concurrency"`
	TimeoutSecs int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RankCap     int  `yaml:"rank_cap" mapstructure:"rank_cap"`

	// RetryBackoffMS is the initial backoff before retrying a transient
	// market fetch failure.
	RetryBackoffMS int `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// SinkConfig selects and configures the output destination.
type SinkConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	OutputDir   string `yaml:"output_dir" mapstructure:"output_dir"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultMarkets is used when no market codes are configured.
var DefaultMarkets = []string{"US", "GB", "DE", "BR", "JP", "IN"}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SOUNDRANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("spotify.base_url", "https://api.spotify.com/v1")
	v.SetDefault("spotify.token_url", "https://accounts.spotify.com/api/token")
	v.SetDefault("spotify.rate_per_sec", 5.0)
	v.SetDefault("markets.codes", DefaultMarkets)
	v.SetDefault("fetch.strict", false)
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.rank_cap", 50)
	v.SetDefault("fetch.retry_backoff_ms", 500)
	v.SetDefault("sink.driver", "files")
	v.SetDefault("sink.output_dir", "outputs")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Markets.File != "" {
		overrides, err := loadMarketsFile(cfg.Markets.File)
		if err != nil {
			return nil, err
		}
		if cfg.Markets.Playlists == nil {
			cfg.Markets.Playlists = make(map[string]string, len(overrides))
		}
		for code, playlistID := range overrides {
			cfg.Markets.Playlists[code] = playlistID
		}
	}

	cfg.Markets.normalize()
	if err := cfg.Markets.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadMarketsFile reads a market -> playlist ID mapping from a standalone
// YAML file, so operators can swap playlists without touching config.yaml.
func loadMarketsFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read markets file %s", path)
	}
	var mapping map[string]string
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return nil, eris.Wrapf(err, "config: parse markets file %s", path)
	}
	return mapping, nil
}

// normalize upper-cases market codes and playlist mapping keys.
func (m *MarketsConfig) normalize() {
	if len(m.Codes) == 0 {
		m.Codes = append([]string(nil), DefaultMarkets...)
	}
	for i, c := range m.Codes {
		m.Codes[i] = strings.ToUpper(strings.TrimSpace(c))
	}
	sort.Strings(m.Codes)

	if len(m.Playlists) > 0 {
		folded := make(map[string]string, len(m.Playlists))
		for code, playlistID := range m.Playlists {
			folded[strings.ToUpper(strings.TrimSpace(code))] = playlistID
		}
		m.Playlists = folded
	}
}

// validate rejects market codes that are not ISO 3166-1 regions.
func (m *MarketsConfig) validate() error {
	for _, code := range m.Codes {
		if _, err := language.ParseRegion(code); err != nil {
			return eris.Wrapf(err, "config: invalid market code %q", code)
		}
	}
	return nil
}

// PlaylistFor returns the configured playlist ID for a market, if any.
func (m *MarketsConfig) PlaylistFor(code string) (string, bool) {
	playlistID, ok := m.Playlists[strings.ToUpper(code)]
	return playlistID, ok
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
