package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Plex        PlexConfig        `toml:"plex"`
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Cache       CacheConfig       `toml:"cache"`
	Matching    MatchingConfig    `toml:"matching"`
	Mix         MixConfig         `toml:"mix"`
	Logging     LoggingConfig     `toml:"logging"`
}

// PlexConfig contains the connection settings for the Plex media server.
type PlexConfig struct {
	ServerURL         string   `toml:"server_url"`
	Token             string   `toml:"token"`
	SectionID         string   `toml:"section_id"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Timeout           Duration `toml:"timeout"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// CacheConfig controls the library search cache.
type CacheConfig struct {
	Enabled  bool     `toml:"enabled"`
	RedisURL string   `toml:"redis_url"`
	TTL      Duration `toml:"ttl"`
}

// MatchingConfig points at the persisted matching settings.
type MatchingConfig struct {
	SettingsPath string `toml:"settings_path"`
}

// MixConfig holds the fixed parameters of the named mixes.
type MixConfig struct {
	WeeklyTopArtists        int    `toml:"weekly_top_artists"`
	WeeklyTracksPerArtist   int    `toml:"weekly_tracks_per_artist"`
	DailySeedCount          int    `toml:"daily_seed_count"`
	DailyRelatedBudget      int    `toml:"daily_related_budget"`
	DailyRediscoveryCount   int    `toml:"daily_rediscovery_count"`
	DailyStaleDays          int    `toml:"daily_stale_days"`
	TimeCapsuleStaleDays    int    `toml:"time_capsule_stale_days"`
	TimeCapsuleMaxPerArtist int    `toml:"time_capsule_max_per_artist"`
	TimeCapsuleLimit        int    `toml:"time_capsule_limit"`
	NewMusicAlbumCount      int    `toml:"new_music_album_count"`
	NewMusicTracksPerAlbum  int    `toml:"new_music_tracks_per_album"`
	LockPath                string `toml:"lock_path"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Duration is a [time.Duration] that decodes from TOML strings such as "15s" or "24h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values from [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate reports configuration values that cannot work.
func (c *Config) Validate() error {
	if c.Plex.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: plex.requests_per_second must not be negative", ErrInvalidConfig)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	}
	if c.Cache.Enabled && c.Cache.RedisURL == "" {
		return fmt.Errorf("%w: cache.redis_url is required when the cache is enabled", ErrInvalidConfig)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, os.ErrExist)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
