// Package config loads the immutable configuration snapshot. Components
// receive the snapshot at construction; a reload builds a new snapshot
// instead of mutating shared state.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Version is the application version, overridden at build time.
var Version = "dev"

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Trakt        TraktConfig        `mapstructure:"trakt"`
	Users        []User             `mapstructure:"users"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Providers    ProvidersConfig    `mapstructure:"providers"`
	Library      LibraryConfig      `mapstructure:"library"`
	Placeholders PlaceholdersConfig `mapstructure:"placeholders"`
	Acquisition  AcquisitionConfig  `mapstructure:"acquisition"`
	Sync         SyncConfig         `mapstructure:"sync"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
}

// Address returns the host:port listen address.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// TraktConfig holds the upstream application credentials.
type TraktConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TokenDir     string `mapstructure:"token_dir"`
}

// User is a linked media-server user whose recommendations are synced.
// An empty Providers list enables every registered provider.
type User struct {
	ID        string   `mapstructure:"id"`
	Name      string   `mapstructure:"name"`
	Providers []string `mapstructure:"providers"`
}

// CacheConfig holds TTLs for the in-memory caches.
type CacheConfig struct {
	ItemTTLHours int `mapstructure:"item_ttl_hours"`
	EndedTTLDays int `mapstructure:"ended_ttl_days"`
}

// ProvidersConfig tunes the recommendation providers.
type ProvidersConfig struct {
	MovieLimit        int      `mapstructure:"movie_limit"`
	ShowLimit         int      `mapstructure:"show_limit"`
	TrendingLimit     int      `mapstructure:"trending_limit"`
	IgnoreCollected   bool     `mapstructure:"ignore_collected"`
	IgnoreWatchlisted bool     `mapstructure:"ignore_watchlisted"`
	AnimeKeywords     []string `mapstructure:"anime_keywords"`
}

// LibraryConfig points at the local series library roots.
type LibraryConfig struct {
	Roots []string `mapstructure:"roots"`
}

// PlaceholdersConfig controls placeholder materialization.
type PlaceholdersConfig struct {
	Dir           string `mapstructure:"dir"`
	ReferenceUser string `mapstructure:"reference_user"`
}

// AcquisitionConfig selects and configures the download backend.
type AcquisitionConfig struct {
	Backend   string        `mapstructure:"backend"` // overseerr | ombi | webhook
	Overseerr BackendConfig `mapstructure:"overseerr"`
	Ombi      BackendConfig `mapstructure:"ombi"`
	Webhook   BackendConfig `mapstructure:"webhook"`
}

// BackendConfig holds common settings for acquisition backends.
type BackendConfig struct {
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"api_key"`
	Username   string `mapstructure:"username"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// SyncConfig controls the periodic sync schedule.
type SyncConfig struct {
	Cron       string `mapstructure:"cron"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8585,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Trakt: TraktConfig{
			TokenDir: "./data/tokens",
		},
		Cache: CacheConfig{
			ItemTTLHours: 6,
			EndedTTLDays: 7,
		},
		Providers: ProvidersConfig{
			MovieLimit:        10,
			ShowLimit:         10,
			TrendingLimit:     10,
			IgnoreCollected:   true,
			IgnoreWatchlisted: true,
		},
		Placeholders: PlaceholdersConfig{
			Dir: "./data/placeholders",
		},
		Acquisition: AcquisitionConfig{
			Backend: "webhook",
		},
		Sync: SyncConfig{
			Cron:       "0 */6 * * *",
			RunOnStart: true,
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.watchnext")
	}

	v.SetEnvPrefix("WATCHNEXT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints and fills derived defaults.
func (c *Config) Validate() error {
	switch c.Acquisition.Backend {
	case "overseerr", "ombi", "webhook":
	default:
		return fmt.Errorf("unknown acquisition backend %q", c.Acquisition.Backend)
	}

	if c.Placeholders.ReferenceUser == "" && len(c.Users) > 0 {
		c.Placeholders.ReferenceUser = c.Users[0].ID
	}
	return nil
}

// UserIDs returns the IDs of all linked users.
func (c *Config) UserIDs() []string {
	ids := make([]string, 0, len(c.Users))
	for _, u := range c.Users {
		ids = append(ids, u.ID)
	}
	return ids
}

// ProviderEnabled reports whether a provider is enabled for a user.
// Unknown users are disabled; a user with an empty provider list gets
// every provider.
func (c *Config) ProviderEnabled(userID, provider string) bool {
	for _, u := range c.Users {
		if u.ID != userID {
			continue
		}
		if len(u.Providers) == 0 {
			return true
		}
		for _, p := range u.Providers {
			if p == provider {
				return true
			}
		}
		return false
	}
	return false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8585)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("trakt.token_dir", "./data/tokens")
	v.SetDefault("cache.item_ttl_hours", 6)
	v.SetDefault("cache.ended_ttl_days", 7)
	v.SetDefault("providers.movie_limit", 10)
	v.SetDefault("providers.show_limit", 10)
	v.SetDefault("providers.trending_limit", 10)
	v.SetDefault("providers.ignore_collected", true)
	v.SetDefault("providers.ignore_watchlisted", true)
	v.SetDefault("placeholders.dir", "./data/placeholders")
	v.SetDefault("acquisition.backend", "webhook")
	v.SetDefault("sync.cron", "0 */6 * * *")
	v.SetDefault("sync.run_on_start", true)
}
