// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/recipe-box/internal/extract"
)

// Fetcher modes.
const (
	FetcherHTTP     = "http"
	FetcherHeadless = "headless"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"`
	Headless HeadlessConfig `mapstructure:"headless"`
	DB       DBConfig       `mapstructure:"db"`
	API      APIConfig      `mapstructure:"api"`
	Extract  ExtractConfig  `mapstructure:"extract"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// HTTPConfig configures the outbound page fetcher.
type HTTPConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// FetcherConfig selects the fetch implementation.
type FetcherConfig struct {
	Mode string `mapstructure:"mode"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	MaxParallel   int `mapstructure:"max_parallel"`
	NavTimeoutSec int `mapstructure:"nav_timeout_seconds"`
	// RecipeWaitSec is how long to wait for recipe markup after load; negative skips it.
	RecipeWaitSec int `mapstructure:"recipe_wait_seconds"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory store.
type DBConfig struct {
	DSN                    string `mapstructure:"dsn"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MinConns               int32  `mapstructure:"min_conns"`
	MaxConnLifetimeSeconds int    `mapstructure:"max_conn_lifetime_seconds"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
}

// APIConfig holds request defaults.
type APIConfig struct {
	DefaultUserID int64 `mapstructure:"default_user_id"`
}

// ExtractConfig adds site rules on top of the built-in registry.
type ExtractConfig struct {
	Sites []SiteConfig `mapstructure:"sites"`
}

// SiteConfig binds selector rules to a domain.
type SiteConfig struct {
	Domain                string `mapstructure:"domain"`
	extract.SelectorRules `mapstructure:",squash"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RECIPEBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	// PORT is the conventional override on hosted platforms.
	if err := v.BindEnv("server.port", "RECIPEBOX_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("http.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("fetcher.mode", FetcherHTTP)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.recipe_wait_seconds", 3)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime_seconds", 1800)
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("api.default_user_id", 1)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.New("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return errors.New("server.request_timeout_seconds must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return errors.New("http.timeout_seconds must be > 0")
	}
	switch c.Fetcher.Mode {
	case FetcherHTTP:
	case FetcherHeadless:
		if c.Headless.MaxParallel <= 0 {
			return errors.New("headless.max_parallel must be > 0 when fetcher.mode is headless")
		}
	default:
		return fmt.Errorf("fetcher.mode must be %q or %q, got %q", FetcherHTTP, FetcherHeadless, c.Fetcher.Mode)
	}
	if c.DB.MaxConns < 0 || c.DB.MinConns < 0 {
		return errors.New("db.max_conns and db.min_conns must be >= 0")
	}
	if c.DB.MaxConns > 0 && c.DB.MinConns > c.DB.MaxConns {
		return errors.New("db.min_conns must not exceed db.max_conns")
	}
	if c.API.DefaultUserID <= 0 {
		return errors.New("api.default_user_id must be > 0")
	}
	for i, site := range c.Extract.Sites {
		if strings.TrimSpace(site.Domain) == "" {
			return fmt.Errorf("extract.sites[%d].domain is required", i)
		}
		if err := site.SelectorRules.Validate(); err != nil {
			return fmt.Errorf("extract.sites[%d] (%s): %w", i, site.Domain, err)
		}
	}
	return nil
}

// FetchTimeout is the per-request budget for outbound page fetches.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RequestTimeout bounds a single inbound API request.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// NavTimeout bounds one headless navigation.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}

// RecipeWait bounds the headless wait for recipe markup.
func (c Config) RecipeWait() time.Duration {
	return time.Duration(c.Headless.RecipeWaitSec) * time.Second
}

// ConnLifetime is the maximum lifetime of a pooled database connection.
func (c Config) ConnLifetime() time.Duration {
	return time.Duration(c.DB.MaxConnLifetimeSeconds) * time.Second
}

// SiteRegistry returns the built-in registry extended with configured sites.
// Configured rules replace built-in rules for the same domain.
func (c Config) SiteRegistry() *extract.Registry {
	r := extract.DefaultRegistry()
	for _, site := range c.Extract.Sites {
		r.Register(site.Domain, site.SelectorRules)
	}
	return r
}
