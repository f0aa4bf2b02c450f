package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DBPath string

	// Logging
	LogLevel string

	// Per-query deadline for carrier fetches
	QueryTimeout time.Duration

	// Cache freshness windows
	CacheStale      time.Duration
	CacheRevalidate time.Duration
	CacheExpire     time.Duration

	// Background refresh
	RefreshEnabled  bool
	RefreshInterval time.Duration
	RefreshWindow   int

	// Headless browser
	HeadlessEnabled bool
	HeadlessTimeout time.Duration

	// Per-carrier endpoint overrides, keyed by carrier tag
	CarrierBaseURLs map[string]string
}

// Load loads configuration from file and environment using Viper
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)
	setupEnvBinding(v)

	if err := loadConfigFile(v); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	config := &Config{
		ServerPort:      v.GetString("server.port"),
		ServerHost:      v.GetString("server.host"),
		DBPath:          v.GetString("database.path"),
		LogLevel:        v.GetString("logging.level"),
		QueryTimeout:    v.GetDuration("query.timeout"),
		CacheStale:      v.GetDuration("cache.stale"),
		CacheRevalidate: v.GetDuration("cache.revalidate"),
		CacheExpire:     v.GetDuration("cache.expire"),
		RefreshEnabled:  v.GetBool("refresh.enabled"),
		RefreshInterval: v.GetDuration("refresh.interval"),
		RefreshWindow:   v.GetInt("refresh.window"),
		HeadlessEnabled: v.GetBool("headless.enabled"),
		HeadlessTimeout: v.GetDuration("headless.timeout"),
		CarrierBaseURLs: v.GetStringMapString("carriers.base_urls"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// setDefaults sets default values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "localhost")

	v.SetDefault("database.path", "./rastreo.db")

	v.SetDefault("logging.level", "info")

	v.SetDefault("query.timeout", "30s")

	v.SetDefault("cache.stale", "5m")
	v.SetDefault("cache.revalidate", "4h")
	v.SetDefault("cache.expire", "6h")

	v.SetDefault("refresh.enabled", true)
	v.SetDefault("refresh.interval", "30m")
	v.SetDefault("refresh.window", 10)

	v.SetDefault("headless.enabled", true)
	v.SetDefault("headless.timeout", "45s")
}

// setupEnvBinding binds environment variables
func setupEnvBinding(v *viper.Viper) {
	v.SetEnvPrefix("RASTREO")
	v.AutomaticEnv()

	envBindings := map[string]string{
		"server.port":      "SERVER_PORT",
		"server.host":      "SERVER_HOST",
		"database.path":    "DATABASE_PATH",
		"logging.level":    "LOGGING_LEVEL",
		"query.timeout":    "QUERY_TIMEOUT",
		"cache.stale":      "CACHE_STALE",
		"cache.revalidate": "CACHE_REVALIDATE",
		"cache.expire":     "CACHE_EXPIRE",
		"refresh.enabled":  "REFRESH_ENABLED",
		"refresh.interval": "REFRESH_INTERVAL",
		"refresh.window":   "REFRESH_WINDOW",
		"headless.enabled": "HEADLESS_ENABLED",
		"headless.timeout": "HEADLESS_TIMEOUT",
	}
	for configKey, envSuffix := range envBindings {
		v.BindEnv(configKey, "RASTREO_"+envSuffix)
	}
}

// loadConfigFile reads an optional config file. A missing file is fine;
// a broken one is not.
func loadConfigFile(v *viper.Viper) error {
	if cf := v.GetString("config"); cf != "" {
		v.SetConfigFile(cf)
		return v.ReadInConfig()
	}
	v.SetConfigName("rastreo")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.rastreo")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}
	return nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if _, err := strconv.Atoi(c.ServerPort); err != nil {
		return fmt.Errorf("invalid server port: %s", c.ServerPort)
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if c.QueryTimeout <= 0 {
		return fmt.Errorf("query timeout must be positive")
	}
	if c.CacheStale <= 0 || c.CacheRevalidate <= 0 || c.CacheExpire <= 0 {
		return fmt.Errorf("cache windows must be positive")
	}
	if c.CacheStale > c.CacheRevalidate || c.CacheRevalidate > c.CacheExpire {
		return fmt.Errorf("cache windows must be ordered: stale <= revalidate <= expire")
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh interval must be positive")
	}
	if c.RefreshWindow <= 0 {
		return fmt.Errorf("refresh window must be positive")
	}
	return nil
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return c.ServerHost + ":" + c.ServerPort
}
