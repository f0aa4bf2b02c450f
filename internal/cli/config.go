package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Format    string
	Quiet     bool
	NoColor   bool
}

// LoadConfig loads CLI configuration from file, environment, and flags.
// Flags win over environment, environment over file, file over defaults.
func LoadConfig(serverFlag, formatFlag string, quietFlag, noColorFlag bool) (*Config, error) {
	v := viper.New()
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("format", "table")
	v.SetDefault("quiet", false)
	v.SetDefault("no_color", false)

	v.SetEnvPrefix("RASTREO")
	v.AutomaticEnv()
	v.BindEnv("server_url", "RASTREO_SERVER")
	v.BindEnv("format", "RASTREO_FORMAT")
	v.BindEnv("quiet", "RASTREO_QUIET")
	v.BindEnv("no_color", "RASTREO_NO_COLOR")

	v.SetConfigName(".rastreo")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{
		ServerURL: v.GetString("server_url"),
		Format:    v.GetString("format"),
		Quiet:     v.GetBool("quiet"),
		NoColor:   v.GetBool("no_color"),
	}

	if serverFlag != "" {
		config.ServerURL = serverFlag
	}
	if formatFlag != "" {
		config.Format = formatFlag
	}
	if quietFlag {
		config.Quiet = true
	}
	if noColorFlag {
		config.NoColor = true
	}
	return config, config.validate()
}

func (c *Config) validate() error {
	if !strings.HasPrefix(c.ServerURL, "http://") && !strings.HasPrefix(c.ServerURL, "https://") {
		return fmt.Errorf("server URL must start with http:// or https://: %s", c.ServerURL)
	}
	switch c.Format {
	case "table", "json":
	default:
		return fmt.Errorf("unsupported format: %s (use table or json)", c.Format)
	}
	return nil
}
