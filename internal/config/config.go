package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
}

// ServerConfig configures the listener and lobby limits.
type ServerConfig struct {
	Address            string `mapstructure:"address"`
	MaxPlayersPerLobby int    `mapstructure:"max_players_per_lobby"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
}

// DatabaseConfig configures the optional result archive.
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// Load reads configuration from the given YAML file, with environment
// variables (TRICKTAKE_ prefix) overriding file values. A missing file is
// not an error; defaults keep the server runnable with no config at all.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":3001")
	v.SetDefault("server.max_players_per_lobby", 8)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.url", "")

	v.SetEnvPrefix("TRICKTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			// A missing file falls back to defaults; a present but
			// unreadable or malformed file is fatal.
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
