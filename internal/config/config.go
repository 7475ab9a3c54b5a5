package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database" toml:"database"`
	Feed     FeedConfig     `mapstructure:"feed" toml:"feed"`
	Sources  SourcesConfig  `mapstructure:"sources" toml:"sources"`
	Log      LogConfig      `mapstructure:"log" toml:"log"`
	Server   ServerConfig   `mapstructure:"server" toml:"server"`
}

type DatabaseConfig struct {
	Driver      string        `mapstructure:"driver" toml:"driver"`
	Path        string        `mapstructure:"path" toml:"path"`
	Timeout     time.Duration `mapstructure:"timeout" toml:"timeout"`
	SearchIndex string        `mapstructure:"search_index" toml:"search_index"`
}

type FeedConfig struct {
	HTTPTimeout  time.Duration `mapstructure:"http_timeout" toml:"http_timeout"`
	UserAgent    string        `mapstructure:"user_agent" toml:"user_agent"`
	Workers      int           `mapstructure:"workers" toml:"workers"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" toml:"max_body_bytes"`
}

// SourcesConfig points at the optional category → URL list file used by
// the file-source aggregation path.
type SourcesConfig struct {
	File string `mapstructure:"file" toml:"file"`
}

type LogConfig struct {
	Level string `mapstructure:"level" toml:"level"`
	File  string `mapstructure:"file" toml:"file"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" toml:"addr"`
}

// DefaultDBPath is relative to the working directory, like the sources file.
func DefaultDBPath() string {
	return filepath.Join("data", "feeds.db")
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:      DriverSQLite,
			Path:        DefaultDBPath(),
			Timeout:     1 * time.Second,
			SearchIndex: "",
		},
		Feed: FeedConfig{
			HTTPTimeout:  20 * time.Second,
			UserAgent:    "feedagg/1.0 (+https://github.com/pders01/feedagg)",
			Workers:      1,
			MaxBodyBytes: 10 << 20,
		},
		Log: LogConfig{
			Level: "warn",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// Default returns a fresh copy of the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v, defaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "feedagg")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FEEDAGG")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	expandPaths(&config)

	return &config, nil
}

// setDefaults registers leaf keys so a file that sets only some fields of a
// section keeps the defaults for the rest.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("database.driver", cfg.Database.Driver)
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.timeout", cfg.Database.Timeout)
	v.SetDefault("database.search_index", cfg.Database.SearchIndex)
	v.SetDefault("feed.http_timeout", cfg.Feed.HTTPTimeout)
	v.SetDefault("feed.user_agent", cfg.Feed.UserAgent)
	v.SetDefault("feed.workers", cfg.Feed.Workers)
	v.SetDefault("feed.max_body_bytes", cfg.Feed.MaxBodyBytes)
	v.SetDefault("sources.file", cfg.Sources.File)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("server.addr", cfg.Server.Addr)
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverBolt:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Feed.Workers < 1 {
		c.Feed.Workers = 1
	}
	if c.Feed.HTTPTimeout <= 0 {
		return fmt.Errorf("feed.http_timeout must be positive")
	}
	return nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Database.SearchIndex = expandPath(cfg.Database.SearchIndex)
	cfg.Sources.File = expandPath(cfg.Sources.File)
	cfg.Log.File = expandPath(cfg.Log.File)
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Durations as strings keep the TOML readable
	dbCfg := map[string]interface{}{
		"driver":       config.Database.Driver,
		"path":         config.Database.Path,
		"timeout":      config.Database.Timeout.String(),
		"search_index": config.Database.SearchIndex,
	}

	feedCfg := map[string]interface{}{
		"http_timeout":   config.Feed.HTTPTimeout.String(),
		"user_agent":     config.Feed.UserAgent,
		"workers":        config.Feed.Workers,
		"max_body_bytes": config.Feed.MaxBodyBytes,
	}

	v.Set("database", dbCfg)
	v.Set("feed", feedCfg)
	v.Set("sources", map[string]interface{}{"file": config.Sources.File})
	v.Set("log", map[string]interface{}{"level": config.Log.Level, "file": config.Log.File})
	v.Set("server", map[string]interface{}{"addr": config.Server.Addr})

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}

// Marshal renders the effective configuration as TOML.
func Marshal(config *Config) ([]byte, error) {
	out := struct {
		Database map[string]any `toml:"database"`
		Feed     map[string]any `toml:"feed"`
		Sources  SourcesConfig  `toml:"sources"`
		Log      LogConfig      `toml:"log"`
		Server   ServerConfig   `toml:"server"`
	}{
		Database: map[string]any{
			"driver":       config.Database.Driver,
			"path":         config.Database.Path,
			"timeout":      config.Database.Timeout.String(),
			"search_index": config.Database.SearchIndex,
		},
		Feed: map[string]any{
			"http_timeout":   config.Feed.HTTPTimeout.String(),
			"user_agent":     config.Feed.UserAgent,
			"workers":        config.Feed.Workers,
			"max_body_bytes": config.Feed.MaxBodyBytes,
		},
		Sources: config.Sources,
		Log:     config.Log,
		Server:  config.Server,
	}
	return toml.Marshal(out)
}
