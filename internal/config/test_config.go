package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:  DriverSQLite,
			Path:    ":memory:",
			Timeout: 1 * time.Second,
		},
		Feed: FeedConfig{
			HTTPTimeout:  5 * time.Second,
			UserAgent:    "feedagg-test/1.0",
			Workers:      1,
			MaxBodyBytes: 1 << 20,
		},
		Log:    LogConfig{Level: "off"},
		Server: defaultConfig().Server,
	}
}
