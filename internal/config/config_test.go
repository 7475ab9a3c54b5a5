package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("Database.Driver = %s, want %s", cfg.Database.Driver, DriverSQLite)
	}
	if cfg.Database.Path != DefaultDBPath() {
		t.Errorf("Database.Path = %s, want data/feeds.db", cfg.Database.Path)
	}
	if cfg.Feed.HTTPTimeout != 20*time.Second {
		t.Errorf("Feed.HTTPTimeout = %v, want 20s", cfg.Feed.HTTPTimeout)
	}
	if cfg.Feed.Workers != 1 {
		t.Errorf("Feed.Workers = %d, want 1", cfg.Feed.Workers)
	}
	if cfg.Feed.UserAgent == "" {
		t.Error("Feed.UserAgent should not be empty")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %s, want warn", cfg.Log.Level)
	}
}

func TestDefaultDBPath(t *testing.T) {
	if got, want := DefaultDBPath(), filepath.Join("data", "feeds.db"); got != want {
		t.Errorf("DefaultDBPath() = %s, want %s", got, want)
	}
}

func TestDefault_ReturnsFreshCopy(t *testing.T) {
	a := Default()
	a.Feed.UserAgent = "mutated"

	b := Default()
	if b.Feed.UserAgent == "mutated" {
		t.Error("Default() shares state between calls")
	}
}

func TestLoad_DefaultConfig(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}

	if cfg.Feed.HTTPTimeout != 20*time.Second {
		t.Errorf("Feed.HTTPTimeout = %v, want 20s", cfg.Feed.HTTPTimeout)
	}
	if !filepath.IsAbs(cfg.Database.Path) {
		t.Errorf("Database.Path = %s, want absolute path", cfg.Database.Path)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "test-config.toml")
	configContent := `
[database]
driver = "bolt"
path = "/tmp/test.db"

[feed]
http_timeout = "15s"
user_agent = "test-agent"
workers = 4
`

	if writeErr := os.WriteFile(configPath, []byte(configContent), 0o644); writeErr != nil {
		t.Fatal(writeErr)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Driver != DriverBolt {
		t.Errorf("Database.Driver = %s, want bolt", cfg.Database.Driver)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %s, want '/tmp/test.db'", cfg.Database.Path)
	}
	// not set in the file, default must survive
	if cfg.Database.Timeout != 1*time.Second {
		t.Errorf("Database.Timeout = %v, want 1s", cfg.Database.Timeout)
	}
	if cfg.Feed.HTTPTimeout != 15*time.Second {
		t.Errorf("Feed.HTTPTimeout = %v, want 15s", cfg.Feed.HTTPTimeout)
	}
	if cfg.Feed.UserAgent != "test-agent" {
		t.Errorf("Feed.UserAgent = %s, want 'test-agent'", cfg.Feed.UserAgent)
	}
	if cfg.Feed.Workers != 4 {
		t.Errorf("Feed.Workers = %d, want 4", cfg.Feed.Workers)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %s, want warn", cfg.Log.Level)
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(configPath, []byte("[database]\ndriver = \"mongo\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if !strings.Contains(err.Error(), "mongo") {
		t.Errorf("error %q should name the driver", err)
	}
}

func TestValidate_ClampsWorkers(t *testing.T) {
	cfg := defaultConfig()
	cfg.Feed.Workers = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Feed.Workers != 1 {
		t.Errorf("Feed.Workers = %d, want 1", cfg.Feed.Workers)
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:  DriverBolt,
			Path:    "/test/path.db",
			Timeout: 10 * time.Second,
		},
		Feed: FeedConfig{
			HTTPTimeout:  45 * time.Second,
			UserAgent:    "test-save-agent",
			Workers:      2,
			MaxBodyBytes: 1024,
		},
		Log:    LogConfig{Level: "debug"},
		Server: ServerConfig{Addr: ":9090"},
	}

	savePath := filepath.Join(tmpDir, "nested", "saved-config.toml")
	if saveErr := Save(cfg, savePath); saveErr != nil {
		t.Fatalf("Save() error = %v", saveErr)
	}

	if _, statErr := os.Stat(savePath); os.IsNotExist(statErr) {
		t.Fatal("Save() did not create config file")
	}

	loaded, err := Load(savePath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if loaded.Database.Path != cfg.Database.Path {
		t.Errorf("Loaded Database.Path = %s, want %s", loaded.Database.Path, cfg.Database.Path)
	}
	if loaded.Database.Driver != cfg.Database.Driver {
		t.Errorf("Loaded Database.Driver = %s, want %s", loaded.Database.Driver, cfg.Database.Driver)
	}
	if loaded.Feed.UserAgent != cfg.Feed.UserAgent {
		t.Errorf("Loaded Feed.UserAgent = %s, want %s", loaded.Feed.UserAgent, cfg.Feed.UserAgent)
	}
	if loaded.Feed.HTTPTimeout != cfg.Feed.HTTPTimeout {
		t.Errorf("Loaded Feed.HTTPTimeout = %v, want %v", loaded.Feed.HTTPTimeout, cfg.Feed.HTTPTimeout)
	}
	if loaded.Server.Addr != ":9090" {
		t.Errorf("Loaded Server.Addr = %s, want :9090", loaded.Server.Addr)
	}
}

func TestGenerateDefaultConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "generated.toml")
	if genErr := GenerateDefaultConfig(configPath); genErr != nil {
		t.Fatalf("GenerateDefaultConfig() error = %v", genErr)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load generated config: %v", err)
	}

	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("Generated config has Database.Driver = %s, want sqlite", cfg.Database.Driver)
	}
}

func TestMarshal(t *testing.T) {
	out, err := Marshal(defaultConfig())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	text := string(out)
	for _, want := range []string{"[database]", "driver = 'sqlite'", "http_timeout = '20s'", "[server]"} {
		if !strings.Contains(text, want) {
			t.Errorf("Marshal() output missing %q:\n%s", want, text)
		}
	}
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()

	if cfg == nil {
		t.Fatal("TestConfig() returned nil")
	}

	if cfg.Database.Path != ":memory:" {
		t.Errorf("TestConfig Database.Path = %s, want ':memory:'", cfg.Database.Path)
	}
	if cfg.Feed.UserAgent != "feedagg-test/1.0" {
		t.Errorf("TestConfig Feed.UserAgent = %s, want 'feedagg-test/1.0'", cfg.Feed.UserAgent)
	}
}
