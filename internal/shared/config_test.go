package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./plexlist.db" {
			t.Errorf("expected database path ./plexlist.db, got %s", config.Database.Path)
		}

		if config.Server.Host != "localhost" || config.Server.Port != 8000 {
			t.Errorf("expected server localhost:8000, got %s:%d", config.Server.Host, config.Server.Port)
		}

		if config.Plex.URL != "http://127.0.0.1:32400" || config.Plex.ImportMode != "create_new" {
			t.Errorf("unexpected plex defaults %+v", config.Plex)
		}

		if config.Import.Workers != 2 || config.Import.MatchWorkers != 1 {
			t.Errorf("unexpected import defaults %+v", config.Import)
		}

		if config.Plex.Configured() {
			t.Error("default config has no token and should not count as configured")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
port = 8080

[plex]
url = "http://plex.local:32400"
token = "abc"
import_mode = "update_existing"
playlist_name = "Daily Mix"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Server.Host != "localhost" {
			t.Errorf("missing keys should keep defaults, got host %q", config.Server.Host)
		}

		if !config.Plex.Configured() || config.Plex.PlaylistName != "Daily Mix" {
			t.Errorf("unexpected plex settings %+v", config.Plex)
		}
	})

	t.Run("LoadConfig reports a missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("LoadConfig rejects malformed TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[plex\nurl ="), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("SaveConfig round trip", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		config := DefaultConfig()
		config.Plex.Token = "saved-token"
		config.Import.MatchWorkers = 4

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}
		if loaded.Plex.Token != "saved-token" || loaded.Import.MatchWorkers != 4 {
			t.Errorf("saved values were not reloaded: %+v %+v", loaded.Plex, loaded.Import)
		}
	})

	t.Run("Timeouts", func(t *testing.T) {
		if got := (PlexConfig{}).Timeout(); got != 15*time.Second {
			t.Errorf("expected default plex timeout 15s, got %v", got)
		}
		if got := (PlexConfig{TimeoutSeconds: 3}).Timeout(); got != 3*time.Second {
			t.Errorf("expected 3s, got %v", got)
		}
		if got := (SourcesConfig{}).Timeout(); got != 10*time.Second {
			t.Errorf("expected default source timeout 10s, got %v", got)
		}
	})
}
