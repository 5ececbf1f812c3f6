package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_ENV", "missing")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 || cfg.Store != StoreMemory {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.RoomTTL != 30*time.Second || cfg.AllocationTTL != 10*time.Minute {
		t.Fatalf("unexpected durations: room_ttl=%s allocation_ttl=%s", cfg.RoomTTL, cfg.AllocationTTL)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	yaml := "port: 9000\nroom_ttl: 1m\nsecret: 0123456789abcdef0123\n"
	if err := os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_ENV", "test")
	t.Setenv("LOBBY_PUBLIC_HOST", "relay.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9000 || cfg.RoomTTL != time.Minute {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.PublicHost != "relay.example" {
		t.Fatalf("env override not applied: %q", cfg.PublicHost)
	}
}

func TestServerValidate(t *testing.T) {
	cfg := Server{Store: StorePostgres, Port: 8080, Secret: "0123456789abcdef"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("postgres without dsn should fail")
	}
	cfg.Store = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("unknown store should fail")
	}
}

func TestLoadClient_Precedence(t *testing.T) {
	t.Setenv("LOBBY_PLAYER_NAME", "from-env")
	t.Setenv("LOBBY_MAX_PLAYERS", "6")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("player-name", "", "")
	fs.Int("max-players", 0, "")
	fs.Duration("poll-interval", 0, "")
	if err := fs.Parse([]string{"--player-name", "from-flag"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg, err := LoadClient("", fs)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PlayerName != "from-flag" {
		t.Fatalf("flag should win, got %q", cfg.PlayerName)
	}
	if cfg.MaxPlayers != 6 {
		t.Fatalf("env should beat default, got %d", cfg.MaxPlayers)
	}
	if cfg.PollInterval != 2*time.Second || cfg.RoomLostAfter != 5 || cfg.JoinAttempts != 3 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadClient_RejectsBadCapacity(t *testing.T) {
	t.Setenv("LOBBY_MAX_PLAYERS", "0")
	if _, err := LoadClient("", nil); err == nil {
		t.Fatalf("expected validation error")
	}
}

// chdir changes the working directory for the duration of the test
// (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
