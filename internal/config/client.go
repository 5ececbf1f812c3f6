package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Client configures the bootstrap client.
type Client struct {
	ServerURL  string `mapstructure:"server_url"`
	PlayerName string `mapstructure:"player_name"`
	RoomID     string `mapstructure:"room"`
	RoomName   string `mapstructure:"room_name"`
	MaxPlayers int    `mapstructure:"max_players"`
	Private    bool   `mapstructure:"private"`
	Ready      bool   `mapstructure:"ready"`
	LogLevel   string `mapstructure:"log_level"`

	PollInterval      time.Duration `mapstructure:"poll_interval"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	RefreshInterval   time.Duration `mapstructure:"refresh_interval"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RoomLostAfter     int           `mapstructure:"room_lost_after"`
	JoinAttempts      int           `mapstructure:"join_attempts"`

	PrefsPath string `mapstructure:"prefs_path"`
}

func (c *Client) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server_url is required")
	}
	if c.MaxPlayers < 1 || c.MaxPlayers > 100 {
		return fmt.Errorf("max_players must be between 1 and 100, got %d", c.MaxPlayers)
	}
	if c.PollInterval <= 0 || c.HeartbeatInterval <= 0 || c.RequestTimeout <= 0 {
		return errors.New("intervals must be positive")
	}
	return nil
}

func defaultPrefsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "lobby-prefs.yaml"
	}
	return filepath.Join(dir, "lobby", "prefs.yaml")
}

// ClientDefaults registers the client keys on v.
func ClientDefaults(v *viper.Viper) {
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("player_name", "Player")
	v.SetDefault("room", "")
	v.SetDefault("room_name", "MyLobby")
	v.SetDefault("max_players", 4)
	v.SetDefault("private", false)
	v.SetDefault("ready", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("poll_interval", "2s")
	v.SetDefault("heartbeat_interval", "15s")
	v.SetDefault("refresh_interval", "5s")
	v.SetDefault("request_timeout", "5s")
	v.SetDefault("room_lost_after", 5)
	v.SetDefault("join_attempts", 3)
	v.SetDefault("prefs_path", defaultPrefsPath())
}

// LoadClient resolves the client config from, in increasing priority,
// defaults, an optional config file, LOBBY_* environment variables and the
// flags in fs that were set explicitly. Flag names use dashes; keys use
// underscores.
func LoadClient(file string, fs *pflag.FlagSet) (*Client, error) {
	v := viper.New()
	v.SetEnvPrefix("LOBBY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	ClientDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	if fs != nil {
		fs.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if f.Changed {
				_ = v.BindPFlag(key, f)
			}
		})
	}

	var cfg Client
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
