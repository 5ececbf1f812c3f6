package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Server configures the lobby server binary.
type Server struct {
	Mode     string `mapstructure:"mode"`
	Port     int    `mapstructure:"port"`
	Secret   string `mapstructure:"secret"`
	LogLevel string `mapstructure:"log_level"`

	// PublicHost and PublicPort are advertised in relay allocations.
	PublicHost string `mapstructure:"public_host"`
	PublicPort int    `mapstructure:"public_port"`

	Store       string `mapstructure:"store"`
	PostgresDSN string `mapstructure:"postgres_dsn"`

	RoomTTL       time.Duration `mapstructure:"room_ttl"`
	JanitorPeriod time.Duration `mapstructure:"janitor_period"`
	AllocationTTL time.Duration `mapstructure:"allocation_ttl"`

	RateLimit  int           `mapstructure:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window"`

	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
}

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

func (c *Server) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("store %q requires postgres_dsn", c.Store)
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if len(c.Secret) < 16 {
		return fmt.Errorf("secret must be at least 16 bytes")
	}
	return nil
}

// Load reads config/config.<CONFIG_ENV>.yaml over the defaults. LOBBY_*
// environment variables override both.
func Load() (*Server, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("LOBBY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("secret", "lobby-dev-secret-change-me")
	v.SetDefault("log_level", "info")
	v.SetDefault("public_host", "localhost")
	v.SetDefault("public_port", 8080)
	v.SetDefault("store", StoreMemory)
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("room_ttl", "30s")
	v.SetDefault("janitor_period", "5s")
	v.SetDefault("allocation_ttl", "10m")
	v.SetDefault("rate_limit", 20)
	v.SetDefault("rate_window", "1m")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Server
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Store: %s\n", cfg.Mode, cfg.Port, cfg.Store)
	return &cfg, nil
}
