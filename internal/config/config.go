// Package config loads client configuration from a YAML file, the
// environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/omochice/chat-session/internal/log"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// EnvPrefix prefixes every environment override, e.g. CHAT_SERVER_URL.
const EnvPrefix = "CHAT"

// Transport drivers.
const (
	DriverWS      = "ws"
	DriverGorilla = "gorilla"
	DriverGobwas  = "gobwas"
	DriverTCP     = "tcp"
)

// Drivers lists every supported transport driver.
var Drivers = []string{DriverWS, DriverGorilla, DriverGobwas, DriverTCP}

// Config is the full client configuration.
type Config struct {
	Username  string          `mapstructure:"username"`
	Server    ServerConfig    `mapstructure:"server"`
	Transport TransportConfig `mapstructure:"transport"`
	Session   SessionConfig   `mapstructure:"session"`
	Log       log.Config      `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	URL string `mapstructure:"url"`
}

type TransportConfig struct {
	Driver       string        `mapstructure:"driver"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	QueueSize    int           `mapstructure:"queue_size"`
}

type SessionConfig struct {
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	TypingTimeout  time.Duration `mapstructure:"typing_timeout"`
}

type MetricsConfig struct {
	// Addr is the listen address of the /metrics endpoint. Empty disables it.
	Addr string `mapstructure:"addr"`
}

// New returns a viper instance with defaults and environment overrides set up.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("username", "")
	v.SetDefault("server.url", "ws://localhost:8080/ws")
	v.SetDefault("transport.driver", DriverWS)
	v.SetDefault("transport.dial_timeout", "5s")
	v.SetDefault("transport.write_timeout", "5s")
	v.SetDefault("transport.queue_size", 64)
	v.SetDefault("session.reconnect_delay", "3s")
	v.SetDefault("session.typing_timeout", "3s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
	v.SetDefault("metrics.addr", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file into v and decodes the result.
// With an empty configFile, chat-session.yaml is looked up in the working
// directory and ~/.config/chat-session, and a missing file is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("chat-session")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/chat-session")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv loads variables from a .env file. A missing file is ignored and
// variables already present in the environment win.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.URL) == "" {
		return fmt.Errorf("%w: server.url is required", ErrInvalidConfig)
	}
	if !validDriver(c.Transport.Driver) {
		return fmt.Errorf("%w: unknown transport.driver %q (want one of %s)",
			ErrInvalidConfig, c.Transport.Driver, strings.Join(Drivers, ", "))
	}

	if c.Transport.QueueSize <= 0 {
		return fmt.Errorf("%w: transport.queue_size must be positive, got %d", ErrInvalidConfig, c.Transport.QueueSize)
	}

	durations := []struct {
		key string
		d   time.Duration
	}{
		{"transport.dial_timeout", c.Transport.DialTimeout},
		{"transport.write_timeout", c.Transport.WriteTimeout},
		{"session.reconnect_delay", c.Session.ReconnectDelay},
		{"session.typing_timeout", c.Session.TypingTimeout},
	}
	for _, entry := range durations {
		if entry.d <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidConfig, entry.key, entry.d)
		}
	}
	return nil
}

func validDriver(driver string) bool {
	for _, d := range Drivers {
		if d == driver {
			return true
		}
	}
	return false
}
