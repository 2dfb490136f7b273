// Package config handles application configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pgwire-go/pgwire/pkg/pgwire"
)

type Config struct {
	// Connection target
	Connection ConnectionConfig `mapstructure:"connection"`

	// Monitor (cmd/pgwire-monitor) settings
	Monitor MonitorConfig `mapstructure:"monitor"`

	// Logging
	Log LogConfig `mapstructure:"log"`
}

type ConnectionConfig struct {
	Host            string        `mapstructure:"host"`
	Port            uint16        `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	User            string        `mapstructure:"user"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	ApplicationName string        `mapstructure:"application_name"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

type MonitorConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	HistorySize     int           `mapstructure:"history_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Connection: ConnectionConfig{
			Host:           "localhost",
			Port:           5432,
			SSLMode:        "prefer",
			ConnectTimeout: 10 * time.Second,
		},
		Monitor: MonitorConfig{
			RefreshInterval: 500 * time.Millisecond,
			HistorySize:     200,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pgwire"
	}
	return filepath.Join(home, ".pgwire")
}

// Load loads configuration from defaults, the config file, and PGWIRE_*
// env vars, in that order of increasing precedence. It does not read
// command-line flags; the commands apply those to the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("connection.host", defaults.Connection.Host)
	v.SetDefault("connection.port", defaults.Connection.Port)
	v.SetDefault("connection.ssl_mode", defaults.Connection.SSLMode)
	v.SetDefault("connection.connect_timeout", defaults.Connection.ConnectTimeout)
	v.SetDefault("monitor.refresh_interval", defaults.Monitor.RefreshInterval)
	v.SetDefault("monitor.history_size", defaults.Monitor.HistorySize)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(defaultConfigDir())
		v.AddConfigPath("/etc/pgwire")
	}

	v.SetEnvPrefix("pgwire")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to a file.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.Set("connection", c.Connection)
	v.Set("monitor", c.Monitor)
	v.Set("log", c.Log)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

// Validate checks that the config describes a connection the core
// library can start up with.
func (c *Config) Validate() error {
	if c.Connection.Host == "" {
		return fmt.Errorf("connection.host is required")
	}
	if c.Connection.User == "" {
		return fmt.Errorf("connection.user is required")
	}
	if c.Connection.Port == 0 {
		return fmt.Errorf("connection.port must be nonzero")
	}
	if _, err := sslModeFromString(c.Connection.SSLMode); err != nil {
		return err
	}
	return nil
}

// ToPgwireConfig translates the loaded configuration into a
// pgwire.ConnectionConfig, ready to hand to pgwire.NewConn.
func (c *Config) ToPgwireConfig(password string) (pgwire.ConnectionConfig, error) {
	mode, err := sslModeFromString(c.Connection.SSLMode)
	if err != nil {
		return pgwire.ConnectionConfig{}, err
	}
	return pgwire.ConnectionConfig{
		Host:            c.Connection.Host,
		Port:            c.Connection.Port,
		Database:        c.Connection.Database,
		User:            c.Connection.User,
		Password:        password,
		SSLMode:         mode,
		ApplicationName: c.Connection.ApplicationName,
	}, nil
}

func sslModeFromString(s string) (pgwire.SSLMode, error) {
	switch s {
	case "disable":
		return pgwire.SSLDisable, nil
	case "prefer", "":
		return pgwire.SSLPrefer, nil
	case "require":
		return pgwire.SSLRequire, nil
	default:
		return 0, fmt.Errorf("connection.ssl_mode: unknown value %q", s)
	}
}
