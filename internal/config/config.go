// Package config loads the signing service configuration from flags,
// environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Default values
	DefaultPort          = 8080
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultMaxUploadSize = 50 * 1024 * 1024 // 50MB

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the signing service.
type Config struct {
	// Server configuration
	Host string
	Port int

	// BaseURL is the externally reachable URL used when building
	// signing links.
	BaseURL string

	// DataDir holds the SQLite database and uploaded PDFs.
	DataDir string

	// MaxUploadSize is the maximum accepted PDF size in bytes.
	MaxUploadSize int64

	// Application configuration
	Version     string
	ServiceName string
	LogLevel    string
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Host:          DefaultHost,
		Port:          DefaultPort,
		BaseURL:       fmt.Sprintf("http://%s:%d", DefaultHost, DefaultPort),
		DataDir:       filepath.Join(home, ".docforge-sign"),
		MaxUploadSize: DefaultMaxUploadSize,
		Version:       "1.0.0",
		ServiceName:   "docforge-sign",
		LogLevel:      DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and returns a
// configuration.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.DataDir != "" {
		if expandedPath, err := filepath.Abs(cfg.DataDir); err == nil {
			cfg.DataDir = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables
// and defaults.
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("DOCFORGE_SIGN")
	viper.AutomaticEnv()

	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("baseurl", cfg.BaseURL)
	viper.SetDefault("datadir", cfg.DataDir)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxuploadsize", cfg.MaxUploadSize)
}

// defineCommandLineFlags sets up all command line flags.
func defineCommandLineFlags(cfg *Config) {
	pflag.String("host", cfg.Host, "Server host address")
	pflag.Int("port", cfg.Port, "Server port")
	pflag.String("baseurl", cfg.BaseURL, "Externally reachable base URL used in signing links")
	pflag.String("datadir", cfg.DataDir, "Directory for the database and uploaded PDFs")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxuploadsize", cfg.MaxUploadSize, "Maximum PDF upload size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration.
func bindFlagsToViper() {
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("baseurl", pflag.Lookup("baseurl"))
	_ = viper.BindPFlag("datadir", pflag.Lookup("datadir"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxuploadsize", pflag.Lookup("maxuploadsize"))
}

// populateConfigFromViper reads final values from viper.
func populateConfigFromViper(cfg *Config) {
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.BaseURL = viper.GetString("baseurl")
	cfg.DataDir = viper.GetString("datadir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxUploadSize = viper.GetInt64("maxuploadsize")
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.BaseURL == "" {
		return errors.New("baseurl cannot be empty")
	}
	if c.DataDir == "" {
		return errors.New("datadir cannot be empty")
	}
	if c.MaxUploadSize <= 0 {
		return errors.New("maxuploadsize must be greater than 0")
	}
	if c.MaxUploadSize > 1024*1024*1024 {
		return errors.New("maxuploadsize cannot exceed 1GB")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return nil
}

// UploadDir returns the directory uploaded PDFs are stored in.
func (c *Config) UploadDir() string {
	return filepath.Join(c.DataDir, "uploads")
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug reports whether debug logging is enabled.
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}
