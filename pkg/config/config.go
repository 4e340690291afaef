// Package config loads nutctl settings by layering defaults, an optional
// YAML file, a .env file, and NUTCTL_ environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// FileName is the config file looked up in the app home directory.
	FileName = "config.yaml"

	// EnvPrefix prefixes every environment override, e.g. NUTCTL_API_KEY.
	EnvPrefix = "NUTCTL_"

	// EnvConfigPath points at an explicit config file.
	EnvConfigPath = "NUTCTL_CONFIG"

	DefaultAPIURL   = "https://api.nal.usda.gov/fdc/v1"
	DefaultDataType = "Branded"

	// FoodData Central caps: 200 results per search page, 20 IDs per detail request.
	MaxPageSize  = 200
	MaxBatchSize = 20

	dirMode  = 0700
	fileMode = 0600
)

// Sentinel error kinds for this package.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Config represents app config object.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" yaml:"log_level"`

	// APIKey is the api.data.gov key used for FoodData Central.
	APIKey string `koanf:"api_key" yaml:"api_key,omitempty"`

	// APIURL is the FoodData Central base URL.
	APIURL string `koanf:"api_url" yaml:"api_url"`

	// DataType is a comma separated list of FDC data types to search.
	DataType string `koanf:"data_type" yaml:"data_type"`

	PageSize       int `koanf:"page_size" yaml:"page_size"`
	BatchSize      int `koanf:"batch_size" yaml:"batch_size"`
	Concurrency    int `koanf:"concurrency" yaml:"concurrency"`
	TimeoutSeconds int `koanf:"timeout_seconds" yaml:"timeout_seconds"`

	// DB is a sqlite file path or a postgres:// DSN. Empty means $HOME/.nutctl/data.db.
	DB string `koanf:"db" yaml:"db,omitempty"`

	// Port is the dashboard listen port.
	Port int `koanf:"port" yaml:"port"`

	// Goal is the default scoring goal.
	Goal string `koanf:"goal" yaml:"goal"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		APIURL:         DefaultAPIURL,
		DataType:       DefaultDataType,
		PageSize:       100,
		BatchSize:      MaxBatchSize,
		Concurrency:    4,
		TimeoutSeconds: 60,
		Port:           8080,
		Goal:           "muscle_gain",
	}
}

// DataTypes splits DataType into its trimmed, non-empty parts.
func (c *Config) DataTypes() []string {
	parts := strings.Split(c.DataType, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	return list
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	r := *c
	if r.APIKey != "" {
		r.APIKey = "****"
	}
	return &r
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.APIURL == "":
		return fmt.Errorf("%w: api_url must not be empty", ErrInvalidConfig)
	case c.PageSize < 1 || c.PageSize > MaxPageSize:
		return fmt.Errorf("%w: page_size must be between 1 and %d", ErrInvalidConfig, MaxPageSize)
	case c.BatchSize < 1 || c.BatchSize > MaxBatchSize:
		return fmt.Errorf("%w: batch_size must be between 1 and %d", ErrInvalidConfig, MaxBatchSize)
	case c.Concurrency < 1:
		return fmt.Errorf("%w: concurrency must be positive", ErrInvalidConfig)
	case c.TimeoutSeconds < 1:
		return fmt.Errorf("%w: timeout_seconds must be positive", ErrInvalidConfig)
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("%w: port out of range", ErrInvalidConfig)
	case len(c.DataTypes()) == 0:
		return fmt.Errorf("%w: data_type must not be empty", ErrInvalidConfig)
	}
	return nil
}

// Save writes the config as YAML into dirPath.
func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dirPath, FileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// GetOrCreateHomeDir returns the app directory under the user home.
// The created flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("failed to get user home dir: %w", err)
	}
	slog.Debug("home dir", "path", home)

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("failed to create dir %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}
