package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/raysh454/headprobe/internal/demoserver"
	"github.com/raysh454/headprobe/internal/urlnet"
	"github.com/raysh454/headprobe/internal/webclient"
)

// Config holds every runtime option. Zero values are filled from
// DefaultConfig when loaded through LoadConfig.
type Config struct {
	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level"`

	// LogFormat is "json" or "text".
	LogFormat string `yaml:"log_format"`

	// StoragePath is the SQLite file probe history is kept in. Empty
	// disables history.
	StoragePath string `yaml:"storage_path"`

	// ListenAddr is the HTTP API listen address used by -serve.
	ListenAddr string `yaml:"listen_addr"`

	// WebClient configuration
	WebClient webclient.Config `yaml:"webclient"`

	// Request construction options
	Network urlnet.Config `yaml:"network"`

	// Demo origin started by -demo
	Demo demoserver.Config `yaml:"demo"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "json",
		StoragePath: "",
		ListenAddr:  ":8080",
		WebClient: webclient.Config{
			Client:  webclient.ClientNetHTTP,
			Timeout: 30 * time.Second,
		},
		Network: urlnet.Config{
			OmitEmptyQuery: false,
		},
		Demo: demoserver.DefaultConfig(),
	}
}

// LoadConfig reads a YAML file over DefaultConfig. A leading "~/" in
// storage_path is expanded to the user's home directory.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.StoragePath, err = expandPath(cfg.StoragePath); err != nil {
		return nil, fmt.Errorf("expanding storage path: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports option values that cannot work.
func (c *Config) Validate() error {
	if c.WebClient.Timeout < 0 {
		return fmt.Errorf("webclient.timeout must not be negative, got %s", c.WebClient.Timeout)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	return nil
}

func expandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, p[2:]), nil
}
