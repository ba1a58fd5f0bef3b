package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the resolver tool.
// Zero values mean "unspecified" and will be replaced by defaults in ApplyDefaults.
type Config struct {
	// RuntimeCommand is the external application invocation, e.g. ["python3", "launch.py"].
	RuntimeCommand []string `json:"runtime_command" yaml:"runtime_command" toml:"runtime_command"`
	RuntimeDir     string   `json:"runtime_dir" yaml:"runtime_dir" toml:"runtime_dir"`
	Host           string   `json:"host" yaml:"host" toml:"host"`
	PortStart      int      `json:"port_start" yaml:"port_start" toml:"port_start"`
	PortEnd        int      `json:"port_end" yaml:"port_end" toml:"port_end"`
	// TimeoutSec bounds each launch attempt; GraceSec is the SIGTERM-to-kill window.
	TimeoutSec int `json:"timeout_sec" yaml:"timeout_sec" toml:"timeout_sec"`
	GraceSec   int `json:"grace_sec" yaml:"grace_sec" toml:"grace_sec"`
	TailLines  int `json:"tail_lines" yaml:"tail_lines" toml:"tail_lines"`
	// MatrixPath overrides the embedded compatibility matrix.
	MatrixPath   string `json:"matrix_path" yaml:"matrix_path" toml:"matrix_path"`
	ReadyPattern string `json:"ready_pattern" yaml:"ready_pattern" toml:"ready_pattern"`
	ReadyPath    string `json:"ready_path" yaml:"ready_path" toml:"ready_path"`
	ListenAddr   string `json:"listen_addr" yaml:"listen_addr" toml:"listen_addr"`
	LogLevel     string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// FromEnv fills unset fields from WEBUICTL_* environment variables, loading a
// .env file first when present.
func (c *Config) FromEnv() {
	_ = godotenv.Load()
	if len(c.RuntimeCommand) == 0 {
		if v := os.Getenv("WEBUICTL_RUNTIME"); v != "" {
			c.RuntimeCommand = strings.Fields(v)
		}
	}
	if c.RuntimeDir == "" {
		c.RuntimeDir = os.Getenv("WEBUICTL_RUNTIME_DIR")
	}
	if c.Host == "" {
		c.Host = os.Getenv("WEBUICTL_HOST")
	}
	if c.MatrixPath == "" {
		c.MatrixPath = os.Getenv("WEBUICTL_MATRIX")
	}
	if c.LogLevel == "" {
		c.LogLevel = os.Getenv("WEBUICTL_LOG_LEVEL")
	}
	if c.ListenAddr == "" {
		c.ListenAddr = os.Getenv("WEBUICTL_LISTEN")
	}
}

// ApplyDefaults replaces unset fields with working defaults.
func (c *Config) ApplyDefaults() {
	if len(c.RuntimeCommand) == 0 {
		c.RuntimeCommand = []string{"python3", "launch.py"}
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.TimeoutSec <= 0 {
		c.TimeoutSec = 300
	}
	if c.GraceSec <= 0 {
		c.GraceSec = 5
	}
	if c.TailLines <= 0 {
		c.TailLines = 80
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
