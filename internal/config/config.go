// Package config resolves the runtime settings of serial-echo from built-in
// defaults, an optional YAML file, the container environment and flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/serial-echo/internal/echo"
	"github.com/banshee-data/serial-echo/internal/fsutil"
	"github.com/banshee-data/serial-echo/internal/monitoring"
)

// Environment variables read by ApplyEnv and Resolve.
const (
	EnvDevice     = "IR_SERIAL"
	EnvLogDir     = "CAF_APP_LOG_DIR"
	EnvConfigPath = "SERIAL_ECHO_CONFIG"
)

// Defaults.
const (
	DefaultDevice       = "/dev/ttySerial"
	DefaultLogDir       = "/tmp"
	DefaultPollInterval = "2s"
	DefaultDecodePolicy = "replace"
	DefaultLogLevel     = "info"

	// MinPollInterval keeps a misconfigured loop from spinning on the device.
	MinPollInterval = 10 * time.Millisecond
)

// maxFileSize caps config files at 1MB.
const maxFileSize = 1 * 1024 * 1024

// Config holds the resolved settings.
type Config struct {
	Device       string `yaml:"device"`
	LogDir       string `yaml:"log_dir"`
	LogFile      string `yaml:"log_file"`
	PollInterval string `yaml:"poll_interval"` // duration string like "2s"
	DecodePolicy string `yaml:"decode_policy"` // "replace" or "skip"
	LogLevel     string `yaml:"log_level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Device:       DefaultDevice,
		LogDir:       DefaultLogDir,
		LogFile:      monitoring.LogFileName,
		PollInterval: DefaultPollInterval,
		DecodePolicy: DefaultDecodePolicy,
		LogLevel:     DefaultLogLevel,
	}
}

// Load reads a YAML file over the defaults. The file must have a .yaml or
// .yml extension and be under 1MB. Unknown keys are rejected. Fields omitted
// from the file keep their default values.
func Load(fsys fsutil.FileSystem, path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .yaml or .yml extension, got %q", ext)
	}

	info, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides the device and log directory from the environment. A
// variable that is set wins even when empty; Validate rejects the empty case.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvDevice); ok {
		c.Device = v
	}
	if v, ok := lookup(EnvLogDir); ok {
		c.LogDir = v
	}
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if c.Device == "" {
		return errors.New("device path must not be empty")
	}
	if c.LogDir == "" {
		return errors.New("log_dir must not be empty")
	}
	if c.LogFile == "" || filepath.Base(c.LogFile) != c.LogFile {
		return fmt.Errorf("log_file must be a plain file name, got %q", c.LogFile)
	}

	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return fmt.Errorf("invalid poll_interval '%s': %w", c.PollInterval, err)
	}
	if d < MinPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", MinPollInterval, d)
	}

	if _, err := echo.ParseDecodePolicy(c.DecodePolicy); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// GetPollInterval returns the poll interval, falling back to the default when
// the configured value does not parse.
func (c *Config) GetPollInterval() time.Duration {
	if d, err := time.ParseDuration(c.PollInterval); err == nil {
		return d
	}
	return echo.DefaultInterval
}

// GetDecodePolicy returns the decode policy, falling back to replacement.
func (c *Config) GetDecodePolicy() echo.DecodePolicy {
	if p, err := echo.ParseDecodePolicy(c.DecodePolicy); err == nil {
		return p
	}
	return echo.DecodeReplace
}

// LogFilePath joins the log directory and file name.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.LogDir, c.LogFile)
}
