package config

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/banshee-data/serial-echo/internal/fsutil"
)

// Flags holds the command-line overrides. Only flags the user actually set
// are applied, so defaults never clobber file or environment values.
type Flags struct {
	fs *pflag.FlagSet

	ConfigPath   string
	device       string
	logDir       string
	pollInterval string
	decodePolicy string
	logLevel     string
}

// NewFlags registers the serial-echo flags on a new FlagSet.
func NewFlags(name string) *Flags {
	f := &Flags{fs: pflag.NewFlagSet(name, pflag.ContinueOnError)}
	f.fs.StringVar(&f.ConfigPath, "config", "", "YAML config file (env "+EnvConfigPath+")")
	f.fs.StringVarP(&f.device, "device", "d", DefaultDevice, "serial device path (env "+EnvDevice+")")
	f.fs.StringVar(&f.logDir, "log-dir", DefaultLogDir, "directory for the log file (env "+EnvLogDir+")")
	f.fs.StringVarP(&f.pollInterval, "interval", "i", DefaultPollInterval, "time between polls of the device")
	f.fs.StringVar(&f.decodePolicy, "decode-policy", DefaultDecodePolicy, "what to do with invalid UTF-8: replace or skip")
	f.fs.StringVar(&f.logLevel, "log-level", DefaultLogLevel, "log level")
	return f
}

// Parse parses args.
func (f *Flags) Parse(args []string) error {
	return f.fs.Parse(args)
}

// Apply copies every flag the user set onto c.
func (f *Flags) Apply(c *Config) {
	if f.fs.Changed("device") {
		c.Device = f.device
	}
	if f.fs.Changed("log-dir") {
		c.LogDir = f.logDir
	}
	if f.fs.Changed("interval") {
		c.PollInterval = f.pollInterval
	}
	if f.fs.Changed("decode-policy") {
		c.DecodePolicy = f.decodePolicy
	}
	if f.fs.Changed("log-level") {
		c.LogLevel = f.logLevel
	}
}

// Resolve builds the effective configuration: defaults, then the YAML file
// named by --config or SERIAL_ECHO_CONFIG, then the environment, then flags.
func Resolve(args []string, lookup func(string) (string, bool), fsys fsutil.FileSystem) (*Config, error) {
	flags := NewFlags("serial-echo")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	path := flags.ConfigPath
	if path == "" {
		path, _ = lookup(EnvConfigPath)
	}

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(fsys, path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(lookup)
	flags.Apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
