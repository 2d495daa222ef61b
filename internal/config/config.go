// -----------------------------------------------------------------------
// Configuration Management
// -----------------------------------------------------------------------
//
// Package config provides flexible configuration loading with multiple
// sources and clear precedence. Configuration is validated at startup for
// fail-fast behavior, before any preflight check or socket is touched.
//
// Precedence (highest to lowest): command-line flags, environment variables,
// config file, default values. The merged result is validated once, so the
// same rules apply no matter where a value came from.
//
// -----------------------------------------------------------------------

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// -----------------------------------------------------------------------
// Defaults
// -----------------------------------------------------------------------

const (
	// EnvPrefix is prepended to every environment variable the exporter
	// reads its settings from.
	EnvPrefix = "JAIL_EXPORTER_"

	DefaultListenAddress = "127.0.0.1:9452"
	DefaultTelemetryPath = "/metrics"
	DefaultRateBurst     = 10
)

// envKeys maps environment variable names (without EnvPrefix) to the koanf
// keys produced by the dotted flag names.
var envKeys = map[string]string{
	"OUTPUT_FILE_PATH":   "output.file-path",
	"WEB_LISTEN_ADDRESS": "web.listen-address",
	"WEB_TELEMETRY_PATH": "web.telemetry-path",
	"WEB_RATE_LIMIT":     "web.rate-limit",
	"WEB_RATE_BURST":     "web.rate-burst",
}

// ErrVersion is returned by Load when --version was requested. The caller
// prints the version and exits successfully.
var ErrVersion = errors.New("version requested")

// ErrHelp is returned by Load when --help was requested.
var ErrHelp = pflag.ErrHelp

// -----------------------------------------------------------------------
// Type Definitions
// -----------------------------------------------------------------------

// Config holds all application configuration values. It is built once by
// Load and never mutated afterwards.
type Config struct {
	Output OutputConfig `koanf:"output"`
	Web    WebConfig    `koanf:"web"`

	// outputSet records that output.file-path was supplied by some source,
	// even as an empty string.
	outputSet bool
}

// OutputConfig controls textfile mode.
type OutputConfig struct {
	// FilePath is empty when metrics are served over HTTP, "-" for stdout,
	// otherwise an absolute path ending in .prom.
	FilePath string `koanf:"file-path"`
}

// WebConfig controls the HTTP endpoint.
type WebConfig struct {
	ListenAddress string  `koanf:"listen-address"`
	TelemetryPath string  `koanf:"telemetry-path"`
	RateLimit     float64 `koanf:"rate-limit"`
	RateBurst     int     `koanf:"rate-burst"`
}

// TextfileMode reports whether metrics should be written once to a file
// instead of being served.
func (c *Config) TextfileMode() bool {
	return c.Output.FilePath != ""
}

// -----------------------------------------------------------------------
// Flag Set
// -----------------------------------------------------------------------

// NewFlagSet declares every command-line flag understood by the exporter.
func NewFlagSet(name string) *pflag.FlagSet {
	f := pflag.NewFlagSet(name, pflag.ContinueOnError)
	f.SortFlags = false

	f.String("output.file-path", "", "file to output metrics to, - for stdout (must end in "+RequiredExtension+")")
	f.String("web.listen-address", DefaultListenAddress, "address on which to expose metrics and web interface [ADDR:PORT]")
	f.String("web.telemetry-path", DefaultTelemetryPath, "path under which to expose metrics")
	f.Float64("web.rate-limit", 0, "per-client requests per second allowed on the telemetry path (0 disables)")
	f.Int("web.rate-burst", DefaultRateBurst, "per-client burst size when rate limiting is enabled")
	f.String("config", "", "path to YAML config file (optional)")
	f.Bool("version", false, "print version information and exit")

	return f
}

// -----------------------------------------------------------------------
// Configuration Loading
// -----------------------------------------------------------------------

// Load parses args (without the program name) and merges every source into
// a validated Config. Sources are loaded lowest priority first.
func Load(args []string) (*Config, error) {
	k := koanf.New(".")

	f := NewFlagSet("jail-exporter")
	if err := f.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, ErrHelp
		}
		return nil, fmt.Errorf("error parsing command-line flags: %w", err)
	}

	if showVersion, _ := f.GetBool("version"); showVersion {
		return nil, ErrVersion
	}

	// Load config file if specified
	configPath, _ := f.GetString("config")
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config file not found: %s (error: %w)", configPath, err)
		}

		slog.Info("loading configuration from file", "path", configPath)
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error parsing config file (%s): %w", configPath, err)
		}
	} else {
		slog.Debug("no config file specified, using defaults and environment")
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	outputSet := f.Changed("output.file-path") || k.Exists("output.file-path")

	// Flags last: posflag only overrides keys already present in k when the
	// flag was explicitly set on the command line.
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("error loading command-line flags: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling configuration: %w", err)
	}
	cfg.outputSet = outputSet

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("configuration loaded",
		"output_file_path", cfg.Output.FilePath,
		"listen_address", cfg.Web.ListenAddress,
		"telemetry_path", cfg.Web.TelemetryPath,
		"rate_limit", cfg.Web.RateLimit,
	)

	return cfg, nil
}

// envKey translates JAIL_EXPORTER_WEB_LISTEN_ADDRESS into
// web.listen-address. Unknown variables return "" and are skipped.
func envKey(s string) string {
	return envKeys[s[len(EnvPrefix):]]
}

// -----------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------

// Validate applies every field rule and returns the first violation as a
// *ValidationError naming the offending flag. An output path that was
// supplied empty is rejected rather than falling back to HTTP mode.
func (c *Config) Validate() error {
	if c.outputSet || c.Output.FilePath != "" {
		if err := ValidateFilesystemPath(c.Output.FilePath); err != nil {
			return err
		}
	}

	if err := ValidateSocketAddress(c.Web.ListenAddress); err != nil {
		return err
	}

	if err := ValidateTelemetryPath(c.Web.TelemetryPath); err != nil {
		return err
	}

	if c.Web.RateLimit < 0 {
		return &ValidationError{
			Flag:   "web.rate-limit",
			Reason: fmt.Sprintf("must not be negative, got %g", c.Web.RateLimit),
		}
	}

	if c.Web.RateLimit > 0 && c.Web.RateBurst < 1 {
		return &ValidationError{
			Flag:   "web.rate-burst",
			Reason: fmt.Sprintf("must be at least 1 when rate limiting is enabled, got %d", c.Web.RateBurst),
		}
	}

	return nil
}
