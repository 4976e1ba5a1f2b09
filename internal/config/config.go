// Package config provides configuration types and defaults for routegate.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zjrosen/routegate/internal/authority"
	"github.com/zjrosen/routegate/internal/flags"
	"github.com/zjrosen/routegate/internal/log"
)

// Config holds all configuration options for routegate.
type Config struct {
	// Manifests lists manifest files or directories, loaded in order.
	Manifests []string `mapstructure:"manifests"`

	// IncludeBuiltin prepends the catalogue embedded in the binary.
	IncludeBuiltin bool `mapstructure:"include_builtin"`

	Registry RegistryConfig `mapstructure:"registry"`
	Log      LogConfig      `mapstructure:"log"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Tracing  TracingConfig  `mapstructure:"tracing"`

	// Flags overrides feature flag defaults, keyed by flag name.
	Flags map[string]bool `mapstructure:"flags"`
}

// RegistryConfig selects the authority registry backend.
type RegistryConfig struct {
	Backend string `mapstructure:"backend"` // "memory" (default) or "cache"
}

// LogConfig controls the debug log sink.
type LogConfig struct {
	Path  string `mapstructure:"path"`  // empty disables file logging unless --debug is set
	Level string `mapstructure:"level"` // debug, info (default), warn, error
}

// WatchConfig controls the manifest watcher.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/routegate/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`

	// ServiceName is reported as the OTel service.name resource attribute.
	// Default: "routegate"
	ServiceName string `mapstructure:"service_name"`
}

const (
	DefaultDebounce    = 200 * time.Millisecond
	DefaultServiceName = "routegate"
)

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/routegate/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "routegate", "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		IncludeBuiltin: true,
		Registry: RegistryConfig{
			Backend: authority.BackendMemory,
		},
		Log: LogConfig{
			Level: "info",
		},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // Derived from home dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
			ServiceName:  DefaultServiceName,
		},
	}
}

// Validate checks every section and returns the first problem found.
func Validate(cfg Config) error {
	if err := ValidateManifests(cfg.Manifests); err != nil {
		return err
	}
	if err := ValidateRegistry(cfg.Registry); err != nil {
		return err
	}
	if err := ValidateLog(cfg.Log); err != nil {
		return err
	}
	if err := ValidateWatch(cfg.Watch); err != nil {
		return err
	}
	if err := ValidateFlags(cfg.Flags); err != nil {
		return err
	}
	return ValidateTracing(cfg.Tracing)
}

// ValidateFlags rejects flag names the binary does not know.
func ValidateFlags(overrides map[string]bool) error {
	for name := range overrides {
		if !flags.Known(name) {
			return fmt.Errorf("flags: unknown flag %q (known: %s)", name, strings.Join(flags.Names(), ", "))
		}
	}
	return nil
}

// ValidateManifests rejects blank entries.
func ValidateManifests(paths []string) error {
	for i, p := range paths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("manifests[%d]: path cannot be empty", i)
		}
	}
	return nil
}

// ValidateRegistry checks the backend name. Empty selects the default.
func ValidateRegistry(reg RegistryConfig) error {
	switch strings.ToLower(reg.Backend) {
	case "", authority.BackendMemory, authority.BackendCache:
		return nil
	default:
		return fmt.Errorf("registry.backend must be %q or %q, got %q",
			authority.BackendMemory, authority.BackendCache, reg.Backend)
	}
}

// ValidateLog checks the log level name.
func ValidateLog(l LogConfig) error {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", l.Level)
	}
}

// ValidateWatch checks watcher timing.
func ValidateWatch(w WatchConfig) error {
	if w.Debounce < 0 {
		return fmt.Errorf("watch.debounce cannot be negative, got %s", w.Debounce)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# routegate configuration

# Manifest files or directories, loaded in order and merged.
# Supported formats: .yaml, .yml, .json, .hcl, .toml
# Directories are scanned recursively in lexical order.
manifests: []
#  - ./manifests
#  - ./plugins/extra.hcl

# Register the catalogue built into the binary before the manifests above.
# Built-in modules then own every path they declare, and manifest modules
# cannot reuse a built-in module ID.
include_builtin: true

# Authority registry backend: "memory" (default) or "cache"
registry:
  backend: memory

# Debug logging (also enabled with --debug)
log:
  # path: routegate.log
  level: info  # debug, info, warn, error

# Manifest watcher (routegate watch)
watch:
  debounce: 200ms

# Feature flags
# flags:
#   manifest-cache: true   # watch reuses parsed manifests for unchanged files
#   ownership-audit: true  # register reports routes bound to another module

# Distributed tracing for registration passes
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/routegate/traces/traces.jsonl  # Output file for file exporter
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
#   service_name: routegate
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
