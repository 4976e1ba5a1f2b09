package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/routegate/internal/config"
	"github.com/zjrosen/routegate/internal/flags"
	"github.com/zjrosen/routegate/internal/log"
	"github.com/zjrosen/routegate/internal/tracing"
)

// localConfigPath is checked before the user config directory.
const localConfigPath = ".routegate/config.yaml"

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	noBuiltin bool
	cfg       config.Config
	configErr error
	features  *flags.Registry

	// cleanups run in reverse order after the command finishes.
	cleanups []func()
)

var rootCmd = &cobra.Command{
	Use:   "routegate",
	Short: "Capability route registry",
	Long: `routegate loads module route manifests, binds every capability path to the
module that declares it first, and reports how much of the manifest ended up
bound.

Manifests are YAML, JSON, HCL or TOML files listing modules and the dotted
paths they serve. A path declared twice is never overwritten: the first
declaration wins and later ones are reported as collisions.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .routegate/config.yaml, then ~/.config/routegate/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write debug logs (to log.path, or debug.log)")
	rootCmd.PersistentFlags().BoolVar(&noBuiltin, "no-builtin", false,
		"do not register the built-in catalogue")
}

func initConfig() {
	v := viper.New()

	defaults := config.Defaults()
	v.SetDefault("manifests", defaults.Manifests)
	v.SetDefault("include_builtin", defaults.IncludeBuiltin)
	v.SetDefault("registry.backend", defaults.Registry.Backend)
	v.SetDefault("log.path", defaults.Log.Path)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	v.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	v.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	v.SetEnvPrefix("ROUTEGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .routegate/config.yaml (current directory)
		// 2. ~/.config/routegate/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			v.SetConfigFile(localConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			v.AddConfigPath(filepath.Join(home, ".config", "routegate"))
			v.SetConfigName("config")
			v.SetConfigType("yaml")
		}
	}

	configErr = nil
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			configErr = fmt.Errorf("reading config: %w", err)
		}
	}

	cfg = config.Defaults()
	if err := v.Unmarshal(&cfg); err != nil && configErr == nil {
		configErr = fmt.Errorf("decoding config: %w", err)
	}
	configFileUsed = v.ConfigFileUsed()
}

// configFileUsed is the config file read by initConfig, if any.
var configFileUsed string

// setup validates configuration and starts logging and tracing.
func setup(cmd *cobra.Command, _ []string) error {
	if configErr != nil {
		return configErr
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if noBuiltin {
		cfg.IncludeBuiltin = false
	}

	// Initialize logging if debug mode enabled (via flag or env var) or a log path is configured
	debug := os.Getenv("ROUTEGATE_DEBUG") != "" || debugFlag
	logPath := cfg.Log.Path
	if debug && logPath == "" {
		logPath = "debug.log"
	}
	if logPath != "" {
		cleanup, err := log.Init(logPath)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		cleanups = append(cleanups, func() {
			log.Reset()
			cleanup()
		})

		level := log.ParseLevel(cfg.Log.Level)
		if debug {
			level = log.LevelDebug
		}
		log.SetMinLevel(level)
		log.Info(log.CatCLI, "routegate starting", "command", cmd.CommandPath(), "version", version, "config", configFileUsed)
	}

	features = flags.New(cfg.Flags)

	tc := tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		Exporter:     cfg.Tracing.Exporter,
		FilePath:     cfg.Tracing.FilePath,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
		ServiceName:  cfg.Tracing.ServiceName,
	}
	if tc.Enabled && tc.FilePath == "" {
		tc.FilePath = config.DefaultTracesFilePath()
	}
	provider, err := tracing.NewProvider(tc)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	cleanups = append(cleanups, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			log.ErrorErr(log.CatTrace, "Tracing shutdown failed", err)
		}
	})

	return nil
}

func runCleanups() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx, which long-running
// commands such as watch stop on.
func ExecuteContext(ctx context.Context) error {
	defer runCleanups()
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
