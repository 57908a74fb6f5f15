// Package cli implements the command-line interface for immich-tools.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kilupskalvis/immich-tools/internal/config"
	"github.com/kilupskalvis/immich-tools/internal/immich"
	"github.com/spf13/cobra"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config *config.Config
	Client immich.APIClient
	Logger *slog.Logger
	DryRun bool
}

// Global flags
var (
	flagHost      string
	flagAPIKey    string
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
	flagDryRun    bool
)

// loadConfig reads the config file and environment, then applies the global
// flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	if flagHost != "" {
		cfg.Host = flagHost
	}
	if flagAPIKey != "" {
		cfg.APIKey = flagAPIKey
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	return cfg, nil
}

// initContext resolves the configuration and builds the server client
func initContext() *cmdContext {
	cfg, err := loadConfig()
	if err != nil {
		exitError("%v", err)
	}

	c, err := newCmdContext(cfg, os.Stderr)
	if err != nil {
		exitError("%v", err)
	}
	c.DryRun = flagDryRun
	return c
}

// newCmdContext validates cfg and builds the logger and client from it
func newCmdContext(cfg *config.Config, logOut io.Writer) (*cmdContext, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logOut)
	if cfg.Path() != "" {
		logger.Debug("loaded config", "path", cfg.Path())
	}

	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return nil, err
	}
	client, err := immich.NewHTTPClient(cfg.Host, cfg.APIKey, timeout, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid host: %w", err)
	}
	logger.Debug("client ready", "host", cfg.Host, "timeout", timeout, "max_concurrency", cfg.MaxConcurrency)

	return &cmdContext{Config: cfg, Client: client, Logger: logger}, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var rootCmd = &cobra.Command{
	Use:   "immich-tools",
	Short: "Bulk maintenance tools for an Immich photo server",
	Long: `immich-tools runs bulk maintenance jobs against an Immich server.

  autostack  Group variants of the same shot (RAW, JPEG, edits) into stacks
  datefix    Set or shift the capture date of every asset in a folder

The server is taken from --host, IMMICH_HOST, or the config file; the API key
from --api-key, IMMICH_API_KEY, or the config file.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	// -h is the host; help keeps only its long form
	pf.Bool("help", false, "Show help for a command")
	pf.StringVarP(&flagHost, "host", "h", "", "Immich server URL, e.g. https://photos.example.com")
	pf.StringVarP(&flagAPIKey, "api-key", "k", "", "Immich API key")
	pf.StringVar(&flagConfig, "config", "", "Config file (default $XDG_CONFIG_HOME/immich-tools/config.toml)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format (text, json)")
	pf.BoolVarP(&flagDryRun, "dry-run", "n", false, "Print what would be changed without changing anything")

	rootCmd.AddCommand(autostackCmd)
	rootCmd.AddCommand(datefixCmd)
	rootCmd.AddCommand(foldersCmd)
	rootCmd.AddCommand(initCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
