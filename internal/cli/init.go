package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/kilupskalvis/immich-tools/internal/config"
	"github.com/kilupskalvis/immich-tools/internal/immich"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the server and API key to the config file",
	Long: `Check that the server is reachable with the given API key and store both
in the config file. The API key is read from stdin unless --api-key is given.

Examples:
  immich-tools init --host https://photos.example.com          # prompts for the key
  echo "$KEY" | immich-tools init --host https://photos.example.com`,
	Args: cobra.NoArgs,
	Run:  runInit,
}

func runInit(cmd *cobra.Command, args []string) {
	path := flagConfig
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			exitError("%v", err)
		}
		path = p
	}

	cfg, err := config.LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		exitError("%v", err)
	}

	if flagHost != "" {
		cfg.Host = flagHost
	}
	if cfg.Host == "" {
		exitError("--host is required")
	}
	if _, err := immich.ParseHost(cfg.Host); err != nil {
		exitError("invalid host: %v", err)
	}

	apiKey := flagAPIKey
	if apiKey == "" {
		fmt.Fprintf(os.Stderr, "Enter API key for %s: ", cfg.Host)

		reader := bufio.NewReader(os.Stdin)
		apiKey, err = reader.ReadString('\n')
		if err != nil && apiKey == "" {
			exitError("failed to read API key: %v", err)
		}
		apiKey = strings.TrimSpace(apiKey)
	}
	if apiKey == "" {
		exitError("API key cannot be empty")
	}
	cfg.APIKey = apiKey

	timeout, err := cfg.RequestTimeout()
	if err != nil {
		exitError("%v", err)
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	client, err := immich.NewHTTPClient(cfg.Host, cfg.APIKey, timeout, logger)
	if err != nil {
		exitError("invalid host: %v", err)
	}

	fmt.Printf("Connecting to %s...\n", cfg.Host)
	folders, err := client.UniquePaths(context.Background())
	if err != nil {
		exitError("failed to connect to Immich: %v", err)
	}
	fmt.Printf("Found %d folders\n", len(folders))

	if err := cfg.Save(path); err != nil {
		exitError("%v", err)
	}

	color.New(color.FgGreen).Printf("Saved config to %s\n", path)
}
