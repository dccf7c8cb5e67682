package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rycus86/bahnapi/pkg/config"
)

type globalOptions struct {
	clientID   string
	apiKey     string
	apiKeyFile string
	configFile string
	timeout    time.Duration
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "bahnapi",
		Short: "Live departures from the Deutsche Bahn timetables API",
		Long: `bahnapi fetches planned departures for a station from the DB Timetables API,
merges them with the reported delays, platform changes and cancellations,
and prints them, exports them to an .ics file or serves them over HTTP.

Credentials are read from DB_CLIENT_ID and DB_API_KEY unless given as flags
or in a TOML configuration file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd.ErrOrStderr(), opts.verbose)

			settings, err := resolveSettings(opts)
			if err != nil {
				return err
			}

			config.Use(settings)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.clientID, "client-id", "", "DB API client id (alternatively set "+config.ClientIDEnv+")")
	flags.StringVar(&opts.apiKey, "api-key", "", "DB API key (alternatively set "+config.APIKeyEnv+")")
	flags.StringVar(&opts.apiKeyFile, "api-key-file", "", "Read the DB API key from a text file")
	flags.StringVar(&opts.configFile, "config", "", "TOML configuration file")
	flags.DurationVar(&opts.timeout, "timeout", 0, "HTTP timeout for API calls (default 10s)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newDeparturesCmd(), newStationsCmd(), newServeCmd())

	return rootCmd
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func resolveSettings(opts *globalOptions) (config.Settings, error) {
	base := config.FromEnv()
	if opts.configFile != "" {
		loaded, err := config.LoadFile(opts.configFile)
		if err != nil {
			return config.Settings{}, fmt.Errorf("failed to load %s: %w", opts.configFile, err)
		}
		base = loaded
	}

	apiKey := strings.TrimSpace(opts.apiKey)
	if opts.apiKeyFile != "" {
		fromFile, err := readAPIKey(opts.apiKeyFile)
		if err != nil {
			return config.Settings{}, err
		}
		apiKey = fromFile
	}

	clientID := strings.TrimSpace(opts.clientID)

	if (clientID == "") != (apiKey == "") {
		return config.Settings{}, fmt.Errorf("--client-id and --api-key (or --api-key-file) must be given together")
	}

	if clientID == "" {
		clientID, apiKey = base.ClientID, base.APIKey
	}

	return config.New(clientID, apiKey,
		config.WithTimeout(base.Timeout),
		config.WithTimeout(opts.timeout),
		config.WithBaseURL(base.BaseURL),
	), nil
}

func readAPIKey(path string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}

	key := strings.TrimSpace(string(contents))
	if key == "" {
		return "", fmt.Errorf("API key file %s is empty", path)
	}

	return key, nil
}
