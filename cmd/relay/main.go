package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/eventrelay/internal/config"
	"github.com/alfredjeanlab/eventrelay/internal/ui"
)

var (
	configPath string
	httpURL    string
	authToken  string
	jsonOutput bool
	noColor    bool
)

func defaultHTTPURL() string {
	if s := os.Getenv("RELAY_HTTP_URL"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

var rootCmd = &cobra.Command{
	Use:          "relay <command>",
	Short:        "Student registration event relay",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || !ui.ShouldUseColor(os.Stdout) {
			ui.ForceNoColor()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (default $RELAY_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "publisher HTTP URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("RELAY_AUTH_TOKEN"), "bearer token for the publisher API")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "workers", Title: "Workers:"},
		&cobra.Group{ID: "client", Title: "Client:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Workers
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(drainCmd)

	// Client
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(watchCmd)

	// System
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig loads the effective configuration and a logger built from it.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings() {
		logger.Warn("config", "warning", w)
	}
	return cfg, logger, nil
}

// newLogger returns a text or JSON slog logger at the named level.
func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
