package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/skridlevsky/insiders/internal/config"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "insiders",
	Short: "Rank the issue backlog of sponsored projects",
	Long: `Fetch sponsors from GitHub and Polar, fetch open issues of the configured
namespaces, and rank them with composable sort strategies.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

func setupLogging(level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
	return nil
}

func loadConfig(required ...string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.Require(required...); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if cfg.ConfigFile != "" {
		slog.Debug("Loaded config file", "path", cfg.ConfigFile)
	}
	return cfg, nil
}

// hyperlinks reports whether stdout is a terminal that can render OSC 8 links
func hyperlinks() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
