package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/feedpulse/pulse"
)

// NewRootCmd creates the feedpulse root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedpulse",
		Short: "Engagement badges and exhaustive collection for Threads feeds",
		Long: `feedpulse drives a Chrome tab on Threads. In watch mode it badges every
post with its like band, hourly growth and a viral marker, and serves a
local HTTP API. collect scrolls a profile page to exhaustion and writes a
markdown report of its posts, newest first.

Configuration is read from ` + pulse.DefaultConfigPath() + ` unless
--config is given. A .env file in the working directory is loaded first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			_ = godotenv.Load()
			level, _ := cmd.Flags().GetString("log-level")
			slog.SetDefault(newLogger(level))
		},
	}

	cmd.PersistentFlags().StringP("config", "c", "", "path to config.yaml")
	cmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")

	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewCollectCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewVerifyCmd())
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func loadConfig(cmd *cobra.Command) (*pulse.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return pulse.LoadConfig(path)
}
