package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/feedpulse/crawl"
	"github.com/hazyhaar/feedpulse/pulse"
)

// NewCollectCmd creates the collect command.
func NewCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect every post of a profile page into a markdown report",
		Long: `collect opens a profile page, scrolls until no new content loads or a
limit is reached, and writes threads-scrape-YYYY-MM-DD.md.

Presets:
  quick     50 posts, 10 idle scrolls
  standard  100 posts, 20 idle scrolls
  deep      no item or scroll limit, 30 minute ceiling
  popular   standard limits, only posts with 10+ likes
  custom    crawl.custom from the config file`,
		Args: cobra.NoArgs,
		RunE: runCollect,
	}
	cmd.Flags().StringP("url", "u", "", "profile URL (required)")
	cmd.Flags().StringP("preset", "p", "", "collection preset (default from config)")
	cmd.Flags().StringP("out", "o", ".", "output directory")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func runCollect(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	url, _ := cmd.Flags().GetString("url")
	preset, _ := cmd.Flags().GetString("preset")
	outDir, _ := cmd.Flags().GetString("out")

	// The feed tab is not needed for a one-shot collection.
	off := false
	cfg.Annotate.Enabled = &off

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()
	eng, err := pulse.New(cfg, pulse.WithLogger(logger))
	if err != nil {
		return err
	}
	defer eng.Stop()

	res, err := eng.Collect(ctx, pulse.CollectRequest{Preset: preset, URL: url})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(outDir, crawl.ReportFileName(res.FinishedAt))
	if err := os.WriteFile(path, []byte(res.Report), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	logger.Info("feedpulse: report written",
		"path", path, "session", res.SessionID,
		"collected", res.Collected, "kept", len(res.Posts), "stop", res.Stop)
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
