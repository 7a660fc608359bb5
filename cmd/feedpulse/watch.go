package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/feedpulse/pulse"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Open the feed, badge posts live and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
	cmd.Flags().String("addr", "", "HTTP listen address (default from config)")
	cmd.Flags().String("url", "", "feed URL to open (default from config)")
	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v, _ := cmd.Flags().GetString("url"); v != "" {
		cfg.Feed.URL = v
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()
	eng, err := pulse.New(cfg, pulse.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Stop(); err != nil {
			logger.Warn("feedpulse: stop", "error", err)
		}
	}()

	if err := eng.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           eng.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("feedpulse: listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
