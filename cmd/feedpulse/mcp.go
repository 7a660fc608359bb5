package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/feedpulse/pulse"
)

// NewMCPCmd creates the mcp command.
func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the feedpulse tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE:  runMCP,
	}
}

func runMCP(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()
	eng, err := pulse.New(cfg, pulse.WithLogger(logger))
	if err != nil {
		return err
	}
	defer eng.Stop()

	if err := eng.Start(ctx); err != nil {
		return err
	}

	srv := mcp.NewServer(&mcp.Implementation{Name: "feedpulse", Version: "0.1.0"}, nil)
	eng.RegisterMCP(srv)
	logger.Info("feedpulse: mcp serving on stdio")
	return srv.Run(ctx, &mcp.StdioTransport{})
}
