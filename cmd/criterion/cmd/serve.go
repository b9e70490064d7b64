package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/criterion/internal/mcp"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Long: `Run the MCP server exposing query_quran, query_hadith and
get_quran_by_reference to AI assistants.

stdout carries JSON-RPC exclusively; logs go to the log file only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), a)
		},
	}
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	if err := a.startLogging(cfg, true); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, cfg, cfg.Search.ToolContextWindow)
	if err != nil {
		slog.Error("mcp_runtime_failed", slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = rt.Close() }()

	srv, err := mcp.NewServer(rt.engine, mcp.WithLogger(slog.Default()), mcp.WithToolConfig(toolConfig(cfg)))
	if err != nil {
		return err
	}
	srv.SetMetrics(rt.metrics)

	return srv.Serve(ctx, cfg.Server.MCPTransport)
}
