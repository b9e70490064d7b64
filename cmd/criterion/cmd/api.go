package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/criterion/internal/api"
)

func newAPICmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "api",
		Short: "Run the HTTP search API",
		Long: `Run the JSON HTTP API:

  GET /search/api?q=&limit=
  GET /hadith/search/api?q=&collections=&grade=&limit=
  GET /quran/{chapter}/{verse}?context=
  GET /topics, /topics/{slug}
  GET /healthz, /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAPI(cmd.Context(), cmd, a, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func runAPI(ctx context.Context, cmd *cobra.Command, a *app, addr string) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	if err := a.startLogging(cfg, false); err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.HTTPAddr
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, cfg, cfg.Search.BrowseContextWindow)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	apiCfg := api.DefaultConfig()
	apiCfg.Addr = addr
	apiCfg.BrowseContextWindow = cfg.Search.BrowseContextWindow
	apiCfg.ReferenceContextWindow = cfg.Search.ReferenceContextWindow
	if cfg.Search.Timeout > 0 {
		apiCfg.RequestTimeout = cfg.Search.Timeout
	}

	srv, err := api.NewServer(rt.engine, apiCfg, api.WithLogger(slog.Default()), api.WithGatherer(rt.registry))
	if err != nil {
		return err
	}

	cmd.PrintErrf("Criterion API listening on %s\n", addr)
	return srv.ListenAndServe(ctx)
}
