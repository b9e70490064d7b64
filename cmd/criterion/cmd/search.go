package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/criterion/internal/api"
	"github.com/Aman-CERP/criterion/internal/format"
	"github.com/Aman-CERP/criterion/internal/output"
	"github.com/Aman-CERP/criterion/internal/search"
)

// searchOptions holds CLI flags for verse search.
type searchOptions struct {
	limit   int
	context int // -1 uses the configured browse window
	format  string
}

func newSearchCmd(a *app) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <question>",
		Short: "Search Quran verses by meaning",
		Long: `Search Quran verses semantically. The top results include the verses
around them for context.

Examples:
  criterion search "patience in hardship"
  criterion search "charity" --limit 5 --context 0
  criterion search "the night journey" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, a, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of verses (default from config)")
	cmd.Flags().IntVarP(&opts.context, "context", "c", -1, "Verses of context around the top results (0 disables)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", output.FormatText, "Output format: text, json, markdown")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, a *app, query string, opts searchOptions) error {
	if err := output.ValidateResultFormat(opts.format); err != nil {
		return err
	}
	cfg, err := a.config()
	if err != nil {
		return err
	}
	if err := a.startLogging(cfg, false); err != nil {
		return err
	}

	window := opts.context
	if window < 0 {
		window = cfg.Search.BrowseContextWindow
	}
	rt, err := openRuntime(ctx, cfg, window)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	slog.Info("cli_search_started", slog.String("query", query), slog.Int("limit", opts.limit))
	out, err := rt.engine.SearchVerses(ctx, search.VerseQuery{Query: query, Limit: opts.limit})
	if err != nil {
		return err
	}

	resp := api.VerseSearchResponse{Results: format.Verses(out.Results), Query: query}
	resp.Count = len(resp.Results)
	if !out.Found {
		resp.Message = out.Message
	}

	w := output.New(cmd.OutOrStdout())
	switch opts.format {
	case output.FormatJSON:
		return w.JSON(resp)
	case output.FormatMarkdown:
		w.Markdown(format.VersesMarkdown(out))
		return nil
	}
	if !out.Found {
		w.Warning(out.Message)
		return nil
	}
	w.Header("Verses for: " + query)
	w.Verses(resp.Results)
	return nil
}
