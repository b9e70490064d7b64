package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/criterion/internal/api"
	"github.com/Aman-CERP/criterion/internal/corpus"
	"github.com/Aman-CERP/criterion/internal/format"
	"github.com/Aman-CERP/criterion/internal/output"
	"github.com/Aman-CERP/criterion/internal/search"
)

type hadithOptions struct {
	collections []string
	grade       string
	limit       int
	format      string
}

func newHadithCmd(a *app) *cobra.Command {
	var opts hadithOptions

	cmd := &cobra.Command{
		Use:   "hadith <question>",
		Short: "Search hadith narrations",
		Long: `Search hadith narrations with hybrid semantic and keyword retrieval.

Grades: sahih-only (default), sahih-and-hasan, all.
Collections: bukhari, muslim, nawawi40, riyadussalihin.

Examples:
  criterion hadith "intentions"
  criterion hadith "fasting" --collections bukhari,muslim --grade all`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHadith(cmd.Context(), cmd, a, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.collections, "collections", nil, "Collections to search (comma separated, default all)")
	cmd.Flags().StringVarP(&opts.grade, "grade", "g", "", "Grade preference: sahih-only, sahih-and-hasan, all")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of narrations (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", output.FormatText, "Output format: text, json, markdown")

	return cmd
}

func runHadith(ctx context.Context, cmd *cobra.Command, a *app, query string, opts hadithOptions) error {
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

	rt, err := openRuntime(ctx, cfg, 0)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	slog.Info("cli_hadith_started", slog.String("query", query), slog.Any("collections", opts.collections))
	out, err := rt.engine.SearchNarrations(ctx, search.NarrationQuery{
		Query:       query,
		Collections: opts.collections,
		Grade:       opts.grade,
		Limit:       opts.limit,
	})
	if err != nil {
		return err
	}

	resp := api.NarrationSearchResponse{
		Results: format.Narrations(out.Results),
		Query:   query,
		Filters: api.NarrationFilters{
			Collections: corpus.DisplayNames(out.Collections),
			GradeFilter: string(out.Grade),
		},
	}
	resp.Count = len(resp.Results)
	if !out.Found {
		resp.Message = out.Message
	}

	w := output.New(cmd.OutOrStdout())
	switch opts.format {
	case output.FormatJSON:
		return w.JSON(resp)
	case output.FormatMarkdown:
		w.Markdown(format.NarrationsMarkdown(out))
		return nil
	}
	if !out.Found {
		w.Warning(out.Message)
		return nil
	}
	w.Header("Hadiths for: " + query)
	w.Status("", "Collections: "+strings.Join(resp.Filters.Collections, ", ")+"  Grade: "+resp.Filters.GradeFilter)
	w.Newline()
	w.Narrations(resp.Results)
	return nil
}
