package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/criterion/internal/format"
	"github.com/Aman-CERP/criterion/internal/output"
	"github.com/Aman-CERP/criterion/internal/search"
)

type refOptions struct {
	context bool
	window  int
	format  string
}

// refResponse is the JSON shape of the ref command.
type refResponse struct {
	TotalRequested int                     `json:"totalRequested"`
	Results        []format.Reference      `json:"results"`
	Errors         []search.ReferenceError `json:"errors"`
}

func newRefCmd(a *app) *cobra.Command {
	var opts refOptions

	cmd := &cobra.Command{
		Use:   "ref <reference>...",
		Short: "Fetch verses by reference",
		Long: `Fetch Quran verses by chapter:verse reference or range.

Examples:
  criterion ref 2:255
  criterion ref 1:1-7 112:1-4
  criterion ref 2:255 --context --window 3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRef(cmd.Context(), cmd, a, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.context, "context", false, "Include surrounding verses for single-verse references")
	cmd.Flags().IntVarP(&opts.window, "window", "w", 0, "Verses of context on each side (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", output.FormatText, "Output format: text, json, markdown")

	return cmd
}

func runRef(ctx context.Context, cmd *cobra.Command, a *app, refs []string, opts refOptions) error {
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

	out, err := rt.engine.GetByReference(ctx, refs, opts.context, opts.window)
	if err != nil {
		return err
	}

	resp := refResponse{
		TotalRequested: out.TotalRequested,
		Results:        format.References(out.Results),
		Errors:         out.Errors,
	}
	if resp.Errors == nil {
		resp.Errors = []search.ReferenceError{}
	}

	w := output.New(cmd.OutOrStdout())
	switch opts.format {
	case output.FormatJSON:
		return w.JSON(resp)
	case output.FormatMarkdown:
		w.Markdown(format.ReferencesMarkdown(out))
		return nil
	}
	w.References(resp.Results)
	for _, e := range resp.Errors {
		w.Warningf("%s: %s", e.Reference, e.Message)
	}
	return nil
}
