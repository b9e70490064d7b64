package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/criterion/internal/config"
	"github.com/Aman-CERP/criterion/internal/embed"
	"github.com/Aman-CERP/criterion/internal/output"
	"github.com/Aman-CERP/criterion/internal/store"
	"github.com/Aman-CERP/criterion/internal/ui"
)

// embedderProbeTimeout bounds the availability check of status.
const embedderProbeTimeout = 5 * time.Second

func newStatusCmd(a *app) *cobra.Command {
	var outFormat string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show corpus and index status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := output.ValidateFormat(outFormat); err != nil {
				return err
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}
			info, err := collectStatus(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			r := ui.NewStatusRenderer(cmd.OutOrStdout(), !ui.IsTTY(cmd.OutOrStdout()) || ui.DetectNoColor())
			if outFormat == output.FormatJSON {
				return r.RenderJSON(info)
			}
			return r.Render(info)
		},
	}
	cmd.Flags().StringVarP(&outFormat, "format", "f", output.FormatText, "Output format: text, json")
	return cmd
}

func collectStatus(ctx context.Context, cfg *config.Config) (ui.StatusInfo, error) {
	info := ui.StatusInfo{
		Database:       cfg.DatabasePath(),
		ByCollection:   map[string]int{},
		VectorBackend:  cfg.Vector.Backend,
		KeywordBackend: cfg.Keyword.Backend,
	}

	if fi, err := os.Stat(info.Database); err == nil {
		info.DatabaseSize = fi.Size()

		c, err := store.NewSQLiteCorpus(info.Database)
		if err != nil {
			return info, err
		}
		defer func() { _ = c.Close() }()

		stats, err := c.Stats(ctx)
		if err != nil {
			return info, err
		}
		info.Verses = stats.Verses
		info.VerseEmbeddings = stats.VerseEmbeddings
		info.Narrations = stats.Narrations
		info.NarrationEmbeddings = stats.NarrationEmbeddings
		info.EmbeddingModel = stats.EmbeddingModel
		info.EmbeddingDimensions = stats.EmbeddingDimensions
		for coll, n := range stats.ByCollection {
			info.ByCollection[string(coll)] = n
		}
	}

	info.EmbedderStatus = probeEmbedder(ctx, cfg)
	return info, nil
}

func probeEmbedder(ctx context.Context, cfg *config.Config) string {
	opts, err := embedOptions(cfg)
	if err != nil {
		return "error"
	}
	opts.CacheSize = 0

	ctx, cancel := context.WithTimeout(ctx, embedderProbeTimeout)
	defer cancel()

	e, err := embed.New(ctx, opts)
	if err != nil {
		return "error"
	}
	defer func() { _ = e.Close() }()

	if !e.Available(ctx) {
		return "offline"
	}
	return "ready"
}
