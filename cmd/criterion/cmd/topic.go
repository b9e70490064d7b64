package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/criterion/internal/api"
	"github.com/Aman-CERP/criterion/internal/corpus"
	"github.com/Aman-CERP/criterion/internal/format"
	"github.com/Aman-CERP/criterion/internal/output"
)

func newTopicCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topic",
		Short: "Browse curated topics",
	}
	cmd.AddCommand(newTopicListCmd())
	cmd.AddCommand(newTopicShowCmd(a))
	return cmd
}

func newTopicListCmd() *cobra.Command {
	var outFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the curated topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := output.ValidateFormat(outFormat); err != nil {
				return err
			}
			topics := corpus.Topics().All()
			w := output.New(cmd.OutOrStdout())
			if outFormat == output.FormatJSON {
				return w.JSON(api.TopicsResponse{Count: len(topics), Topics: topics})
			}
			w.Header(fmt.Sprintf("Topics (%d)", len(topics)))
			for _, t := range topics {
				w.Status("", fmt.Sprintf("%-24s %s", t.Slug, t.Title))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outFormat, "format", "f", output.FormatText, "Output format: text, json")
	return cmd
}

func newTopicShowCmd(a *app) *cobra.Command {
	var outFormat string

	cmd := &cobra.Command{
		Use:   "show <slug>",
		Short: "Show verses and hadiths for a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopicShow(cmd.Context(), cmd, a, args[0], outFormat)
		},
	}
	cmd.Flags().StringVarP(&outFormat, "format", "f", output.FormatText, "Output format: text, json, markdown")
	return cmd
}

func runTopicShow(ctx context.Context, cmd *cobra.Command, a *app, slug, outFormat string) error {
	if err := output.ValidateResultFormat(outFormat); err != nil {
		return err
	}
	cfg, err := a.config()
	if err != nil {
		return err
	}
	if err := a.startLogging(cfg, false); err != nil {
		return err
	}

	rt, err := openRuntime(ctx, cfg, cfg.Search.BrowseContextWindow)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	out, err := rt.engine.SearchTopic(ctx, slug)
	if err != nil {
		return err
	}

	resp := api.TopicResponse{
		Topic:   out.Topic,
		Related: out.Related,
		Verses:  []format.Verse{},
		Hadiths: []format.Narration{},
	}
	if out.Verses != nil {
		resp.Verses = format.Verses(out.Verses.Results)
	}
	if out.Narrations != nil {
		resp.Hadiths = format.Narrations(out.Narrations.Results)
	}

	w := output.New(cmd.OutOrStdout())
	switch outFormat {
	case output.FormatJSON:
		return w.JSON(resp)
	case output.FormatMarkdown:
		w.Markdown(format.TopicMarkdown(out))
		return nil
	}

	w.Header(out.Topic.Title)
	if out.Topic.Description != "" {
		w.Status("", out.Topic.Description)
		w.Newline()
	}
	if len(resp.Verses) == 0 && len(resp.Hadiths) == 0 {
		w.Warning("No verses or hadiths found for this topic.")
		return nil
	}
	w.Verses(resp.Verses)
	w.Narrations(resp.Hadiths)
	if len(out.Related) > 0 {
		slugs := make([]string, len(out.Related))
		for i, t := range out.Related {
			slugs[i] = t.Slug
		}
		w.Status("", "Related: "+strings.Join(slugs, ", "))
	}
	return nil
}
