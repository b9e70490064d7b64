package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/criterion/internal/config"
	"github.com/Aman-CERP/criterion/internal/corpus"
	"github.com/Aman-CERP/criterion/internal/embed"
	"github.com/Aman-CERP/criterion/internal/ingest"
	"github.com/Aman-CERP/criterion/internal/store"
	"github.com/Aman-CERP/criterion/internal/ui"
)

// ingestOptions holds flags shared by the ingest subcommands.
type ingestOptions struct {
	clear       bool
	plain       bool
	concurrency int
}

func newIngestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load source texts into the corpus",
		Long: `Load the Quran or hadith collections into the corpus database, embedding
every passage with the configured provider and building the search indexes.

Only one ingestion can run against a data directory at a time.`,
	}
	cmd.AddCommand(newIngestQuranCmd(a))
	cmd.AddCommand(newIngestHadithCmd(a))
	return cmd
}

func (o *ingestOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.clear, "clear", false, "Delete the existing passages of this kind first")
	cmd.Flags().BoolVar(&o.plain, "plain", false, "Plain progress output (no TUI)")
	cmd.Flags().IntVar(&o.concurrency, "concurrency", ingest.DefaultConcurrency, "Embedding batches in flight")
}

func newIngestQuranCmd(a *app) *cobra.Command {
	var (
		opts    ingestOptions
		english string
		arabic  string
	)

	cmd := &cobra.Command{
		Use:   "quran",
		Short: "Ingest the Quran from pipe-delimited verse files",
		Long: `Ingest the Quran from two "chapter|verse|text" files, one English and
one Arabic. Blank lines and lines starting with # are ignored.

Example:
  criterion ingest quran --english en.sahih.txt --arabic quran-simple.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := ingest.ReadQuran(english, arabic)
			if err != nil {
				return err
			}
			return runIngest(cmd.Context(), cmd, a, store.KindVerse, opts, func(ctx context.Context, r *ingest.Runner) (*ingest.Result, error) {
				return r.IngestQuran(ctx, data)
			})
		},
	}

	cmd.Flags().StringVar(&english, "english", "", "English translation file (required)")
	cmd.Flags().StringVar(&arabic, "arabic", "", "Arabic text file (required)")
	_ = cmd.MarkFlagRequired("english")
	_ = cmd.MarkFlagRequired("arabic")
	opts.register(cmd)

	return cmd
}

func newIngestHadithCmd(a *app) *cobra.Command {
	var (
		opts        ingestOptions
		dir         string
		collections []string
	)

	cmd := &cobra.Command{
		Use:   "hadith",
		Short: "Ingest hadith collections from JSON exports",
		Long: `Ingest hadith collections from <collection>-full.json exports in a
directory. Without --collections every export in the directory is loaded.

Example:
  criterion ingest hadith --dir ./data/hadith --collections bukhari,muslim`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cs, err := corpus.ParseCollections(collections)
			if err != nil {
				return err
			}
			paths, err := ingest.HadithFiles(dir, cs)
			if err != nil {
				return err
			}
			data, err := ingest.ReadHadith(paths)
			if err != nil {
				return err
			}
			return runIngest(cmd.Context(), cmd, a, store.KindNarration, opts, func(ctx context.Context, r *ingest.Runner) (*ingest.Result, error) {
				return r.IngestHadith(ctx, data)
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory holding the hadith exports")
	cmd.Flags().StringSliceVar(&collections, "collections", nil, "Collections to load (comma separated, default all found)")
	opts.register(cmd)

	return cmd
}

type ingestFunc func(ctx context.Context, r *ingest.Runner) (*ingest.Result, error)

func runIngest(ctx context.Context, cmd *cobra.Command, a *app, kind store.Kind, opts ingestOptions, run ingestFunc) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	if err := a.startLogging(cfg, false); err != nil {
		return err
	}

	lock := ingest.NewLock(cfg.Paths.DataDir)
	if err := lock.TryLock(); err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	deps, closeDeps, err := openIngestDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDeps()

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(opts.plain),
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithTitle(fmt.Sprintf("Criterion Ingest (%s)", kind)),
	))
	if err := renderer.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = renderer.Stop() }()
	deps.Renderer = renderer

	runner, err := ingest.NewRunner(deps, ingest.Options{
		BatchSize:   cfg.Embedder.BatchSize,
		Concurrency: opts.concurrency,
		Provider:    cfg.Embedder.Provider,
	})
	if err != nil {
		return err
	}

	if opts.clear {
		slog.Info("ingest_clearing", slog.String("kind", string(kind)))
		if err := runner.Clear(ctx, kind); err != nil {
			return err
		}
	}

	_, err = run(ctx, runner)
	return err
}

// openIngestDeps opens the corpus and the indexes ingestion writes to. The
// in-memory vector backends are rebuilt from the corpus at query time, so
// only Qdrant receives vectors here.
func openIngestDeps(ctx context.Context, cfg *config.Config) (ingest.Dependencies, func(), error) {
	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}
	fail := func(err error) (ingest.Dependencies, func(), error) {
		closeAll()
		return ingest.Dependencies{}, nil, err
	}

	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return fail(fmt.Errorf("failed to create data directory: %w", err))
	}
	c, err := store.NewSQLiteCorpus(cfg.DatabasePath())
	if err != nil {
		return fail(err)
	}
	closers = append(closers, c.Close)
	deps := ingest.Dependencies{Corpus: c}

	opts, err := indexOptions(cfg)
	if err != nil {
		return fail(err)
	}
	deps.Keywords, err = store.OpenKeywordIndex(opts, c)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, deps.Keywords.Close)

	if opts.VectorBackend == store.VectorBackendQdrant {
		deps.Vectors, err = store.NewVectorIndex(opts)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, deps.Vectors.Close)
	}

	eopts, err := embedOptions(cfg)
	if err != nil {
		return fail(err)
	}
	eopts.CacheSize = 0
	deps.Embedder, err = embed.New(ctx, eopts)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, deps.Embedder.Close)

	return deps, closeAll, nil
}
