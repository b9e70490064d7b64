// Package cmd provides the CLI commands for Criterion.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/criterion/internal/config"
	"github.com/Aman-CERP/criterion/internal/logging"
	"github.com/Aman-CERP/criterion/internal/profiling"
	"github.com/Aman-CERP/criterion/pkg/version"
)

// app carries state shared by every subcommand of one invocation.
type app struct {
	configDir string
	debug     bool
	profile   profiling.Options

	cfg            *config.Config
	loggingCleanup func()
	profiler       *profiling.Session
}

// NewRootCmd creates the root command for the criterion CLI.
func NewRootCmd() *cobra.Command {
	cmd, _ := newRoot()
	return cmd
}

func newRoot() (*cobra.Command, *app) {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "criterion",
		Short: "Semantic search over the Quran and hadith collections",
		Long: `Criterion answers natural-language questions with relevant Quran verses
and hadith narrations, combining embedding similarity with keyword search.

Load the corpus once with 'criterion ingest', then search from the command
line, serve the MCP tools with 'criterion serve', or run the HTTP API with
'criterion api'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !a.profile.Enabled() {
				return nil
			}
			s, err := profiling.Start(a.profile)
			if err != nil {
				return err
			}
			a.profiler = s
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			a.close()
			return nil
		},
	}
	cmd.SetVersionTemplate("criterion version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging to stderr and the log file")
	cmd.PersistentFlags().StringVar(&a.configDir, "config-dir", ".", "Directory searched for .criterion.yaml and .env files")
	cmd.PersistentFlags().StringVar(&a.profile.CPU, "profile-cpu", "", "Write a CPU profile to `file`")
	cmd.PersistentFlags().StringVar(&a.profile.Heap, "profile-mem", "", "Write a heap profile to `file` on exit")
	cmd.PersistentFlags().StringVar(&a.profile.Trace, "profile-trace", "", "Write an execution trace to `file`")

	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newHadithCmd(a))
	cmd.AddCommand(newRefCmd(a))
	cmd.AddCommand(newTopicCmd(a))
	cmd.AddCommand(newIngestCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newAPICmd(a))
	cmd.AddCommand(newStatusCmd(a))
	cmd.AddCommand(newValidateCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd, a
}

// Execute runs the root command.
func Execute() error {
	cmd, a := newRoot()
	defer a.close()
	return cmd.Execute()
}

// config loads the layered configuration once per invocation.
func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load(a.configDir)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}

// startLogging installs the file logger described by cfg. Servers that own
// stdout pass stdio=true so nothing is mirrored to the terminal.
func (a *app) startLogging(cfg *config.Config, stdio bool) error {
	if a.loggingCleanup != nil {
		return nil
	}

	logCfg := logging.Config{
		Level:     cfg.Logging.Level,
		FilePath:  cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	}
	if logCfg.FilePath == "" {
		logCfg.FilePath = logging.LogPath(cfg.Paths.DataDir)
	}
	if a.debug {
		logCfg.Level = "debug"
		logCfg.WriteToStderr = !stdio
	}

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.loggingCleanup = cleanup
	slog.Debug("logging_started",
		slog.String("log_file", logCfg.FilePath),
		slog.String("level", logCfg.Level),
		slog.String("version", version.Version))
	return nil
}

func (a *app) close() {
	if a.profiler != nil {
		if err := a.profiler.Stop(); err != nil {
			slog.Warn("profile_write_failed", slog.String("error", err.Error()))
		}
		a.profiler = nil
	}
	if a.loggingCleanup != nil {
		a.loggingCleanup()
		a.loggingCleanup = nil
	}
}
