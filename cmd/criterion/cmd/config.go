package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/criterion/internal/config"
	"github.com/Aman-CERP/criterion/internal/output"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the Criterion configuration.

Configuration precedence (lowest to highest):
  1. Defaults
  2. User config (~/.config/criterion/config.yaml)
  3. Project config (.criterion.yaml in --config-dir)
  4. .env.local and .env in --config-dir
  5. Environment variables (CRITERION_*, GEMINI_API_KEY, OPENAI_API_KEY)`,
		Example: `  # Create the user config with defaults
  criterion config init

  # Show the effective configuration
  criterion config show`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd(a))
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the user configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := output.New(cmd.OutOrStdout())
			path, backup, err := config.InitUserConfig(force)
			if err != nil {
				return err
			}
			if backup != "" {
				w.Status("", "Previous config backed up to "+backup)
			}
			w.Successf("Created %s", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration (a backup is kept)")
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	var outFormat string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := output.ValidateFormat(outFormat); err != nil {
				return err
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if outFormat == output.FormatJSON {
				return output.New(cmd.OutOrStdout()).JSON(cfg)
			}

			// Secrets are masked before printing.
			shown := *cfg
			if shown.Embedder.APIKey != "" {
				shown.Embedder.APIKey = "********"
			}
			if shown.Vector.QdrantAPIKey != "" {
				shown.Vector.QdrantAPIKey = "********"
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer func() { _ = enc.Close() }()
			return enc.Encode(&shown)
		},
	}
	cmd.Flags().StringVarP(&outFormat, "format", "f", "text", "Output format: text (YAML), json")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the user configuration path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}
