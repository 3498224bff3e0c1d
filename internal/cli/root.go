// Package cli provides the command-line interface for accessclone.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kentyler/accessclone-sub006/internal/cli/commands"
	"github.com/kentyler/accessclone-sub006/internal/cli/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// configKey is used to store config in context.
type configKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "accessclone",
		Short: "Accessclone - Access-to-Postgres query compiler",
		Long: `Accessclone compiles legacy Access query definitions into PostgreSQL DDL.

Saved queries become views, parameterized functions, or procedures depending
on their shape. It can also reverse-parse generated SQL into a design model
and synthesize placeholder callables in a live database.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			var err error
			cfg, err = config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)

			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			}))
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					fmt.Fprintf(os.Stderr, "Using config file: %s\n", configFile)
				}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./accessclone.yaml)")
	rootCmd.PersistentFlags().String("queries-dir", "", "Path to query descriptor directory")
	rootCmd.PersistentFlags().String("out-dir", "", "Path to generated DDL output directory")
	rootCmd.PersistentFlags().StringP("schema", "s", "", "Target schema for generated objects")
	rootCmd.PersistentFlags().String("column-types", "", "Path to a YAML map of table.column to Postgres type")
	rootCmd.PersistentFlags().Int("workers", 0, "Number of concurrent translations")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewTranslateCommand(getConfig))
	rootCmd.AddCommand(commands.NewDesignCommand(getConfig))
	rootCmd.AddCommand(commands.NewStubsCommand(getConfig))

	return rootCmd
}

// getConfig retrieves the loaded config from the command context.
func getConfig(cmd *cobra.Command) (*config.Config, error) {
	if c, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
		return c, nil
	}
	return nil, fmt.Errorf("configuration not loaded")
}

// Execute runs the root command.
func Execute() int {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
