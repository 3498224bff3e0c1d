package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kentyler/accessclone-sub006/internal/cli/config"
	"github.com/kentyler/accessclone-sub006/pkg/translate"
)

// TranslateOptions holds options for the translate command.
type TranslateOptions struct {
	JSONOutput bool
	FailFast   bool
}

// translationOutcome pairs a descriptor with its compiled result for
// reporting.
type translationOutcome struct {
	Query      string   `json:"query"`
	Object     string   `json:"object"`
	Kind       string   `json:"kind"`
	Parameters int      `json:"parameters"`
	Warnings   []string `json:"warnings,omitempty"`
	Error      string   `json:"error,omitempty"`
	File       string   `json:"file,omitempty"`
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(getConfig func(*cobra.Command) (*config.Config, error)) *cobra.Command {
	opts := &TranslateOptions{}

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Compile query descriptors into Postgres DDL",
		Long: `Read query descriptor YAML files from the queries directory, compile each
one into PostgreSQL DDL, and write one .sql file per query into the output
directory.`,
		Example: `  # Compile everything under ./queries into ./out
  accessclone translate

  # Compile into a named schema with a column type map
  accessclone translate --schema legacy --column-types types.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := getConfig(cmd)
			if err != nil {
				return err
			}
			return runTranslate(cmd, cfg, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Emit a JSON report instead of a table")
	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "Stop at the first descriptor that fails to compile")
	return cmd
}

func runTranslate(cmd *cobra.Command, cfg *config.Config, opts *TranslateOptions) error {
	logger := config.GetLogger(cmd.Context())

	descriptors, err := loadDescriptors(cfg.QueriesDir)
	if err != nil {
		return err
	}
	if len(descriptors) == 0 {
		return fmt.Errorf("no query descriptors found in %s", cfg.QueriesDir)
	}
	columnTypes, err := loadColumnTypes(cfg.ColumnTypes)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outcomes := make([]translationOutcome, len(descriptors))

	g, ctx := errgroup.WithContext(cmd.Context())
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, d := range descriptors {
		i, d := i, d
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcome := translationOutcome{Query: d.Name, Kind: d.Kind.String()}

			res, err := translate.Translate(d, cfg.Schema, columnTypes)
			if err != nil {
				logger.Error("translation failed",
					slog.String("query", d.Name), slog.String("error", err.Error()))
				outcome.Error = err.Error()
				outcomes[i] = outcome
				if opts.FailFast {
					return fmt.Errorf("translate %s: %w", d.Name, err)
				}
				return nil
			}

			outcome.Object = res.ObjectName
			outcome.Kind = string(res.ObjectKind)
			outcome.Parameters = len(res.Parameters)
			outcome.Warnings = res.Warnings

			path := filepath.Join(cfg.OutDir, res.ObjectName+".sql")
			ddl := strings.Join(res.Statements, "\n\n") + "\n"
			if err := os.WriteFile(path, []byte(ddl), 0o644); err != nil {
				outcome.Error = err.Error()
				outcomes[i] = outcome
				if opts.FailFast {
					return fmt.Errorf("write %s: %w", path, err)
				}
				return nil
			}
			outcome.File = path
			outcomes[i] = outcome

			logger.Debug("translated query",
				slog.String("query", d.Name),
				slog.String("object", res.ObjectName),
				slog.Int("warnings", len(res.Warnings)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if opts.JSONOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(outcomes)
	}
	renderTranslateTable(cmd, outcomes)

	failed := 0
	for _, o := range outcomes {
		if o.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed to translate", failed, len(outcomes))
	}
	return nil
}

func renderTranslateTable(cmd *cobra.Command, outcomes []translationOutcome) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Query", "Object", "Kind", "Params", "Warnings", "Status"})

	for _, o := range outcomes {
		status := "ok"
		if o.Error != "" {
			status = "error: " + o.Error
		}
		t.AppendRow(table.Row{o.Query, o.Object, o.Kind, o.Parameters, len(o.Warnings), status})
	}
	t.Render()

	for _, o := range outcomes {
		for _, w := range o.Warnings {
			fmt.Fprintf(cmd.OutOrStdout(), "warning: %s: %s\n", o.Query, w)
		}
	}
}
