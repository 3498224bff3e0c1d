package commands

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kentyler/accessclone-sub006/internal/cli/config"
	"github.com/kentyler/accessclone-sub006/pkg/stub"
)

// StubsOptions holds options for the stubs command.
type StubsOptions struct {
	Declarations string
	FromDDL      bool
}

// NewStubsCommand creates the stubs command.
func NewStubsCommand(getConfig func(*cobra.Command) (*config.Config, error)) *cobra.Command {
	opts := &StubsOptions{}

	cmd := &cobra.Command{
		Use:   "stubs",
		Short: "Create placeholder callables in the target database",
		Long: `Synthesize no-op stand-ins for procedures and functions the target catalog
does not know yet, so generated DDL that references them can be installed.
Declared signatures come from a YAML file; with --from-ddl the generated
.sql files in the output directory are scanned for unresolved calls
instead.`,
		Example: `  # Stub the declared procedure signatures
  accessclone stubs --declarations procedures.yaml

  # Stub whatever the generated DDL still references
  accessclone stubs --from-ddl`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := getConfig(cmd)
			if err != nil {
				return err
			}
			return runStubs(cmd, cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Declarations, "declarations", "", "YAML file of declared callable signatures")
	cmd.Flags().BoolVar(&opts.FromDDL, "from-ddl", false, "Scan generated DDL for unresolved calls")
	return cmd
}

func runStubs(cmd *cobra.Command, cfg *config.Config, opts *StubsOptions) error {
	if opts.Declarations == "" && !opts.FromDDL {
		return fmt.Errorf("nothing to do: pass --declarations or --from-ddl")
	}
	if cfg.Database == nil {
		return fmt.Errorf("no database configured: set the database section or ACCESSCLONE_DATABASE__* variables")
	}

	ctx := cmd.Context()
	logger := config.GetLogger(ctx)

	db, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := stub.New(db, cfg.Schema, logger)

	if opts.Declarations != "" {
		decls, err := loadDeclarations(opts.Declarations)
		if err != nil {
			return err
		}
		report, err := s.CreateDeclared(ctx, decls)
		if err != nil {
			return err
		}
		renderStubReport(cmd, "declared", report)
	}

	if opts.FromDDL {
		statements, err := loadGeneratedDDL(cfg.OutDir)
		if err != nil {
			return err
		}
		report, err := s.CreateFromDDL(ctx, statements)
		if err != nil {
			return err
		}
		renderStubReport(cmd, "from-ddl", report)
	}
	return nil
}

// loadDeclarations reads a YAML list of callable declarations.
func loadDeclarations(path string) ([]stub.Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read declarations file: %w", err)
	}
	var f struct {
		Callables []stub.Declaration `yaml:"callables"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse declarations file: %w", err)
	}
	if len(f.Callables) == 0 {
		return nil, fmt.Errorf("%s: no callables declared", path)
	}
	return f.Callables, nil
}

// loadGeneratedDDL reads every generated .sql file under dir.
func loadGeneratedDDL(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".sql") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	statements := make([]string, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		statements = append(statements, string(data))
	}
	return statements, nil
}

func renderStubReport(cmd *cobra.Command, batch string, report *stub.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Callable", "Status"})
	for _, name := range report.Created {
		t.AppendRow(table.Row{name, "created"})
	}
	for _, name := range report.Skipped {
		t.AppendRow(table.Row{name, "skipped"})
	}
	t.Render()

	fmt.Fprintf(cmd.OutOrStdout(), "batch %s (%s): %d created, %d skipped\n",
		report.BatchID, batch, len(report.Created), len(report.Skipped))
	for _, w := range report.Warnings {
		fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
	}
}
