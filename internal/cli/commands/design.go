package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kentyler/accessclone-sub006/internal/cli/config"
	"github.com/kentyler/accessclone-sub006/pkg/design"
)

// NewDesignCommand creates the design command.
func NewDesignCommand(getConfig func(*cobra.Command) (*config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "design [file.sql ...]",
		Short: "Reverse-parse SQL into a query design model",
		Long: `Parse one or more SQL files back into a structural design model (tables,
joins, fields, sort order) and print the models as JSON. SQL that does not
fit the single-block SELECT shape is reported with parseable set to false
and carried verbatim.`,
		Example: `  # Inspect a generated view body
  accessclone design out/customer_orders.sql`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := getConfig(cmd); err != nil {
				return err
			}
			return runDesign(cmd, args)
		},
	}
	return cmd
}

func runDesign(cmd *cobra.Command, paths []string) error {
	models := make(map[string]*design.Model, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		models[path] = design.Parse(string(data))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if len(paths) == 1 {
		return enc.Encode(models[paths[0]])
	}
	return enc.Encode(models)
}
