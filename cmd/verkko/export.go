package verkko

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verkkograph/verkko/pkg/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the graph to Parquet files",
	Long: `Snapshot entities and relationships from the configured store into
Parquet files for offline analysis.`,
	RunE: runExport,
}

var (
	exportDir   string
	exportScope string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportDir, "out", "./verkko_export", "Output directory for Parquet files")
	exportCmd.Flags().StringVar(&exportScope, "scope", "", "Document id to scope the export to (empty for whole graph)")
}

func runExport(cmd *cobra.Command, args []string) error {
	engine, _, log, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer engine.Close()

	writer, err := export.NewParquetGraphWriter(exportDir)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}

	summary, err := writer.ExportGraph(cmd.Context(), engine.Store(), exportScope)
	if err != nil {
		return fmt.Errorf("failed to export graph: %w", err)
	}

	log.Info("export complete",
		"entities", summary.Entities,
		"relationships", summary.Relationships,
		"files", len(summary.Files))
	fmt.Printf("Exported %d entities and %d relationships to %s\n",
		summary.Entities, summary.Relationships, exportDir)
	return nil
}
