package verkko

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verkkograph/verkko/pkg/load"
)

var loadCmd = &cobra.Command{
	Use:   "load [files...]",
	Short: "Bulk load graph fixtures from YAML files",
	Long: `Load entities, relationships, and communities from YAML fixture files
into the configured store.

Entities are deduplicated by normalized name and type. Relationships that
reference unknown entities, repeat an existing (head, tail, type) triple,
or form a self loop are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	engine, _, log, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer engine.Close()

	loader := load.NewLoader(engine.Store(), log)

	for _, path := range args {
		result, err := loader.LoadFile(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		fmt.Printf("%s: %d entities, %d relationships, %d communities (%d entities and %d relationships skipped)\n",
			path, result.Entities, result.Relationships, result.Communities,
			result.SkippedEntities, result.SkippedRelationships)
	}
	return nil
}
