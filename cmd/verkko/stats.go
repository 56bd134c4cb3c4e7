package verkko

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Compute and print graph statistics",
	Long: `Compute basic statistics for the graph (or one document scope) and print
them as JSON. The computed row is also cached in the store for later reads.`,
	RunE: runStats,
}

var (
	statsScope    string
	statsExtended bool
)

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsScope, "scope", "", "Document id to scope the statistics to (empty for whole graph)")
	statsCmd.Flags().BoolVar(&statsExtended, "extended", false, "Include per-type breakdowns and top connected entities")
}

func runStats(cmd *cobra.Command, args []string) error {
	engine, _, log, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := cmd.Context()

	var result any
	if statsExtended {
		result, err = engine.ExtendedStatistics(ctx, statsScope)
	} else {
		result, err = engine.ComputeStatistics(ctx, statsScope)
	}
	if err != nil {
		return fmt.Errorf("failed to compute statistics: %w", err)
	}

	log.Info("statistics computed", "scope", statsScope, "extended", statsExtended)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
