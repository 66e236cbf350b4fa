package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mr3od/bgate/internal/engine"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:     "stats",
	GroupID: "scan",
	Short:   "Show index statistics",
	Long: `stats prints the current index-wide counts: how many distinct file
sizes, fringe-digest entries, and full-digest entries the index holds, the
schema version, the number of orphan records (in any status), and the
backlog of in-flight journal entries.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print statistics as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := resolvedConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	e, err := engine.Open(ctx, engine.Options{
		DBPath:      cfg.DBPath,
		ContentRoot: cfg.ContentRoot,
		Log:         buildLogSink(cfg),
	})
	if err != nil {
		return fmt.Errorf("opening engine: %w", err)
	}
	defer e.Close()

	stats, err := e.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}

	if statsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Printf("schema version:   %d\n", stats.SchemaVersion)
	fmt.Printf("unique sizes:      %d\n", stats.UniqueSizes)
	fmt.Printf("fringe entries:    %d\n", stats.FringeEntries)
	fmt.Printf("full entries:      %d\n", stats.FullEntries)
	fmt.Printf("orphans:           %d\n", stats.OrphanCount)
	fmt.Printf("pending journal:   %d\n", stats.PendingJournal)
	return nil
}
