package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mr3od/bgate/internal/engine"
)

var orphansCmd = &cobra.Command{
	Use:     "orphans",
	GroupID: "maintenance",
	Short:   "List pending orphan records",
	Long: `orphans lists every file currently quarantined in the orphan registry:
files the duplicate-conflict compensator or a crash-interrupted registration
could not put back at their original path automatically.`,
	RunE: runOrphans,
}

func runOrphans(cmd *cobra.Command, args []string) error {
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

	orphans, err := e.ListOrphans(ctx)
	if err != nil {
		return fmt.Errorf("listing orphans: %w", err)
	}

	if len(orphans) == 0 {
		fmt.Println("no pending orphans")
		return nil
	}
	for _, o := range orphans {
		fmt.Printf("%d\t%s\t(quarantined at %s, %d bytes, since %s)\n",
			o.ID, o.OriginalPath, o.OrphanPath, o.FileSize, o.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}
