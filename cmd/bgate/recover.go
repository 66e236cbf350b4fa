package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mr3od/bgate/internal/engine"
)

var recoverCmd = &cobra.Command{
	Use:     "recover",
	GroupID: "maintenance",
	Short:   "Re-run orphan recovery",
	Long: `recover re-runs the orphan-recovery phase against the index: every
pending orphan (a file quarantined by the duplicate-conflict compensator
or a prior crash) is moved back to its original path if the file still
exists there to move from.

Journal reconciliation and emergency-orphan import run automatically on
every engine open, including this command's; recover exists for operators
who want to retry orphan recovery alone without a full rescan.`,
	RunE: runRecover,
}

func runRecover(cmd *cobra.Command, args []string) error {
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

	if err := e.RecoverOrphans(ctx); err != nil {
		return fmt.Errorf("recovering orphans: %w", err)
	}
	fmt.Println("orphan recovery complete")
	return nil
}
