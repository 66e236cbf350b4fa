package main

import (
	"context"
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/mr3od/bgate/internal/engine"
	"github.com/mr3od/bgate/internal/walker"
)

var (
	scanRecursive bool
	scanSince     string
)

var scanCmd = &cobra.Command{
	Use:     "scan <root>",
	GroupID: "scan",
	Short:   "Scan a directory tree and register each file",
	Long: `Scan walks root, classifying every candidate file against the index and
registering unique files (optionally relocating them into a content store).

Examples:
  bgate scan ~/Downloads
  bgate scan ~/Downloads --into ~/dedup-store
  bgate scan ~/Downloads --since "3 days ago"`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanRecursive, "recursive", true, "descend into subdirectories")
	scanCmd.Flags().StringVar(&scanSince, "since", "", "only scan files modified after this time (e.g. \"3 days ago\")")
}

func runScan(cmd *cobra.Command, args []string) error {
	root := args[0]
	cfg, err := resolvedConfig()
	if err != nil {
		return err
	}

	opts := walker.Options{Recursive: scanRecursive, IgnoreNames: cfg.IgnoreNames}
	if cmd.Flags().Changed("recursive") {
		opts.Recursive = scanRecursive
	} else {
		opts.Recursive = cfg.Recursive
	}
	if scanSince != "" {
		since, err := parseSince(scanSince)
		if err != nil {
			return fmt.Errorf("parsing --since %q: %w", scanSince, err)
		}
		opts.Since = since
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

	stats, err := e.ProcessDirectory(ctx, root, opts)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", root, err)
	}

	fmt.Printf("scanned %d files: %d unique, %d duplicate, %d skipped\n",
		stats.Scanned, stats.Unique, stats.Duplicate, stats.Skipped)
	return nil
}

// parseSince resolves a human date phrase ("3 days ago", "yesterday") into
// an absolute time via github.com/olebedev/when.
func parseSince(phrase string) (time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(phrase, time.Now())
	if err != nil {
		return time.Time{}, err
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("unrecognized time phrase %q", phrase)
	}
	return r.Time, nil
}
