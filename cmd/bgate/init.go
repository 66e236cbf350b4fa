package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mr3od/bgate/internal/config"
)

var initPath string

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "maintenance",
	Short:   "Write a default bgate.toml",
	Long: `init writes a commented default configuration to .bgate/config.toml in
the current directory (or --path, if given), refusing to overwrite an
existing file.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initPath, "path", "", "config file path (default .bgate/config.toml in the current directory)")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := initPath
	if path == "" {
		path = filepath.Join(".bgate", "config.toml")
	}

	if err := config.WriteDefault(path); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
