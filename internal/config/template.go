package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// defaultTemplate mirrors Load's SetDefault calls: the commented file
// bgate init writes so a fresh checkout has something to edit instead of
// relying on implicit defaults.
type defaultTemplate struct {
	DB          string       `toml:"db"`
	ContentRoot string       `toml:"content-root"`
	Log         logTemplate  `toml:"log"`
	Scan        scanTemplate `toml:"scan"`
}

type logTemplate struct {
	Path        string `toml:"path"`
	MaxSizeMB   int    `toml:"max-size-mb"`
	MaxBackups  int    `toml:"max-backups"`
	MaxAgeDays  int    `toml:"max-age-days"`
}

type scanTemplate struct {
	Recursive bool     `toml:"recursive"`
	Ignore    []string `toml:"ignore"`
}

// WriteDefault writes a commented bgate.toml template to path, failing if
// a file already exists there. Used by bgate init.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists", path)
	} else if !os.IsNotExist(err) {
		return err
	}

	tmpl := defaultTemplate{
		DB:          ".bgate/index.db",
		ContentRoot: "",
		Log: logTemplate{
			Path:       "",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Scan: scanTemplate{
			Recursive: true,
			Ignore:    []string{},
		},
	}

	var buf bytes.Buffer
	buf.WriteString("# bgate configuration. See `bgate help` for the full key reference.\n\n")
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(tmpl); err != nil {
		return fmt.Errorf("config: encoding default template: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: creating %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
