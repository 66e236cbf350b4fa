package config

import (
	"os"
	"path/filepath"
	"testing"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(orig); err != nil {
			t.Fatalf("Chdir back failed: %v", err)
		}
	})
}

func TestLoadUsesDefaultsWhenNoConfigFileFound(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg-empty"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != ".bgate/index.db" {
		t.Fatalf("DBPath = %q, want default", cfg.DBPath)
	}
	if !cfg.Recursive {
		t.Fatalf("Recursive = false, want true (default)")
	}
	if cfg.ConfigFileUsed() != "" {
		t.Fatalf("ConfigFileUsed = %q, want empty", cfg.ConfigFileUsed())
	}
}

func TestLoadFindsProjectLocalConfigWalkingUpFromCwd(t *testing.T) {
	root := t.TempDir()
	bgateDir := filepath.Join(root, ".bgate")
	if err := os.MkdirAll(bgateDir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	configBody := "db = \"custom.db\"\n"
	if err := os.WriteFile(filepath.Join(bgateDir, "config.toml"), []byte(configBody), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	chdir(t, sub)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != "custom.db" {
		t.Fatalf("DBPath = %q, want %q", cfg.DBPath, "custom.db")
	}
	if cfg.ConfigFileUsed() != filepath.Join(bgateDir, "config.toml") {
		t.Fatalf("ConfigFileUsed = %q, want %q", cfg.ConfigFileUsed(), filepath.Join(bgateDir, "config.toml"))
	}
}

func TestLoadEnvVarOverridesConfigFile(t *testing.T) {
	root := t.TempDir()
	bgateDir := filepath.Join(root, ".bgate")
	if err := os.MkdirAll(bgateDir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(bgateDir, "config.toml"), []byte("db = \"file.db\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	chdir(t, root)
	t.Setenv("BGATE_DB", "env.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != "env.db" {
		t.Fatalf("DBPath = %q, want %q (env override)", cfg.DBPath, "env.db")
	}
	if cfg.Source("db") != "env_var" {
		t.Fatalf("Source(db) = %q, want env_var", cfg.Source("db"))
	}
}

func TestWriteDefaultRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bgate.toml")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty default template")
	}

	if err := WriteDefault(path); err == nil {
		t.Fatalf("expected WriteDefault to refuse existing file")
	}
}
