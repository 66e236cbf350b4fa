// Package config loads bgate.toml: project-local file first (walking up
// from the working directory), then the user config directory, then the
// home directory, with BGATE_-prefixed environment variables layered on
// top via viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the resolved settings for one engine instance.
type Config struct {
	v *viper.Viper

	DBPath        string
	ContentRoot   string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	Recursive     bool
	IgnoreNames   []string
}

// Load resolves bgate.toml with a three-tier search precedence: a
// project-local .bgate/config.toml found by walking up from the working
// directory, then os.UserConfigDir()/bgate/config.toml, then
// ~/.bgate/config.toml. Environment variables (BGATE_DB, BGATE_LOG_PATH,
// etc.) override whatever the config file sets; an unset key falls back to
// its built-in default.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	configFileSet := false

	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".bgate", "config.toml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "bgate", "config.toml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	if !configFileSet {
		if homeDir, err := os.UserHomeDir(); err == nil {
			configPath := filepath.Join(homeDir, ".bgate", "config.toml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("BGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("db", ".bgate/index.db")
	v.SetDefault("content-root", "")
	v.SetDefault("log.path", "")
	v.SetDefault("log.max-size-mb", 100)
	v.SetDefault("log.max-backups", 5)
	v.SetDefault("log.max-age-days", 30)
	v.SetDefault("scan.recursive", true)
	v.SetDefault("scan.ignore", []string{})

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", v.ConfigFileUsed(), err)
		}
	}

	return &Config{
		v:             v,
		DBPath:        v.GetString("db"),
		ContentRoot:   v.GetString("content-root"),
		LogPath:       v.GetString("log.path"),
		LogMaxSizeMB:  v.GetInt("log.max-size-mb"),
		LogMaxBackups: v.GetInt("log.max-backups"),
		LogMaxAgeDays: v.GetInt("log.max-age-days"),
		Recursive:     v.GetBool("scan.recursive"),
		IgnoreNames:   v.GetStringSlice("scan.ignore"),
	}, nil
}

// ConfigFileUsed returns the path of the config file that was loaded, or
// the empty string if none was found and defaults/environment variables
// were used instead.
func (c *Config) ConfigFileUsed() string {
	return c.v.ConfigFileUsed()
}

// Source reports where a key's effective value came from: an environment
// variable, the config file, or the built-in default.
func (c *Config) Source(key string) string {
	envKey := "BGATE_" + strings.ToUpper(strings.ReplaceAll(strings.ReplaceAll(key, "-", "_"), ".", "_"))
	if os.Getenv(envKey) != "" {
		return "env_var"
	}
	if c.v.InConfig(key) {
		return "config_file"
	}
	return "default"
}
