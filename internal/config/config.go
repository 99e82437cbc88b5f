package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"

	"karolbroda.com/lyricsync/internal/logging"
)

const envPrefix = "LYRICSYNC"

// Load reads configuration with environment overrides. An empty path
// searches the standard locations and falls back to defaults when no file
// exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = findConfigFile()
	}

	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		log.Debugf("%s loaded %s", logging.Config, path)
	}

	cfg.ApplyDefaults()
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file Load would read, or where a new one belongs.
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if found := findConfigFile(); found != "" {
		return found
	}
	return defaultPath()
}

// Write encodes cfg as TOML at path, refusing to overwrite.
func Write(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	_, _ = fmt.Fprintln(f, "# lyricsync configuration")
	_, _ = fmt.Fprintln(f, "")

	if err := Encode(f, cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func Encode(w io.Writer, cfg *Config) error {
	encoder := toml.NewEncoder(w)
	encoder.Indent = "  "
	return encoder.Encode(cfg)
}

func defaultPath() string {
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		xdgConfig = filepath.Join(home, ".config")
	}
	return filepath.Join(xdgConfig, "lyricsync", "config.toml")
}

// findConfigFile returns the first existing config file path.
func findConfigFile() string {
	paths := []string{defaultPath()}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "lyricsync", "config.toml"))
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// applyEnvOverrides reads a .env file from the working directory, if any,
// then overlays LYRICSYNC_* variables on cfg.
func applyEnvOverrides(cfg *Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("%s error loading .env: %v", logging.Config, err)
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}
	return nil
}
