package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Loaded is the resolved config file plus the values parsed from it.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load reads the config at explicitPath, or the XDG default location.
// A missing file is not an error: defaults apply and a warning is recorded.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return Loaded{
			Path:     path,
			Config:   Default(),
			Warnings: []Warning{{Message: fmt.Sprintf("config file %q not found; using defaults", path)}},
		}, nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), Default())
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	return Loaded{Path: path, Config: cfg, Warnings: warnings, Exists: true}, nil
}

// ApplyEnv loads the configured env file into the process environment.
//
// A relative env_file is taken from the config file's directory, so key
// files can sit next to config.jsonc. It reports the file that was loaded.
func (l Loaded) ApplyEnv() (string, error) {
	envFile := strings.TrimSpace(l.Config.EnvFile)
	if envFile != "" && !filepath.IsAbs(envFile) && l.Path != "" {
		envFile = filepath.Join(filepath.Dir(l.Path), envFile)
	}
	return LoadEnvFile(envFile)
}
