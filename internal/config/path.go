package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// PathEnv overrides the config location when --config is not given.
const PathEnv = "ESCRIBA_CONFIG"

// ResolvePath picks the config file: --config, then $ESCRIBA_CONFIG, then
// $XDG_CONFIG_HOME/escriba/config.jsonc, then ~/.config/escriba/config.jsonc.
func ResolvePath(explicit string) (string, error) {
	for _, candidate := range []string{explicit, os.Getenv(PathEnv)} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed, nil
		}
	}

	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.New("resolve config path: no XDG_CONFIG_HOME and no home directory")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "escriba", "config.jsonc"), nil
}
