package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LegacyAPIKeyEnv is accepted when the configured key variable is unset.
const LegacyAPIKeyEnv = "VITE_GOOGLE_API_KEY"

// ConfigurationError reports a missing or unusable startup setting.
// It is fatal: no recording may start while one is outstanding.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Key, e.Reason)
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// LoadEnvFile loads KEY=VALUE pairs into the process environment.
//
// An explicit path must exist; the implicit ./.env is optional. Variables that
// are already set are never overridden. It reports the file that was loaded.
func LoadEnvFile(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return "", nil
		}
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil {
		return "", fmt.Errorf("load env file %q: %w", path, err)
	}
	return path, nil
}

// ResolveAPIKey reads the speech API key from the environment.
func ResolveAPIKey(cfg Config) (string, error) {
	return resolveAPIKey(cfg, os.LookupEnv)
}

func resolveAPIKey(cfg Config, lookup func(string) (string, bool)) (string, error) {
	name := strings.TrimSpace(cfg.Speech.APIKeyEnv)
	if name == "" {
		name = DefaultAPIKeyEnv
	}

	for _, candidate := range []string{name, LegacyAPIKeyEnv} {
		if value, ok := lookup(candidate); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), nil
		}
	}

	return "", &ConfigurationError{Key: name, Reason: "is not set in the environment or env file"}
}
