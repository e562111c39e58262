package util

import (
	"log/slog"
	"os"
	"strings"
)

// ParseBoolEnv reads a boolean environment variable such as CHATCART_DEBUG.
// Accepted spellings are true/1/yes/on and false/0/no/off, case-insensitive.
// An unset or unrecognized value yields defaultValue; unrecognized values
// additionally log a warning so a typo in deployment config is visible
// without failing startup.
func ParseBoolEnv(key string, defaultValue bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	slog.Warn("ParseBoolEnv unrecognized value, using default", "key", key, "value", raw, "default", defaultValue)
	return defaultValue
}
