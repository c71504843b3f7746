package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Instance identifies the running process for log correlation. Platform
// provided identifiers win over the hostname.
func Instance() string {
	for _, key := range []string{"DYNO", "K_REVISION", "HOSTNAME"} {
		if val := Get(key, ""); val != "" {
			return val
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
