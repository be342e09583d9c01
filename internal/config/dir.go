package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appName   = "reqlens"
	envConfig = "REQLENS_CONFIG_DIR"
)

// Dir returns the settings directory. REQLENS_CONFIG_DIR wins over the
// user config dir.
func Dir() string {
	if dir := strings.TrimSpace(os.Getenv(envConfig)); dir != "" {
		return dir
	}
	if base, err := os.UserConfigDir(); err == nil && base != "" {
		return filepath.Join(base, appName)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, "."+appName)
	}
	return "." + appName
}

// DefaultDatabasePath is where records live when nothing else is configured.
func DefaultDatabasePath() string {
	return filepath.Join(Dir(), appName+".db")
}
