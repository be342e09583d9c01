package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envDatabase       = "REQLENS_DB"
	envFormat         = "REQLENS_FORMAT"
	envHighlight      = "REQLENS_HIGHLIGHT"
	envHighlightStyle = "REQLENS_HIGHLIGHT_STYLE"
	envTextTypes      = "REQLENS_TEXT_TYPES"
	envLogLevel       = "REQLENS_LOG_LEVEL"
	envLogFile        = "REQLENS_LOG_FILE"
)

// LoadEnvFiles loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	var accumulated error
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			accumulated = errors.Join(accumulated, fmt.Errorf("load env %q: %w", path, err))
		}
	}
	return accumulated
}

// ApplyEnv overlays REQLENS_* variables read through getenv.
func ApplyEnv(s Settings, getenv func(string) string) Settings {
	if v := strings.TrimSpace(getenv(envDatabase)); v != "" {
		s.Database = v
	}
	if v := strings.TrimSpace(getenv(envFormat)); v != "" {
		s.DefaultFormat = v
	}
	if v := strings.TrimSpace(getenv(envHighlight)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.Highlight = b
		}
	}
	if v := strings.TrimSpace(getenv(envHighlightStyle)); v != "" {
		s.HighlightStyle = v
	}
	if v := strings.TrimSpace(getenv(envTextTypes)); v != "" {
		s.TextTypes = append(s.TextTypes, strings.Split(v, ",")...)
	}
	if v := strings.TrimSpace(getenv(envLogLevel)); v != "" {
		s.Log.Level = v
	}
	if v := strings.TrimSpace(getenv(envLogFile)); v != "" {
		s.Log.File = v
	}
	return Normalise(s)
}
