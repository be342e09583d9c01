package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/unkn0wn-root/reqlens/internal/util"
)

const (
	SettingsFormatTOML SettingsFormat = "toml"
	SettingsFormatJSON SettingsFormat = "json"
)

const (
	defaultFormat   = "curl"
	defaultLogLevel = "info"
)

type Settings struct {
	Database       string            `json:"database,omitempty"        toml:"database,omitempty"`
	DefaultFormat  string            `json:"default_format"            toml:"default_format"`
	Highlight      bool              `json:"highlight"                 toml:"highlight"`
	HighlightStyle string            `json:"highlight_style,omitempty" toml:"highlight_style,omitempty"`
	TextTypes      []string          `json:"text_types,omitempty"      toml:"text_types,omitempty"`
	Log            LogSettings       `json:"log"                       toml:"log"`
	Telemetry      TelemetrySettings `json:"telemetry"                 toml:"telemetry"`
}

type LogSettings struct {
	Level string `json:"level"          toml:"level"`
	File  string `json:"file,omitempty" toml:"file,omitempty"`
}

type SettingsFormat string

// SettingsHandle remembers where settings came from so they are saved back
// in the same place and format.
type SettingsHandle struct {
	Path   string
	Format SettingsFormat
}

func (h SettingsHandle) withDefaults() SettingsHandle {
	if h.Path == "" {
		h.Path = filepath.Join(Dir(), "settings.toml")
	}
	if h.Format == "" {
		h.Format = SettingsFormatTOML
	}
	return h
}

type settingsCodec struct {
	decode func([]byte, *Settings) error
	encode func(Settings) ([]byte, error)
}

var codecs = map[SettingsFormat]settingsCodec{
	SettingsFormatTOML: {
		decode: func(data []byte, s *Settings) error { return toml.Unmarshal(data, s) },
		encode: func(s Settings) ([]byte, error) { return toml.Marshal(s) },
	},
	SettingsFormatJSON: {
		decode: func(data []byte, s *Settings) error {
			dec := json.NewDecoder(bytes.NewReader(data))
			dec.DisallowUnknownFields()
			return dec.Decode(s)
		},
		encode: func(s Settings) ([]byte, error) {
			data, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return nil, err
			}
			return append(data, '\n'), nil
		},
	},
}

func codecFor(format SettingsFormat) (settingsCodec, error) {
	c, ok := codecs[format]
	if !ok {
		return settingsCodec{}, fmt.Errorf("unsupported settings format %q", format)
	}
	return c, nil
}

// LoadSettings reads settings.toml, or settings.json when there is no TOML
// file, from Dir. With neither present it returns defaults and a handle
// pointing at settings.toml.
func LoadSettings() (Settings, SettingsHandle, error) {
	dir := Dir()
	for _, h := range []SettingsHandle{
		{Path: filepath.Join(dir, "settings.toml"), Format: SettingsFormatTOML},
		{Path: filepath.Join(dir, "settings.json"), Format: SettingsFormatJSON},
	} {
		data, err := os.ReadFile(h.Path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			return Settings{}, SettingsHandle{}, fmt.Errorf("read settings %q: %w", h.Path, err)
		}
		var s Settings
		if err := codecs[h.Format].decode(data, &s); err != nil {
			return Settings{}, SettingsHandle{}, fmt.Errorf("parse settings %q: %w", h.Path, err)
		}
		return Normalise(s), h, nil
	}
	return DefaultSettings(), SettingsHandle{}.withDefaults(), nil
}

// DefaultSettings is what a fresh install runs with.
func DefaultSettings() Settings {
	return Normalise(Settings{})
}

// Normalise fills defaults and tidies list values.
func Normalise(s Settings) Settings {
	s.DefaultFormat = strings.ToLower(strings.TrimSpace(s.DefaultFormat))
	if s.DefaultFormat == "" {
		s.DefaultFormat = defaultFormat
	}
	s.Log.Level = strings.ToLower(strings.TrimSpace(s.Log.Level))
	if s.Log.Level == "" {
		s.Log.Level = defaultLogLevel
	}
	s.TextTypes = util.LowerTrimmed(s.TextTypes)
	return s
}

// DatabasePath returns the configured database or the default location.
func (s Settings) DatabasePath() string {
	if p := strings.TrimSpace(s.Database); p != "" {
		return p
	}
	return DefaultDatabasePath()
}

// SaveSettings writes normalised settings to the handle's path in its
// format. An empty handle means settings.toml in Dir.
func SaveSettings(settings Settings, handle SettingsHandle) error {
	handle = handle.withDefaults()
	codec, err := codecFor(handle.Format)
	if err != nil {
		return err
	}
	data, err := codec.encode(Normalise(settings))
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(handle.Path), 0o755); err != nil {
		return fmt.Errorf("ensure settings directory: %w", err)
	}
	if err := writeFileAtomic(handle.Path, data, 0o644); err != nil {
		return fmt.Errorf("write settings %q: %w", handle.Path, err)
	}
	return nil
}

// writeFileAtomic stages data next to path and renames it into place.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".reqlens-settings-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	_, werr := tmp.Write(data)
	if werr == nil {
		werr = tmp.Chmod(perm)
	}
	if werr == nil {
		werr = tmp.Sync()
	}
	if err = errors.Join(werr, tmp.Close()); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
