package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/unkn0wn-root/reqlens/internal/telemetry"
)

type TelemetrySettings struct {
	Endpoint    string            `json:"endpoint,omitempty"     toml:"endpoint,omitempty"`
	Insecure    bool              `json:"insecure,omitempty"     toml:"insecure,omitempty"`
	Service     string            `json:"service,omitempty"      toml:"service,omitempty"`
	DialTimeout string            `json:"dial_timeout,omitempty" toml:"dial_timeout,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"      toml:"headers,omitempty"`
}

// TelemetryConfig converts the settings block. REQLENS_OTEL_* variables
// take precedence over the file.
func (s Settings) TelemetryConfig(getenv func(string) string, version string) (telemetry.Config, error) {
	cfg := telemetry.Config{
		Endpoint:    strings.TrimSpace(s.Telemetry.Endpoint),
		Insecure:    s.Telemetry.Insecure,
		ServiceName: strings.TrimSpace(s.Telemetry.Service),
		Version:     version,
		Headers:     s.Telemetry.Headers,
	}
	if raw := strings.TrimSpace(s.Telemetry.DialTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return telemetry.Config{}, fmt.Errorf("telemetry dial_timeout %q: %w", raw, err)
		}
		cfg.DialTimeout = d
	}

	return telemetry.DefaultConfig().Merge(cfg).Merge(telemetry.EnvOverlay(getenv)), nil
}
