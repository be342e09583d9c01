package telemetry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	envEndpoint    = "REQLENS_OTEL_ENDPOINT"
	envInsecure    = "REQLENS_OTEL_INSECURE"
	envService     = "REQLENS_OTEL_SERVICE"
	envDialTimeout = "REQLENS_OTEL_DIAL_TIMEOUT"
	envHeaders     = "REQLENS_OTEL_HEADERS"

	defaultServiceName = "reqlens"
	defaultDialTimeout = 5 * time.Second
)

// Config selects the OTLP collector timelines are exported to.
type Config struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
	Version     string
	DialTimeout time.Duration
	Headers     map[string]string
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// DefaultConfig has no endpoint, so exporting stays disabled.
func DefaultConfig() Config {
	return Config{ServiceName: defaultServiceName, DialTimeout: defaultDialTimeout}
}

// EnvOverlay holds only the fields set in the environment. Malformed values
// are ignored.
func EnvOverlay(getenv func(string) string) Config {
	cfg := Config{Endpoint: strings.TrimSpace(getenv(envEndpoint))}
	if v := strings.TrimSpace(getenv(envInsecure)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Insecure = b
		}
	}
	cfg.ServiceName = strings.TrimSpace(getenv(envService))
	if v := strings.TrimSpace(getenv(envDialTimeout)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.DialTimeout = d
		}
	}
	if headers, err := ParseHeaders(getenv(envHeaders)); err == nil {
		cfg.Headers = headers
	}
	return cfg
}

// Merge overlays non-zero fields of other onto c.
func (c Config) Merge(other Config) Config {
	if other.Endpoint != "" {
		c.Endpoint = other.Endpoint
	}
	if other.Insecure {
		c.Insecure = true
	}
	if other.ServiceName != "" {
		c.ServiceName = other.ServiceName
	}
	if other.Version != "" {
		c.Version = other.Version
	}
	if other.DialTimeout > 0 {
		c.DialTimeout = other.DialTimeout
	}
	if len(other.Headers) > 0 {
		merged := make(map[string]string, len(c.Headers)+len(other.Headers))
		for k, v := range c.Headers {
			merged[k] = v
		}
		for k, v := range other.Headers {
			merged[k] = v
		}
		c.Headers = merged
	}
	return c
}

// ParseHeaders parses "k=v, k2=v2". Blank input yields nil.
func ParseHeaders(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	headers := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q: expected key=value", part)
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers, nil
}
