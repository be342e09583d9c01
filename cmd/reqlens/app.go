package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/reqlens/internal/classify"
	"github.com/unkn0wn-root/reqlens/internal/config"
	"github.com/unkn0wn-root/reqlens/internal/export"
	"github.com/unkn0wn-root/reqlens/internal/store"
	"github.com/unkn0wn-root/reqlens/internal/telemetry"
)

type app struct {
	settings config.Settings
	handle   config.SettingsHandle
	log      zerolog.Logger
	stdout   io.Writer
	stderr   io.Writer
	getenv   func(string) string

	st *store.Store
}

func (a *app) store() (*store.Store, error) {
	if a.st != nil {
		return a.st, nil
	}
	path := a.settings.DatabasePath()
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", path, err)
	}
	a.log.Debug().Str("path", path).Msg("store opened")
	a.st = st
	return st, nil
}

func (a *app) exporter() (*export.Service, error) {
	st, err := a.store()
	if err != nil {
		return nil, err
	}
	return &export.Service{
		Source:     st,
		Classifier: classify.New(a.settings.TextTypes...),
		Logger:     a.log,
	}, nil
}

func (a *app) telemetry() (telemetry.Exporter, error) {
	cfg, err := a.settings.TelemetryConfig(a.getenv, version)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: set telemetry.endpoint or REQLENS_OTEL_ENDPOINT", telemetry.ErrDisabled)
	}
	return telemetry.New(cfg)
}

func (a *app) shutdownTelemetry(exp telemetry.Exporter) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exp.Shutdown(ctx); err != nil {
		a.log.Warn().Err(err).Msg("telemetry shutdown")
	}
}

func (a *app) close() {
	if a.st == nil {
		return
	}
	if err := a.st.Close(); err != nil {
		a.log.Warn().Err(err).Msg("close store")
	}
	a.st = nil
}
