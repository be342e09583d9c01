package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-runewidth"

	"github.com/unkn0wn-root/reqlens/internal/config"
	"github.com/unkn0wn-root/reqlens/internal/export"
	"github.com/unkn0wn-root/reqlens/internal/harimport"
	"github.com/unkn0wn-root/reqlens/internal/record"
	"github.com/unkn0wn-root/reqlens/internal/render"
	"github.com/unkn0wn-root/reqlens/internal/store"
)

type command struct {
	summary string
	usage   string
	run     func(ctx context.Context, a *app, args []string) error
}

var commandOrder = []string{"import", "list", "export", "timeline", "diff", "trace", "delete", "config"}

var commands = map[string]command{
	"import":   {"Import HAR, JSON or YAML records", "<file>...", runImport},
	"list":     {"List stored records, newest first", "[--limit N] [--parent ID]", runList},
	"export":   {"Render a record as replay code or a timeline", "<id> [--format F] [--out FILE] [--copy] [--highlight]", runExport},
	"timeline": {"Show the timing breakdown of a record", "<id> [--width N]", runTimeline},
	"diff":     {"Diff the exports of two records", "<idA> <idB> [--format F]", runDiff},
	"trace":    {"Send a record's timeline to an OTLP collector", "<id>", runTrace},
	"delete":   {"Delete a stored record", "<id>", runDelete},
	"config":   {"Show settings, or write defaults with --init", "[--init]", runConfig},
}

func formatHelp() string {
	names := make([]string, 0, len(export.Formats()))
	for _, f := range export.Formats() {
		names = append(names, string(f))
	}
	return "Output format: " + strings.Join(names, ", ")
}

func runImport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("import", a)
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths := trimmed(fs.Args())
	if len(paths) == 0 {
		return errUsage
	}
	st, err := a.store()
	if err != nil {
		return err
	}
	for _, path := range paths {
		exs, err := loadExchanges(path)
		if err != nil {
			return err
		}
		for _, ex := range exs {
			id, err := st.Save(ctx, ex)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, id)
		}
		a.log.Info().Str("file", path).Int("records", len(exs)).Msg("imported")
	}
	return nil
}

func loadExchanges(path string) ([]record.Exchange, error) {
	if !strings.EqualFold(filepath.Ext(path), ".har") {
		return record.LoadFile(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	exs, err := harimport.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return exs, nil
}

func runList(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("list", a)
	limit := fs.IntP("limit", "n", 50, "Maximum number of records")
	parent := fs.String("parent", "", "Only list children of this record")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, err := a.store()
	if err != nil {
		return err
	}
	var rows []store.Summary
	if *parent != "" {
		rows, err = st.Children(ctx, *parent)
	} else {
		rows, err = st.List(ctx, *limit)
	}
	if err != nil {
		return err
	}
	writeSummaries(a.stdout, rows)
	return nil
}

const urlColumn = 72

func writeSummaries(w io.Writer, rows []store.Summary) {
	for _, row := range rows {
		status := "---"
		if row.Completed {
			status = fmt.Sprintf("%3d", row.StatusCode)
		}
		received := "-"
		if !row.ReceivedAt.IsZero() {
			received = row.ReceivedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%-36s  %-19s  %-7s %s  %s\n",
			row.ID,
			received,
			strings.ToUpper(row.Method),
			status,
			runewidth.Truncate(row.URL, urlColumn, "…"),
		)
	}
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("export", a)
	formatName := fs.StringP("format", "f", a.settings.DefaultFormat, formatHelp())
	out := fs.StringP("out", "o", "", "Write to a file instead of stdout")
	toClipboard := fs.BoolP("copy", "c", false, "Copy the result to the clipboard")
	highlight := fs.Bool("highlight", a.settings.Highlight, "Syntax highlight terminal output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	format, err := export.ParseFormat(*formatName)
	if err != nil {
		return err
	}
	svc, err := a.exporter()
	if err != nil {
		return err
	}
	text, err := svc.Render(ctx, fs.Arg(0), format)
	if err != nil {
		return err
	}

	if *toClipboard {
		if err := clipboard.WriteAll(text); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
		a.log.Info().Str("format", string(format)).Msg("copied to clipboard")
	}
	if *out != "" {
		if err := os.WriteFile(*out, []byte(text), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", *out, err)
		}
		a.log.Info().Str("path", *out).Msg("written")
		return nil
	}
	if *toClipboard {
		return nil
	}
	return writeArtifact(a, text, format, *highlight)
}

func writeArtifact(a *app, text string, format export.Format, highlight bool) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if !highlight {
		_, err := io.WriteString(a.stdout, text)
		return err
	}
	return render.Highlight(a.stdout, text, format.Lexer(), a.settings.HighlightStyle)
}

func runTimeline(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("timeline", a)
	width := fs.IntP("width", "w", 0, "Name column width (0 fits the data)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	st, err := a.store()
	if err != nil {
		return err
	}
	ex, err := st.Get(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return render.Timeline(a.stdout, ex.Record, *width)
}

func runDiff(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("diff", a)
	formatName := fs.StringP("format", "f", a.settings.DefaultFormat, formatHelp())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errUsage
	}
	format, err := export.ParseFormat(*formatName)
	if err != nil {
		return err
	}
	svc, err := a.exporter()
	if err != nil {
		return err
	}
	diff, err := svc.Diff(ctx, fs.Arg(0), fs.Arg(1), format)
	if err != nil {
		return err
	}
	if diff == "" {
		a.log.Info().Msg("exports are identical")
		return nil
	}
	_, err = io.WriteString(a.stdout, diff)
	return err
}

func runTrace(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("trace", a)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	st, err := a.store()
	if err != nil {
		return err
	}
	ex, err := st.Get(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	exp, err := a.telemetry()
	if err != nil {
		return err
	}
	defer a.shutdownTelemetry(exp)
	if err := exp.ExportTimeline(ctx, ex.Record); err != nil {
		return err
	}
	a.log.Info().Str("id", ex.Record.ID).Msg("timeline exported")
	return nil
}

func runDelete(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("delete", a)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	st, err := a.store()
	if err != nil {
		return err
	}
	ok, err := st.Delete(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("delete %s: %w", fs.Arg(0), store.ErrNotFound)
	}
	return nil
}

func runConfig(_ context.Context, a *app, args []string) error {
	fs := newFlagSet("config", a)
	initialise := fs.Bool("init", false, "Write default settings if none exist")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *initialise {
		if _, err := os.Stat(a.handle.Path); err == nil {
			return fmt.Errorf("settings already exist at %s", a.handle.Path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := config.SaveSettings(config.DefaultSettings(), a.handle); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, a.handle.Path)
		return nil
	}

	s := a.settings
	fmt.Fprintf(a.stdout, "settings:  %s (%s)\n", a.handle.Path, a.handle.Format)
	fmt.Fprintf(a.stdout, "database:  %s\n", s.DatabasePath())
	fmt.Fprintf(a.stdout, "format:    %s\n", s.DefaultFormat)
	fmt.Fprintf(a.stdout, "highlight: %t\n", s.Highlight)
	fmt.Fprintf(a.stdout, "log:       %s %s\n", s.Log.Level, s.Log.File)
	if len(s.TextTypes) > 0 {
		fmt.Fprintf(a.stdout, "text:      %s\n", strings.Join(s.TextTypes, ", "))
	}
	if cfg, err := s.TelemetryConfig(a.getenv, version); err == nil && cfg.Enabled() {
		fmt.Fprintf(a.stdout, "telemetry: %s (service %s)\n", cfg.Endpoint, cfg.ServiceName)
	}
	return nil
}
