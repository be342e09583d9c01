// Package export turns stored exchanges into replay artifacts.
package export

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	udiff "github.com/aymanbagabas/go-udiff"
	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/reqlens/internal/codegen"
	"github.com/unkn0wn-root/reqlens/internal/curl"
	"github.com/unkn0wn-root/reqlens/internal/escape"
	"github.com/unkn0wn-root/reqlens/internal/record"
	"github.com/unkn0wn-root/reqlens/internal/timeline"
)

type Format string

const (
	FormatCurl     Format = "curl"
	FormatCSharp   Format = "csharp"
	FormatLINQPad  Format = "linqpad"
	FormatTimeline Format = "timeline"
)

var ErrUnknownFormat = errors.New("export: unknown format")

func Formats() []Format {
	return []Format{FormatCurl, FormatCSharp, FormatLINQPad, FormatTimeline}
}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCurl, FormatCSharp, FormatLINQPad, FormatTimeline:
		return f, nil
	case "cs", "c#":
		return FormatCSharp, nil
	case "linq":
		return FormatLINQPad, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownFormat, s)
	}
}

// Lexer names the syntax used by f, for highlighting.
func (f Format) Lexer() string {
	switch f {
	case FormatCurl:
		return "bash"
	case FormatCSharp, FormatLINQPad:
		return "c#"
	default:
		return ""
	}
}

// Render produces the artifact for ex in format f. It performs no I/O.
func Render(ex record.Exchange, f Format, cls record.Classifier) (string, error) {
	switch f {
	case FormatCurl:
		return curl.Generate(ex.Record, ex.Body), nil
	case FormatCSharp:
		return codegen.Generate(ex.Record, ex.Body, codegen.Options{Classifier: cls}), nil
	case FormatLINQPad:
		code := codegen.Generate(ex.Record, ex.Body, codegen.Options{Notebook: true, Classifier: cls})
		return codegen.WrapLINQPad(code), nil
	case FormatTimeline:
		return renderTimeline(ex.Record)
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownFormat, f)
	}
}

func renderTimeline(r record.Record) (string, error) {
	if r.Timeline == nil {
		return "", fmt.Errorf("export %s: %w", r.ID, timeline.ErrNoTimeline)
	}
	var b strings.Builder
	for _, row := range timeline.Summarize(*r.Timeline) {
		b.WriteString(strings.Repeat("  ", row.Depth))
		b.WriteString(row.Name)
		fmt.Fprintf(&b, " +%s", fmtDuration(row.Offset))
		if row.Kind == timeline.KindScope {
			fmt.Fprintf(&b, " %s", fmtDuration(row.Duration))
		}
		if row.HasActive {
			fmt.Fprintf(&b, " (active %s)", fmtDuration(row.Active))
		}
		if row.Incomplete {
			b.WriteString(" [incomplete]")
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// fmtDuration renders milliseconds with up to three decimals.
func fmtDuration(d time.Duration) string {
	ms := math.Round(float64(d)/float64(time.Microsecond)) / 1000
	return strconv.FormatFloat(ms, 'f', -1, 64) + "ms"
}

// VerifyCurl checks that a generated command splits into shell words and
// starts with curl.
func VerifyCurl(cmd string) ([]string, error) {
	words, err := escape.SplitShellWords(cmd)
	if err != nil {
		return nil, fmt.Errorf("verify curl: %w", err)
	}
	if len(words) == 0 || words[0] != "curl" {
		return nil, errors.New("verify curl: command does not start with curl")
	}
	return words, nil
}

type Source interface {
	Get(ctx context.Context, id string) (record.Exchange, error)
}

type Service struct {
	Source     Source
	Classifier record.Classifier
	Logger     zerolog.Logger
}

func (s *Service) Render(ctx context.Context, id string, f Format) (string, error) {
	ex, err := s.Source.Get(ctx, id)
	if err != nil {
		return "", err
	}
	out, err := Render(ex, f, s.Classifier)
	if err != nil {
		return "", err
	}
	if f == FormatCurl {
		if _, err := VerifyCurl(out); err != nil {
			return "", err
		}
	}
	s.Logger.Debug().
		Str("id", id).
		Str("format", string(f)).
		Int("bytes", len(out)).
		Msg("rendered exchange")
	return out, nil
}

// Diff renders both exchanges in format f and returns a unified diff, empty
// when the artifacts are identical.
func (s *Service) Diff(ctx context.Context, idA, idB string, f Format) (string, error) {
	a, err := s.Render(ctx, idA, f)
	if err != nil {
		return "", err
	}
	b, err := s.Render(ctx, idB, f)
	if err != nil {
		return "", err
	}
	// hunks are line based on LF
	a = strings.ReplaceAll(a, "\r\n", "\n")
	b = strings.ReplaceAll(b, "\r\n", "\n")
	return udiff.Unified(idA, idB, ensureNL(a), ensureNL(b)), nil
}

func ensureNL(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
