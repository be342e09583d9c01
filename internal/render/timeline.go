// Package render draws summaries and artifacts for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/unkn0wn-root/reqlens/internal/record"
	"github.com/unkn0wn-root/reqlens/internal/timeline"
)

const (
	minNameWidth = 12
	barWidth     = 30
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	scopeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	stampStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	pendingStyle = lipgloss.NewStyle().Faint(true)
)

// Timeline writes a header line for r followed by one row per timeline node,
// with a proportional bar locating each node inside the root span. width
// caps the name column; 0 picks a width from the data.
func Timeline(w io.Writer, r record.Record, width int) error {
	if _, err := fmt.Fprintln(w, header(r)); err != nil {
		return err
	}
	if r.Timeline == nil {
		_, err := fmt.Fprintln(w, pendingStyle.Render("no timeline recorded"))
		return err
	}

	root := *r.Timeline
	rows := timeline.Summarize(root)
	nameWidth := width
	if nameWidth <= 0 {
		nameWidth = minNameWidth
		for _, row := range rows {
			if n := runewidth.StringWidth(label(row)); n > nameWidth {
				nameWidth = n
			}
		}
	}

	for _, row := range rows {
		name := runewidth.FillRight(runewidth.Truncate(label(row), nameWidth, "…"), nameWidth)
		style := scopeStyle
		if row.Kind != timeline.KindScope {
			style = stampStyle
		}
		line := fmt.Sprintf("%s %9s %9s %s",
			style.Render(name),
			"+"+short(row.Offset),
			durationCell(row),
			barStyle.Render(bar(row, root.Duration)),
		)
		if row.HasActive {
			line += " " + pendingStyle.Render("active "+short(row.Active))
		}
		if row.Incomplete {
			line += " " + warnStyle.Render("incomplete")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func header(r record.Record) string {
	status := pendingStyle.Render("pending")
	if code, ok := r.StatusCode(); ok {
		st := scopeStyle
		if code >= 400 {
			st = failStyle
		}
		status = st.Render(fmt.Sprintf("%d", code))
	}
	return titleStyle.Render(strings.ToUpper(r.Method)+" "+record.BuildURL(r)) + " " + status
}

func label(row timeline.Row) string {
	return strings.Repeat("  ", row.Depth) + row.Name
}

func durationCell(row timeline.Row) string {
	if row.Kind != timeline.KindScope {
		return "·"
	}
	return short(row.Duration)
}

// bar places the row inside a fixed-width track scaled to total.
func bar(row timeline.Row, total time.Duration) string {
	if total <= 0 {
		return strings.Repeat(" ", barWidth)
	}
	start := int(int64(row.Offset) * barWidth / int64(total))
	length := int(int64(row.Duration) * barWidth / int64(total))
	start = clamp(start, 0, barWidth)
	if row.Kind == timeline.KindScope && length == 0 {
		length = 1
	}
	length = clamp(length, 0, barWidth-start)
	if row.Kind != timeline.KindScope && start < barWidth {
		return strings.Repeat(" ", start) + "|" + strings.Repeat(" ", barWidth-start-1)
	}
	return strings.Repeat(" ", start) + strings.Repeat("█", length) +
		strings.Repeat(" ", barWidth-start-length)
}

func short(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(10 * time.Microsecond).String()
	default:
		return d.String()
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
