package render

import (
	"io"

	"github.com/alecthomas/chroma/quick"
	"github.com/muesli/termenv"
)

const defaultStyle = "monokai"

// Highlight writes code colored for the terminal. An empty lexer writes the
// code unchanged.
func Highlight(w io.Writer, code, lexer, style string) error {
	if lexer == "" {
		_, err := io.WriteString(w, code)
		return err
	}
	if style == "" {
		style = defaultStyle
	}
	return quick.Highlight(w, code, lexer, formatterFor(termenv.EnvColorProfile()), style)
}

func formatterFor(p termenv.Profile) string {
	switch p {
	case termenv.TrueColor:
		return "terminal16m"
	case termenv.ANSI256:
		return "terminal256"
	case termenv.ANSI:
		return "terminal16"
	default:
		return "noop"
	}
}
