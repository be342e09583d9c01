package util

import "strings"

// Lines is an ordered buffer of output lines joined once at the end.
type Lines struct {
	items []string
}

func (l *Lines) Add(lines ...string) {
	l.items = append(l.items, lines...)
}

// Addf is Add with the line built from parts concatenated verbatim.
func (l *Lines) Addf(parts ...string) {
	l.items = append(l.items, strings.Join(parts, ""))
}

func (l *Lines) Join(sep string) string {
	return strings.Join(l.items, sep)
}
