// Package escape quotes raw strings as literals for the replay targets.
package escape

import "strings"

var cReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// CString returns s as a double-quoted C-style literal.
func CString(s string) string {
	return `"` + cReplacer.Replace(s) + `"`
}

var ansiReplacer = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// Shell returns s as a single shell word. Plain single quotes are used unless s
// holds a backslash or a single quote, in which case ANSI-C $'...' quoting is
// used instead.
func Shell(s string) string {
	if strings.ContainsAny(s, `\'`) {
		return "$'" + ansiReplacer.Replace(s) + "'"
	}
	return "'" + s + "'"
}
