package escape

import (
	"errors"
	"strings"
)

var (
	errUnterminatedEscape = errors.New("unterminated escape sequence")
	errUnterminatedQuote  = errors.New("unterminated quoted string")
	errInvalidHex         = errors.New("invalid hex escape")
)

type quoteState struct {
	single bool
	double bool
	ansi   bool
	escape bool
	skipLF bool
}

func (q *quoteState) open() bool {
	return q.single || q.double || q.ansi
}

type wordSplitter struct {
	q     quoteState
	rs    []rune
	buf   strings.Builder
	out   []string
	quote bool // current word had quotes, so an empty word still counts
}

func (ws *wordSplitter) flush() {
	if ws.buf.Len() == 0 && !ws.quote {
		return
	}
	ws.out = append(ws.out, ws.buf.String())
	ws.buf.Reset()
	ws.quote = false
}

// SplitShellWords splits a command line the way a POSIX shell would, honoring
// single quotes, double quotes, ANSI-C $'...' quoting, backslash escapes and
// backslash-newline continuations. It evaluates literals only; no expansion
// is performed.
func SplitShellWords(cmd string) ([]string, error) {
	ws := &wordSplitter{rs: []rune(cmd)}
	for i := 0; i < len(ws.rs); i++ {
		handled, err := ws.step(&i)
		if err != nil {
			return nil, err
		}
		if handled {
			continue
		}
		r := ws.rs[i]
		if isSpace(r) && !ws.q.open() {
			ws.flush()
			continue
		}
		ws.buf.WriteRune(r)
	}

	if ws.q.escape {
		return nil, errUnterminatedEscape
	}
	if ws.q.open() {
		return nil, errUnterminatedQuote
	}
	ws.flush()
	return ws.out, nil
}

func (ws *wordSplitter) step(i *int) (bool, error) {
	q := &ws.q
	r := ws.rs[*i]

	if q.skipLF {
		q.skipLF = false
		if r == '\n' {
			return true, nil
		}
	}

	if q.escape {
		q.escape = false
		switch {
		case q.ansi:
			v, err := ansiEscape(ws.rs, i)
			if err != nil {
				return false, err
			}
			ws.buf.WriteRune(v)
		case r == '\n' || r == '\r':
			// line continuation
			q.skipLF = r == '\r'
		case q.double && !strings.ContainsRune("$`\"\\", r):
			ws.buf.WriteRune('\\')
			ws.buf.WriteRune(r)
		default:
			ws.buf.WriteRune(r)
		}
		return true, nil
	}

	if q.ansi {
		switch r {
		case '\\':
			q.escape = true
		case '\'':
			q.ansi = false
		default:
			ws.buf.WriteRune(r)
		}
		return true, nil
	}

	if q.single {
		if r == '\'' {
			q.single = false
		} else {
			ws.buf.WriteRune(r)
		}
		return true, nil
	}

	switch r {
	case '\\':
		q.escape = true
		return true, nil
	case '"':
		q.double = !q.double
		ws.quote = true
		return true, nil
	case '\'':
		if q.double {
			return false, nil
		}
		q.single = true
		ws.quote = true
		return true, nil
	case '$':
		if !q.double && *i+1 < len(ws.rs) && ws.rs[*i+1] == '\'' {
			q.ansi = true
			ws.quote = true
			*i++
			return true, nil
		}
	}
	return false, nil
}

func ansiEscape(rs []rune, i *int) (rune, error) {
	if *i >= len(rs) {
		return 0, errUnterminatedEscape
	}
	switch r := rs[*i]; r {
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	case 'x':
		return readHex(rs, i, 2)
	case 'u':
		return readHex(rs, i, 4)
	default:
		return r, nil
	}
}

func readHex(rs []rune, i *int, n int) (rune, error) {
	if *i+n >= len(rs) {
		return 0, errInvalidHex
	}
	val := 0
	for j := 1; j <= n; j++ {
		d, ok := hexVal(rs[*i+j])
		if !ok {
			return 0, errInvalidHex
		}
		val = val*16 + d
	}
	*i += n
	return rune(val), nil
}

func hexVal(r rune) (int, bool) {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0'), true
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10, true
	case r >= 'A' && r <= 'F':
		return int(r-'A') + 10, true
	default:
		return 0, false
	}
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}
