package curl

import (
	"strings"

	"github.com/unkn0wn-root/reqlens/internal/escape"
	"github.com/unkn0wn-root/reqlens/internal/record"
)

// continuation ends a fragment and indents the next one on a new line.
const continuation = " \\\n    "

// Generate renders a curl command replaying r. The body is sent only for a
// completed POST or PUT exchange that has one.
func Generate(r record.Record, body *record.Body) string {
	frags := []string{cmdCurl + " " + escape.Shell(record.BuildURL(r))}

	for _, h := range r.RequestHeaders.All() {
		line := h.Name + ": " + strings.Join(h.Values, " ")
		frags = append(frags, optHeader+" "+escape.Shell(line))
	}

	if body != nil && r.IsCompleted && r.HasBodyMethod() {
		frags = append(frags, optDataBinary+" "+escape.Shell(string(body.Bytes())))
	}

	frags = append(frags, optCompressed)
	return strings.Join(frags, continuation)
}
