// Package classify decides whether a Content-Type carries text or an image.
package classify

import (
	"mime"
	"strings"

	"github.com/unkn0wn-root/reqlens/internal/util"
)

var textSubtypes = map[string]struct{}{
	"json":                  {},
	"xml":                   {},
	"javascript":            {},
	"ecmascript":            {},
	"x-www-form-urlencoded": {},
	"graphql":               {},
	"x-yaml":                {},
	"yaml":                  {},
	"x-ndjson":              {},
	"csv":                   {},
}

// MIME classifies by media type. ExtraText lists further media types
// (e.g. "application/vnd.acme") that should be read as text.
type MIME struct {
	extra map[string]struct{}
}

func New(extraText ...string) *MIME {
	m := &MIME{extra: make(map[string]struct{})}
	for _, t := range util.LowerTrimmed(extraText) {
		m.extra[t] = struct{}{}
	}
	return m
}

func (m *MIME) IsText(contentType string) bool {
	mt, ok := mediaType(contentType)
	if !ok {
		return false
	}
	if _, ok := m.extra[mt]; ok {
		return true
	}
	top, sub, _ := strings.Cut(mt, "/")
	if top == "text" {
		return true
	}
	if top != "application" {
		return false
	}
	if _, ok := textSubtypes[sub]; ok {
		return true
	}
	return strings.HasSuffix(sub, "+json") || strings.HasSuffix(sub, "+xml")
}

func (m *MIME) IsImage(contentType string) bool {
	mt, ok := mediaType(contentType)
	return ok && strings.HasPrefix(mt, "image/")
}

func mediaType(contentType string) (string, bool) {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return "", false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		// keep whatever precedes the parameters
		mt, _, _ = strings.Cut(contentType, ";")
		mt = strings.ToLower(strings.TrimSpace(mt))
	}
	return mt, mt != ""
}
