// Package record models one captured HTTP exchange as consumed by the replay
// generators and the interval summary.
package record

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/unkn0wn-root/reqlens/internal/timeline"
)

const (
	HeaderConnection    = "Connection"
	HeaderContentLength = "Content-Length"
	HeaderContentType   = "Content-Type"
	HeaderCookie        = "Cookie"
)

// Record is one captured request/response exchange. Response fields only
// carry meaning when IsCompleted is set.
type Record struct {
	ID                 string         `json:"id"                       yaml:"id"`
	ParentID           string         `json:"parentId,omitempty"       yaml:"parentId,omitempty"`
	IsHTTPS            bool           `json:"isHttps"                  yaml:"isHttps"`
	Host               string         `json:"host"                     yaml:"host"`
	Path               string         `json:"path"                     yaml:"path"`
	QueryString        string         `json:"queryString,omitempty"    yaml:"queryString,omitempty"`
	Method             string         `json:"method"                   yaml:"method"`
	RequestHeaders     Headers        `json:"requestHeaders"           yaml:"requestHeaders"`
	ResponseHeaders    Headers        `json:"responseHeaders"          yaml:"responseHeaders"`
	IsCompleted        bool           `json:"isCompleted"              yaml:"isCompleted"`
	ResponseStatusCode int            `json:"responseStatusCode"       yaml:"responseStatusCode"`
	ReceivedAt         time.Time      `json:"receivedAt,omitempty"     yaml:"receivedAt,omitempty"`
	Timeline           *timeline.Node `json:"timeline,omitempty"       yaml:"timeline,omitempty"`
}

// RequestContentType is the request Content-Type or "" when absent.
func (r Record) RequestContentType() string {
	v, _ := r.RequestHeaders.Get(HeaderContentType)
	return v
}

// ResponseContentType reports the response Content-Type. An exchange that
// has not completed has no response content type, whatever its headers say.
func (r Record) ResponseContentType() (string, bool) {
	if !r.IsCompleted {
		return "", false
	}
	return r.ResponseHeaders.Get(HeaderContentType)
}

// StatusCode returns the response status and whether it is meaningful.
func (r Record) StatusCode() (int, bool) {
	if !r.IsCompleted {
		return 0, false
	}
	return r.ResponseStatusCode, true
}

// HasBodyMethod reports whether the method carries a replayable body.
func (r Record) HasBodyMethod() bool {
	return strings.EqualFold(r.Method, "POST") || strings.EqualFold(r.Method, "PUT")
}

// Body is request entity content, raw text or a base64 envelope of binary data.
type Body struct {
	Data            string `json:"body"            yaml:"body"`
	IsBase64Encoded bool   `json:"isBase64Encoded" yaml:"isBase64Encoded"`
}

// Bytes returns the decoded content. Bodies are validated on load, so a
// malformed envelope falls back to its raw text.
func (b Body) Bytes() []byte {
	if !b.IsBase64Encoded {
		return []byte(b.Data)
	}
	out, err := base64.StdEncoding.DecodeString(b.Data)
	if err != nil {
		return []byte(b.Data)
	}
	return out
}

func (b Body) Validate() error {
	if !b.IsBase64Encoded {
		return nil
	}
	if _, err := base64.StdEncoding.DecodeString(b.Data); err != nil {
		return fmt.Errorf("body: invalid base64: %w", err)
	}
	return nil
}

// Exchange is the unit stored and imported: a record plus its optional body.
type Exchange struct {
	Record Record `json:"record"         yaml:"record"`
	Body   *Body  `json:"body,omitempty" yaml:"body,omitempty"`
}

func (e Exchange) Validate() error {
	if e.Body == nil {
		return nil
	}
	if err := e.Body.Validate(); err != nil {
		return fmt.Errorf("record %s: %w", e.Record.ID, err)
	}
	return nil
}

// Classifier sorts content types into text and image. It is supplied by the
// caller; see the classify package for the default.
type Classifier interface {
	IsText(contentType string) bool
	IsImage(contentType string) bool
}
