package record

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestHeadersLookupIsCaseInsensitiveFirstMatch(t *testing.T) {
	h := NewHeaders(
		Header{Name: "Content-Type", Values: []string{"text/plain"}},
		Header{Name: "X-Multi", Values: []string{"1"}},
	)
	h.Add("x-multi", "2")
	h.Add("Accept", "*/*")

	if v, ok := h.Get("CONTENT-TYPE"); !ok || v != "text/plain" {
		t.Fatalf("unexpected content type %q (%v)", v, ok)
	}
	all := h.All()
	if vals := all[1].Values; len(vals) != 2 || vals[1] != "2" {
		t.Fatalf("expected merged values, got %#v", vals)
	}
	if len(all) != 3 || all[0].Name != "Content-Type" || all[1].Name != "X-Multi" ||
		all[2].Name != "Accept" {
		t.Fatalf("unexpected order %#v", all)
	}
	if _, ok := h.Get("missing"); ok {
		t.Fatalf("expected missing header")
	}
}

func TestHeadersJSONPreservesOrder(t *testing.T) {
	in := `{"Zeta":"1","alpha":["a","b"],"Mid":[]}`
	var h Headers
	if err := json.Unmarshal([]byte(in), &h); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	all := h.All()
	if len(all) != 3 || all[0].Name != "Zeta" || all[1].Name != "alpha" || all[2].Name != "Mid" {
		t.Fatalf("unexpected order %#v", all)
	}
	out, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"Zeta":["1"],"alpha":["a","b"],"Mid":[]}` {
		t.Fatalf("unexpected encoding %s", out)
	}
}

func TestHeadersJSONRejectsArray(t *testing.T) {
	var h Headers
	if err := json.Unmarshal([]byte(`["a"]`), &h); err == nil {
		t.Fatalf("expected error for array headers")
	}
}

func TestHeadersYAMLRoundTrip(t *testing.T) {
	h := NewHeaders(Header{Name: "B", Values: []string{"2"}}, Header{Name: "A", Values: []string{"1", "x"}})
	data, err := yaml.Marshal(h)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Headers
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	all := back.All()
	if len(all) != 2 || all[0].Name != "B" || len(all[1].Values) != 2 {
		t.Fatalf("unexpected round trip %#v", all)
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		rec  Record
		want string
	}{
		{rec: Record{Method: "get", Host: "a.test", Path: "/x"}, want: "http://a.test/x"},
		{
			rec:  Record{IsHTTPS: true, Host: "a.test:8443", Path: "/x", QueryString: "?q=a%20b"},
			want: "https://a.test:8443/x?q=a%20b",
		},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.rec); got != tt.want {
			t.Fatalf("BuildURL = %q, want %q", got, tt.want)
		}
	}
}

func TestResponseContentTypeRequiresCompletion(t *testing.T) {
	r := Record{ResponseHeaders: NewHeaders(Header{Name: "content-type", Values: []string{"text/html"}})}
	if _, ok := r.ResponseContentType(); ok {
		t.Fatalf("expected absent content type for incomplete exchange")
	}
	if _, ok := r.StatusCode(); ok {
		t.Fatalf("expected absent status for incomplete exchange")
	}
	r.IsCompleted = true
	if ct, ok := r.ResponseContentType(); !ok || ct != "text/html" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestBodyBytes(t *testing.T) {
	if got := string((Body{Data: "aGVsbG8=", IsBase64Encoded: true}).Bytes()); got != "hello" {
		t.Fatalf("unexpected decoded body %q", got)
	}
	if got := string((Body{Data: "raw"}).Bytes()); got != "raw" {
		t.Fatalf("unexpected raw body %q", got)
	}
	if err := (Body{Data: "%%%", IsBase64Encoded: true}).Validate(); err == nil {
		t.Fatalf("expected invalid base64 error")
	}
}

func TestLoadFileYAML(t *testing.T) {
	exs, err := LoadFile(filepath.Join("testdata", "post.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(exs) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(exs))
	}
	first := exs[0]
	if first.Record.ID != "yaml-1" || first.Body == nil || first.Body.Data != `{"name":"Sam"}` {
		t.Fatalf("unexpected first exchange %#v", first)
	}
	if BuildURL(first.Record) != "https://api.example.com/users?page=2" {
		t.Fatalf("unexpected url %q", BuildURL(first.Record))
	}
	names := first.Record.RequestHeaders.All()
	if len(names) != 3 || names[1].Name != "Cookie" || len(names[2].Values) != 2 {
		t.Fatalf("unexpected headers %#v", names)
	}
	tl := first.Record.Timeline
	if tl == nil || tl.Duration != 30*time.Millisecond || len(tl.Children) != 1 {
		t.Fatalf("unexpected timeline %#v", tl)
	}
	if exs[1].Record.ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestLoadFileJSON(t *testing.T) {
	exs, err := LoadFile(filepath.Join("testdata", "single.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(exs) != 1 {
		t.Fatalf("expected 1 exchange, got %d", len(exs))
	}
	rec := exs[0].Record
	if rec.RequestContentType() != "image/png" {
		t.Fatalf("expected case-insensitive content type, got %q", rec.RequestContentType())
	}
	if string(exs[0].Body.Bytes()) != "hello" {
		t.Fatalf("unexpected body")
	}
}

func TestLoadFileUnsupported(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "nope.txt"))
	if err == nil || !strings.Contains(err.Error(), "read") {
		t.Fatalf("expected read error, got %v", err)
	}
}
