package curl

import (
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc"

	"github.com/unkn0wn-root/reqlens/internal/escape"
	"github.com/unkn0wn-root/reqlens/internal/record"
)

func sampleRecord() record.Record {
	return record.Record{
		Host:   "a.test",
		Path:   "/x",
		Method: "POST",
		RequestHeaders: record.NewHeaders(
			record.Header{Name: "Cookie", Values: []string{"a=1; b=2"}},
			record.Header{Name: "Accept", Values: []string{"text/plain", "text/html"}},
		),
		IsCompleted: true,
	}
}

func TestGenerateGolden(t *testing.T) {
	got := Generate(sampleRecord(), &record.Body{Data: "hello"})
	want := heredoc.Doc(`
		curl 'http://a.test/x' \
		    -H 'Cookie: a=1; b=2' \
		    -H 'Accept: text/plain text/html' \
		    --data-binary 'hello' \
		    --compressed`)
	if got != want {
		t.Fatalf("unexpected command.\nGot:\n%s\nWant:\n%s", got, want)
	}
}

func TestGenerateSkipsBody(t *testing.T) {
	body := &record.Body{Data: "hello"}
	tests := []struct {
		name string
		mod  func(*record.Record)
		body *record.Body
	}{
		{name: "get", mod: func(r *record.Record) { r.Method = "GET" }, body: body},
		{name: "incomplete", mod: func(r *record.Record) { r.IsCompleted = false }, body: body},
		{name: "no body", mod: func(*record.Record) {}, body: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleRecord()
			tt.mod(&r)
			if got := Generate(r, tt.body); strings.Contains(got, "--data-binary") {
				t.Fatalf("expected no body fragment, got:\n%s", got)
			}
		})
	}
}

func TestGeneratePutLowercaseMethod(t *testing.T) {
	r := sampleRecord()
	r.Method = "put"
	if got := Generate(r, &record.Body{Data: "x"}); !strings.Contains(got, "--data-binary 'x'") {
		t.Fatalf("expected body for put, got:\n%s", got)
	}
}

func TestGenerateBase64BodyAndEscaping(t *testing.T) {
	r := record.Record{
		IsHTTPS:     true,
		Host:        "api.test",
		Path:        "/it's",
		QueryString: "?a=1&b=2",
		Method:      "POST",
		RequestHeaders: record.NewHeaders(
			record.Header{Name: "X-Path", Values: []string{`C:\tmp`}},
		),
		IsCompleted: true,
	}
	// "it's\n" in base64
	got := Generate(r, &record.Body{Data: "aXQncwo=", IsBase64Encoded: true})

	words, err := escape.SplitShellWords(got)
	if err != nil {
		t.Fatalf("generated command does not split: %v\n%s", err, got)
	}
	want := []string{
		"curl", "https://api.test/it's?a=1&b=2",
		"-H", `X-Path: C:\tmp`,
		"--data-binary", "it's\n",
		"--compressed",
	}
	if len(words) != len(want) {
		t.Fatalf("expected %d words, got %#v", len(want), words)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Fatalf("word %d: got %q want %q", i, words[i], want[i])
		}
	}
}

func TestGenerateNoHeaders(t *testing.T) {
	got := Generate(record.Record{Host: "a.test", Path: "/"}, nil)
	if got != "curl 'http://a.test/' \\\n    --compressed" {
		t.Fatalf("unexpected command %q", got)
	}
}
