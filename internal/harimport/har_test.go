package harimport

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/unkn0wn-root/reqlens/internal/record"
	"github.com/unkn0wn-root/reqlens/internal/timeline"
)

func loadSample(t *testing.T) []record.Exchange {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "sample.har"))
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	exs, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(exs) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(exs))
	}
	return exs
}

func TestParseRecord(t *testing.T) {
	ex := loadSample(t)[0]
	rec := ex.Record
	if rec.ID != "har-1" || !rec.IsHTTPS || rec.Host != "api.example.com" || rec.Path != "/v1/items" {
		t.Fatalf("unexpected record %#v", rec)
	}
	if rec.QueryString != "?sort=desc&limit=5" {
		t.Fatalf("unexpected query %q", rec.QueryString)
	}
	if !rec.IsCompleted || rec.ResponseStatusCode != 201 {
		t.Fatalf("expected completed 201")
	}
	all := rec.RequestHeaders.All()
	if len(all) != 3 {
		t.Fatalf("expected pseudo header dropped and accept merged, got %#v", all)
	}
	if accept := all[2]; accept.Name != "Accept" || len(accept.Values) != 2 {
		t.Fatalf("expected merged accept values, got %#v", accept)
	}
	if ex.Body == nil || ex.Body.Data != `{"name":"it's"}` || ex.Body.IsBase64Encoded {
		t.Fatalf("unexpected body %#v", ex.Body)
	}
}

func TestParseTimeline(t *testing.T) {
	tl := loadSample(t)[0].Record.Timeline
	if tl == nil {
		t.Fatalf("expected timeline")
	}
	if tl.Name != "request" || tl.Duration != 120*time.Millisecond || tl.Incomplete {
		t.Fatalf("unexpected root %s %s incomplete=%v", tl.Name, tl.Duration, tl.Incomplete)
	}
	var names []string
	for _, ch := range tl.Children {
		names = append(names, ch.Name)
	}
	want := []string{"blocked", "connect", "send", "wait", "onContentLoad", "receive"}
	if len(names) != len(want) {
		t.Fatalf("unexpected children %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("child %d: got %s want %s", i, names[i], want[i])
		}
	}
	connect := tl.Children[1]
	if len(connect.Children) != 1 || connect.Children[0].Name != "ssl" ||
		connect.Children[0].Duration != 20*time.Millisecond {
		t.Fatalf("expected nested ssl, got %#v", connect.Children)
	}
	stamp := tl.Children[4]
	if stamp.Kind != timeline.KindStamp || stamp.Category != "page" ||
		stamp.Timestamp.Sub(tl.Timestamp) != 50*time.Millisecond {
		t.Fatalf("unexpected page stamp %#v", stamp)
	}
	if got := timeline.TotalActiveDuration(tl.Children); got != 108*time.Millisecond {
		t.Fatalf("expected 108ms active, got %s", got)
	}
	tl.Walk(func(n timeline.Node, _ int) {
		if n.Incomplete {
			t.Fatalf("completed exchange has incomplete node %s", n.Name)
		}
	})
}

func TestParseIncompleteEntry(t *testing.T) {
	rec := loadSample(t)[1].Record
	if rec.IsCompleted {
		t.Fatalf("expected incomplete exchange")
	}
	if rec.ID == "" {
		t.Fatalf("expected generated id")
	}
	if rec.Path != "/" || record.BuildURL(rec) != "http://a.test/" {
		t.Fatalf("unexpected url %q", record.BuildURL(rec))
	}
	tl := rec.Timeline
	if tl == nil || len(tl.Children) != 2 {
		t.Fatalf("expected send and wait phases, got %#v", tl)
	}
	if !tl.Incomplete || tl.Duration != 10*time.Millisecond {
		t.Fatalf("expected incomplete 10ms root, got incomplete=%v %s", tl.Incomplete, tl.Duration)
	}
	send, wait := tl.Children[0], tl.Children[1]
	if send.Incomplete {
		t.Fatalf("finished send phase should not be incomplete")
	}
	if wait.Name != "wait" || !wait.Incomplete || wait.Duration != 10*time.Millisecond {
		t.Fatalf("expected open wait phase closed as incomplete, got %#v", wait)
	}
}

func TestParseIncompleteWithoutPhases(t *testing.T) {
	data := []byte(`{"log":{"entries":[{
		"startedDateTime": "2024-03-01T12:00:00Z",
		"time": 5,
		"request": {"method": "GET", "url": "http://a.test/slow", "headers": []},
		"response": {"status": 0, "headers": []},
		"timings": {"send": -1, "wait": -1, "receive": -1}
	}]}}`)
	exs, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tl := exs[0].Record.Timeline
	if tl == nil || !tl.Incomplete || len(tl.Children) != 0 || tl.Duration != 5*time.Millisecond {
		t.Fatalf("expected bare incomplete root, got %#v", tl)
	}
}

func TestPageMarksOutsideRequestAreDropped(t *testing.T) {
	data := []byte(`{"log":{
		"pages": [{"id": "p", "startedDateTime": "2024-03-01T12:00:00Z",
			"pageTimings": {"onContentLoad": -1, "onLoad": 900}}],
		"entries": [{
			"pageref": "p",
			"startedDateTime": "2024-03-01T12:00:00Z",
			"time": 20,
			"request": {"method": "GET", "url": "http://a.test/", "headers": []},
			"response": {"status": 200, "headers": []},
			"timings": {"send": 0, "wait": 20, "receive": 0}
		}]}}`)
	exs, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, ch := range exs[0].Record.Timeline.Children {
		if ch.Kind == timeline.KindStamp {
			t.Fatalf("unexpected stamp %s outside the request", ch.Name)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse([]byte("{not json")); !errors.Is(err, ErrInvalidHAR) {
		t.Fatalf("expected ErrInvalidHAR, got %v", err)
	}
	if _, err := Parse([]byte(`{"log":{}}`)); !errors.Is(err, ErrInvalidHAR) {
		t.Fatalf("expected missing entries error, got %v", err)
	}
	if _, err := Parse([]byte(`{"log":{"entries":[{"request":{"url":"/relative"}}]}}`)); err == nil {
		t.Fatalf("expected error for relative url")
	}
}
