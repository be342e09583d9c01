// Package harimport turns HAR 1.2 logs into exchanges with timelines.
package harimport

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/unkn0wn-root/reqlens/internal/record"
	"github.com/unkn0wn-root/reqlens/internal/timeline"
)

var ErrInvalidHAR = errors.New("harimport: invalid HAR document")

const (
	categoryNetwork = "network"
	categoryPage    = "page"
)

// HAR phases in the order they happen on the wire. ssl is nested in connect.
var phaseOrder = []string{"blocked", "dns", "connect", "send", "wait", "receive"}

func Parse(data []byte) ([]record.Exchange, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidHAR
	}
	entries := gjson.GetBytes(data, "log.entries")
	if !entries.IsArray() {
		return nil, fmt.Errorf("%w: missing log.entries", ErrInvalidHAR)
	}

	marks := pageMarks(gjson.GetBytes(data, "log.pages"))

	var out []record.Exchange
	var err error
	entries.ForEach(func(idx, entry gjson.Result) bool {
		var ex record.Exchange
		ex, err = parseEntry(entry, marks[entry.Get("pageref").String()])
		if err != nil {
			err = fmt.Errorf("entry %d: %w", idx.Int(), err)
			return false
		}
		out = append(out, ex)
		return true
	})
	if err != nil {
		return nil, err
	}
	return record.Prepare(out)
}

func parseEntry(entry gjson.Result, marks []mark) (record.Exchange, error) {
	req := entry.Get("request")
	u, err := url.Parse(req.Get("url").String())
	if err != nil {
		return record.Exchange{}, err
	}
	if u.Host == "" {
		return record.Exchange{}, fmt.Errorf("request url %q has no host", u.String())
	}

	rec := record.Record{
		ID:              entry.Get("_id").String(),
		IsHTTPS:         strings.EqualFold(u.Scheme, "https"),
		Host:            u.Host,
		Path:            u.EscapedPath(),
		Method:          req.Get("method").String(),
		RequestHeaders:  headers(req.Get("headers")),
		ResponseHeaders: headers(entry.Get("response.headers")),
	}
	if rec.Path == "" {
		rec.Path = "/"
	}
	if u.RawQuery != "" {
		rec.QueryString = "?" + u.RawQuery
	}
	if status := entry.Get("response.status").Int(); status > 0 {
		rec.IsCompleted = true
		rec.ResponseStatusCode = int(status)
	}

	started, err := time.Parse(time.RFC3339Nano, entry.Get("startedDateTime").String())
	if err == nil {
		rec.ReceivedAt = started
		if tl, ok := buildTimeline(started, entry, rec.IsCompleted, marks); ok {
			rec.Timeline = &tl
		}
	}

	ex := record.Exchange{Record: rec}
	if post := req.Get("postData"); post.Exists() && post.Get("text").Exists() {
		ex.Body = &record.Body{
			Data:            post.Get("text").String(),
			IsBase64Encoded: strings.EqualFold(post.Get("encoding").String(), "base64"),
		}
	}
	return ex, nil
}

func headers(list gjson.Result) record.Headers {
	var h record.Headers
	for _, item := range list.Array() {
		name := item.Get("name").String()
		if name == "" || strings.HasPrefix(name, ":") {
			// HTTP/2 pseudo headers are not replayable
			continue
		}
		h.Add(name, item.Get("value").String())
	}
	return h
}

// buildTimeline lays the HAR phases out back to back under a "request"
// scope. Page marks falling inside the request become stamps. When no
// response arrived the last phase and the root stay open and are closed as
// incomplete.
func buildTimeline(started time.Time, entry gjson.Result, completed bool, marks []mark) (timeline.Node, bool) {
	type phase struct {
		name string
		dur  time.Duration
	}
	timings := entry.Get("timings")
	var phases []phase
	var sum time.Duration
	for _, name := range phaseOrder {
		if d, ok := millis(timings.Get(name)); ok {
			phases = append(phases, phase{name, d})
			sum += d
		}
	}
	end := started.Add(sum)
	if total, ok := millis(entry.Get("time")); ok && started.Add(total).After(end) {
		end = started.Add(total)
	}

	c := timeline.NewCollector()
	c.Begin("request", "http", started)
	pending := marksWithin(marks, started, end)
	stampUntil := func(ts time.Time) {
		for len(pending) > 0 && !pending[0].at.After(ts) {
			c.Stamp(pending[0].name, categoryPage, pending[0].at)
			pending = pending[1:]
		}
	}

	at := started
	for i, ph := range phases {
		stampUntil(at)
		c.Begin(ph.name, categoryNetwork, at)
		if ph.name == "connect" {
			// ssl time is part of connect and ends with it
			if ssl, ok := millis(timings.Get("ssl")); ok && ssl <= ph.dur {
				c.Begin("ssl", categoryNetwork, at.Add(ph.dur-ssl))
				_ = c.End(at.Add(ph.dur))
			}
		}
		at = at.Add(ph.dur)
		if !completed && i == len(phases)-1 {
			break
		}
		_ = c.End(at)
	}
	stampUntil(end)

	if completed {
		_ = c.End(end)
	} else {
		c.Complete(end)
	}
	return c.Timeline()
}

type mark struct {
	name string
	at   time.Time
}

// pageMarks maps page ids to their onContentLoad/onLoad times, in time order.
func pageMarks(pages gjson.Result) map[string][]mark {
	out := make(map[string][]mark)
	for _, page := range pages.Array() {
		id := page.Get("id").String()
		started, err := time.Parse(time.RFC3339Nano, page.Get("startedDateTime").String())
		if id == "" || err != nil {
			continue
		}
		var ms []mark
		for _, name := range []string{"onContentLoad", "onLoad"} {
			if d, ok := millis(page.Get("pageTimings." + name)); ok {
				ms = append(ms, mark{name: name, at: started.Add(d)})
			}
		}
		sort.SliceStable(ms, func(i, j int) bool { return ms[i].at.Before(ms[j].at) })
		out[id] = ms
	}
	return out
}

func marksWithin(marks []mark, from, to time.Time) []mark {
	var out []mark
	for _, m := range marks {
		if !m.at.Before(from) && !m.at.After(to) {
			out = append(out, m)
		}
	}
	return out
}

// millis reads a HAR timing; -1 and missing values mean "not applicable".
func millis(v gjson.Result) (time.Duration, bool) {
	if !v.Exists() {
		return 0, false
	}
	f := v.Float()
	if f < 0 {
		return 0, false
	}
	return time.Duration(f * float64(time.Millisecond)), true
}
