// Package codegen renders a captured exchange as C# HttpClient code.
package codegen

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/unkn0wn-root/reqlens/internal/escape"
	"github.com/unkn0wn-root/reqlens/internal/record"
	"github.com/unkn0wn-root/reqlens/internal/util"
)

// LineTerminator separates generated lines. LINQPad query files require CRLF.
const LineTerminator = "\r\n"

type Options struct {
	// Notebook adds Dump calls after reading the response.
	Notebook   bool
	Classifier record.Classifier
}

type readKind int

const (
	readBytes readKind = iota
	readText
	readImage
)

// Generate returns C# statements that replay r with HttpClient.
func Generate(r record.Record, body *record.Body, opts Options) string {
	var out util.Lines

	out.Add(
		"var handler = new HttpClientHandler { UseCookies = true, CookieContainer = new CookieContainer() };",
		"var client = new HttpClient(handler);",
	)
	out.Addf(
		"var request = new HttpRequestMessage(new HttpMethod(",
		escape.CString(titleCase(r.Method)),
		"), ",
		escape.CString(record.BuildURL(r)),
		");",
	)
	out.Add("request.Headers.ExpectContinue = false;")

	for _, h := range r.RequestHeaders.All() {
		switch {
		case strings.EqualFold(h.Name, record.HeaderConnection),
			strings.EqualFold(h.Name, record.HeaderContentLength):
			continue
		case strings.EqualFold(h.Name, record.HeaderCookie):
			cookies := strings.ReplaceAll(strings.Join(h.Values, "; "), ";", ",")
			out.Addf(
				"handler.CookieContainer.SetCookies(request.RequestUri, ",
				escape.CString(cookies),
				");",
			)
		default:
			out.Addf(
				"request.Headers.TryAddWithoutValidation(",
				escape.CString(h.Name),
				", ",
				escape.CString(strings.Join(h.Values, "\n")),
				");",
			)
		}
	}

	if body != nil && r.HasBodyMethod() {
		decode := "Encoding.UTF8.GetBytes("
		if body.IsBase64Encoded {
			decode = "Convert.FromBase64String("
		}
		out.Addf("request.Content = new ByteArrayContent(", decode, escape.CString(body.Data), "));")
		out.Addf(
			"request.Content.Headers.TryAddWithoutValidation(",
			escape.CString(record.HeaderContentType),
			", ",
			escape.CString(r.RequestContentType()),
			");",
		)
	}

	out.Add("var response = await client.SendAsync(request);")
	switch responseKind(r, opts.Classifier) {
	case readText:
		out.Add("var result = await response.Content.ReadAsStringAsync();")
		if opts.Notebook {
			out.Add("result.Dump();")
		}
	case readImage:
		out.Add("var result = await response.Content.ReadAsByteArrayAsync();")
		if opts.Notebook {
			out.Add("Util.Image(result).Dump();")
		}
	default:
		out.Add("var result = await response.Content.ReadAsByteArrayAsync();")
		if opts.Notebook {
			out.Add("result.Dump();")
		}
	}
	out.Add("response.EnsureSuccessStatusCode();")

	return out.Join(LineTerminator)
}

func responseKind(r record.Record, cls record.Classifier) readKind {
	ct, ok := r.ResponseContentType()
	if !ok || cls == nil {
		return readBytes
	}
	switch {
	case cls.IsText(ct):
		return readText
	case cls.IsImage(ct):
		return readImage
	default:
		return readBytes
	}
}

// titleCase upper-cases the first letter and lower-cases the rest.
func titleCase(s string) string {
	first, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}
