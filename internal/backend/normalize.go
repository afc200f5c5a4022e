package backend

import (
	"bytes"
	"html"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/microcosm-cc/bluemonday"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

const binaryPlaceholder = "[binary content omitted]"

// Normalizer turns raw module responses into prompt-friendly text.
// MGM pages are mostly server-rendered HTML in legacy encodings; the model
// only needs the readable text and table rows.
type Normalizer struct {
	policy *bluemonday.Policy
}

// NewNormalizer creates a normalizer with a strict (strip everything) policy
func NewNormalizer() *Normalizer {
	return &Normalizer{policy: bluemonday.StrictPolicy()}
}

// Normalize converts body to UTF-8 text. contentType is the response
// header value, xpath an optional node selector for HTML bodies.
func (n *Normalizer) Normalize(body []byte, contentType, xpath string) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}

	mt := mimetype.Detect(body)
	if !isText(mt) {
		return binaryPlaceholder
	}
	body = toUTF8(body, contentType)

	switch {
	case mt.Is("text/html"), mt.Is("application/xhtml+xml"):
		return n.htmlText(body, xpath)
	case mt.Is("application/json"):
		return strings.TrimSpace(string(body))
	case mt.Is("text/xml"), mt.Is("application/xml"):
		return n.stripMarkup(string(body))
	default:
		return collapseLines(string(body))
	}
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func (n *Normalizer) stripMarkup(s string) string {
	return collapseLines(html.UnescapeString(n.policy.Sanitize(s)))
}

func (n *Normalizer) htmlText(body []byte, xpath string) string {
	if xpath != "" {
		if narrowed, ok := selectXPath(body, xpath); ok {
			body = narrowed
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return n.stripMarkup(string(body))
	}

	doc.Find("script, style, noscript, head").Remove()
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := tableRows(table)
		table.ReplaceWithHtml("\n" + html.EscapeString(rows) + "\n")
	})
	doc.Find("br, p, div, li, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return collapseLines(doc.Text())
}

// tableRows renders each row as "cell | cell | cell"
func tableRows(table *goquery.Selection) string {
	var sb strings.Builder
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("th, td").Map(func(_ int, td *goquery.Selection) string {
			return strings.Join(strings.Fields(td.Text()), " ")
		})
		if len(cells) == 0 {
			return
		}
		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteByte('\n')
	})
	return sb.String()
}

func selectXPath(body []byte, expr string) ([]byte, bool) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, false
	}
	nodes, err := htmlquery.QueryAll(doc, expr)
	if err != nil || len(nodes) == 0 {
		return nil, false
	}

	parts := make([]string, 0, len(nodes))
	for _, node := range nodes {
		parts = append(parts, htmlquery.OutputHTML(node, true))
	}
	return []byte("<html><body>" + strings.Join(parts, "\n") + "</body></html>"), true
}

// toUTF8 transcodes body using the declared charset, falling back to
// detection. Bodies that are already valid UTF-8 pass through.
func toUTF8(body []byte, contentType string) []byte {
	if utf8.Valid(body) {
		return body
	}

	label := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		label = params["charset"]
	}
	if label == "" {
		if result, err := chardet.NewTextDetector().DetectBest(body); err == nil && result != nil {
			label = result.Charset
		}
	}

	enc, _ := charset.Lookup(label)
	if enc == nil {
		return body
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return out
}

// collapseLines normalizes whitespace within lines and drops blank lines
func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// Truncate caps s at max bytes on a rune boundary. max <= 0 disables the cap.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "\n[truncated]"
}
