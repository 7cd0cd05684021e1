package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a read-only handle on a rendered page.
//
// Every lookup uses the first element matching the selector. A selector that
// matches nothing, or does not compile, yields "".
type Document interface {
	// Text returns the trimmed text content of the first match.
	Text(selector string) string

	// Attr returns the trimmed value of attr on the first match.
	Attr(selector, attr string) string

	// AbsURL returns attr of the first match resolved against the page URL.
	AbsURL(selector, attr string) string
}

// htmlDocument is a Document over a static HTML snapshot.
type htmlDocument struct {
	doc  *goquery.Document
	base *url.URL
}

// NewDocument parses rawHTML into a Document. pageURL is the final URL the
// HTML was served from; relative attribute values are resolved against it.
func NewDocument(rawHTML, pageURL string) (Document, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("document: parse page url: %w", err)
	}

	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("document: parse html: %w", err)
	}

	return &htmlDocument{
		doc:  goquery.NewDocumentFromNode(root),
		base: base,
	}, nil
}

func (d *htmlDocument) first(selector string) *goquery.Selection {
	return d.doc.Find(selector).First()
}

func (d *htmlDocument) Text(selector string) string {
	return strings.TrimSpace(d.first(selector).Text())
}

func (d *htmlDocument) Attr(selector, attr string) string {
	v, _ := d.first(selector).Attr(attr)
	return strings.TrimSpace(v)
}

func (d *htmlDocument) AbsURL(selector, attr string) string {
	raw := d.Attr(selector, attr)
	if raw == "" {
		return ""
	}

	resolved, err := d.base.Parse(raw)
	if err != nil {
		return ""
	}
	// Inline images have no fetchable location.
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}
