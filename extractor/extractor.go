package extractor

import (
	"log/slog"

	"github.com/use-agent/eurocomp/models"
)

// DefaultDescriptionLimit is the maximum description length in runes.
const DefaultDescriptionLimit = 200

// Options tunes normalization.
type Options struct {
	Rates Rates

	// DescriptionLimit truncates the description to this many runes.
	// Zero or negative keeps the full text.
	DescriptionLimit int
}

// DefaultOptions returns the production rates and the 200-rune limit.
func DefaultOptions() Options {
	return Options{Rates: DefaultRates(), DescriptionLimit: DefaultDescriptionLimit}
}

// Extractor reads product fields from a rendered Document.
// It holds no per-request state and is safe for concurrent use.
type Extractor struct {
	profile *Profile
	opts    Options
}

// New creates an Extractor. A nil profile uses DefaultProfile.
func New(profile *Profile, opts Options) *Extractor {
	if profile == nil {
		profile = DefaultProfile()
	}
	return &Extractor{profile: profile, opts: opts}
}

// Extract resolves every field against doc. Missing fields are "", never an
// error.
func (e *Extractor) Extract(doc Document) models.ExtractionResult {
	var res models.ExtractionResult

	res.Name = resolveText(doc, e.profile.Name, "name")

	if rawPrice := resolveText(doc, e.profile.Price, "price"); rawPrice != "" {
		res.PriceUSD, res.PriceCRC = NormalizePrice(rawPrice, e.opts.Rates)
		if res.PriceUSD == "" {
			slog.Debug("price text did not normalize", "raw", rawPrice)
		}
	}

	res.Image = resolveURL(doc, e.profile.Image, "image")
	res.Description = truncateRunes(resolveText(doc, e.profile.Description, "description"), e.opts.DescriptionLimit)

	return res
}

// resolveText returns the first non-empty value among cands.
func resolveText(doc Document, cands []Candidate, field string) string {
	for _, c := range cands {
		var v string
		if c.Attr == "" {
			v = doc.Text(c.Selector)
		} else {
			v = doc.Attr(c.Selector, c.Attr)
		}
		if v != "" {
			slog.Debug("field matched", "field", field, "selector", c.String())
			return v
		}
	}
	slog.Debug("field not found", "field", field)
	return ""
}

// resolveURL is resolveText for URL-valued fields; candidates without an
// attribute read "src".
func resolveURL(doc Document, cands []Candidate, field string) string {
	for _, c := range cands {
		attr := c.Attr
		if attr == "" {
			attr = "src"
		}
		if v := doc.AbsURL(c.Selector, attr); v != "" {
			slog.Debug("field matched", "field", field, "selector", c.String())
			return v
		}
	}
	slog.Debug("field not found", "field", field)
	return ""
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
