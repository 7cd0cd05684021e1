package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
)

// Candidate is one selector tried while resolving a field.
// When Attr is set the attribute value is read instead of the element text.
type Candidate struct {
	Selector string
	Attr     string
}

// String renders the candidate in profile-file notation: "selector" or
// "selector@attr".
func (c Candidate) String() string {
	if c.Attr == "" {
		return c.Selector
	}
	return c.Selector + "@" + c.Attr
}

var attrSuffix = regexp.MustCompile(`^[A-Za-z_][-A-Za-z0-9_:.]*$`)

// ParseCandidate parses "selector" or "selector@attr" and checks that the
// selector compiles.
func ParseCandidate(s string) (Candidate, error) {
	s = strings.TrimSpace(s)
	c := Candidate{Selector: s}

	if i := strings.LastIndex(s, "@"); i > 0 && attrSuffix.MatchString(s[i+1:]) {
		c.Selector = strings.TrimSpace(s[:i])
		c.Attr = s[i+1:]
	}

	if c.Selector == "" {
		return Candidate{}, fmt.Errorf("empty selector in %q", s)
	}
	if _, err := cascadia.Compile(c.Selector); err != nil {
		return Candidate{}, fmt.Errorf("invalid selector %q: %w", c.Selector, err)
	}
	return c, nil
}

// Selectors lists the raw candidates for each field, highest priority first.
type Selectors struct {
	Name        []string
	Price       []string
	Image       []string
	Description []string
}

// DefaultSelectors returns the candidates for Eurocomp product pages,
// followed by generic fallbacks.
func DefaultSelectors() Selectors {
	return Selectors{
		Name: []string{
			"h1.product-title",
			".product-name h1",
			".product_title",
			"h1",
			`meta[property="og:title"]@content`,
		},
		Price: []string{
			".product-price .price",
			".price-box .price",
			".product-info-price .price",
			".price",
			"[data-price]",
			"[data-price]@data-price",
			`meta[property="product:price:amount"]@content`,
		},
		Image: []string{
			".product-image img@src",
			".product-gallery img@src",
			"img.product-img@src",
			".product-image img@data-src",
			`meta[property="og:image"]@content`,
		},
		Description: []string{
			".product-description",
			".description",
			"#tab-description",
			`meta[name="description"]@content`,
			`meta[property="og:description"]@content`,
		},
	}
}

// Profile holds the compiled candidates for every field.
type Profile struct {
	Name        []Candidate
	Price       []Candidate
	Image       []Candidate
	Description []Candidate
}

// NewProfile validates s and builds a Profile. A field with no candidates
// takes the defaults for that field.
func NewProfile(s Selectors) (*Profile, error) {
	def := DefaultSelectors()
	p := &Profile{}

	fields := []struct {
		name   string
		raw    []string
		defRaw []string
		dst    *[]Candidate
	}{
		{"name", s.Name, def.Name, &p.Name},
		{"price", s.Price, def.Price, &p.Price},
		{"image", s.Image, def.Image, &p.Image},
		{"description", s.Description, def.Description, &p.Description},
	}

	for _, f := range fields {
		raw := f.raw
		if len(raw) == 0 {
			raw = f.defRaw
		}
		cands := make([]Candidate, 0, len(raw))
		for _, r := range raw {
			c, err := ParseCandidate(r)
			if err != nil {
				return nil, fmt.Errorf("profile: %s: %w", f.name, err)
			}
			cands = append(cands, c)
		}
		*f.dst = cands
	}

	return p, nil
}

// DefaultProfile returns the compiled default selectors.
func DefaultProfile() *Profile {
	p, err := NewProfile(DefaultSelectors())
	if err != nil {
		panic(err)
	}
	return p
}
