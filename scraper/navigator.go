package scraper

import (
	"context"
	"errors"

	"github.com/use-agent/eurocomp/models"
)

// Rendered is the page state handed to extraction.
type Rendered struct {
	// HTML is the serialized DOM after rendering.
	HTML string

	// FinalURL is the URL after redirects. Relative links resolve against it.
	FinalURL string

	// Title is document.title, best-effort.
	Title string

	// StatusCode is the main document's HTTP status, 0 when unknown.
	StatusCode int
}

// Navigator loads a URL and returns its rendered document.
//
// Render is bounded by the navigator's configured render timeout and by ctx.
// Every resource it acquires is released before it returns.
type Navigator interface {
	Name() string
	Render(ctx context.Context, url string) (*Rendered, error)
	Stats() models.PoolStats
}

// categorizeError wraps raw errors into typed ScrapeErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}

var (
	_ Navigator = (*Scraper)(nil)
	_ Navigator = (*HTTPNavigator)(nil)
)
