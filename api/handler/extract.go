package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/eurocomp/extractor"
	"github.com/use-agent/eurocomp/models"
	"github.com/use-agent/eurocomp/scraper"
)

// Extract returns a handler for POST /extract-eurocomp.
//
// Orchestration flow:
//  1. Parse the body and validate the URL against allowedDomain.
//     Nothing is rendered for a rejected URL.
//  2. Navigator.Render → rendered HTML + final URL (records navigation_ms)
//  3. Extractor.Extract → fixed-shape result; missing fields are "".
//  4. Respond 200, or 500 with {error, details} on any render failure.
func Extract(nav scraper.Navigator, ex *extractor.Extractor, allowedDomain string) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse & validate ─────────────────────────────────────
		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   urlRequiredMessage(allowedDomain),
				Details: err.Error(),
			})
			return
		}

		target, err := ValidateProductURL(req.URL, allowedDomain)
		if err != nil {
			details := err.Error()
			var se *models.ScrapeError
			if errors.As(err, &se) {
				details = se.Details()
			}
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:    urlRequiredMessage(allowedDomain),
				Details:  details,
				Received: req.URL,
			})
			return
		}

		// ── 2. Render ───────────────────────────────────────────────
		navStart := time.Now()
		rendered, err := nav.Render(c.Request.Context(), target)
		navigationMs := time.Since(navStart).Milliseconds()
		if err != nil {
			slog.Warn("render failed",
				"url", target,
				"navigator", nav.Name(),
				"navigation_ms", navigationMs,
				"error", err,
			)
			respondError(c, err)
			return
		}

		// ── 3. Extract ──────────────────────────────────────────────
		doc, err := extractor.NewDocument(rendered.HTML, rendered.FinalURL)
		if err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInternal, "failed to parse rendered page", err))
			return
		}
		result := ex.Extract(doc)

		slog.Info("product extracted",
			"url", target,
			"final_url", rendered.FinalURL,
			"title", rendered.Title,
			"status_code", rendered.StatusCode,
			"has_name", result.Name != "",
			"has_price", result.PriceUSD != "",
			"has_image", result.Image != "",
			"navigation_ms", navigationMs,
			"total_ms", time.Since(totalStart).Milliseconds(),
		)

		c.JSON(http.StatusOK, result)
	}
}

// ValidateProductURL accepts absolute http(s) URLs whose host is domain or a
// subdomain of it, and returns the normalized URL.
func ValidateProductURL(raw, domain string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput, "url is required", nil)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput, "url is malformed", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput, "url must use http or https", nil)
	}

	host := strings.ToLower(u.Hostname())
	domain = strings.ToLower(domain)
	if host != domain && !strings.HasSuffix(host, "."+domain) {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("url host %q is not on %s", host, domain), nil)
	}

	return u.String(), nil
}

func urlRequiredMessage(domain string) string {
	return fmt.Sprintf("a %s product URL is required", domain)
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, "internal server error", err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), scrapeErr.ToResponse())
}

// mapErrorToStatus translates error codes to HTTP status codes. Only input
// errors are the caller's fault; every render or extraction failure is a 500.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	default:
		return http.StatusInternalServerError // 500
	}
}
