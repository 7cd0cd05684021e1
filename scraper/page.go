package scraper

import (
	"context"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/eurocomp/models"
	"github.com/ysmood/gson"
)

// defaultHeaders are sent with every navigation. The source site serves
// Spanish content; asking for it avoids a locale redirect.
var defaultHeaders = map[string]string{
	"Accept-Language": "es-CR,es;q=0.9,en;q=0.8",
}

// Render loads targetURL in a pooled tab and returns the rendered DOM.
//
// Lifecycle:
//
//  1. Timeout guard      – hard deadline on the whole render
//  2. Acquire page       – borrow a tab from the pool (or create one),
//     waiting no longer than the deadline
//  3. DEFER: release     – score the tab, then recycle or retire it
//  4. Stealth + headers  – must precede navigation to take effect
//  5. Hijack mount       – block heavy resources and trackers
//  6. Idle waiter        – armed before Navigate so no request is missed
//  7. Navigate + wait    – network idle (or DOM stable when hijacking)
//  8. Snapshot           – HTML, final URL, title, status
//
// The release in step 3 uses the page without the request context, so it
// still runs after the deadline has passed.
func (s *Scraper) Render(ctx context.Context, targetURL string) (_ *Rendered, err error) {
	// ── 1. Timeout guard ──────────────────────────────────────────────
	ctx, cancel := context.WithTimeout(ctx, s.scraperCfg.RenderTimeout)
	defer cancel()

	// ── 2. Acquire page from pool ─────────────────────────────────────
	page, acquireErr := s.acquire(ctx)
	if acquireErr != nil {
		return nil, acquireErr
	}
	s.activePages.Add(1)
	defer s.activePages.Add(-1)

	// ── 3. Release on every exit path ─────────────────────────────────
	fresh := s.health.fresh(page.TargetID)
	defer func() {
		s.release(page, err == nil)
	}()

	// ── 4. Stealth injection + headers ────────────────────────────────
	// Scripts added with EvalOnNewDocument persist on the tab, so stealth
	// is injected once per tab.
	if s.scraperCfg.Stealth && fresh {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}
	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(defaultHeaders),
	}.Call(page)

	// ── 5. Mount hijack router ────────────────────────────────────────
	router := setupHijack(page, s.scraperCfg.BlockedResourceTypes, s.scraperCfg.BlockTrackers)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 6. Bind context and arm the idle waiter ───────────────────────
	p := page.Context(ctx)

	// WaitRequestIdle uses the Fetch domain, which conflicts with an active
	// HijackRouter; fall back to DOM stability in that case.
	var waitIdle func()
	if router == nil {
		waitIdle = p.WaitRequestIdle(s.scraperCfg.IdleWindow, nil, nil, nil)
	}

	// ── 7. Navigate + wait ────────────────────────────────────────────
	if err = p.Navigate(targetURL); err != nil {
		return nil, categorizeError(err, "navigation to target URL failed")
	}

	if waitIdle != nil {
		waitIdle()
	} else if stableErr := p.WaitDOMStable(s.scraperCfg.IdleWindow, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr,
		)
	}

	// ── 8. Snapshot ───────────────────────────────────────────────────
	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeError(htmlErr, "failed to read rendered HTML")
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = targetURL
	}

	statusCode := 0
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		statusCode = res.Value.Int()
	}

	return &Rendered{
		HTML:       rawHTML,
		FinalURL:   finalURL,
		Title:      evalStringOrEmpty(p, `() => document.title`),
		StatusCode: statusCode,
	}, nil
}

// acquire borrows a tab from the pool. An empty slot is filled with a new tab;
// when creating it fails the slot goes back empty so a later render can retry.
func (s *Scraper) acquire(ctx context.Context) (*rod.Page, error) {
	var page *rod.Page
	select {
	case page = <-s.pagePool:
	case <-ctx.Done():
		return nil, categorizeError(ctx.Err(), "timed out waiting for a free browser tab")
	}
	if page != nil {
		return page, nil
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.pagePool.Put(nil)
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to acquire page from pool",
			err,
		)
	}
	return page, nil
}

// release returns page to the pool after a render. A tab that has failed
// repeatedly, served too many renders or grown too old is closed instead, and
// a nil slot is returned so the pool creates a fresh tab on the next Get.
func (s *Scraper) release(page *rod.Page, success bool) {
	if s.health.record(page.TargetID, success) {
		slog.Debug("retiring pooled page", "target", page.TargetID, "success", success)
		if closeErr := page.Close(); closeErr != nil {
			slog.Warn("cleanup: failed to close retired page", "error", closeErr)
		}
		s.pagePool.Put(nil)
		return
	}

	if navErr := page.Navigate("about:blank"); navErr != nil {
		slog.Warn("cleanup: failed to navigate to about:blank",
			"error", navErr,
		)
	}
	s.pagePool.Put(page)
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
