package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/eurocomp/config"
	"github.com/use-agent/eurocomp/models"
)

// fakeCDP answers the DevTools calls a render makes. Tabs are named tab-1,
// tab-2, ... in creation order and attach as session-<tab>.
type fakeCDP struct {
	mu     sync.Mutex
	events chan *cdp.Event

	failCreate  bool
	navigateErr string // errorText for every non-blank navigation

	created   int
	calls     []string
	navigated []string
	closed    []string
}

func newFakeCDP() *fakeCDP {
	return &fakeCDP{events: make(chan *cdp.Event, 16)}
}

func (f *fakeCDP) Event() <-chan *cdp.Event { return f.events }

func (f *fakeCDP) Call(_ context.Context, sessionID, method string, params interface{}) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method)

	switch method {
	case "Target.createTarget":
		if f.failCreate {
			return nil, errors.New("target crashed")
		}
		f.created++
		return json.Marshal(proto.TargetCreateTargetResult{
			TargetID: proto.TargetTargetID(fmt.Sprintf("tab-%d", f.created)),
		})

	case "Target.attachToTarget":
		req := params.(proto.TargetAttachToTarget)
		return json.Marshal(proto.TargetAttachToTargetResult{
			SessionID: proto.TargetSessionID("session-" + string(req.TargetID)),
		})

	case "Page.navigate":
		req := params.(proto.PageNavigate)
		f.navigated = append(f.navigated, req.URL)
		if req.URL != "about:blank" && f.navigateErr != "" {
			return json.Marshal(proto.PageNavigateResult{ErrorText: f.navigateErr})
		}
		return json.Marshal(proto.PageNavigateResult{})

	case "Page.close":
		target := strings.TrimPrefix(sessionID, "session-")
		f.closed = append(f.closed, target)
		data, _ := json.Marshal(proto.TargetTargetDestroyed{TargetID: proto.TargetTargetID(target)})
		go func() {
			f.events <- &cdp.Event{Method: "Target.targetDestroyed", Params: data}
		}()
	}
	return []byte("{}"), nil
}

func (f *fakeCDP) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.calls {
		if m == method {
			n++
		}
	}
	return n
}

func (f *fakeCDP) snapshot() (created int, navigated, closed []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created, append([]string(nil), f.navigated...), append([]string(nil), f.closed...)
}

func newTestScraper(t *testing.T, client *fakeCDP, maxPages int, timeout time.Duration) *Scraper {
	t.Helper()
	browser := rod.New().Client(client)
	require.NoError(t, browser.Connect())

	return &Scraper{
		browser:    browser,
		pagePool:   rod.NewPagePool(maxPages),
		health:     newHealthTable(),
		browserCfg: config.BrowserConfig{MaxPages: maxPages},
		scraperCfg: config.ScraperConfig{
			RenderTimeout: timeout,
			IdleWindow:    10 * time.Millisecond,
			Stealth:       true,
		},
	}
}

// renderWithin fails the test if Render does not return within limit.
func renderWithin(t *testing.T, s *Scraper, url string, limit time.Duration) error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		_, err := s.Render(context.Background(), url)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(limit):
		t.Fatalf("Render still blocked after %s", limit)
		return nil
	}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var se *models.ScrapeError
	require.True(t, errors.As(err, &se), "want ScrapeError, got %v", err)
	assert.Equal(t, code, se.Code)
}

func TestRender_FailedTabCreationFreesSlot(t *testing.T) {
	client := newFakeCDP()
	client.failCreate = true
	s := newTestScraper(t, client, 1, 200*time.Millisecond)

	for i := 0; i < 3; i++ {
		err := renderWithin(t, s, "https://eurocompcr.com/p", 3*time.Second)
		requireCode(t, err, models.ErrCodeBrowserCrash)
	}

	assert.Equal(t, 1, len(s.pagePool), "slot returned to the pool")
	assert.Equal(t, 3, client.count("Target.createTarget"))
	assert.Equal(t, 0, s.Stats().ActivePages)
}

func TestRender_WaitingForTabCountsAgainstTimeout(t *testing.T) {
	s := newTestScraper(t, newFakeCDP(), 1, 100*time.Millisecond)

	// Hold the only slot.
	held := <-s.pagePool
	defer s.pagePool.Put(held)

	start := time.Now()
	err := renderWithin(t, s, "https://eurocompcr.com/p", 3*time.Second)

	requireCode(t, err, models.ErrCodeTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 0, s.Stats().ActivePages, "waiting renders are not active tabs")
}

func TestRender_NavigationFailureReturnsTab(t *testing.T) {
	client := newFakeCDP()
	client.navigateErr = "net::ERR_NAME_NOT_RESOLVED"
	s := newTestScraper(t, client, 1, 2*time.Second)

	err := renderWithin(t, s, "https://eurocompcr.com/p", 3*time.Second)
	requireCode(t, err, models.ErrCodeNavigation)

	_, navigated, closed := client.snapshot()
	assert.Equal(t, []string{"https://eurocompcr.com/p", "about:blank"}, navigated)
	assert.Empty(t, closed)

	require.Equal(t, 1, len(s.pagePool))
	page := <-s.pagePool
	require.NotNil(t, page, "tab goes back to the pool")
	assert.Equal(t, proto.TargetTargetID("tab-1"), page.TargetID)
	s.pagePool.Put(page)

	s.health.mu.Lock()
	h := s.health.pages["tab-1"]
	s.health.mu.Unlock()
	require.NotNil(t, h)
	assert.Equal(t, 1.0, h.errScore)
	assert.Equal(t, 1, h.useCount)
}

func TestRender_RetiredTabIsReplaced(t *testing.T) {
	client := newFakeCDP()
	client.navigateErr = "net::ERR_CONNECTION_RESET"
	s := newTestScraper(t, client, 1, 2*time.Second)

	// Three failures push tab-1 to the retirement score.
	for i := 0; i < 3; i++ {
		err := renderWithin(t, s, "https://eurocompcr.com/p", 3*time.Second)
		requireCode(t, err, models.ErrCodeNavigation)
	}

	created, _, closed := client.snapshot()
	assert.Equal(t, 1, created)
	assert.Equal(t, []string{"tab-1"}, closed)

	require.Equal(t, 1, len(s.pagePool))
	slot := <-s.pagePool
	assert.Nil(t, slot, "retired tab leaves an empty slot")
	s.pagePool.Put(slot)

	err := renderWithin(t, s, "https://eurocompcr.com/p", 3*time.Second)
	requireCode(t, err, models.ErrCodeNavigation)

	created, _, _ = client.snapshot()
	assert.Equal(t, 2, created, "next render opens a fresh tab")
	assert.Equal(t, 2, client.count("Page.addScriptToEvaluateOnNewDocument"), "stealth once per tab")
}
