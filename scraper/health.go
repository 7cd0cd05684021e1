package scraper

import (
	"math"
	"sync"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

// Retirement thresholds for pooled tabs.
const (
	maxErrScore = 3.0
	maxPageUses = 50
	maxPageAge  = 50 * time.Minute
)

// pageHealth tracks one pooled tab across renders.
//
// Scoring rules:
//   - Success: errScore -= 0.5 (min 0)
//   - Failure: errScore += 1.0
type pageHealth struct {
	errScore float64
	useCount int
	created  time.Time
}

func (h *pageHealth) record(success bool) {
	h.useCount++
	if success {
		h.errScore = math.Max(0, h.errScore-0.5)
	} else {
		h.errScore += 1.0
	}
}

func (h *pageHealth) shouldRetire(now time.Time) bool {
	return h.errScore >= maxErrScore ||
		h.useCount >= maxPageUses ||
		now.Sub(h.created) >= maxPageAge
}

// healthTable holds a pageHealth per live tab, keyed by target ID.
type healthTable struct {
	mu    sync.Mutex
	pages map[proto.TargetTargetID]*pageHealth
}

func newHealthTable() *healthTable {
	return &healthTable{pages: make(map[proto.TargetTargetID]*pageHealth)}
}

// fresh reports whether id has never completed a render, registering it on
// first sight.
func (t *healthTable) fresh(id proto.TargetTargetID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.pages[id]
	if !ok {
		t.pages[id] = &pageHealth{created: time.Now()}
		return true
	}
	return h.useCount == 0
}

// record scores a finished render and reports whether the tab must be
// retired. A retired tab is forgotten.
func (t *healthTable) record(id proto.TargetTargetID, success bool) (retire bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.pages[id]
	if !ok {
		h = &pageHealth{created: time.Now()}
		t.pages[id] = h
	}
	h.record(success)
	if h.shouldRetire(time.Now()) {
		delete(t.pages, id)
		return true
	}
	return false
}
