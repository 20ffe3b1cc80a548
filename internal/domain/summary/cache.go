// Package summary renders the ranked contest view into display lines and
// publishes them as an immutable snapshot.
package summary

import (
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/metrics"
)

// Render formats contests, already in rank order, as
// "<rank>. <Home> <HomeScore> - <AwayScore> <Away>" with rank starting at 1.
func Render(ranked []model.Contest) []string {
	lines := make([]string, len(ranked))
	for i, c := range ranked {
		lines[i] = strconv.Itoa(i+1) + ". " + c.String()
	}
	return lines
}

// Cache holds the last published summary and a dirty flag.
//
// Invalidate, Dirty and Refresh are writer-side: the owner calls them inside
// the same exclusive section that mutates the registry being rendered.
// Lines is safe to call concurrently with them and needs no lock.
type Cache struct {
	dirty    bool
	snapshot atomic.Pointer[[]string]
}

// NewCache returns a cache that publishes on the first Refresh.
func NewCache() *Cache {
	return &Cache{dirty: true}
}

// Invalidate marks the published lines stale.
func (c *Cache) Invalidate() {
	c.dirty = true
}

// Dirty reports whether the next Refresh will re-render.
func (c *Cache) Dirty() bool {
	return c.dirty
}

// Refresh re-renders from view and publishes the result if the cache is
// dirty. It reports whether a new snapshot was published.
func (c *Cache) Refresh(view func() []model.Contest) bool {
	if !c.dirty {
		return false
	}
	start := time.Now()
	lines := Render(view())
	c.snapshot.Store(&lines)
	c.dirty = false
	metrics.RecordSummaryRebuild(metrics.Milliseconds(time.Since(start)))
	return true
}

// Lines returns a copy of the last published summary, or an empty slice
// before the first Refresh. The published slice itself is never handed out.
func (c *Cache) Lines() []string {
	p := c.snapshot.Load()
	if p == nil {
		return []string{}
	}
	metrics.RecordSummaryCacheHit()
	return slices.Clone(*p)
}
