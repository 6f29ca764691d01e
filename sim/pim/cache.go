package pim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/accel-pim/pimsim/sim/graph"
)

// MarkerCache maps descriptor markers to the layer first parsed under them.
// It is owned by one session and is not safe for concurrent use.
//
// With a positive limit the oldest-inserted marker is evicted once the limit
// is reached. An evicted marker is treated as unseen on its next sighting.
type MarkerCache struct {
	limit   int
	entries map[string]*graph.LayerRecord
	order   []string // insertion order, oldest first
}

// NewMarkerCache returns an empty cache. limit <= 0 means unbounded.
func NewMarkerCache(limit int) *MarkerCache {
	if limit < 0 {
		limit = 0
	}
	return &MarkerCache{
		limit:   limit,
		entries: make(map[string]*graph.LayerRecord),
	}
}

// Lookup returns the cached record for marker. The record is shared; do not modify.
func (c *MarkerCache) Lookup(marker string) (*graph.LayerRecord, bool) {
	l, ok := c.entries[marker]
	return l, ok
}

// Insert stores a copy of l under marker. Panics if marker is already cached
// (callers must Lookup first).
func (c *MarkerCache) Insert(marker string, l *graph.LayerRecord) {
	if _, ok := c.entries[marker]; ok {
		panic(fmt.Sprintf("MarkerCache.Insert: marker %q already cached", marker))
	}
	if c.limit > 0 && len(c.order) >= c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		logrus.Debugf("marker cache: evicted %q (limit %d)", oldest, c.limit)
	}
	c.entries[marker] = l.Clone()
	c.order = append(c.order, marker)
}

// Len returns the number of cached markers.
func (c *MarkerCache) Len() int {
	return len(c.entries)
}

// Limit returns the eviction bound, 0 when unbounded.
func (c *MarkerCache) Limit() int {
	return c.limit
}

// Markers returns cached markers oldest first.
func (c *MarkerCache) Markers() []string {
	return append([]string(nil), c.order...)
}

// Reset drops every entry.
func (c *MarkerCache) Reset() {
	c.entries = make(map[string]*graph.LayerRecord)
	c.order = nil
}
