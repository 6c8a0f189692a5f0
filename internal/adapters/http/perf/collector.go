// Package perf keeps recent request timings in memory for /healthz.
package perf

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is how many recent requests a Collector remembers.
const DefaultRingSize = 2048

// Entry is one finished request.
type Entry struct {
	Path       string // "METHOD /route/pattern"
	StatusCode int
	DurationMs float64
	Timestamp  time.Time
}

// Collector remembers the last N requests. Older entries are overwritten;
// totals count every request since start.
type Collector struct {
	mu   sync.Mutex
	ring []Entry
	next int

	total  atomic.Int64
	errors atomic.Int64 // 5xx
}

// NewCollector returns a collector holding up to size entries.
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{ring: make([]Entry, size)}
}

// Record stores e, replacing the oldest entry when full.
func (c *Collector) Record(e Entry) {
	c.mu.Lock()
	c.ring[c.next] = e
	c.next = (c.next + 1) % len(c.ring)
	c.mu.Unlock()

	c.total.Add(1)
	if e.StatusCode >= 500 {
		c.errors.Add(1)
	}
}

// TotalRecorded returns the number of requests recorded since start.
func (c *Collector) TotalRecorded() int64 {
	return c.total.Load()
}

// Snapshot summarises the remembered requests.
type Snapshot struct {
	TotalRequests int64      `json:"total_requests"`
	ServerErrors  int64      `json:"server_errors"`
	P50Ms         float64    `json:"p50_ms"`
	P95Ms         float64    `json:"p95_ms"`
	P99Ms         float64    `json:"p99_ms"`
	SlowestPaths  []PathStat `json:"slowest_paths,omitempty"`
}

// PathStat is the timing of one route.
type PathStat struct {
	Path  string  `json:"path"`
	AvgMs float64 `json:"avg_ms"`
	MaxMs float64 `json:"max_ms"`
	Count int     `json:"count"`
}

// Snapshot summarises entries recorded at or after since.
// POST: SlowestPaths holds at most topN routes, slowest average first
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	var recent []Entry
	for _, e := range c.ring {
		if !e.Timestamp.IsZero() && !e.Timestamp.Before(since) {
			recent = append(recent, e)
		}
	}
	c.mu.Unlock()

	snap := Snapshot{
		TotalRequests: c.total.Load(),
		ServerErrors:  c.errors.Load(),
	}
	if len(recent) == 0 {
		return snap
	}

	durations := make([]float64, len(recent))
	byPath := make(map[string]*PathStat)
	sums := make(map[string]float64)
	for i, e := range recent {
		durations[i] = e.DurationMs
		ps, ok := byPath[e.Path]
		if !ok {
			ps = &PathStat{Path: e.Path}
			byPath[e.Path] = ps
		}
		ps.Count++
		ps.MaxMs = max(ps.MaxMs, e.DurationMs)
		sums[e.Path] += e.DurationMs
	}

	slices.Sort(durations)
	snap.P50Ms = nearestRank(durations, 50)
	snap.P95Ms = nearestRank(durations, 95)
	snap.P99Ms = nearestRank(durations, 99)

	paths := make([]PathStat, 0, len(byPath))
	for path, ps := range byPath {
		ps.AvgMs = sums[path] / float64(ps.Count)
		paths = append(paths, *ps)
	}
	slices.SortFunc(paths, func(a, b PathStat) int {
		if byAvg := cmp.Compare(b.AvgMs, a.AvgMs); byAvg != 0 {
			return byAvg
		}
		return cmp.Compare(a.Path, b.Path)
	})
	if len(paths) > topN {
		paths = paths[:max(topN, 0)]
	}
	snap.SlowestPaths = paths
	return snap
}

// nearestRank returns the p-th percentile of a sorted, non-empty slice.
func nearestRank(sorted []float64, p int) float64 {
	rank := (p*len(sorted) + 99) / 100 // ceil(p/100 * n)
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
