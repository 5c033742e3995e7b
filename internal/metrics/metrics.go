// Package metrics collects counters for one coverage run.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector collects and aggregates metrics.
type Collector struct {
	// Fetch counters
	requestsTotal atomic.Int64
	cacheHits     atomic.Int64
	errorsTotal   atomic.Int64
	bytesTotal    atomic.Int64

	// Reconcile counters
	renamesTotal  atomic.Int64
	mergedTotal   atomic.Int64
	filteredTotal atomic.Int64
	mismatches    atomic.Int64

	// Fetch time tracking
	fetchTimesSum atomic.Int64
	fetchTimesNum atomic.Int64

	// Histograms (buckets for fetch times in ms)
	fetchTimeBuckets [10]atomic.Int64 // <10, <50, <100, <250, <500, <1000, <2500, <5000, <10000, >=10000

	// Error breakdown
	errorCounts map[string]*atomic.Int64
	errorMu     sync.RWMutex

	// Status code breakdown
	statusCodes map[int]*atomic.Int64
	statusMu    sync.RWMutex

	// Endpoints per source
	sourceCounts map[string]*atomic.Int64
	sourceMu     sync.RWMutex

	// Start time
	startTime time.Time
}

// New creates a new metrics collector.
func New() *Collector {
	return &Collector{
		errorCounts:  make(map[string]*atomic.Int64),
		statusCodes:  make(map[int]*atomic.Int64),
		sourceCounts: make(map[string]*atomic.Int64),
		startTime:    time.Now(),
	}
}

// RecordRequest records an HTTP request.
func (c *Collector) RecordRequest() {
	c.requestsTotal.Add(1)
}

// RecordCacheHit records a source served from the cache.
func (c *Collector) RecordCacheHit() {
	c.cacheHits.Add(1)
}

// RecordError records an error.
func (c *Collector) RecordError(errorType string) {
	c.errorsTotal.Add(1)

	c.errorMu.Lock()
	if c.errorCounts[errorType] == nil {
		c.errorCounts[errorType] = &atomic.Int64{}
	}
	c.errorCounts[errorType].Add(1)
	c.errorMu.Unlock()
}

// RecordFetchTime records how long a fetch took.
func (c *Collector) RecordFetchTime(d time.Duration) {
	ms := d.Milliseconds()
	c.fetchTimesSum.Add(ms)
	c.fetchTimesNum.Add(1)

	// Update histogram bucket
	bucket := c.getBucket(ms)
	c.fetchTimeBuckets[bucket].Add(1)
}

// getBucket returns the histogram bucket for a given fetch time.
func (c *Collector) getBucket(ms int64) int {
	switch {
	case ms < 10:
		return 0
	case ms < 50:
		return 1
	case ms < 100:
		return 2
	case ms < 250:
		return 3
	case ms < 500:
		return 4
	case ms < 1000:
		return 5
	case ms < 2500:
		return 6
	case ms < 5000:
		return 7
	case ms < 10000:
		return 8
	default:
		return 9
	}
}

// RecordStatusCode records an HTTP status code.
func (c *Collector) RecordStatusCode(code int) {
	c.statusMu.Lock()
	if c.statusCodes[code] == nil {
		c.statusCodes[code] = &atomic.Int64{}
	}
	c.statusCodes[code].Add(1)
	c.statusMu.Unlock()
}

// RecordBytes records transferred bytes.
func (c *Collector) RecordBytes(n int64) {
	c.bytesTotal.Add(n)
}

// SetSourceCount sets how many endpoints a source produced.
func (c *Collector) SetSourceCount(source string, n int) {
	c.sourceMu.Lock()
	if c.sourceCounts[source] == nil {
		c.sourceCounts[source] = &atomic.Int64{}
	}
	c.sourceCounts[source].Store(int64(n))
	c.sourceMu.Unlock()
}

// RecordRenames adds n renames.
func (c *Collector) RecordRenames(n int) {
	c.renamesTotal.Add(int64(n))
}

// SetMerged sets the size of the merged registry.
func (c *Collector) SetMerged(n int) {
	c.mergedTotal.Store(int64(n))
}

// RecordFiltered adds n filtered entries.
func (c *Collector) RecordFiltered(n int) {
	c.filteredTotal.Add(int64(n))
}

// RecordMismatches adds n consistency mismatches.
func (c *Collector) RecordMismatches(n int) {
	c.mismatches.Add(int64(n))
}

// averageFetchTime returns the average fetch time.
func (c *Collector) averageFetchTime() time.Duration {
	sum := c.fetchTimesSum.Load()
	num := c.fetchTimesNum.Load()
	if num == 0 {
		return 0
	}
	return time.Duration(sum/num) * time.Millisecond
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() *Snapshot {
	s := &Snapshot{
		Timestamp:        time.Now(),
		Uptime:           time.Since(c.startTime),
		RequestsTotal:    c.requestsTotal.Load(),
		CacheHits:        c.cacheHits.Load(),
		ErrorsTotal:      c.errorsTotal.Load(),
		BytesTotal:       c.bytesTotal.Load(),
		RenamesTotal:     c.renamesTotal.Load(),
		MergedTotal:      c.mergedTotal.Load(),
		FilteredTotal:    c.filteredTotal.Load(),
		Mismatches:       c.mismatches.Load(),
		AverageFetchTime: c.averageFetchTime(),
		ErrorCounts:      make(map[string]int64),
		StatusCodes:      make(map[int]int64),
		SourceCounts:     make(map[string]int64),
		FetchTimeHist:    make([]int64, 10),
	}

	// Copy error counts
	c.errorMu.RLock()
	for k, v := range c.errorCounts {
		s.ErrorCounts[k] = v.Load()
	}
	c.errorMu.RUnlock()

	// Copy status codes
	c.statusMu.RLock()
	for k, v := range c.statusCodes {
		s.StatusCodes[k] = v.Load()
	}
	c.statusMu.RUnlock()

	c.sourceMu.RLock()
	for k, v := range c.sourceCounts {
		s.SourceCounts[k] = v.Load()
	}
	c.sourceMu.RUnlock()

	// Copy histogram
	for i := 0; i < 10; i++ {
		s.FetchTimeHist[i] = c.fetchTimeBuckets[i].Load()
	}

	return s
}

// Snapshot represents a point-in-time view of metrics.
type Snapshot struct {
	Timestamp        time.Time        `json:"timestamp"`
	Uptime           time.Duration    `json:"uptime"`
	RequestsTotal    int64            `json:"requests_total"`
	CacheHits        int64            `json:"cache_hits"`
	ErrorsTotal      int64            `json:"errors_total"`
	BytesTotal       int64            `json:"bytes_total"`
	RenamesTotal     int64            `json:"renames_total"`
	MergedTotal      int64            `json:"merged_total"`
	FilteredTotal    int64            `json:"filtered_total"`
	Mismatches       int64            `json:"mismatches"`
	AverageFetchTime time.Duration    `json:"average_fetch_time"`
	ErrorCounts      map[string]int64 `json:"error_counts"`
	StatusCodes      map[int]int64    `json:"status_codes"`
	SourceCounts     map[string]int64 `json:"source_counts"`
	FetchTimeHist    []int64          `json:"fetch_time_histogram"`
}

// CacheHitRate returns the share of sources served from the cache.
func (s *Snapshot) CacheHitRate() float64 {
	total := s.RequestsTotal + s.CacheHits
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

// Summary returns a human-readable summary.
func (s *Snapshot) Summary() map[string]interface{} {
	summary := map[string]interface{}{
		"uptime":            s.Uptime.String(),
		"requests_total":    s.RequestsTotal,
		"cache_hits":        s.CacheHits,
		"errors_total":      s.ErrorsTotal,
		"bytes_total":       s.BytesTotal,
		"renames":           s.RenamesTotal,
		"merged":            s.MergedTotal,
		"filtered":          s.FilteredTotal,
		"mismatches":        s.Mismatches,
		"avg_fetch_time_ms": s.AverageFetchTime.Milliseconds(),
		"cache_hit_rate":    s.CacheHitRate(),
	}
	for source, n := range s.SourceCounts {
		summary["endpoints_"+source] = n
	}
	return summary
}
