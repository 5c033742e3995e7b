package fetch

import (
	"context"
	"time"

	"github.com/PentesterFlow/apicoverage/internal/cache"
	"github.com/PentesterFlow/apicoverage/internal/logger"
	"github.com/PentesterFlow/apicoverage/internal/metrics"
)

// CachedFetcher stores every fetched body in a cache. When UseCached is set,
// a cached body is returned without touching the network.
type CachedFetcher struct {
	Fetcher   Fetcher
	Cache     cache.Cache
	UseCached bool
	Logger    *logger.Logger
	Metrics   *metrics.Collector
}

// NewCachedFetcher wraps f with c.
func NewCachedFetcher(f Fetcher, c cache.Cache, useCached bool) *CachedFetcher {
	return &CachedFetcher{
		Fetcher:   f,
		Cache:     c,
		UseCached: useCached,
		Logger:    logger.Nop(),
		Metrics:   metrics.New(),
	}
}

// Fetch returns the body of src from the cache or the wrapped fetcher.
func (cf *CachedFetcher) Fetch(ctx context.Context, src Source) ([]byte, error) {
	start := time.Now()

	if cf.UseCached {
		entry, err := cf.Cache.Get(src.Name)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			cf.Metrics.RecordCacheHit()
			cf.Logger.FetchEvent(src.Name, src.URL, true, len(entry.Body), time.Since(start))
			return entry.Body, nil
		}
		cf.Logger.WithSource(src.Name).Debug("Cache miss, fetching")
	}

	body, err := cf.Fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}

	if err := cf.Cache.Put(&cache.Entry{
		Source:    src.Name,
		URL:       src.URL,
		Body:      body,
		FetchedAt: time.Now(),
	}); err != nil {
		return nil, err
	}

	cf.Logger.FetchEvent(src.Name, src.URL, false, len(body), time.Since(start))
	return body, nil
}
