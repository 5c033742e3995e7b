package fetch

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// FetchAll fetches every source in parallel. The first failure cancels the
// others and is returned.
func FetchAll(ctx context.Context, f Fetcher, sources []Source) (map[string][]byte, error) {
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	bodies := make(map[string][]byte, len(sources))

	for _, src := range sources {
		g.Go(func() error {
			body, err := f.Fetch(ctx, src)
			if err != nil {
				return err
			}
			mu.Lock()
			bodies[src.Name] = body
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bodies, nil
}
