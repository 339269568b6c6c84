package sim

import (
	"context"
	"sync"
)

// RunAll runs independent runners concurrently. Each runner must own its grid
// and backend; nothing is shared between them.
func RunAll(ctx context.Context, runners []*Runner, cfg Config) ([]*Result, error) {
	results := make([]*Result, len(runners))
	errs := make([]error, len(runners))

	var wg sync.WaitGroup
	for i, r := range runners {
		wg.Add(1)
		go func(idx int, r *Runner) {
			defer wg.Done()
			results[idx], errs[idx] = r.Run(ctx, cfg)
		}(i, r)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}

	return results, nil
}
