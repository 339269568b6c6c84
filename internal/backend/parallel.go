package backend

import "sync"

// ParallelFor calls fn on contiguous ranges covering [0, n), one goroutine
// per range. At most workers ranges are used and each holds at least
// minChunk elements, so small inputs run inline on the caller.
func ParallelFor(n, minChunk, workers int, fn func(start, end int)) {
	parts := min(workers, n/max(minChunk, 1))
	if parts <= 1 {
		fn(0, n)
		return
	}

	size := (n + parts - 1) / parts
	var wg sync.WaitGroup
	for start := 0; start < n; start += size {
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(start, min(start+size, n))
	}
	wg.Wait()
}
