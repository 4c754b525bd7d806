// Package parallel fans work over contiguous index ranges out to goroutines.
// Every call blocks until all workers return.
package parallel

import (
	"runtime"
	"sync"
)

// Range is a half-open index range [Start, End).
type Range struct {
	Start, End int
}

// Split divides items into at most workers contiguous ranges of near-equal
// size (ceiling division). workers <= 0 means runtime.NumCPU().
func Split(items, workers int) []Range {
	if items <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > items {
		workers = items
	}
	chunkSize := (items + workers - 1) / workers

	ranges := make([]Range, 0, workers)
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return ranges
}

// Parallelize divides items according to the number of CPU cores and runs
// fn on each range concurrently.
func Parallelize(items int, fn func(start, end int)) {
	ranges := Split(items, 0)
	if len(ranges) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, r := range ranges {
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(r.Start, r.End)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) on the calling goroutine when
// items <= threshold and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// Reduce runs fn on each range with its own accumulator of length width and
// returns the element-wise sum of the accumulators. Chunks are summed in
// range order so results do not depend on scheduling. Inputs of at most
// threshold items run sequentially with a single accumulator.
func Reduce(items, threshold, width int, fn func(start, end int, acc []float64)) []float64 {
	out := make([]float64, width)
	if items <= 0 {
		return out
	}
	if items <= threshold {
		fn(0, items, out)
		return out
	}

	ranges := Split(items, 0)
	partial := make([][]float64, len(ranges))
	var wg sync.WaitGroup
	for i, r := range ranges {
		partial[i] = make([]float64, width)
		wg.Add(1)
		go func(acc []float64, s, e int) {
			defer wg.Done()
			fn(s, e, acc)
		}(partial[i], r.Start, r.End)
	}
	wg.Wait()

	for _, acc := range partial {
		for j, v := range acc {
			out[j] += v
		}
	}
	return out
}
