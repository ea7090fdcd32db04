package extract

// WorkerCount computes a bounded worker count from the available hardware
// concurrency and a caller ceiling: three quarters of the hardware, floored,
// clamped to [2, ceiling]. Parallelism is assumed beneficial whenever this
// path is taken, so the floor of 2 holds even on a single-core box; the
// ceiling wins over everything else.
func WorkerCount(hardware, ceiling int) int {
	n := hardware * 3 / 4
	if n < 2 {
		n = 2
	}
	if n > ceiling {
		n = ceiling
	}
	return n
}

// Plan splits an ordered partition-key domain into at most workers
// contiguous bins of near-equal size by ordinal binning, never hashing.
// The bins partition the domain exactly: no gaps, no overlaps, sizes differ
// by at most one element. An empty domain yields zero shards.
// Planning is deterministic: identical inputs always yield the identical
// partition.
//
// The returned shards alias the domain slice; callers must not mutate the
// domain while shards are in flight.
func Plan(domain []int, workers int) [][]int {
	if len(domain) == 0 || workers < 1 {
		return nil
	}

	n := len(domain)
	if workers > n {
		workers = n
	}

	// Balanced ordinal binning: the first n%workers bins carry one extra
	// key, so sizes never differ by more than one.
	base := n / workers
	extra := n % workers

	shards := make([][]int, 0, workers)
	start := 0
	for i := 0; i < workers; i++ {
		size := base
		if i < extra {
			size++
		}
		shards = append(shards, domain[start:start+size])
		start += size
	}
	return shards
}
