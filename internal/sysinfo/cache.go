package sysinfo

import "log"

// DefaultCacheFraction is the fraction of total RAM the accumulator's
// SQLite page cache is allowed to claim. 0.10 = 10%.
const DefaultCacheFraction = 0.10

// minCacheBytes is the floor below which a computed recommendation is
// considered noise and the accumulator's own default is used instead.
const minCacheBytes = 16 * 1024 * 1024

// RecommendAccumulatorCacheBytes inspects total system RAM and suggests a
// SQLite page-cache size for internal/accumulator: a small fraction of
// total RAM. Returns 0 if RAM detection fails or the computed
// recommendation is below minCacheBytes, signaling the caller to fall
// back to its own default.
func RecommendAccumulatorCacheBytes(fraction float64, verbose bool) int64 {
	totalRAM, err := totalSystemRAM()
	if err != nil {
		if verbose {
			log.Printf("cannot detect system RAM: %v; using default cache size", err)
		}
		return 0
	}
	return recommend(totalRAM, fraction, verbose)
}

func recommend(totalRAM uint64, fraction float64, verbose bool) int64 {
	if verbose {
		log.Printf("system RAM: %.1f GB", float64(totalRAM)/(1024*1024*1024))
	}

	limit := int64(float64(totalRAM) * fraction)
	if limit < minCacheBytes {
		if verbose {
			log.Printf("computed cache size too small (%.1f MB); using default", float64(limit)/(1024*1024))
		}
		return 0
	}

	if verbose {
		log.Printf("accumulator page-cache size: %.1f MB (%.0f%% of RAM)", float64(limit)/(1024*1024), fraction*100)
	}

	return limit
}
