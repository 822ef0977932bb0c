package lacuna

import (
	"fmt"
	"math"
	"sync"

	"github.com/charmbracelet/log"
)

// ResultCache keeps the rankings of recently filled queries.
// Fill is deterministic for a trained model, so a hit is always exact.
type ResultCache struct {
	entries     map[string][]Result
	accessTime  map[string]int64
	accessCount int64
	hits        int64
	misses      int64
	maxEntries  int
	mu          sync.Mutex
}

// NewResultCache returns a cache holding at most maxEntries rankings.
func NewResultCache(maxEntries int) *ResultCache {
	return &ResultCache{
		entries:    make(map[string][]Result, maxEntries),
		accessTime: make(map[string]int64, maxEntries),
		maxEntries: maxEntries,
	}
}

func cacheKey(query string, beamWidth, topK int) string {
	return fmt.Sprintf("%d\x1f%d\x1f%s", beamWidth, topK, query)
}

// Get returns a copy of the cached ranking.
func (rc *ResultCache) Get(query string, beamWidth, topK int) ([]Result, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	key := cacheKey(query, beamWidth, topK)
	results, ok := rc.entries[key]
	if !ok {
		rc.misses++
		return nil, false
	}
	rc.hits++
	rc.accessTime[key] = rc.nextAccessTime()
	return append([]Result(nil), results...), true
}

// Put stores a copy of results, evicting the least recently used ranking when full.
func (rc *ResultCache) Put(query string, beamWidth, topK int, results []Result) {
	if rc.maxEntries <= 0 {
		return
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()

	key := cacheKey(query, beamWidth, topK)
	if _, exists := rc.entries[key]; !exists && len(rc.entries) >= rc.maxEntries {
		rc.evictLRU()
	}
	rc.entries[key] = append([]Result(nil), results...)
	rc.accessTime[key] = rc.nextAccessTime()
}

// Stats reports cache size and hit counters.
func (rc *ResultCache) Stats() map[string]int {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	return map[string]int{
		"entries":    len(rc.entries),
		"maxEntries": rc.maxEntries,
		"hits":       int(rc.hits),
		"misses":     int(rc.misses),
	}
}

func (rc *ResultCache) nextAccessTime() int64 {
	rc.accessCount++
	return rc.accessCount
}

func (rc *ResultCache) evictLRU() {
	var oldestKey string
	var oldestTime int64 = math.MaxInt64

	for key, accessTime := range rc.accessTime {
		if accessTime < oldestTime {
			oldestTime = accessTime
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(rc.entries, oldestKey)
		delete(rc.accessTime, oldestKey)
		log.Debugf("Evicted '%s' from result cache", oldestKey)
	}
}
