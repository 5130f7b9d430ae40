package tracker

import (
	"sync"
	"sync/atomic"
)

// Tracker tracks usage statistics per provider, plus decode outcomes per error kind.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*ProviderStats

	decodeMu sync.Mutex
	decode   DecodeStats
}

// DecodeStats counts parse outcomes. Issues is keyed by error kind name.
type DecodeStats struct {
	Parsed   int64
	Rejected int64
	Issues   map[string]int64
}

// ProviderStats holds metrics for a specific provider.
// Fields are accessed atomically.
type ProviderStats struct {
	CacheHits   int64
	CacheMisses int64
	APISuccess  int64
	APIFailures int64
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*ProviderStats),
	}
}

// getStats returns the stats object for a provider, creating it if needed.
func (t *Tracker) getStats(provider string) *ProviderStats {
	t.mu.RLock()
	s, ok := t.stats[provider]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[provider]; ok {
		return s
	}
	s = &ProviderStats{}
	t.stats[provider] = s
	return s
}

// TrackCacheHit increments the cache hit counter.
func (t *Tracker) TrackCacheHit(provider string) {
	atomic.AddInt64(&t.getStats(provider).CacheHits, 1)
}

func (t *Tracker) TrackCacheMiss(provider string) {
	atomic.AddInt64(&t.getStats(provider).CacheMisses, 1)
}

func (t *Tracker) TrackAPISuccess(provider string) {
	atomic.AddInt64(&t.getStats(provider).APISuccess, 1)
}

func (t *Tracker) TrackAPIFailure(provider string) {
	atomic.AddInt64(&t.getStats(provider).APIFailures, 1)
}

// TrackParsed records one successfully decoded entity and the kinds of the
// issues it was decoded with.
func (t *Tracker) TrackParsed(issueKinds ...string) {
	t.decodeMu.Lock()
	defer t.decodeMu.Unlock()
	t.decode.Parsed++
	t.addIssues(issueKinds)
}

// TrackRejected records an entity that could not be decoded.
func (t *Tracker) TrackRejected(kind string) {
	t.decodeMu.Lock()
	defer t.decodeMu.Unlock()
	t.decode.Rejected++
	t.addIssues([]string{kind})
}

func (t *Tracker) addIssues(kinds []string) {
	if len(kinds) == 0 {
		return
	}
	if t.decode.Issues == nil {
		t.decode.Issues = make(map[string]int64)
	}
	for _, k := range kinds {
		t.decode.Issues[k]++
	}
}

// DecodeSnapshot returns a copy of the decode counters.
func (t *Tracker) DecodeSnapshot() DecodeStats {
	t.decodeMu.Lock()
	defer t.decodeMu.Unlock()
	out := DecodeStats{Parsed: t.decode.Parsed, Rejected: t.decode.Rejected, Issues: make(map[string]int64, len(t.decode.Issues))}
	for k, v := range t.decode.Issues {
		out.Issues[k] = v
	}
	return out
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]ProviderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]ProviderStats)
	for k, v := range t.stats {
		result[k] = ProviderStats{
			CacheHits:   atomic.LoadInt64(&v.CacheHits),
			CacheMisses: atomic.LoadInt64(&v.CacheMisses),
			APISuccess:  atomic.LoadInt64(&v.APISuccess),
			APIFailures: atomic.LoadInt64(&v.APIFailures),
		}
	}
	return result
}
