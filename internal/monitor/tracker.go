package monitor

import (
	"sort"
	"sync"
)

// Tracker keeps the latest probe result per URL.
type Tracker struct {
	mu      sync.RWMutex
	results map[string]Result
}

func NewTracker() *Tracker {
	return &Tracker{results: make(map[string]Result)}
}

func (t *Tracker) Record(r Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.results[r.URL] = r
}

func (t *Tracker) Get(url string) (Result, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.results[url]
	return r, ok
}

func (t *Tracker) Forget(url string) {
	t.mu.Lock()
	delete(t.results, url)
	t.mu.Unlock()
}

// Snapshot returns every result ordered by URL.
func (t *Tracker) Snapshot() []Result {
	t.mu.RLock()
	out := make([]Result, 0, len(t.results))
	for _, r := range t.results {
		out = append(out, r)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}
