package tools

import (
	"fmt"
	"sync"
	"time"
)

// defaultCacheTTL and defaultCacheMaxEntries bound the web_search result
// cache (spec.md §4.2 "Remote tool namespace" sibling tools should avoid
// hammering rate-limited upstream search APIs on repeated identical
// queries within one conversation).
const (
	defaultCacheTTL        = 5 * time.Minute
	defaultCacheMaxEntries = 256
)

type webCacheEntry struct {
	value   string
	expires time.Time
}

// webCache is a small bounded TTL cache for formatted search results,
// keyed by the normalized query parameters.
type webCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	entries map[string]webCacheEntry
	order   []string
}

func newWebCache(max int, ttl time.Duration) *webCache {
	return &webCache{ttl: ttl, max: max, entries: map[string]webCacheEntry{}}
}

func (c *webCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expires) {
		return "", false
	}
	return e.value, true
}

func (c *webCache) set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= c.max {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = webCacheEntry{value: value, expires: time.Now().Add(c.ttl)}
}

// wrapExternalContent frames content fetched from an untrusted external
// source so the model can distinguish it from the conversation and from
// tool-internal instructions (spec.md §4.2 tool results are plain data,
// never instructions).
func wrapExternalContent(content, source string, truncated bool) string {
	note := ""
	if truncated {
		note = " (truncated)"
	}
	return fmt.Sprintf("--- begin external content from %s%s ---\n%s\n--- end external content ---", source, note, content)
}
