package github

import (
	"sync"
	"time"

	"github.com/skridlevsky/insiders/internal/model"
)

type cachedUpvoters struct {
	plusOne  int
	logins   []string
	cachedAt time.Time
}

// ReactionCache remembers the +1 reactors of issues between refreshes.
// An entry is only reused while the issue's +1 count is unchanged, so the
// TTL bounds memory rather than staleness and should exceed the refresh
// interval.
type ReactionCache struct {
	mu      sync.RWMutex
	entries map[model.IssueKey]cachedUpvoters
	ttl     time.Duration
	now     func() time.Time
}

// NewReactionCache creates a cache whose entries live for ttl
func NewReactionCache(ttl time.Duration) *ReactionCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ReactionCache{
		entries: make(map[model.IssueKey]cachedUpvoters),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Set records the upvoters of an issue along with its +1 count
func (c *ReactionCache) Set(key model.IssueKey, plusOne int, logins []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cachedUpvoters{
		plusOne:  plusOne,
		logins:   append([]string(nil), logins...),
		cachedAt: c.now(),
	}
}

// Get returns the cached upvoters of an issue if the entry is fresh and
// was recorded for the same +1 count
func (c *ReactionCache) Get(key model.IssueKey, plusOne int) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || entry.plusOne != plusOne || c.expired(entry) {
		return nil, false
	}
	return append([]string(nil), entry.logins...), true
}

func (c *ReactionCache) expired(entry cachedUpvoters) bool {
	return c.now().Sub(entry.cachedAt) > c.ttl
}

// CleanExpired drops expired entries, such as those of closed issues,
// and returns how many were removed
func (c *ReactionCache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Count returns the number of cached issues
func (c *ReactionCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
