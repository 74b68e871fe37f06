package transport

import (
	"sync"
	"time"
)

// Deduper suppresses duplicate inbound message ids. Entries are keyed by id
// with their first-seen timestamp and evicted after the TTL, so the set stays
// bounded under sustained traffic.
type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

// NewDeduper creates a deduper with the given entry lifetime
func NewDeduper(ttl time.Duration) *Deduper {
	return &Deduper{
		ttl:  ttl,
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Seen reports whether id was already observed within the TTL, recording it
// as seen either way. Expired entries are evicted on each call.
func (d *Deduper) Seen(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for key, first := range d.seen {
		if now.Sub(first) > d.ttl {
			delete(d.seen, key)
		}
	}

	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = now
	return false
}

// Len returns the number of live entries
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
