package cache

import (
	"encoding/json"
	"time"
)

// Entry is a single cached payload with its expiry metadata.
type Entry struct {
	// Key is the caller-supplied cache key.
	Key string `json:"key"`

	// Source describes where the payload came from, usually a URL.
	Source string `json:"source,omitempty"`

	// Data is the cached payload.
	Data json.RawMessage `json:"data"`

	StoredAt  time.Time `json:"stored_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newEntry(key, source string, data json.RawMessage, now time.Time, ttl time.Duration) *Entry {
	return &Entry{
		Key:       key,
		Source:    source,
		Data:      data,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// ExpiredAt reports whether the entry is expired at the given instant.
func (e *Entry) ExpiredAt(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Remaining returns the time left before expiry, or 0 if already expired.
func (e *Entry) Remaining() time.Duration {
	return max(time.Until(e.ExpiresAt), 0)
}
