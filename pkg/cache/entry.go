package cache

import (
	"encoding/json"
	"time"
)

// Entry represents a cached payload stored in Redis.
type Entry struct {
	// Key is the fingerprint the entry was stored under
	Key string `json:"key"`

	// Payload is the JSON-encoded value
	Payload json.RawMessage `json:"payload"`

	// StoredAt is when the entry was written
	StoredAt time.Time `json:"stored_at"`

	// ExpiresAt is when the entry must be treated as absent
	ExpiresAt time.Time `json:"expires_at"`
}

// NewEntry creates an entry that expires ttl from now.
func NewEntry(key string, payload []byte, ttl time.Duration) *Entry {
	now := time.Now()
	return &Entry{
		Key:       key,
		Payload:   payload,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired returns true if the entry has expired.
// An entry whose expiry is exactly now counts as expired.
func (e *Entry) IsExpired() bool {
	return !time.Now().Before(e.ExpiresAt)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}
