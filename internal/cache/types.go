package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")
)

// Stats holds cache counters.
type Stats struct {
	Capacity  int64   `json:"capacity"`
	Size      int64   `json:"size"`
	ItemCount int64   `json:"items"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// Cache is satisfied by MemoryCache. Consumers accept it so tests can stub it.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
}

// Key hashes its parts into a stable cache key. Parts are joined with a
// separator that cannot appear in voice names so ("ab","c") and ("a","bc")
// never collide.
func Key(namespace string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return namespace + ":" + hex.EncodeToString(sum[:16])
}
