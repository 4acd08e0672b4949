package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a namespaced cache key from its parts. Callers pass
// whatever identifies the cached computation (framework + query for
// retrieval results, model + prompt for model responses); parts are
// hashed so arbitrary text is safe to use as a key.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return "reglens:v1:" + hex.EncodeToString(hash[:])
}
