package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/dossier/internal/model"
)

const keyPrefix = "dossier:v1:"

// Cache stores opaque byte payloads under string keys
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey builds a versioned key for a lookup in namespace
func CacheKey(namespace, lookup string) string {
	hash := sha256.Sum256([]byte(lookup))
	return keyPrefix + namespace + ":" + hex.EncodeToString(hash[:])
}

// New builds the cache described by cfg. It returns nil when caching is
// disabled; callers treat a nil Cache as "always miss".
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.DiskDir == "" {
		return NewMemoryCache(cfg.MemoryTTL, cleanupInterval(cfg.MemoryTTL))
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.DiskDir, cfg.DiskTTL)
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 10 * time.Minute
	}
	return ttl
}
