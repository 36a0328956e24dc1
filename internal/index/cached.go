package index

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ppiankov/dossier/internal/cache"
	"github.com/ppiankov/dossier/internal/model"
)

const rawNamespace = "raw"

// CachedSource memoizes raw lookups. Only non-empty results are stored, so a
// subject scraped after a miss is picked up on the next lookup.
type CachedSource struct {
	next  SourceIndex
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedSource wraps next. A nil cache returns next unchanged.
func NewCachedSource(next SourceIndex, c cache.Cache, ttl time.Duration) SourceIndex {
	if c == nil {
		return next
	}
	return &CachedSource{next: next, cache: c, ttl: ttl}
}

// SearchRaw serves from the cache or delegates and fills it
func (s *CachedSource) SearchRaw(ctx context.Context, externalID string) ([]model.SourceRecord, error) {
	key := cache.CacheKey(rawNamespace, externalID)

	if data, ok := s.cache.Get(key); ok {
		var records []model.SourceRecord
		if err := json.Unmarshal(data, &records); err == nil {
			return records, nil
		}
		_ = s.cache.Delete(key)
	}

	records, err := s.next.SearchRaw(ctx, externalID)
	if err != nil || len(records) == 0 {
		return records, err
	}

	if data, err := json.Marshal(records); err == nil {
		if err := s.cache.Set(key, data, s.ttl); err != nil {
			log.Warn().Err(err).Str("wikidataid", externalID).Msg("raw lookup cache write failed")
		}
	}
	return records, nil
}
