package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mixtape/internal/cache"
	"github.com/desertthunder/mixtape/internal/matching"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// CachedSearcher memoizes search results in a [cache.Store].
//
// Cache failures are logged and the underlying searcher is used directly. Failed searches are never cached.
type CachedSearcher struct {
	next   matching.Searcher
	store  cache.Store
	ttl    time.Duration
	prefix string
	logger *log.Logger
}

// NewCachedSearcher wraps next. namespace separates entries of different libraries sharing a store.
func NewCachedSearcher(next matching.Searcher, store cache.Store, ttl time.Duration, namespace string, logger *log.Logger) *CachedSearcher {
	return &CachedSearcher{
		next:   next,
		store:  store,
		ttl:    ttl,
		prefix: "search:" + namespace + ":",
		logger: shared.LoggerOrDiscard(logger),
	}
}

func (c *CachedSearcher) key(query string) string {
	return c.prefix + strings.ToLower(strings.Join(strings.Fields(query), " "))
}

func (c *CachedSearcher) Search(ctx context.Context, query string) ([]models.CandidateTrack, error) {
	key := c.key(query)

	data, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		c.logger.Warn("search cache read failed", "query", query, "error", err)
	case ok:
		var cached []models.CandidateTrack
		if err := json.Unmarshal(data, &cached); err == nil {
			c.logger.Debug("search cache hit", "query", query, "results", len(cached))
			return cached, nil
		}
		c.logger.Warn("discarding corrupt search cache entry", "query", query)
	}

	results, err := c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(results); err == nil {
		if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("search cache write failed", "query", query, "error", err)
		}
	}
	return results, nil
}
