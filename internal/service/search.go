package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lggurgel/gurgelhub/internal/domain"
	"github.com/lggurgel/gurgelhub/internal/storage"
)

// SearchService fronts the store's full-text search with a Redis cache.
// Ranking itself is database-native; this layer only shapes results and
// keeps hot queries out of the database for a short TTL.
type SearchService struct {
	store    storage.Storage
	cache    *redis.Client // nil disables caching
	cacheTTL time.Duration
	perPage  int
	log      zerolog.Logger
}

// NewSearchService creates a new search service. Pass a nil cache client
// to disable caching.
func NewSearchService(store storage.Storage, cache *redis.Client, cacheTTL time.Duration, perPage int, log zerolog.Logger) *SearchService {
	if perPage < 1 {
		perPage = 10
	}
	return &SearchService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		perPage:  perPage,
		log:      log.With().Str("component", "search_service").Logger(),
	}
}

// SearchResult is one page of ranked hits.
type SearchResult struct {
	Items      []*domain.SearchHit `json:"items"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	PerPage    int                 `json:"perPage"`
	DurationMS float64             `json:"durationMs"`
}

// Search runs a ranked full-text query over published articles.
func (s *SearchService) Search(ctx context.Context, query string, page int) (*SearchResult, error) {
	if page < 1 {
		page = 1
	}

	cacheKey := fmt.Sprintf("search:%s:%d", query, page)
	if cached := s.fromCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	start := time.Now()
	hits, total, err := s.store.SearchArticles(ctx, query, storage.ListArgs{
		Offset: (page - 1) * s.perPage,
		Limit:  s.perPage,
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	result := &SearchResult{
		Items:      hits,
		Total:      total,
		Page:       page,
		PerPage:    s.perPage,
		DurationMS: float64(time.Since(start).Microseconds()) / 1000,
	}
	s.toCache(ctx, cacheKey, result)
	return result, nil
}

// Suggest returns up to limit title suggestions for a partial query.
func (s *SearchService) Suggest(ctx context.Context, partial string, limit int) ([]string, error) {
	if limit < 1 {
		limit = 5
	}
	return s.store.SuggestTitles(ctx, partial, limit)
}

func (s *SearchService) fromCache(ctx context.Context, key string) *SearchResult {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("search cache read failed")
		}
		return nil
	}
	var result SearchResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}
	return &result
}

func (s *SearchService) toCache(ctx context.Context, key string, result *SearchResult) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Msg("search cache write failed")
	}
}
