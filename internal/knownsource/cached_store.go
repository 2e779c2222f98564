package knownsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-curator/internal/platform/cache"
)

// jsonCache is the slice of the platform cache the read-through layer needs.
type jsonCache interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// CachedStore layers a Redis read-through cache over location lookups.
// Mutations invalidate the lookups that could include the mutated entry;
// anything missed simply expires with the TTL.
type CachedStore struct {
	Store
	cache jsonCache
	ttl   time.Duration
}

// NewCachedStore wraps a store with a location-lookup cache.
func NewCachedStore(store Store, c jsonCache, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: store, cache: c, ttl: ttl}
}

func lookupKey(country, region, subject string) string {
	return fmt.Sprintf("knownsource:%s:%s:%s", country, region, subject)
}

func (s *CachedStore) FindByLocation(ctx context.Context, country, region, subject string) ([]KnownSource, error) {
	key := lookupKey(country, region, subject)

	var cached []KnownSource
	err := s.cache.GetJSON(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		// A broken cache degrades to a direct lookup.
		slog.Warn("known-source cache read failed", "key", key, "error", err)
	}

	sources, err := s.Store.FindByLocation(ctx, country, region, subject)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, key, sources, s.ttl); err != nil {
		slog.Warn("known-source cache write failed", "key", key, "error", err)
	}
	return sources, nil
}

func (s *CachedStore) RefreshVerification(ctx context.Context, key string) error {
	if err := s.Store.RefreshVerification(ctx, key); err != nil {
		return err
	}
	s.invalidateFor(ctx, key)
	return nil
}

func (s *CachedStore) Deactivate(ctx context.Context, key string) error {
	if err := s.Store.Deactivate(ctx, key); err != nil {
		return err
	}
	s.invalidateFor(ctx, key)
	return nil
}

// invalidateFor drops cached lookups that could include the mutated entry.
// Lookup keys are parameterized, so the mutated source is fetched to scope
// the invalidation to its country/region/subjects combinations.
func (s *CachedStore) invalidateFor(ctx context.Context, sourceKey string) {
	src, err := s.Store.FindByKey(ctx, sourceKey)
	if err != nil {
		return
	}

	region := ""
	if src.Region != nil {
		region = *src.Region
	}

	keys := []string{lookupKey(src.Country, "", ""), lookupKey(src.Country, region, "")}
	for _, subject := range src.Subjects {
		keys = append(keys,
			lookupKey(src.Country, region, subject),
			lookupKey(src.Country, "", subject))
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		slog.Warn("known-source cache invalidation failed", "source_key", sourceKey, "error", err)
	}
}
