// Package cache is the disposable read-through cache in front of upstream
// catalog queries. Every Store degrades to "miss" on backend failure.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Store is a key-value cache with per-entry TTL.
type Store interface {
	// Get returns the value and true on a hit. Backend failures are misses.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value for ttl. Backend failures are logged and swallowed.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Exists(ctx context.Context, key string) bool
	// DeletePrefix removes every key starting with prefix and returns how many were removed.
	DeletePrefix(ctx context.Context, prefix string) int
}

// TTLs per catalog operation.
const (
	TrendingTTL = 30 * time.Minute
	PopularTTL  = 30 * time.Minute
	DetailsTTL  = 60 * time.Minute
	SearchTTL   = 15 * time.Minute
	RelatedTTL  = 45 * time.Minute

	PersonalizedTTL = 24 * time.Hour
	StatsTTL        = 5 * time.Minute
)

// Key prefixes, used for bulk invalidation.
const (
	TrendingPrefix = "trending:"
	PopularPrefix  = "popular:"
	DetailsPrefix  = "details:"
	SearchPrefix   = "search:"
	RelatedPrefix  = "recommendations:"

	PersonalizedPrefix = "personalized_recommendations:"
	StatsKey           = "analytics:api_stats"
)

// CatalogPrefixes lists every prefix owned by the synchronization service.
var CatalogPrefixes = []string{TrendingPrefix, PopularPrefix, DetailsPrefix, SearchPrefix, RelatedPrefix}

func TrendingKey(window string, page int) string {
	return fmt.Sprintf("%s%s:page:%d", TrendingPrefix, window, page)
}

func PopularKey(page int) string {
	return fmt.Sprintf("%spage:%d", PopularPrefix, page)
}

func DetailsKey(tmdbID int) string {
	return fmt.Sprintf("%s%d", DetailsPrefix, tmdbID)
}

// SearchKey uses the query verbatim; no case or whitespace normalization.
func SearchKey(query string, page int) string {
	return fmt.Sprintf("%s%s:page:%d", SearchPrefix, query, page)
}

func RelatedKey(tmdbID, page int) string {
	return fmt.Sprintf("%s%d:page:%d", RelatedPrefix, tmdbID, page)
}

// PersonalizedKey holds a user's precomputed recommendations.
func PersonalizedKey(userID int) string {
	return fmt.Sprintf("%s%d", PersonalizedPrefix, userID)
}

// NoopStore caches nothing.
type NoopStore struct{}

func (NoopStore) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (NoopStore) Set(context.Context, string, []byte, time.Duration) {}
func (NoopStore) Delete(context.Context, string) {}
func (NoopStore) Exists(context.Context, string) bool { return false }
func (NoopStore) DeletePrefix(context.Context, string) int { return 0 }
