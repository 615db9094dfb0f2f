package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/goccy/go-json"

	"movie-discovery/internal/cache"
	"movie-discovery/internal/models"
)

const (
	DefaultAnalyticsLimit = 10
	MaxAnalyticsLimit     = 50
)

// AnalyticsStore aggregates interaction statistics.
type AnalyticsStore interface {
	Totals(ctx context.Context) (*models.APIStats, error)
	MostFavorited(ctx context.Context, limit int) ([]models.FavoriteCount, error)
	MostRated(ctx context.Context, limit int) ([]models.RatingCount, error)
	Engagement(ctx context.Context) (*models.EngagementStats, error)
}

// AnalyticsService reports usage statistics for operators.
type AnalyticsService struct {
	store AnalyticsStore
	cache cache.Store
	now   func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService. A nil cache disables
// caching of the totals.
func NewAnalyticsService(store AnalyticsStore, c cache.Store) *AnalyticsService {
	if c == nil {
		c = cache.NoopStore{}
	}
	return &AnalyticsService{store: store, cache: c, now: time.Now}
}

// Stats returns catalog and interaction totals, cached for cache.StatsTTL.
func (s *AnalyticsService) Stats(ctx context.Context) (*models.APIStats, error) {
	if raw, ok := s.cache.Get(ctx, cache.StatsKey); ok {
		var stats models.APIStats
		if err := json.Unmarshal(raw, &stats); err == nil {
			return &stats, nil
		}
		slog.Warn("discarding undecodable cache entry", "key", cache.StatsKey)
	}

	stats, err := s.store.Totals(ctx)
	if err != nil {
		return nil, err
	}
	stats.AverageRating = round2(stats.AverageRating)

	if data, err := json.Marshal(stats); err == nil {
		s.cache.Set(ctx, cache.StatsKey, data, cache.StatsTTL)
	}
	return stats, nil
}

// Report combines totals, the most favorited and most rated movies (up to
// limit each) and user engagement.
func (s *AnalyticsService) Report(ctx context.Context, limit int) (*models.AnalyticsReport, error) {
	if limit < 1 || limit > MaxAnalyticsLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", models.ErrInvalidInput, MaxAnalyticsLimit)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	favorited, err := s.store.MostFavorited(ctx, limit)
	if err != nil {
		return nil, err
	}
	rated, err := s.store.MostRated(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range rated {
		rated[i].AverageRating = round2(rated[i].AverageRating)
	}
	engagement, err := s.store.Engagement(ctx)
	if err != nil {
		return nil, err
	}
	engagement.EngagementRate = round2(float64(engagement.ActiveUsers) / float64(max(engagement.TotalUsers, 1)) * 100)

	return &models.AnalyticsReport{
		Stats:       *stats,
		Popular:     models.PopularityStats{MostFavorited: favorited, MostRated: rated},
		Engagement:  *engagement,
		GeneratedAt: s.now().UTC().Format(time.RFC3339),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
