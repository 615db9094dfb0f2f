package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/goccy/go-json"

	"movie-discovery/internal/cache"
	"movie-discovery/internal/models"
	"movie-discovery/internal/repository"
)

const (
	// LikedRatingThreshold is the lowest score counted as a positive signal.
	LikedRatingThreshold = 7
	MinVoteAverage       = 6.0
	MinVoteCount         = 100

	DefaultRecommendationLimit = 20
	MaxRecommendationLimit     = 100
)

// UserStore looks up users.
type UserStore interface {
	GetUser(ctx context.Context, id int) (*models.User, error)
}

// ProfileStore loads a user's interaction history.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID, likedThreshold int) (*models.InteractionProfile, error)
	ActiveUserIDs(ctx context.Context) ([]int, error)
}

// CandidateStore lists recommendation candidates from the local catalog.
type CandidateStore interface {
	ListCandidates(ctx context.Context, f repository.CandidateFilter) ([]models.Movie, error)
}

// RecommendationService builds personalized recommendations from locally
// stored ratings and favorites. It never calls the upstream catalog.
//
// Results are computed at MaxRecommendationLimit and cached per user for
// cache.PersonalizedTTL. The ordering is deterministic, so smaller limits
// truncate the cached list.
type RecommendationService struct {
	users      UserStore
	profiles   ProfileStore
	candidates CandidateStore
	cache      cache.Store
	now        func() time.Time
}

// NewRecommendationService creates a new RecommendationService. A nil store
// disables caching.
func NewRecommendationService(users UserStore, profiles ProfileStore, candidates CandidateStore, store cache.Store) *RecommendationService {
	if store == nil {
		store = cache.NoopStore{}
	}
	return &RecommendationService{
		users:      users,
		profiles:   profiles,
		candidates: candidates,
		cache:      store,
		now:        time.Now,
	}
}

// Personalized returns up to limit well-received movies the user has neither
// rated nor favorited, most popular first. A user without history gets the
// most popular qualifying movies.
func (s *RecommendationService) Personalized(ctx context.Context, userID, limit int) (*models.RecommendationResponse, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be at least 1", models.ErrInvalidInput)
	}
	limit = min(limit, MaxRecommendationLimit)

	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	resp, ok := s.cached(ctx, userID)
	if !ok {
		var err error
		resp, err = s.build(ctx, userID)
		if err != nil {
			return nil, err
		}
		s.store(ctx, resp)
	}

	if len(resp.Recommendations) > limit {
		resp.Recommendations = resp.Recommendations[:limit]
	}
	return resp, nil
}

// PrecomputeAll refreshes the cached recommendations of every user with at
// least one rating or favorite. Per-user failures are counted and skipped.
func (s *RecommendationService) PrecomputeAll(ctx context.Context) (*models.PrecomputeReport, error) {
	ids, err := s.profiles.ActiveUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.PrecomputeReport{Users: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		resp, err := s.build(ctx, id)
		if err != nil {
			slog.Error("failed to precompute recommendations", "user_id", id, "error", err)
			report.Failed++
			continue
		}
		s.store(ctx, resp)
		report.Cached++
	}

	slog.Info("recommendation precompute completed",
		"users", report.Users, "cached", report.Cached, "failed", report.Failed)
	return report, nil
}

// Invalidate drops the user's cached recommendations.
func (s *RecommendationService) Invalidate(ctx context.Context, userID int) {
	s.cache.Delete(ctx, cache.PersonalizedKey(userID))
}

func (s *RecommendationService) build(ctx context.Context, userID int) (*models.RecommendationResponse, error) {
	profile, err := s.profiles.GetProfile(ctx, userID, LikedRatingThreshold)
	if err != nil {
		return nil, err
	}

	genres := preferredGenres(profile)

	movies, err := s.candidates.ListCandidates(ctx, repository.CandidateFilter{
		ExcludeTMDBIds: profile.Seen,
		MinVoteAverage: MinVoteAverage,
		MinVoteCount:   MinVoteCount,
		Limit:          MaxRecommendationLimit,
	})
	if err != nil {
		return nil, err
	}

	recs := make([]models.MovieSummary, 0, len(movies))
	for i := range movies {
		recs = append(recs, movies[i].Summary())
	}

	slog.Debug("generated personalized recommendations",
		"user_id", userID, "preferred_genres", len(genres), "excluded", len(profile.Seen), "count", len(recs))

	return &models.RecommendationResponse{
		UserID:          userID,
		PreferredGenres: genres,
		Recommendations: recs,
		GeneratedAt:     s.now().UTC().Format(time.RFC3339),
	}, nil
}

func (s *RecommendationService) cached(ctx context.Context, userID int) (*models.RecommendationResponse, bool) {
	key := cache.PersonalizedKey(userID)
	raw, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var resp models.RecommendationResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		slog.Warn("discarding undecodable cache entry", "key", key, "error", err)
		return nil, false
	}
	return &resp, true
}

func (s *RecommendationService) store(ctx context.Context, resp *models.RecommendationResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("failed to encode cache entry", "user_id", resp.UserID, "error", err)
		return
	}
	s.cache.Set(ctx, cache.PersonalizedKey(resp.UserID), data, cache.PersonalizedTTL)
}

// preferredGenres is the sorted union of genre ids over liked and favorite movies.
func preferredGenres(p *models.InteractionProfile) []int64 {
	seen := make(map[int64]struct{})
	genres := make([]int64, 0)
	add := func(movies []models.Movie) {
		for _, m := range movies {
			for _, g := range m.GenreIDs {
				if _, ok := seen[g]; ok {
					continue
				}
				seen[g] = struct{}{}
				genres = append(genres, g)
			}
		}
	}
	add(p.HighlyRated)
	add(p.Favorites)
	slices.Sort(genres)
	return genres
}
