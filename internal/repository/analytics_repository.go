package repository

import (
	"context"
	"database/sql"

	"movie-discovery/internal/models"
)

// AnalyticsRepository aggregates catalog and interaction statistics.
type AnalyticsRepository struct {
	db *sql.DB
}

// NewAnalyticsRepository creates a new AnalyticsRepository.
func NewAnalyticsRepository(db *sql.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// Totals counts users, movies, favorites and ratings. The average rating is 0
// when nothing has been rated.
func (r *AnalyticsRepository) Totals(ctx context.Context) (*models.APIStats, error) {
	var s models.APIStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM movies),
			(SELECT COUNT(*) FROM user_favorites),
			(SELECT COUNT(*) FROM user_ratings),
			COALESCE((SELECT AVG(rating) FROM user_ratings), 0)::float8
	`).Scan(&s.TotalUsers, &s.TotalMovies, &s.TotalFavorites, &s.TotalRatings, &s.AverageRating)
	if err != nil {
		return nil, wrapError("load totals", err)
	}
	return &s, nil
}

// MostFavorited returns up to limit movies ordered by favorite count.
func (r *AnalyticsRepository) MostFavorited(ctx context.Context, limit int) ([]models.FavoriteCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.tmdb_id, m.title, COUNT(*) AS n
		FROM user_favorites f JOIN movies m ON m.id = f.movie_id
		GROUP BY m.id, m.tmdb_id, m.title
		ORDER BY n DESC, m.tmdb_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, wrapError("load most favorited", err)
	}
	defer rows.Close()

	out := make([]models.FavoriteCount, 0, limit)
	for rows.Next() {
		var fc models.FavoriteCount
		if err := rows.Scan(&fc.TMDBId, &fc.Title, &fc.FavoriteCount); err != nil {
			return nil, wrapError("scan most favorited", err)
		}
		out = append(out, fc)
	}
	return out, rows.Err()
}

// MostRated returns up to limit movies ordered by rating count, with their
// average score.
func (r *AnalyticsRepository) MostRated(ctx context.Context, limit int) ([]models.RatingCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.tmdb_id, m.title, COUNT(*) AS n, AVG(r.rating)::float8
		FROM user_ratings r JOIN movies m ON m.id = r.movie_id
		GROUP BY m.id, m.tmdb_id, m.title
		ORDER BY n DESC, m.tmdb_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, wrapError("load most rated", err)
	}
	defer rows.Close()

	out := make([]models.RatingCount, 0, limit)
	for rows.Next() {
		var rc models.RatingCount
		if err := rows.Scan(&rc.TMDBId, &rc.Title, &rc.RatingCount, &rc.AverageRating); err != nil {
			return nil, wrapError("scan most rated", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// Engagement counts users with favorites, with ratings, and with either.
// EngagementRate is left for the caller.
func (r *AnalyticsRepository) Engagement(ctx context.Context) (*models.EngagementStats, error) {
	var e models.EngagementStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(DISTINCT user_id) FROM user_favorites),
			(SELECT COUNT(DISTINCT user_id) FROM user_ratings),
			(SELECT COUNT(*) FROM (
				SELECT user_id FROM user_favorites
				UNION
				SELECT user_id FROM user_ratings
			) active)
	`).Scan(&e.TotalUsers, &e.UsersWithFavorites, &e.UsersWithRatings, &e.ActiveUsers)
	if err != nil {
		return nil, wrapError("load engagement", err)
	}
	return &e, nil
}
