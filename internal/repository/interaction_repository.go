package repository

import (
	"context"
	"database/sql"
	"fmt"

	"movie-discovery/internal/models"
)

// InteractionRepository stores favorites, watchlist entries and ratings.
type InteractionRepository struct {
	db *sql.DB
}

// NewInteractionRepository creates a new InteractionRepository.
func NewInteractionRepository(db *sql.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

func interactionTable(kind models.InteractionKind) (string, error) {
	switch kind {
	case models.KindFavorite:
		return "user_favorites", nil
	case models.KindWatchlist:
		return "user_watchlist", nil
	default:
		return "", fmt.Errorf("%w: unknown interaction kind %q", models.ErrInvalidInput, kind)
	}
}

// AddInteraction records a favorite or watchlist entry. movieID is the internal id.
func (r *InteractionRepository) AddInteraction(ctx context.Context, kind models.InteractionKind, userID, movieID int) (*models.Interaction, error) {
	table, err := interactionTable(kind)
	if err != nil {
		return nil, err
	}

	inter := models.Interaction{Kind: kind}
	var m models.Movie
	err = r.db.QueryRowContext(ctx, fmt.Sprintf(`
		WITH ins AS (
			INSERT INTO %s (user_id, movie_id) VALUES ($1, $2)
			RETURNING id, user_id, movie_id, created_at
		)
		SELECT ins.id, ins.user_id, ins.created_at, %s
		FROM ins JOIN movies m ON m.id = ins.movie_id
	`, table, movieColumns), userID, movieID).Scan(
		append([]any{&inter.ID, &inter.UserID, &inter.CreatedAt}, movieDest(&m)...)...,
	)
	if err != nil {
		return nil, wrapError("add "+string(kind), err)
	}
	inter.Movie = m.Summary()
	return &inter, nil
}

// ListInteractions returns the user's entries of kind, newest first.
func (r *InteractionRepository) ListInteractions(ctx context.Context, kind models.InteractionKind, userID int) ([]models.Interaction, error) {
	table, err := interactionTable(kind)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT i.id, i.user_id, i.created_at, %s
		FROM %s i JOIN movies m ON m.id = i.movie_id
		WHERE i.user_id = $1
		ORDER BY i.created_at DESC, i.id DESC
	`, movieColumns, table), userID)
	if err != nil {
		return nil, wrapError("list "+string(kind), err)
	}
	defer rows.Close()

	result := make([]models.Interaction, 0)
	for rows.Next() {
		inter := models.Interaction{Kind: kind}
		var m models.Movie
		if err := rows.Scan(append([]any{&inter.ID, &inter.UserID, &inter.CreatedAt}, movieDest(&m)...)...); err != nil {
			return nil, wrapError("scan "+string(kind), err)
		}
		inter.Movie = m.Summary()
		result = append(result, inter)
	}
	return result, rows.Err()
}

// RemoveInteraction deletes the user's entry for the movie with the given TMDB id.
func (r *InteractionRepository) RemoveInteraction(ctx context.Context, kind models.InteractionKind, userID, tmdbID int) error {
	table, err := interactionTable(kind)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s i USING movies m
		WHERE i.movie_id = m.id AND i.user_id = $1 AND m.tmdb_id = $2
	`, table), userID, tmdbID)
	if err != nil {
		return wrapError("remove "+string(kind), err)
	}
	return requireAffected(res, "remove "+string(kind))
}

const ratingSelect = `SELECT r.id, r.user_id, r.rating, r.created_at, r.updated_at, ` + movieColumns + `
	FROM user_ratings r JOIN movies m ON m.id = r.movie_id`

func ratingDest(rt *models.Rating, m *models.Movie) []any {
	return append([]any{&rt.ID, &rt.UserID, &rt.Rating, &rt.CreatedAt, &rt.UpdatedAt}, movieDest(m)...)
}

// CreateRating stores a new rating. A second rating for the same movie is a conflict.
func (r *InteractionRepository) CreateRating(ctx context.Context, userID, movieID, score int) (*models.Rating, error) {
	var rt models.Rating
	var m models.Movie
	err := r.db.QueryRowContext(ctx, `
		WITH ins AS (
			INSERT INTO user_ratings (user_id, movie_id, rating) VALUES ($1, $2, $3)
			RETURNING id, user_id, movie_id, rating, created_at, updated_at
		)
		SELECT ins.id, ins.user_id, ins.rating, ins.created_at, ins.updated_at, `+movieColumns+`
		FROM ins JOIN movies m ON m.id = ins.movie_id
	`, userID, movieID, score).Scan(ratingDest(&rt, &m)...)
	if err != nil {
		return nil, wrapError("create rating", err)
	}
	rt.Movie = m.Summary()
	return &rt, nil
}

// UpdateRating changes the score in place and refreshes updated_at.
func (r *InteractionRepository) UpdateRating(ctx context.Context, userID, tmdbID, score int) (*models.Rating, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE user_ratings r SET rating = $3, updated_at = NOW()
		FROM movies m
		WHERE r.movie_id = m.id AND r.user_id = $1 AND m.tmdb_id = $2
	`, userID, tmdbID, score)
	if err != nil {
		return nil, wrapError("update rating", err)
	}
	if err := requireAffected(res, "update rating"); err != nil {
		return nil, err
	}
	return r.GetRating(ctx, userID, tmdbID)
}

// GetRating returns the user's rating for the movie with the given TMDB id.
func (r *InteractionRepository) GetRating(ctx context.Context, userID, tmdbID int) (*models.Rating, error) {
	var rt models.Rating
	var m models.Movie
	err := r.db.QueryRowContext(ctx, ratingSelect+` WHERE r.user_id = $1 AND m.tmdb_id = $2`,
		userID, tmdbID).Scan(ratingDest(&rt, &m)...)
	if err != nil {
		return nil, wrapError("get rating", err)
	}
	rt.Movie = m.Summary()
	return &rt, nil
}

// ListRatings returns the user's ratings, most recently changed first.
func (r *InteractionRepository) ListRatings(ctx context.Context, userID int) ([]models.Rating, error) {
	rows, err := r.db.QueryContext(ctx, ratingSelect+`
		WHERE r.user_id = $1
		ORDER BY r.updated_at DESC, r.id DESC`, userID)
	if err != nil {
		return nil, wrapError("list ratings", err)
	}
	defer rows.Close()

	result := make([]models.Rating, 0)
	for rows.Next() {
		var rt models.Rating
		var m models.Movie
		if err := rows.Scan(ratingDest(&rt, &m)...); err != nil {
			return nil, wrapError("scan rating", err)
		}
		rt.Movie = m.Summary()
		result = append(result, rt)
	}
	return result, rows.Err()
}

// DeleteRating removes the user's rating for the movie with the given TMDB id.
func (r *InteractionRepository) DeleteRating(ctx context.Context, userID, tmdbID int) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM user_ratings r USING movies m
		WHERE r.movie_id = m.id AND r.user_id = $1 AND m.tmdb_id = $2
	`, userID, tmdbID)
	if err != nil {
		return wrapError("delete rating", err)
	}
	return requireAffected(res, "delete rating")
}

// GetProfile loads the interaction history used for personalization: movies
// rated at least likedThreshold, favorites, and every rated or favorited TMDB id.
func (r *InteractionRepository) GetProfile(ctx context.Context, userID, likedThreshold int) (*models.InteractionProfile, error) {
	profile := &models.InteractionProfile{}

	var err error
	profile.HighlyRated, err = r.queryMovies(ctx, `
		SELECT `+movieColumns+`
		FROM user_ratings r JOIN movies m ON m.id = r.movie_id
		WHERE r.user_id = $1 AND r.rating >= $2
		ORDER BY r.updated_at DESC`, userID, likedThreshold)
	if err != nil {
		return nil, wrapError("load rated movies", err)
	}

	profile.Favorites, err = r.queryMovies(ctx, `
		SELECT `+movieColumns+`
		FROM user_favorites f JOIN movies m ON m.id = f.movie_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC`, userID)
	if err != nil {
		return nil, wrapError("load favorite movies", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT m.tmdb_id FROM user_ratings r JOIN movies m ON m.id = r.movie_id WHERE r.user_id = $1
		UNION
		SELECT m.tmdb_id FROM user_favorites f JOIN movies m ON m.id = f.movie_id WHERE f.user_id = $1
	`, userID)
	if err != nil {
		return nil, wrapError("load seen movies", err)
	}
	defer rows.Close()

	profile.Seen = make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, wrapError("scan seen movie", err)
		}
		profile.Seen = append(profile.Seen, id)
	}
	return profile, rows.Err()
}

// ActiveUserIDs returns every user with at least one rating or favorite, in id order.
func (r *InteractionRepository) ActiveUserIDs(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM user_ratings
		UNION
		SELECT user_id FROM user_favorites
		ORDER BY user_id
	`)
	if err != nil {
		return nil, wrapError("list active users", err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, wrapError("scan active user", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *InteractionRepository) queryMovies(ctx context.Context, query string, args ...any) ([]models.Movie, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movies := make([]models.Movie, 0)
	for rows.Next() {
		var m models.Movie
		if err := rows.Scan(movieDest(&m)...); err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapError(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}
