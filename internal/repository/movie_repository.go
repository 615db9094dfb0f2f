package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"movie-discovery/internal/models"
)

// MovieRepository handles database operations for catalog items.
type MovieRepository struct {
	db *sql.DB
}

// NewMovieRepository creates a new MovieRepository.
func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

const movieColumns = `m.id, m.tmdb_id, m.title, m.overview,
	COALESCE(TO_CHAR(m.release_date, 'YYYY-MM-DD'), ''),
	m.poster_path, m.backdrop_path, m.popularity, m.vote_average, m.vote_count,
	m.genre_ids, m.adult, m.original_language, m.created_at, m.updated_at`

func movieDest(m *models.Movie) []any {
	return []any{
		&m.ID, &m.TMDBId, &m.Title, &m.Overview, &m.ReleaseDate,
		&m.PosterPath, &m.BackdropPath, &m.Popularity, &m.VoteAverage, &m.VoteCount,
		pq.Array(&m.GenreIDs), &m.Adult, &m.OriginalLanguage, &m.CreatedAt, &m.UpdatedAt,
	}
}

// UpsertMovie inserts or fully replaces the movie keyed by TMDB id and
// reports whether a new row was created. The created flag comes from the
// same statement, so concurrent first sights of one id yield exactly one
// created=true.
func (r *MovieRepository) UpsertMovie(ctx context.Context, m *models.Movie) (bool, error) {
	genres := m.GenreIDs
	if genres == nil {
		genres = []int64{}
	}

	var created bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO movies (tmdb_id, title, overview, release_date, poster_path, backdrop_path,
			popularity, vote_average, vote_count, genre_ids, adult, original_language, updated_at)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (tmdb_id) DO UPDATE SET
			title = EXCLUDED.title,
			overview = EXCLUDED.overview,
			release_date = EXCLUDED.release_date,
			poster_path = EXCLUDED.poster_path,
			backdrop_path = EXCLUDED.backdrop_path,
			popularity = EXCLUDED.popularity,
			vote_average = EXCLUDED.vote_average,
			vote_count = EXCLUDED.vote_count,
			genre_ids = EXCLUDED.genre_ids,
			adult = EXCLUDED.adult,
			original_language = EXCLUDED.original_language,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`, m.TMDBId, m.Title, m.Overview, nullableDate(m.ReleaseDate),
		m.PosterPath, m.BackdropPath, m.Popularity, m.VoteAverage, m.VoteCount,
		pq.Array(genres), m.Adult, m.OriginalLanguage,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt, &created)
	if err != nil {
		return false, wrapError("upsert movie", err)
	}
	return created, nil
}

// GetMovieByTMDBId returns the stored movie with the given TMDB id.
func (r *MovieRepository) GetMovieByTMDBId(ctx context.Context, tmdbID int) (*models.Movie, error) {
	var m models.Movie
	err := r.db.QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies m WHERE m.tmdb_id = $1`, tmdbID,
	).Scan(movieDest(&m)...)
	if err != nil {
		return nil, wrapError("get movie", err)
	}
	return &m, nil
}

// CountMovies returns the number of stored movies.
func (r *MovieRepository) CountMovies(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n); err != nil {
		return 0, wrapError("count movies", err)
	}
	return n, nil
}

// CandidateFilter selects well-received movies outside an exclusion set.
type CandidateFilter struct {
	ExcludeTMDBIds []int
	MinVoteAverage float64
	MinVoteCount   int
	Limit          int
}

// ListCandidates returns movies passing the quality floor, most popular first.
func (r *MovieRepository) ListCandidates(ctx context.Context, f CandidateFilter) ([]models.Movie, error) {
	exclude := make([]int64, len(f.ExcludeTMDBIds))
	for i, id := range f.ExcludeTMDBIds {
		exclude[i] = int64(id)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+movieColumns+`
		FROM movies m
		WHERE m.vote_average >= $1
			AND m.vote_count >= $2
			AND m.tmdb_id <> ALL($3::int[])
		ORDER BY m.popularity DESC, m.vote_average DESC, m.tmdb_id ASC
		LIMIT $4
	`, f.MinVoteAverage, f.MinVoteCount, pq.Array(exclude), f.Limit)
	if err != nil {
		return nil, wrapError("list candidates", err)
	}
	defer rows.Close()

	movies := make([]models.Movie, 0, f.Limit)
	for rows.Next() {
		var m models.Movie
		if err := rows.Scan(movieDest(&m)...); err != nil {
			return nil, wrapError("scan candidate", err)
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// nullableDate stores unparseable or empty dates as NULL.
func nullableDate(dateStr string) any {
	if _, err := time.Parse("2006-01-02", dateStr); err != nil {
		return nil
	}
	return dateStr
}
