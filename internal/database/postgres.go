package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"movie-discovery/internal/config"
)

// NewPostgres connects to PostgreSQL and runs migrations.
func NewPostgres(ctx context.Context, cfg config.DBConfig) (*sql.DB, error) {
	db, err := Open(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	slog.Info("connected to PostgreSQL", "db", cfg.DBName)

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// Open opens and pings a lib/pq connection pool.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username VARCHAR(150) UNIQUE NOT NULL,
		email VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS movies (
		id SERIAL PRIMARY KEY,
		tmdb_id INTEGER UNIQUE NOT NULL,
		title VARCHAR(500) NOT NULL DEFAULT '',
		overview TEXT NOT NULL DEFAULT '',
		release_date DATE,
		poster_path VARCHAR(500) NOT NULL DEFAULT '',
		backdrop_path VARCHAR(500) NOT NULL DEFAULT '',
		popularity DOUBLE PRECISION NOT NULL DEFAULT 0,
		vote_average DOUBLE PRECISION NOT NULL DEFAULT 0,
		vote_count INTEGER NOT NULL DEFAULT 0,
		genre_ids INTEGER[] NOT NULL DEFAULT '{}',
		adult BOOLEAN NOT NULL DEFAULT FALSE,
		original_language VARCHAR(10) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_favorites (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		movie_id INTEGER NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, movie_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_watchlist (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		movie_id INTEGER NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, movie_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_ratings (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		movie_id INTEGER NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
		rating SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 10),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, movie_id)
	)`,
	// Indexes for common query patterns
	`CREATE INDEX IF NOT EXISTS idx_movies_popularity ON movies(popularity DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_movies_vote_average ON movies(vote_average DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_movies_release_date ON movies(release_date)`,
	`CREATE INDEX IF NOT EXISTS idx_user_favorites_user_id ON user_favorites(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_watchlist_user_id ON user_watchlist(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_ratings_user_id ON user_ratings(user_id)`,
}

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	slog.Info("database migrations completed")
	return nil
}
