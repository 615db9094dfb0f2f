package service

import (
	"context"
	"fmt"
	"log/slog"

	"movie-discovery/internal/models"
)

// MovieResolver returns the stored movie for a TMDB id, fetching it on first sight.
type MovieResolver interface {
	ResolveMovie(ctx context.Context, tmdbID int) (*models.Movie, error)
}

// UserRepository persists users.
type UserRepository interface {
	UserStore
	CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error)
}

// InteractionRepository persists favorites, watchlist entries and ratings.
type InteractionRepository interface {
	AddInteraction(ctx context.Context, kind models.InteractionKind, userID, movieID int) (*models.Interaction, error)
	ListInteractions(ctx context.Context, kind models.InteractionKind, userID int) ([]models.Interaction, error)
	RemoveInteraction(ctx context.Context, kind models.InteractionKind, userID, tmdbID int) error
	CreateRating(ctx context.Context, userID, movieID, score int) (*models.Rating, error)
	UpdateRating(ctx context.Context, userID, tmdbID, score int) (*models.Rating, error)
	GetRating(ctx context.Context, userID, tmdbID int) (*models.Rating, error)
	ListRatings(ctx context.Context, userID int) ([]models.Rating, error)
	DeleteRating(ctx context.Context, userID, tmdbID int) error
}

// RecommendationInvalidator drops derived recommendation state for a user.
type RecommendationInvalidator interface {
	Invalidate(ctx context.Context, userID int)
}

// InteractionService manages users and their favorites, watchlist and ratings.
// Changes to ratings and favorites invalidate the user's cached recommendations.
type InteractionService struct {
	users        UserRepository
	interactions InteractionRepository
	movies       MovieResolver
	recs         RecommendationInvalidator
}

// NewInteractionService creates a new InteractionService. recs may be nil.
func NewInteractionService(users UserRepository, interactions InteractionRepository, movies MovieResolver, recs RecommendationInvalidator) *InteractionService {
	return &InteractionService{users: users, interactions: interactions, movies: movies, recs: recs}
}

func (s *InteractionService) invalidate(ctx context.Context, userID int) {
	if s.recs != nil {
		s.recs.Invalidate(ctx, userID)
	}
}

func (s *InteractionService) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	user, err := s.users.CreateUser(ctx, req)
	if err != nil {
		return nil, err
	}
	slog.Info("user created", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (s *InteractionService) GetUser(ctx context.Context, id int) (*models.User, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive", models.ErrInvalidInput)
	}
	return s.users.GetUser(ctx, id)
}

// Add records a favorite or watchlist entry. Adding the same movie twice is a conflict.
func (s *InteractionService) Add(ctx context.Context, kind models.InteractionKind, userID int, req models.MovieRefRequest) (*models.Interaction, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	movie, err := s.prepare(ctx, userID, req.MovieID)
	if err != nil {
		return nil, err
	}

	inter, err := s.interactions.AddInteraction(ctx, kind, userID, movie.ID)
	if err != nil {
		return nil, err
	}
	if kind == models.KindFavorite {
		s.invalidate(ctx, userID)
	}
	slog.Info("interaction recorded", "kind", kind, "user_id", userID, "tmdb_id", movie.TMDBId)
	return inter, nil
}

func (s *InteractionService) List(ctx context.Context, kind models.InteractionKind, userID int) ([]models.Interaction, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.interactions.ListInteractions(ctx, kind, userID)
}

// Remove hard-deletes an entry. A missing entry is ErrNotFound.
func (s *InteractionService) Remove(ctx context.Context, kind models.InteractionKind, userID, tmdbID int) error {
	if err := validateID(tmdbID); err != nil {
		return err
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	if err := s.interactions.RemoveInteraction(ctx, kind, userID, tmdbID); err != nil {
		return err
	}
	if kind == models.KindFavorite {
		s.invalidate(ctx, userID)
	}
	return nil
}

// AddRating stores a new rating. Rating the same movie twice is a conflict.
func (s *InteractionService) AddRating(ctx context.Context, userID int, req models.RatingRequest) (*models.Rating, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	score, err := models.ParseRating(req.Rating)
	if err != nil {
		return nil, err
	}
	movie, err := s.prepare(ctx, userID, req.MovieID)
	if err != nil {
		return nil, err
	}

	rating, err := s.interactions.CreateRating(ctx, userID, movie.ID, score)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	slog.Info("rating recorded", "user_id", userID, "tmdb_id", movie.TMDBId, "rating", score)
	return rating, nil
}

// UpdateRating changes an existing rating's score in place.
func (s *InteractionService) UpdateRating(ctx context.Context, userID, tmdbID int, req models.UpdateRatingRequest) (*models.Rating, error) {
	if err := validateID(tmdbID); err != nil {
		return nil, err
	}
	score, err := models.ParseRating(req.Rating)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	rating, err := s.interactions.UpdateRating(ctx, userID, tmdbID, score)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return rating, nil
}

func (s *InteractionService) GetRating(ctx context.Context, userID, tmdbID int) (*models.Rating, error) {
	if err := validateID(tmdbID); err != nil {
		return nil, err
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.interactions.GetRating(ctx, userID, tmdbID)
}

func (s *InteractionService) ListRatings(ctx context.Context, userID int) ([]models.Rating, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.interactions.ListRatings(ctx, userID)
}

func (s *InteractionService) DeleteRating(ctx context.Context, userID, tmdbID int) error {
	if err := validateID(tmdbID); err != nil {
		return err
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	if err := s.interactions.DeleteRating(ctx, userID, tmdbID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// prepare checks the user exists, then resolves the movie.
func (s *InteractionService) prepare(ctx context.Context, userID, tmdbID int) (*models.Movie, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.movies.ResolveMovie(ctx, tmdbID)
}
