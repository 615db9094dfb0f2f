package models

import (
	"fmt"
	"math"
	"time"
)

// User represents a registered user.
type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateUserRequest is the request body for creating a user.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email,max=255"`
}

// InteractionKind names a set-membership interaction.
type InteractionKind string

const (
	KindFavorite  InteractionKind = "favorite"
	KindWatchlist InteractionKind = "watchlist"
)

// Interaction is a favorite or watchlist entry of a user for a movie.
type Interaction struct {
	ID        int             `json:"id"`
	UserID    int             `json:"user_id"`
	Kind      InteractionKind `json:"kind"`
	Movie     MovieSummary    `json:"movie"`
	CreatedAt time.Time       `json:"created_at"`
}

// Rating is a user's score for a movie.
type Rating struct {
	ID        int          `json:"id"`
	UserID    int          `json:"user_id"`
	Movie     MovieSummary `json:"movie"`
	Rating    int          `json:"rating"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// MovieRefRequest identifies a movie by its TMDB id.
type MovieRefRequest struct {
	MovieID int `json:"movie_id" validate:"required,gt=0"`
}

// RatingRequest is the request body for rating a movie.
type RatingRequest struct {
	MovieID int     `json:"movie_id" validate:"required,gt=0"`
	Rating  float64 `json:"rating"`
}

// UpdateRatingRequest is the request body for changing an existing rating.
type UpdateRatingRequest struct {
	Rating float64 `json:"rating"`
}

const (
	MinRating = 1
	MaxRating = 10
)

// ParseRating accepts only whole numbers in [MinRating, MaxRating].
func ParseRating(v float64) (int, error) {
	if v != math.Trunc(v) || v < MinRating || v > MaxRating {
		return 0, fmt.Errorf("%w: got %v", ErrRatingOutOfRange, v)
	}
	return int(v), nil
}

// InteractionProfile is the slice of a user's history that drives personalization.
type InteractionProfile struct {
	// Movies rated at or above the "liked" threshold.
	HighlyRated []Movie
	Favorites   []Movie
	// TMDB ids of every rated or favorited movie.
	Seen []int
}

// RecommendationResponse is the personalized recommendation result.
type RecommendationResponse struct {
	UserID          int            `json:"user_id"`
	PreferredGenres []int64        `json:"preferred_genres"`
	Recommendations []MovieSummary `json:"recommendations"`
	GeneratedAt     string         `json:"generated_at"`
}

// PrecomputeReport summarizes a batch refresh of cached recommendations.
type PrecomputeReport struct {
	Users  int `json:"users"`
	Cached int `json:"cached"`
	Failed int `json:"failed"`
}
