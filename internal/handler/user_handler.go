package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"movie-discovery/internal/models"
)

// InteractionService manages users and their movie interactions.
type InteractionService interface {
	CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, id int) (*models.User, error)
	Add(ctx context.Context, kind models.InteractionKind, userID int, req models.MovieRefRequest) (*models.Interaction, error)
	List(ctx context.Context, kind models.InteractionKind, userID int) ([]models.Interaction, error)
	Remove(ctx context.Context, kind models.InteractionKind, userID, tmdbID int) error
	AddRating(ctx context.Context, userID int, req models.RatingRequest) (*models.Rating, error)
	UpdateRating(ctx context.Context, userID, tmdbID int, req models.UpdateRatingRequest) (*models.Rating, error)
	GetRating(ctx context.Context, userID, tmdbID int) (*models.Rating, error)
	ListRatings(ctx context.Context, userID int) ([]models.Rating, error)
	DeleteRating(ctx context.Context, userID, tmdbID int) error
}

// RecommendationService builds personalized recommendations.
type RecommendationService interface {
	Personalized(ctx context.Context, userID, limit int) (*models.RecommendationResponse, error)
}

// UserHandler handles HTTP requests for users, their interactions and
// personalized recommendations.
type UserHandler struct {
	svc  InteractionService
	recs RecommendationService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc InteractionService, recs RecommendationService) *UserHandler {
	return &UserHandler{svc: svc, recs: recs}
}

// Register mounts the user routes on r.
func (h *UserHandler) Register(r fiber.Router) {
	r.Post("/users", h.CreateUser)
	r.Get("/users/:id", h.GetUser)

	r.Get("/users/:id/favorites", h.list(models.KindFavorite))
	r.Post("/users/:id/favorites", h.add(models.KindFavorite))
	r.Delete("/users/:id/favorites/:movieId", h.remove(models.KindFavorite))

	r.Get("/users/:id/watchlist", h.list(models.KindWatchlist))
	r.Post("/users/:id/watchlist", h.add(models.KindWatchlist))
	r.Delete("/users/:id/watchlist/:movieId", h.remove(models.KindWatchlist))

	r.Get("/users/:id/ratings", h.ListRatings)
	r.Post("/users/:id/ratings", h.AddRating)
	r.Get("/users/:id/ratings/:movieId", h.GetRating)
	r.Patch("/users/:id/ratings/:movieId", h.UpdateRating)
	r.Delete("/users/:id/ratings/:movieId", h.DeleteRating)

	r.Get("/users/:id/recommendations", h.Recommendations)
}

// CreateUser creates a new user.
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Param body body models.CreateUserRequest true "User"
// @Success 201 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /users [post]
func (h *UserHandler) CreateUser(c fiber.Ctx) error {
	var req models.CreateUserRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	user, err := h.svc.CreateUser(c.Context(), req)
	if err != nil {
		return respondError(c, err, "failed to create user")
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// GetUser returns a user by ID.
// @Summary Get user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err, "")
	}

	user, err := h.svc.GetUser(c.Context(), id)
	if err != nil {
		return respondError(c, err, "failed to retrieve user")
	}
	return c.JSON(user)
}

// list returns the user's favorites or watchlist, newest first.
func (h *UserHandler) list(kind models.InteractionKind) fiber.Handler {
	return func(c fiber.Ctx) error {
		userID, err := paramID(c, "id")
		if err != nil {
			return respondError(c, err, "")
		}

		items, err := h.svc.List(c.Context(), kind, userID)
		if err != nil {
			return respondError(c, err, "failed to list "+string(kind)+" entries")
		}
		return c.JSON(fiber.Map{
			"user_id": userID,
			"count":   len(items),
			"results": items,
		})
	}
}

// add records a favorite or watchlist entry, fetching the movie on first sight.
func (h *UserHandler) add(kind models.InteractionKind) fiber.Handler {
	return func(c fiber.Ctx) error {
		userID, err := paramID(c, "id")
		if err != nil {
			return respondError(c, err, "")
		}

		var req models.MovieRefRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
		}

		inter, err := h.svc.Add(c.Context(), kind, userID, req)
		if err != nil {
			return respondError(c, err, "failed to add "+string(kind))
		}
		return c.Status(fiber.StatusCreated).JSON(inter)
	}
}

// remove deletes a favorite or watchlist entry.
func (h *UserHandler) remove(kind models.InteractionKind) fiber.Handler {
	return func(c fiber.Ctx) error {
		userID, err := paramID(c, "id")
		if err != nil {
			return respondError(c, err, "")
		}
		movieID, err := paramID(c, "movieId")
		if err != nil {
			return respondError(c, err, "")
		}

		if err := h.svc.Remove(c.Context(), kind, userID, movieID); err != nil {
			return respondError(c, err, "failed to remove "+string(kind))
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ListRatings returns the user's ratings.
// @Summary List ratings
// @Tags ratings
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /users/{id}/ratings [get]
func (h *UserHandler) ListRatings(c fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err, "")
	}

	ratings, err := h.svc.ListRatings(c.Context(), userID)
	if err != nil {
		return respondError(c, err, "failed to list ratings")
	}
	return c.JSON(fiber.Map{
		"user_id": userID,
		"count":   len(ratings),
		"results": ratings,
	})
}

// AddRating rates a movie.
// @Summary Rate a movie
// @Tags ratings
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param body body models.RatingRequest true "Rating"
// @Success 201 {object} models.Rating
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /users/{id}/ratings [post]
func (h *UserHandler) AddRating(c fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err, "")
	}

	var req models.RatingRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	rating, err := h.svc.AddRating(c.Context(), userID, req)
	if err != nil {
		return respondError(c, err, "failed to add rating")
	}
	return c.Status(fiber.StatusCreated).JSON(rating)
}

// GetRating returns the user's rating of a movie.
// @Summary Get rating
// @Tags ratings
// @Produce json
// @Param id path int true "User ID"
// @Param movieId path int true "TMDB movie ID"
// @Success 200 {object} models.Rating
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{id}/ratings/{movieId} [get]
func (h *UserHandler) GetRating(c fiber.Ctx) error {
	userID, movieID, err := userMovieParams(c)
	if err != nil {
		return respondError(c, err, "")
	}

	rating, err := h.svc.GetRating(c.Context(), userID, movieID)
	if err != nil {
		return respondError(c, err, "failed to retrieve rating")
	}
	return c.JSON(rating)
}

// UpdateRating changes the score of an existing rating.
// @Summary Update rating
// @Tags ratings
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param movieId path int true "TMDB movie ID"
// @Param body body models.UpdateRatingRequest true "New score"
// @Success 200 {object} models.Rating
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{id}/ratings/{movieId} [patch]
func (h *UserHandler) UpdateRating(c fiber.Ctx) error {
	userID, movieID, err := userMovieParams(c)
	if err != nil {
		return respondError(c, err, "")
	}

	var req models.UpdateRatingRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	rating, err := h.svc.UpdateRating(c.Context(), userID, movieID, req)
	if err != nil {
		return respondError(c, err, "failed to update rating")
	}
	return c.JSON(rating)
}

// DeleteRating removes the user's rating of a movie.
// @Summary Delete rating
// @Tags ratings
// @Param id path int true "User ID"
// @Param movieId path int true "TMDB movie ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /users/{id}/ratings/{movieId} [delete]
func (h *UserHandler) DeleteRating(c fiber.Ctx) error {
	userID, movieID, err := userMovieParams(c)
	if err != nil {
		return respondError(c, err, "")
	}

	if err := h.svc.DeleteRating(c.Context(), userID, movieID); err != nil {
		return respondError(c, err, "failed to delete rating")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Recommendations returns personalized recommendations for a user.
// @Summary Personalized recommendations
// @Tags recommendations
// @Produce json
// @Param id path int true "User ID"
// @Param limit query int false "Max results" default(20)
// @Success 200 {object} models.RecommendationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{id}/recommendations [get]
func (h *UserHandler) Recommendations(c fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err, "")
	}

	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return respondError(c, err, "")
	}

	resp, err := h.recs.Personalized(c.Context(), userID, limit)
	if err != nil {
		return respondError(c, err, "failed to generate recommendations")
	}
	return c.JSON(resp)
}

func userMovieParams(c fiber.Ctx) (int, int, error) {
	userID, err := paramID(c, "id")
	if err != nil {
		return 0, 0, err
	}
	movieID, err := paramID(c, "movieId")
	if err != nil {
		return 0, 0, err
	}
	return userID, movieID, nil
}
