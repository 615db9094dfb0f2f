package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"movie-discovery/internal/models"
	"movie-discovery/internal/tmdb"
)

// MovieService serves catalog queries.
type MovieService interface {
	Trending(ctx context.Context, window string, page int) (*tmdb.MoviePage, error)
	Popular(ctx context.Context, page int) (*tmdb.MoviePage, error)
	Details(ctx context.Context, tmdbID int) (*tmdb.MovieDetail, error)
	Search(ctx context.Context, query string, page int) (*tmdb.MoviePage, error)
	Related(ctx context.Context, tmdbID, page int) (*tmdb.MoviePage, error)
	SyncPopular(ctx context.Context, pages int, clearCache bool) (*models.SyncReport, error)
}

// MovieHandler handles HTTP requests for movies.
type MovieHandler struct {
	svc MovieService
}

// NewMovieHandler creates a new MovieHandler.
func NewMovieHandler(svc MovieService) *MovieHandler {
	return &MovieHandler{svc: svc}
}

// Register mounts the movie and admin routes on r.
func (h *MovieHandler) Register(r fiber.Router) {
	r.Get("/movies/trending", h.Trending)
	r.Get("/movies/popular", h.Popular)
	r.Get("/movies/search", h.Search)
	r.Get("/movies/:id", h.GetMovie)
	r.Get("/movies/:id/recommendations", h.Related)
	r.Post("/admin/sync", h.Sync)
}

// Trending returns trending movies.
// @Summary Trending movies
// @Tags movies
// @Produce json
// @Param time_window query string false "Time window" Enums(day,week) default(week)
// @Param page query int false "Page number" default(1)
// @Success 200 {object} tmdb.MoviePage
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /movies/trending [get]
func (h *MovieHandler) Trending(c fiber.Ctx) error {
	pageNum, err := queryInt(c, "page", 1)
	if err != nil {
		return respondError(c, err, "")
	}

	page, err := h.svc.Trending(c.Context(), c.Query("time_window", "week"), pageNum)
	if err != nil {
		return respondError(c, err, "failed to retrieve trending movies")
	}
	return c.JSON(page)
}

// Popular returns popular movies.
// @Summary Popular movies
// @Tags movies
// @Produce json
// @Param page query int false "Page number" default(1)
// @Success 200 {object} tmdb.MoviePage
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /movies/popular [get]
func (h *MovieHandler) Popular(c fiber.Ctx) error {
	pageNum, err := queryInt(c, "page", 1)
	if err != nil {
		return respondError(c, err, "")
	}

	page, err := h.svc.Popular(c.Context(), pageNum)
	if err != nil {
		return respondError(c, err, "failed to retrieve popular movies")
	}
	return c.JSON(page)
}

// Search runs a free-text movie search.
// @Summary Search movies
// @Tags movies
// @Produce json
// @Param q query string true "Search query"
// @Param page query int false "Page number" default(1)
// @Success 200 {object} tmdb.MoviePage
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /movies/search [get]
func (h *MovieHandler) Search(c fiber.Ctx) error {
	pageNum, err := queryInt(c, "page", 1)
	if err != nil {
		return respondError(c, err, "")
	}

	page, err := h.svc.Search(c.Context(), c.Query("q"), pageNum)
	if err != nil {
		return respondError(c, err, "failed to search movies")
	}
	return c.JSON(page)
}

// GetMovie returns a single movie with credits, videos and reviews.
// @Summary Get movie details
// @Tags movies
// @Produce json
// @Param id path int true "TMDB movie ID"
// @Success 200 {object} tmdb.MovieDetail
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /movies/{id} [get]
func (h *MovieHandler) GetMovie(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err, "")
	}

	detail, err := h.svc.Details(c.Context(), id)
	if err != nil {
		return respondError(c, err, "failed to retrieve movie details")
	}
	return c.JSON(detail)
}

// Related returns movies TMDB recommends alongside a movie.
// @Summary Related movies
// @Tags movies
// @Produce json
// @Param id path int true "TMDB movie ID"
// @Param page query int false "Page number" default(1)
// @Success 200 {object} tmdb.MoviePage
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /movies/{id}/recommendations [get]
func (h *MovieHandler) Related(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err, "")
	}

	pageNum, err := queryInt(c, "page", 1)
	if err != nil {
		return respondError(c, err, "")
	}

	page, err := h.svc.Related(c.Context(), id, pageNum)
	if err != nil {
		return respondError(c, err, "failed to retrieve related movies")
	}
	return c.JSON(page)
}

// Sync refreshes popular movies from TMDB.
// @Summary Sync movies from TMDB
// @Tags admin
// @Produce json
// @Param pages query int false "Number of pages to sync" default(5)
// @Param clear_cache query bool false "Drop catalog cache entries first" default(false)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /admin/sync [post]
func (h *MovieHandler) Sync(c fiber.Ctx) error {
	pages, err := queryInt(c, "pages", 5)
	if err != nil {
		return respondError(c, err, "")
	}
	clearCache, err := queryBool(c, "clear_cache", false)
	if err != nil {
		return respondError(c, err, "")
	}

	report, err := h.svc.SyncPopular(c.Context(), pages, clearCache)
	if err != nil {
		return respondError(c, err, "sync failed")
	}

	return c.JSON(fiber.Map{
		"message": "sync completed",
		"report":  report,
	})
}
