package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"movie-discovery/internal/models"
	"movie-discovery/internal/tmdb"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrRatingOutOfRange):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrUpstreamUnavailable):
		if tmdb.IsNotFound(err) {
			return fiber.StatusNotFound
		}
		return fiber.StatusBadGateway
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// respondError writes err with its mapped status. Server faults are logged
// and hidden behind msg.
func respondError(c fiber.Ctx, err error, msg string) error {
	code := StatusFor(err)
	switch code {
	case fiber.StatusInternalServerError:
		slog.Error(msg, "path", c.Path(), "error", err)
		return c.Status(code).JSON(ErrorResponse{Error: msg})
	case fiber.StatusBadGateway:
		return c.Status(code).JSON(ErrorResponse{Error: "movie catalog is temporarily unavailable"})
	}
	if code == fiber.StatusNotFound && errors.Is(err, models.ErrUpstreamUnavailable) {
		return c.Status(code).JSON(ErrorResponse{Error: "movie not found"})
	}
	return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
}

// paramID parses a positive integer path parameter.
func paramID(c fiber.Ctx, name string) (int, error) {
	id, err := strconv.Atoi(c.Params(name))
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter. A present but
// malformed value is InvalidInput rather than the default.
func queryInt(c fiber.Ctx, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", models.ErrInvalidInput, name)
	}
	return v, nil
}

func queryBool(c fiber.Ctx, name string, def bool) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", models.ErrInvalidInput, name)
	}
	return v, nil
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck struct {
	Name string
	// Critical checks turn the response into a 503 when they fail.
	Critical bool
	Check    func(ctx context.Context) error
}

// Health returns a handler reporting service and dependency health.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func Health(checks ...HealthCheck) fiber.Handler {
	return func(c fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		status := "ok"
		code := fiber.StatusOK
		deps := fiber.Map{}
		for _, hc := range checks {
			if err := hc.Check(ctx); err != nil {
				deps[hc.Name] = "unavailable"
				if hc.Critical {
					status = "unavailable"
					code = fiber.StatusServiceUnavailable
				} else if status == "ok" {
					status = "degraded"
				}
				continue
			}
			deps[hc.Name] = "ok"
		}

		return c.Status(code).JSON(fiber.Map{
			"status":       status,
			"service":      "movie-discovery",
			"dependencies": deps,
		})
	}
}

// ErrorHandler is the last-resort Fiber error handler.
func ErrorHandler(c fiber.Ctx, err error) error {
	code := StatusFor(err)
	if code >= fiber.StatusInternalServerError {
		slog.Error("unhandled error", "error", err, "status", code)
	}
	return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
}
