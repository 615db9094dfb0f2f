package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"movie-discovery/internal/models"
)

// AnalyticsService reports usage statistics.
type AnalyticsService interface {
	Report(ctx context.Context, limit int) (*models.AnalyticsReport, error)
}

// RecommendationPrecomputer refreshes cached recommendations for all active users.
type RecommendationPrecomputer interface {
	PrecomputeAll(ctx context.Context) (*models.PrecomputeReport, error)
}

// AdminHandler serves operator endpoints.
type AdminHandler struct {
	analytics AnalyticsService
	recs      RecommendationPrecomputer
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(analytics AnalyticsService, recs RecommendationPrecomputer) *AdminHandler {
	return &AdminHandler{analytics: analytics, recs: recs}
}

// Register mounts the admin routes on r.
func (h *AdminHandler) Register(r fiber.Router) {
	r.Get("/admin/analytics", h.Analytics)
	r.Post("/admin/recommendations/precompute", h.Precompute)
}

// Analytics returns usage totals, the most favorited and rated movies, and
// user engagement.
// @Summary Usage analytics
// @Tags admin
// @Produce json
// @Param limit query int false "Movies per ranking" default(10)
// @Success 200 {object} models.AnalyticsReport
// @Failure 400 {object} ErrorResponse
// @Router /admin/analytics [get]
func (h *AdminHandler) Analytics(c fiber.Ctx) error {
	limit, err := queryInt(c, "limit", 10)
	if err != nil {
		return respondError(c, err, "")
	}

	report, err := h.analytics.Report(c.Context(), limit)
	if err != nil {
		return respondError(c, err, "failed to load analytics")
	}
	return c.JSON(report)
}

// Precompute rebuilds cached recommendations for every active user.
// @Summary Precompute recommendations
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /admin/recommendations/precompute [post]
func (h *AdminHandler) Precompute(c fiber.Ctx) error {
	report, err := h.recs.PrecomputeAll(c.Context())
	if err != nil {
		return respondError(c, err, "recommendation precompute failed")
	}
	return c.JSON(fiber.Map{
		"message": "recommendations precomputed",
		"report":  report,
	})
}
