package dashboard

import (
	"strconv"

	"tastyfruit-backend/internal/apperror"
	"tastyfruit-backend/internal/httpx"
	"tastyfruit-backend/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	metrics *metrics.Engine
}

func NewHandler(engine *metrics.Engine) *Handler {
	return &Handler{metrics: engine}
}

// GET /api/dashboard/metrics?from=2024-02-01&to=2024-02-07
func (h *Handler) MetricsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := httpx.QueryRange(c)
		if err != nil {
			return err
		}

		r := metrics.ResolveRange(from, to, h.metrics.Now())
		m, err := h.metrics.Compute(c.UserContext(), r)
		if err != nil {
			return apperror.Internal("dashboard.metrics", err)
		}
		return c.JSON(m)
	}
}

// GET /api/dashboard/categories
func (h *Handler) CategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cats, err := h.metrics.CategoryBreakdown(c.UserContext())
		if err != nil {
			return apperror.Internal("dashboard.categories", err)
		}
		return c.JSON(cats)
	}
}

// GET /api/dashboard/publish-status?from&to (both or neither)
func (h *Handler) PublishStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := httpx.QueryRange(c)
		if err != nil {
			return err
		}

		status, err := h.metrics.PublishStatus(c.UserContext(), from, to)
		if err != nil {
			return apperror.Internal("dashboard.publish_status", err)
		}
		return c.JSON(status)
	}
}

// GET /api/dashboard/content-chart?period=daily&count=7
func (h *Handler) ContentChartHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := metrics.Period(c.Query("period", string(metrics.PeriodDaily)))
		if !period.Valid() {
			return apperror.Validation("invalid query parameter", apperror.FieldError{
				Field:   "period",
				Message: "must be one of: daily, weekly, monthly",
			})
		}

		count := period.DefaultCount()
		if raw := c.Query("count"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > 366 {
				return apperror.Validation("invalid query parameter", apperror.FieldError{
					Field:   "count",
					Message: "must be an integer between 1 and 366",
				})
			}
			count = n
		}

		chart, err := h.metrics.ContentChart(c.UserContext(), period, count)
		if err != nil {
			return apperror.Internal("dashboard.content_chart", err)
		}
		return c.JSON(chart)
	}
}
