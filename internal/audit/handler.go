package audit

import (
	"errors"
	"strconv"

	"tastyfruit-backend/internal/apperror"
	"tastyfruit-backend/internal/auth"
	"tastyfruit-backend/internal/httpx"
	"tastyfruit-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const maxListLimit = 500

// GET /api/audit-logs?entity_type=product&entity_id=1&user_id=2&limit=100
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := db.WithContext(c.UserContext()).Model(&models.AuditLog{})

		if entityType := c.Query("entity_type"); entityType != "" {
			dbq = dbq.Where("entity_type = ?", entityType)
		}
		for _, key := range []string{"entity_id", "user_id"} {
			raw := c.Query(key)
			if raw == "" {
				continue
			}
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || id == 0 {
				return apperror.Validation("invalid query parameter", apperror.FieldError{Field: key, Message: "must be a positive integer"})
			}
			dbq = dbq.Where(key+" = ?", id)
		}

		limit := c.QueryInt("limit", 100)
		if limit <= 0 || limit > maxListLimit {
			limit = maxListLimit
		}

		logs := []models.AuditLog{}
		if err := dbq.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
			return apperror.Internal("audit.list", err)
		}
		return c.JSON(logs)
	}
}

// POST /api/audit-logs/:id/undo
func UndoAuditLogHandler(rec *Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logID, err := httpx.ID(c, "id", "audit log not found")
		if err != nil {
			return err
		}
		actor, ok := auth.CurrentActor(c)
		if !ok {
			return apperror.Unauthorized("not authenticated")
		}

		undo, err := rec.Undo(c.UserContext(), logID, actor.ID, actor.Name)
		switch {
		case err == nil:
			return c.JSON(undo)
		case errors.Is(err, gorm.ErrRecordNotFound):
			return apperror.NotFound("audit log not found")
		case errors.Is(err, ErrAlreadyUndone), errors.Is(err, ErrEntityGone):
			return apperror.Conflict(err.Error())
		case errors.Is(err, ErrNotUndoable):
			return apperror.Validation(err.Error())
		default:
			return apperror.Internal("audit.undo", err)
		}
	}
}

// RecordRequest records opts on behalf of the authenticated user of c.
func (r *Recorder) RecordRequest(c *fiber.Ctx, opts LogOptions) {
	if actor, ok := auth.CurrentActor(c); ok {
		opts.UserID = actor.ID
		opts.UserName = actor.Name
	}
	r.Record(c.UserContext(), opts)
}
