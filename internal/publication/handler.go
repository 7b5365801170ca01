package publication

import (
	"fmt"
	"strings"
	"time"

	"tastyfruit-backend/internal/apperror"
	"tastyfruit-backend/internal/audit"
	"tastyfruit-backend/internal/httpx"
	"tastyfruit-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Handler struct {
	db    *gorm.DB
	audit *audit.Recorder
	now   func() time.Time
}

func NewHandler(db *gorm.DB, rec *audit.Recorder, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{db: db, audit: rec, now: now}
}

type PublicationRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Content     string `json:"content"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,max=500"`
	IsPublished *bool  `json:"isPublished"`
}

type PublishRequest struct {
	IsPublished *bool `json:"isPublished" validate:"required"`
}

func (h *Handler) find(c *fiber.Ctx) (*models.Publication, error) {
	id, err := httpx.ID(c, "id", "publication not found")
	if err != nil {
		return nil, err
	}
	var p models.Publication
	if err := h.db.WithContext(c.UserContext()).First(&p, id).Error; err != nil {
		return nil, apperror.FromStorage("publication.find", err, "publication not found")
	}
	return &p, nil
}

// GET /api/publications?published=true
func (h *Handler) ListPublicationsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := h.db.WithContext(c.UserContext()).Model(&models.Publication{})

		switch c.Query("published") {
		case "":
		case "true":
			dbq = dbq.Where("is_published = ?", true)
		case "false":
			dbq = dbq.Where("is_published = ?", false)
		default:
			return apperror.Validation("invalid query parameter", apperror.FieldError{Field: "published", Message: "must be true or false"})
		}

		pubs := []models.Publication{}
		if err := dbq.Order("created_at DESC, id DESC").Find(&pubs).Error; err != nil {
			return apperror.Internal("publication.list", err)
		}
		return c.JSON(pubs)
	}
}

// GET /api/publications/:id
func (h *Handler) GetPublicationHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.find(c)
		if err != nil {
			return err
		}
		return c.JSON(p)
	}
}

// POST /api/publications
func (h *Handler) CreatePublicationHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PublicationRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}

		p := models.Publication{}
		h.apply(&p, &body)
		if err := h.db.WithContext(c.UserContext()).Create(&p).Error; err != nil {
			return apperror.Internal("publication.create", err)
		}

		h.audit.RecordRequest(c, audit.LogOptions{
			EntityType:  audit.EntityPublication,
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Publication %q created", p.Title),
			After:       p,
		})
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// PUT /api/publications/:id
func (h *Handler) UpdatePublicationHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PublicationRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		p, err := h.find(c)
		if err != nil {
			return err
		}
		before := *p

		h.apply(p, &body)
		if err := h.db.WithContext(c.UserContext()).Save(p).Error; err != nil {
			return apperror.Internal("publication.update", err)
		}

		h.audit.RecordRequest(c, audit.LogOptions{
			EntityType:  audit.EntityPublication,
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Publication %q updated", p.Title),
			Before:      before,
			After:       p,
		})
		return c.JSON(p)
	}
}

// PATCH /api/publications/:id/publish
func (h *Handler) PublishPublicationHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PublishRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		p, err := h.find(c)
		if err != nil {
			return err
		}
		before := *p

		p.SetPublished(*body.IsPublished, h.now().UTC())
		if err := h.db.WithContext(c.UserContext()).
			Model(p).
			Select("is_published", "published_at").
			Updates(p).Error; err != nil {
			return apperror.Internal("publication.publish", err)
		}

		action, verb := models.AuditActionPublish, "published"
		if !p.IsPublished {
			action, verb = models.AuditActionUnpublish, "unpublished"
		}
		h.audit.RecordRequest(c, audit.LogOptions{
			EntityType:  audit.EntityPublication,
			EntityID:    p.ID,
			Action:      action,
			Description: fmt.Sprintf("Publication %q %s", p.Title, verb),
			Before:      before,
			After:       p,
		})
		return c.JSON(p)
	}
}

// DELETE /api/publications/:id
func (h *Handler) DeletePublicationHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.find(c)
		if err != nil {
			return err
		}
		if err := h.db.WithContext(c.UserContext()).Delete(p).Error; err != nil {
			return apperror.Internal("publication.delete", err)
		}

		h.audit.RecordRequest(c, audit.LogOptions{
			EntityType:  audit.EntityPublication,
			EntityID:    p.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Publication %q deleted", p.Title),
			Before:      p,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func (h *Handler) apply(p *models.Publication, body *PublicationRequest) {
	p.Title = strings.TrimSpace(body.Title)
	p.Content = body.Content
	p.ImageURL = body.ImageURL
	if body.IsPublished != nil {
		p.SetPublished(*body.IsPublished, h.now().UTC())
	}
}
