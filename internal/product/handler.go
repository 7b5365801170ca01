package product

import (
	"fmt"
	"strings"

	"tastyfruit-backend/internal/apperror"
	"tastyfruit-backend/internal/audit"
	"tastyfruit-backend/internal/httpx"
	"tastyfruit-backend/internal/models"
	"tastyfruit-backend/internal/ordering"
	"tastyfruit-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Handler struct {
	db       *gorm.DB
	ordering *ordering.Engine
	audit    *audit.Recorder
	bucket   storage.Bucket
	logger   zerolog.Logger
}

func NewHandler(db *gorm.DB, engine *ordering.Engine, rec *audit.Recorder, bucket storage.Bucket, logger zerolog.Logger) *Handler {
	return &Handler{db: db, ordering: engine, audit: rec, bucket: bucket, logger: logger}
}

type CreateProductRequest struct {
	Name        string `json:"name" validate:"required,max=150"`
	Description string `json:"description"`
	Category    string `json:"category" validate:"required,max=100"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,max=500"`
	IsActive    *bool  `json:"isActive"`
	Order       *int   `json:"order"`
}

// ReplaceProductRequest is the PUT body. Order is only changed through the
// reorder route.
type ReplaceProductRequest struct {
	Name        string `json:"name" validate:"required,max=150"`
	Description string `json:"description"`
	Category    string `json:"category" validate:"required,max=100"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,max=500"`
	IsActive    *bool  `json:"isActive" validate:"required"`
}

type PatchProductRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=150"`
	Description *string `json:"description"`
	Category    *string `json:"category" validate:"omitempty,min=1,max=100"`
	ImageURL    *string `json:"imageUrl" validate:"omitempty,max=500"`
	IsActive    *bool   `json:"isActive"`
}

type SetActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

type ReorderRequest struct {
	NewOrder any `json:"newOrder"`
}

func (h *Handler) find(c *fiber.Ctx, id uint, preload bool) (*models.Product, error) {
	q := h.db.WithContext(c.UserContext())
	if preload {
		q = q.Preload("FruitTypes", func(db *gorm.DB) *gorm.DB { return db.Order(ordering.SiblingOrder) })
	}
	var p models.Product
	if err := q.First(&p, id).Error; err != nil {
		return nil, apperror.FromStorage("product.find", err, "product not found")
	}
	return &p, nil
}

// GET /api/products?category=Buah%20Segar&active=true
func (h *Handler) ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := h.db.WithContext(c.UserContext()).Model(&models.Product{})

		if category := strings.TrimSpace(c.Query("category")); category != "" {
			dbq = dbq.Where("category = ?", category)
		}
		switch c.Query("active") {
		case "":
		case "true":
			dbq = dbq.Where("is_active = ?", true)
		case "false":
			dbq = dbq.Where("is_active = ?", false)
		default:
			return apperror.Validation("invalid query parameter", apperror.FieldError{Field: "active", Message: "must be true or false"})
		}
		if c.QueryBool("include_fruit_types") {
			dbq = dbq.Preload("FruitTypes", func(db *gorm.DB) *gorm.DB { return db.Order(ordering.SiblingOrder) })
		}

		products := []models.Product{}
		if err := dbq.Order(ordering.SiblingOrder).Find(&products).Error; err != nil {
			return apperror.Internal("product.list", err)
		}
		return c.JSON(products)
	}
}

// GET /api/products/:id
func (h *Handler) GetProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id", "product not found")
		if err != nil {
			return err
		}
		p, err := h.find(c, id, true)
		if err != nil {
			return err
		}
		return c.JSON(p)
	}
}

// POST /api/products
func (h *Handler) CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}

		p := models.Product{
			Name:        strings.TrimSpace(body.Name),
			Description: body.Description,
			Category:    strings.TrimSpace(body.Category),
			ImageURL:    body.ImageURL,
			IsActive:    body.IsActive == nil || *body.IsActive,
		}
		if body.Order != nil {
			p.Order = *body.Order
		} else {
			next, err := ordering.NextOrder(c.UserContext(), h.db, &models.Product{}, nil)
			if err != nil {
				return apperror.Internal("product.create", err)
			}
			p.Order = next
		}

		if err := h.db.WithContext(c.UserContext()).Create(&p).Error; err != nil {
			return apperror.Internal("product.create", err)
		}

		h.audit.RecordRequest(c, audit.LogOptions{
			EntityType:  audit.EntityProduct,
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Product %q created", p.Name),
			After:       p,
		})
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// PUT /api/products/:id
func (h *Handler) ReplaceProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ReplaceProductRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		id, err := httpx.ID(c, "id", "product not found")
		if err != nil {
			return err
		}
		p, err := h.find(c, id, false)
		if err != nil {
			return err
		}
		before := *p

		p.Name = strings.TrimSpace(body.Name)
		p.Description = body.Description
		p.Category = strings.TrimSpace(body.Category)
		p.ImageURL = body.ImageURL
		p.IsActive = *body.IsActive

		return h.saveUpdate(c, &before, p)
	}
}

// PATCH /api/products/:id
func (h *Handler) PatchProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PatchProductRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		id, err := httpx.ID(c, "id", "product not found")
		if err != nil {
			return err
		}
		p, err := h.find(c, id, false)
		if err != nil {
			return err
		}
		before := *p

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return apperror.Validation("invalid request body", apperror.FieldError{Field: "name", Message: "is required"})
			}
			p.Name = name
		}
		if body.Description != nil {
			p.Description = *body.Description
		}
		if body.Category != nil {
			category := strings.TrimSpace(*body.Category)
			if category == "" {
				return apperror.Validation("invalid request body", apperror.FieldError{Field: "category", Message: "is required"})
			}
			p.Category = category
		}
		if body.ImageURL != nil {
			p.ImageURL = *body.ImageURL
		}
		if body.IsActive != nil {
			p.IsActive = *body.IsActive
		}

		return h.saveUpdate(c, &before, p)
	}
}

// PATCH /api/products/:id/active
func (h *Handler) SetProductActiveHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SetActiveRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		id, err := httpx.ID(c, "id", "product not found")
		if err != nil {
			return err
		}
		p, err := h.find(c, id, false)
		if err != nil {
			return err
		}
		before := *p

		p.IsActive = *body.IsActive
		if err := h.db.WithContext(c.UserContext()).Model(p).Update("is_active", p.IsActive).Error; err != nil {
			return apperror.Internal("product.set_active", err)
		}

		action, verb := models.AuditActionPublish, "activated"
		if !p.IsActive {
			action, verb = models.AuditActionUnpublish, "deactivated"
		}
		h.audit.RecordRequest(c, audit.LogOptions{
			EntityType:  audit.EntityProduct,
			EntityID:    p.ID,
			Action:      action,
			Description: fmt.Sprintf("Product %q %s", p.Name, verb),
			Before:      before,
			After:       p,
		})
		return c.JSON(p)
	}
}

func (h *Handler) saveUpdate(c *fiber.Ctx, before, p *models.Product) error {
	if err := h.db.WithContext(c.UserContext()).Omit(clause.Associations).Save(p).Error; err != nil {
		return apperror.Internal("product.update", err)
	}
	h.audit.RecordRequest(c, audit.LogOptions{
		EntityType:  audit.EntityProduct,
		EntityID:    p.ID,
		Action:      models.AuditActionUpdate,
		Description: fmt.Sprintf("Product %q updated", p.Name),
		Before:      before,
		After:       p,
	})
	return c.JSON(p)
}

// PATCH /api/products/:id/order
func (h *Handler) ReorderProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ReorderRequest
		if err := c.BodyParser(&body); err != nil {
			return apperror.Validation("invalid request body")
		}
		if _, err := ordering.ParseOrder(body.NewOrder); err != nil {
			return err
		}
		id, err := httpx.ID(c, "id", "product not found")
		if err != nil {
			return err
		}

		p, err := h.ordering.SetProductOrder(c.UserContext(), id, body.NewOrder)
		if err != nil {
			return err
		}
		return c.JSON(p)
	}
}

// DELETE /api/products/:id
func (h *Handler) DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id", "product not found")
		if err != nil {
			return err
		}
		p, err := h.find(c, id, true)
		if err != nil {
			return err
		}

		// fruit types are removed with the product
		if err := h.db.WithContext(c.UserContext()).Select(clause.Associations).Delete(p).Error; err != nil {
			return apperror.Internal("product.delete", err)
		}

		h.audit.RecordRequest(c, audit.LogOptions{
			EntityType:  audit.EntityProduct,
			EntityID:    p.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Product %q deleted", p.Name),
			Before:      p,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
