package product

import (
	"context"
	"fmt"
	"strings"

	"tastyfruit-backend/internal/apperror"
	"tastyfruit-backend/internal/audit"
	"tastyfruit-backend/internal/httpx"
	"tastyfruit-backend/internal/models"
	"tastyfruit-backend/internal/ordering"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type FruitTypeRequest struct {
	Name        string `json:"name" validate:"required,max=150"`
	Slug        string `json:"slug" validate:"omitempty,max=170,slug"`
	Description string `json:"description"`
	Order       *int   `json:"order"`
}

// resolveSlug falls back to the slugified name and rejects slugs already used
// by another fruit type of the same product.
func (h *Handler) resolveSlug(ctx context.Context, productID, selfID uint, body *FruitTypeRequest) (string, error) {
	slug := body.Slug
	if slug == "" {
		slug = httpx.Slugify(body.Name)
	}
	if slug == "" {
		return "", apperror.Validation("invalid request body", apperror.FieldError{Field: "slug", Message: "cannot be derived from name"})
	}

	var count int64
	err := h.db.WithContext(ctx).Model(&models.FruitType{}).
		Where("product_id = ? AND slug = ? AND id <> ?", productID, slug, selfID).
		Count(&count).Error
	if err != nil {
		return "", apperror.Internal("fruit_type.slug", err)
	}
	if count > 0 {
		return "", apperror.Conflict(slugTaken(slug))
	}
	return slug, nil
}

func slugTaken(slug string) string {
	return fmt.Sprintf("slug %q is already used by this product", slug)
}

func (h *Handler) findFruitType(c *fiber.Ctx, id uint) (*models.FruitType, error) {
	var ft models.FruitType
	if err := h.db.WithContext(c.UserContext()).First(&ft, id).Error; err != nil {
		return nil, apperror.FromStorage("fruit_type.find", err, "fruit type not found")
	}
	return &ft, nil
}

// GET /api/products/:id/fruit-types
func (h *Handler) ListFruitTypesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id", "product not found")
		if err != nil {
			return err
		}
		if _, err := h.find(c, id, false); err != nil {
			return err
		}

		fts := []models.FruitType{}
		if err := h.db.WithContext(c.UserContext()).
			Where("product_id = ?", id).
			Order(ordering.SiblingOrder).
			Find(&fts).Error; err != nil {
			return apperror.Internal("fruit_type.list", err)
		}
		return c.JSON(fts)
	}
}

// POST /api/products/:id/fruit-types
func (h *Handler) CreateFruitTypeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body FruitTypeRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		productID, err := httpx.ID(c, "id", "product not found")
		if err != nil {
			return err
		}
		if _, err := h.find(c, productID, false); err != nil {
			return err
		}

		slug, err := h.resolveSlug(c.UserContext(), productID, 0, &body)
		if err != nil {
			return err
		}

		ft := models.FruitType{
			ProductID:   productID,
			Name:        strings.TrimSpace(body.Name),
			Slug:        slug,
			Description: body.Description,
		}
		if body.Order != nil {
			ft.Order = *body.Order
		} else {
			next, err := ordering.NextOrder(c.UserContext(), h.db, &models.FruitType{}, func(q *gorm.DB) *gorm.DB {
				return q.Where("product_id = ?", productID)
			})
			if err != nil {
				return apperror.Internal("fruit_type.create", err)
			}
			ft.Order = next
		}

		if err := h.db.WithContext(c.UserContext()).Create(&ft).Error; err != nil {
			return apperror.FromWrite("fruit_type.create", err, slugTaken(ft.Slug))
		}

		h.audit.RecordRequest(c, audit.LogOptions{
			EntityType:  audit.EntityFruitType,
			EntityID:    ft.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Fruit type %q created", ft.Name),
			After:       ft,
		})
		return c.Status(fiber.StatusCreated).JSON(ft)
	}
}

// GET /api/fruit-types/:id
func (h *Handler) GetFruitTypeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id", "fruit type not found")
		if err != nil {
			return err
		}
		ft, err := h.findFruitType(c, id)
		if err != nil {
			return err
		}
		return c.JSON(ft)
	}
}

// PUT /api/fruit-types/:id
func (h *Handler) UpdateFruitTypeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body FruitTypeRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		id, err := httpx.ID(c, "id", "fruit type not found")
		if err != nil {
			return err
		}
		ft, err := h.findFruitType(c, id)
		if err != nil {
			return err
		}
		before := *ft

		slug, err := h.resolveSlug(c.UserContext(), ft.ProductID, ft.ID, &body)
		if err != nil {
			return err
		}
		ft.Name = strings.TrimSpace(body.Name)
		ft.Slug = slug
		ft.Description = body.Description

		if err := h.db.WithContext(c.UserContext()).
			Model(ft).
			Select("name", "slug", "description").
			Updates(ft).Error; err != nil {
			return apperror.FromWrite("fruit_type.update", err, slugTaken(ft.Slug))
		}

		h.audit.RecordRequest(c, audit.LogOptions{
			EntityType:  audit.EntityFruitType,
			EntityID:    ft.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Fruit type %q updated", ft.Name),
			Before:      before,
			After:       ft,
		})
		return c.JSON(ft)
	}
}

// PATCH /api/fruit-types/:id/order
func (h *Handler) ReorderFruitTypeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ReorderRequest
		if err := c.BodyParser(&body); err != nil {
			return apperror.Validation("invalid request body")
		}
		if _, err := ordering.ParseOrder(body.NewOrder); err != nil {
			return err
		}
		id, err := httpx.ID(c, "id", "fruit type not found")
		if err != nil {
			return err
		}

		ft, err := h.ordering.SetFruitTypeOrder(c.UserContext(), id, body.NewOrder)
		if err != nil {
			return err
		}
		return c.JSON(ft)
	}
}

// DELETE /api/fruit-types/:id
func (h *Handler) DeleteFruitTypeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id", "fruit type not found")
		if err != nil {
			return err
		}
		ft, err := h.findFruitType(c, id)
		if err != nil {
			return err
		}

		if err := h.db.WithContext(c.UserContext()).Delete(ft).Error; err != nil {
			return apperror.Internal("fruit_type.delete", err)
		}

		h.audit.RecordRequest(c, audit.LogOptions{
			EntityType:  audit.EntityFruitType,
			EntityID:    ft.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Fruit type %q deleted", ft.Name),
			Before:      ft,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
