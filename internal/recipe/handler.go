package recipe

import (
	"fmt"
	"strings"

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
}

func NewHandler(db *gorm.DB, rec *audit.Recorder) *Handler {
	return &Handler{db: db, audit: rec}
}

type RecipeRequest struct {
	Title        string `json:"title" validate:"required,max=200"`
	Description  string `json:"description"`
	Ingredients  string `json:"ingredients"`
	Instructions string `json:"instructions"`
	ImageURL     string `json:"imageUrl" validate:"omitempty,max=500"`
	IsPublished  *bool  `json:"isPublished"`
}

type PublishRequest struct {
	IsPublished *bool `json:"isPublished" validate:"required"`
}

func (h *Handler) find(c *fiber.Ctx) (*models.Recipe, error) {
	id, err := httpx.ID(c, "id", "recipe not found")
	if err != nil {
		return nil, err
	}
	var r models.Recipe
	if err := h.db.WithContext(c.UserContext()).First(&r, id).Error; err != nil {
		return nil, apperror.FromStorage("recipe.find", err, "recipe not found")
	}
	return &r, nil
}

// GET /api/recipes?published=true&q=es
func (h *Handler) ListRecipesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := h.db.WithContext(c.UserContext()).Model(&models.Recipe{})

		switch c.Query("published") {
		case "":
		case "true":
			dbq = dbq.Where("is_published = ?", true)
		case "false":
			dbq = dbq.Where("is_published = ?", false)
		default:
			return apperror.Validation("invalid query parameter", apperror.FieldError{Field: "published", Message: "must be true or false"})
		}
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			dbq = dbq.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(q)+"%")
		}

		recipes := []models.Recipe{}
		if err := dbq.Order("created_at DESC, id DESC").Find(&recipes).Error; err != nil {
			return apperror.Internal("recipe.list", err)
		}
		return c.JSON(recipes)
	}
}

// GET /api/recipes/:id
func (h *Handler) GetRecipeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := h.find(c)
		if err != nil {
			return err
		}
		return c.JSON(r)
	}
}

// POST /api/recipes
func (h *Handler) CreateRecipeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RecipeRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}

		r := models.Recipe{}
		apply(&r, &body)
		if err := h.db.WithContext(c.UserContext()).Create(&r).Error; err != nil {
			return apperror.Internal("recipe.create", err)
		}

		h.audit.RecordRequest(c, audit.LogOptions{
			EntityType:  audit.EntityRecipe,
			EntityID:    r.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Recipe %q created", r.Title),
			After:       r,
		})
		return c.Status(fiber.StatusCreated).JSON(r)
	}
}

// PUT /api/recipes/:id
func (h *Handler) UpdateRecipeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RecipeRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		r, err := h.find(c)
		if err != nil {
			return err
		}
		before := *r

		apply(r, &body)
		if err := h.db.WithContext(c.UserContext()).Save(r).Error; err != nil {
			return apperror.Internal("recipe.update", err)
		}

		h.audit.RecordRequest(c, audit.LogOptions{
			EntityType:  audit.EntityRecipe,
			EntityID:    r.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Recipe %q updated", r.Title),
			Before:      before,
			After:       r,
		})
		return c.JSON(r)
	}
}

// PATCH /api/recipes/:id/publish
func (h *Handler) PublishRecipeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PublishRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		r, err := h.find(c)
		if err != nil {
			return err
		}
		before := *r

		r.IsPublished = *body.IsPublished
		if err := h.db.WithContext(c.UserContext()).Model(r).Update("is_published", r.IsPublished).Error; err != nil {
			return apperror.Internal("recipe.publish", err)
		}

		action, verb := models.AuditActionPublish, "published"
		if !r.IsPublished {
			action, verb = models.AuditActionUnpublish, "unpublished"
		}
		h.audit.RecordRequest(c, audit.LogOptions{
			EntityType:  audit.EntityRecipe,
			EntityID:    r.ID,
			Action:      action,
			Description: fmt.Sprintf("Recipe %q %s", r.Title, verb),
			Before:      before,
			After:       r,
		})
		return c.JSON(r)
	}
}

// DELETE /api/recipes/:id
func (h *Handler) DeleteRecipeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := h.find(c)
		if err != nil {
			return err
		}
		if err := h.db.WithContext(c.UserContext()).Delete(r).Error; err != nil {
			return apperror.Internal("recipe.delete", err)
		}

		h.audit.RecordRequest(c, audit.LogOptions{
			EntityType:  audit.EntityRecipe,
			EntityID:    r.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Recipe %q deleted", r.Title),
			Before:      r,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func apply(r *models.Recipe, body *RecipeRequest) {
	r.Title = strings.TrimSpace(body.Title)
	r.Description = body.Description
	r.Ingredients = body.Ingredients
	r.Instructions = body.Instructions
	r.ImageURL = body.ImageURL
	if body.IsPublished != nil {
		r.IsPublished = *body.IsPublished
	}
}
