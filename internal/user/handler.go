package user

import (
	"fmt"
	"strings"

	"tastyfruit-backend/internal/apperror"
	"tastyfruit-backend/internal/audit"
	"tastyfruit-backend/internal/auth"
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

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin editor"`
}

// UpdateUserRequest leaves the password unchanged when it is empty.
type UpdateUserRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin editor"`
}

func (h *Handler) find(c *fiber.Ctx) (*models.User, error) {
	id, err := httpx.ID(c, "id", "user not found")
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := h.db.WithContext(c.UserContext()).First(&u, id).Error; err != nil {
		return nil, apperror.FromStorage("user.find", err, "user not found")
	}
	return &u, nil
}

func (h *Handler) ensureEmailFree(c *fiber.Ctx, email string, selfID uint) error {
	var count int64
	if err := h.db.WithContext(c.UserContext()).Model(&models.User{}).
		Where("email = ? AND id <> ?", email, selfID).
		Count(&count).Error; err != nil {
		return apperror.Internal("user.email_check", err)
	}
	if count > 0 {
		return apperror.Conflict("email is already registered")
	}
	return nil
}

// ensureAnotherAdmin keeps at least one admin account in place.
func (h *Handler) ensureAnotherAdmin(c *fiber.Ctx, u *models.User) error {
	if u.Role != models.RoleAdmin {
		return nil
	}
	var count int64
	if err := h.db.WithContext(c.UserContext()).Model(&models.User{}).
		Where("role = ? AND id <> ?", models.RoleAdmin, u.ID).
		Count(&count).Error; err != nil {
		return apperror.Internal("user.admin_check", err)
	}
	if count == 0 {
		return apperror.Conflict("the last admin account cannot be removed or demoted")
	}
	return nil
}

// GET /api/users
func (h *Handler) ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		users := []models.User{}
		if err := h.db.WithContext(c.UserContext()).Order("name ASC, id ASC").Find(&users).Error; err != nil {
			return apperror.Internal("user.list", err)
		}
		return c.JSON(users)
	}
}

// GET /api/users/:id
func (h *Handler) GetUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := h.find(c)
		if err != nil {
			return err
		}
		return c.JSON(u)
	}
}

// POST /api/users
func (h *Handler) CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		email := strings.ToLower(strings.TrimSpace(body.Email))
		if err := h.ensureEmailFree(c, email, 0); err != nil {
			return err
		}

		hash, err := auth.HashPassword(body.Password)
		if err != nil {
			return apperror.Internal("user.create", err)
		}
		u := models.User{
			Name:         strings.TrimSpace(body.Name),
			Email:        email,
			PasswordHash: hash,
			Role:         models.UserRole(body.Role),
		}
		if err := h.db.WithContext(c.UserContext()).Create(&u).Error; err != nil {
			return apperror.FromWrite("user.create", err, "email is already registered")
		}

		h.audit.RecordRequest(c, audit.LogOptions{
			EntityType:  audit.EntityUser,
			EntityID:    u.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("User %s created with role %s", u.Email, u.Role),
			After:       u,
		})
		return c.Status(fiber.StatusCreated).JSON(u)
	}
}

// PUT /api/users/:id
func (h *Handler) UpdateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UpdateUserRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		u, err := h.find(c)
		if err != nil {
			return err
		}
		before := *u

		email := strings.ToLower(strings.TrimSpace(body.Email))
		if err := h.ensureEmailFree(c, email, u.ID); err != nil {
			return err
		}
		if models.UserRole(body.Role) != models.RoleAdmin {
			if err := h.ensureAnotherAdmin(c, u); err != nil {
				return err
			}
		}

		u.Name = strings.TrimSpace(body.Name)
		u.Email = email
		u.Role = models.UserRole(body.Role)
		if body.Password != "" {
			hash, err := auth.HashPassword(body.Password)
			if err != nil {
				return apperror.Internal("user.update", err)
			}
			u.PasswordHash = hash
		}
		if err := h.db.WithContext(c.UserContext()).Save(u).Error; err != nil {
			return apperror.FromWrite("user.update", err, "email is already registered")
		}

		h.audit.RecordRequest(c, audit.LogOptions{
			EntityType:  audit.EntityUser,
			EntityID:    u.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("User %s updated", u.Email),
			Before:      before,
			After:       u,
		})
		return c.JSON(u)
	}
}

// DELETE /api/users/:id
func (h *Handler) DeleteUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := h.find(c)
		if err != nil {
			return err
		}
		if actor, ok := auth.CurrentActor(c); ok && actor.ID == u.ID {
			return apperror.Conflict("you cannot delete your own account")
		}
		if err := h.ensureAnotherAdmin(c, u); err != nil {
			return err
		}

		if err := h.db.WithContext(c.UserContext()).Delete(u).Error; err != nil {
			return apperror.Internal("user.delete", err)
		}

		h.audit.RecordRequest(c, audit.LogOptions{
			EntityType:  audit.EntityUser,
			EntityID:    u.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("User %s deleted", u.Email),
			Before:      u,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
