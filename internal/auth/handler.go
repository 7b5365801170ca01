package auth

import (
	"errors"
	"strings"
	"time"

	"tastyfruit-backend/internal/apperror"
	"tastyfruit-backend/internal/config"
	"tastyfruit-backend/internal/httpx"
	"tastyfruit-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterAdminRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// RegisterAdminHandler bootstraps the first admin account. Once any admin
// exists the route is closed.
func RegisterAdminHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterAdminRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		body.Email = normalizeEmail(body.Email)

		var count int64
		if err := db.WithContext(c.UserContext()).Model(&models.User{}).
			Where("role = ?", models.RoleAdmin).
			Count(&count).Error; err != nil {
			return apperror.Internal("auth.register_admin", err)
		}
		if count > 0 {
			return apperror.Forbidden("an admin account already exists")
		}

		hash, err := HashPassword(body.Password)
		if err != nil {
			return apperror.Internal("auth.register_admin", err)
		}

		user := models.User{
			Name:         strings.TrimSpace(body.Name),
			Email:        body.Email,
			PasswordHash: hash,
			Role:         models.RoleAdmin,
		}
		if err := db.WithContext(c.UserContext()).Create(&user).Error; err != nil {
			return apperror.Internal("auth.register_admin", err)
		}

		return c.Status(fiber.StatusCreated).JSON(user)
	}
}

func LoginHandler(db *gorm.DB, cfg *config.Config, now func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		body.Email = normalizeEmail(body.Email)

		var user models.User
		if err := db.WithContext(c.UserContext()).Where("email = ?", body.Email).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.Unauthorized("invalid email or password")
			}
			return apperror.Internal("auth.login", err)
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return apperror.Unauthorized("invalid email or password")
		}

		token, claims, err := GenerateToken(cfg.JWTSecret, cfg.JWTTTL, &user, now())
		if err != nil {
			return apperror.Internal("auth.login", err)
		}

		return c.JSON(LoginResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: &user})
	}
}

func MeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals(CtxUserIDKey).(uint)
		if !ok {
			return apperror.Unauthorized("not authenticated")
		}

		var user models.User
		if err := db.WithContext(c.UserContext()).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// account deleted after the token was issued
				return apperror.Unauthorized("account no longer exists")
			}
			return apperror.Internal("auth.me", err)
		}
		return c.JSON(user)
	}
}

func LogoutHandler(revoker Revoker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(CtxClaimsKey).(*JWTCustomClaims)
		if !ok {
			return apperror.Unauthorized("not authenticated")
		}
		if err := revoker.Revoke(c.UserContext(), claims.ID, claims.ExpiresAt.Time); err != nil {
			return apperror.Internal("auth.logout", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func normalizeEmail(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}
