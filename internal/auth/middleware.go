package auth

import (
	"strings"
	"time"

	"tastyfruit-backend/internal/apperror"
	"tastyfruit-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserRoleKey = "user_role"
	CtxClaimsKey   = "claims"
)

// JWTMiddleware authenticates "Authorization: Bearer <token>" and stores the
// claims in locals. Revoked token ids are rejected.
func JWTMiddleware(secret string, revoker Revoker, now func() time.Time) fiber.Handler {
	if now == nil {
		now = time.Now
	}
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperror.Unauthorized("missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return apperror.Unauthorized("authorization header must be 'Bearer <token>'")
		}

		claims, err := ParseToken(secret, strings.TrimSpace(parts[1]), now())
		if err != nil {
			return apperror.Unauthorized("invalid or expired token")
		}

		revoked, err := revoker.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			return apperror.Internal("auth.revocation_check", err)
		}
		if revoked {
			return apperror.Unauthorized("token has been revoked")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserRoleKey, claims.Role)
		c.Locals(CtxClaimsKey, claims)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return apperror.Forbidden("role information missing")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return apperror.Forbidden("you are not allowed to perform this action")
	}
}

// Actor is the authenticated user behind a request.
type Actor struct {
	ID   uint
	Name string
	Role models.UserRole
}

// CurrentActor reads the claims stored by JWTMiddleware.
func CurrentActor(c *fiber.Ctx) (Actor, bool) {
	claims, ok := c.Locals(CtxClaimsKey).(*JWTCustomClaims)
	if !ok {
		return Actor{}, false
	}
	return Actor{ID: claims.UserID, Name: claims.Name, Role: claims.Role}, true
}
