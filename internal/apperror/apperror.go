// Package apperror defines the error taxonomy shared by every handler and the
// fiber error handler that renders it as {"error": ..., "details": [...]}.
package apperror

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Status  int
	Message string
	Details []FieldError
	Op      string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, msg string) *Error {
	return &Error{Status: status, Message: msg}
}

func Validation(msg string, details ...FieldError) *Error {
	return &Error{Status: fiber.StatusBadRequest, Message: msg, Details: details}
}

func NotFound(msg string) *Error {
	return &Error{Status: fiber.StatusNotFound, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Status: fiber.StatusUnauthorized, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Status: fiber.StatusForbidden, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Status: fiber.StatusConflict, Message: msg}
}

// Internal hides err from the caller; the error handler logs it with op.
func Internal(op string, err error) *Error {
	return &Error{Status: fiber.StatusInternalServerError, Message: "internal server error", Op: op, Err: err}
}

// FromStorage maps a data-access error: record-not-found becomes NotFound,
// anything else Internal.
func FromStorage(op string, err error, notFoundMsg string) *Error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(notFoundMsg)
	}
	return Internal(op, err)
}

// FromWrite maps a unique-constraint violation to a conflict. It relies on
// gorm's TranslateError so both drivers report gorm.ErrDuplicatedKey.
func FromWrite(op string, err error, conflictMsg string) *Error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return Conflict(conflictMsg)
	}
	return Internal(op, err)
}

func Is(err error, status int) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == status
}

type response struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}

// Handler is the fiber.Config ErrorHandler.
func Handler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *Error
		var fiberErr *fiber.Error

		switch {
		case errors.As(err, &appErr):
			if appErr.Status >= fiber.StatusInternalServerError {
				logger.Error().
					Err(appErr.Err).
					Str("op", appErr.Op).
					Str("request_id", requestID(c)).
					Str("method", c.Method()).
					Str("path", c.Path()).
					Msg("request failed")
			}
			return c.Status(appErr.Status).JSON(response{Error: appErr.Message, Details: appErr.Details})
		case errors.As(err, &fiberErr):
			return c.Status(fiberErr.Code).JSON(response{Error: fiberErr.Message})
		default:
			logger.Error().
				Err(err).
				Str("request_id", requestID(c)).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Msg("unexpected error")
			return c.Status(fiber.StatusInternalServerError).JSON(response{Error: "internal server error"})
		}
	}
}

func requestID(c *fiber.Ctx) string {
	if v, ok := c.Locals("request_id").(string); ok {
		return v
	}
	return "unknown"
}
