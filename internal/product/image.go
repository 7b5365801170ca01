package product

import (
	"bytes"
	"errors"
	"fmt"

	"tastyfruit-backend/internal/apperror"
	"tastyfruit-backend/internal/audit"
	"tastyfruit-backend/internal/httpx"
	"tastyfruit-backend/internal/models"
	"tastyfruit-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// POST /api/products/:id/image (multipart, field "file")
//
// Replaced images stay in the bucket so an undo of the update still points
// at a live file.
func (h *Handler) UploadProductImageHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id", "product not found")
		if err != nil {
			return err
		}
		p, err := h.find(c, id, false)
		if err != nil {
			return err
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return apperror.Validation("invalid request body", apperror.FieldError{Field: "file", Message: "is required"})
		}
		f, err := fh.Open()
		if err != nil {
			return apperror.Internal("product.upload_image", err)
		}
		defer f.Close()

		data, ext, err := storage.SniffImage(f)
		switch {
		case errors.Is(err, storage.ErrUnsupportedType), errors.Is(err, storage.ErrTooLarge):
			return apperror.Validation("invalid image", apperror.FieldError{Field: "file", Message: err.Error()})
		case err != nil:
			return apperror.Internal("product.upload_image", err)
		}

		key := fmt.Sprintf("products/%d/%s%s", p.ID, uuid.NewString(), ext)
		url, err := h.bucket.Put(c.UserContext(), key, bytes.NewReader(data))
		if err != nil {
			return apperror.Internal("product.upload_image", err)
		}

		before := *p
		p.ImageURL = url
		if err := h.db.WithContext(c.UserContext()).Model(p).Update("image_url", url).Error; err != nil {
			if derr := h.bucket.Delete(c.UserContext(), key); derr != nil {
				h.logger.Warn().Err(derr).Str("key", key).Msg("orphaned image not removed")
			}
			return apperror.Internal("product.upload_image", err)
		}

		h.audit.RecordRequest(c, audit.LogOptions{
			EntityType:  audit.EntityProduct,
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Product %q image replaced", p.Name),
			Before:      before,
			After:       p,
		})
		return c.JSON(p)
	}
}
