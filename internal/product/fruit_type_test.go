package product

import (
	"testing"

	"tastyfruit-backend/internal/apperror"
	"tastyfruit-backend/internal/database/dbtest"
	"tastyfruit-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two requests can both pass resolveSlug; the unique index must still surface
// as a conflict for the one that loses.
func TestDuplicateSlugInsertIsConflict(t *testing.T) {
	db := dbtest.Open(t)
	p := models.Product{Name: "Apel", Category: "Buah Segar"}
	require.NoError(t, db.Create(&p).Error)
	require.NoError(t, db.Create(&models.FruitType{ProductID: p.ID, Name: "Fuji", Slug: "fuji"}).Error)

	err := db.Create(&models.FruitType{ProductID: p.ID, Name: "Fuji 2", Slug: "fuji"}).Error
	require.Error(t, err)

	mapped := apperror.FromWrite("fruit_type.create", err, slugTaken("fuji"))
	assert.Equal(t, fiber.StatusConflict, mapped.Status)
	assert.Equal(t, `slug "fuji" is already used by this product`, mapped.Message)

	other := models.Product{Name: "Jeruk", Category: "Buah Segar"}
	require.NoError(t, db.Create(&other).Error)
	assert.NoError(t, db.Create(&models.FruitType{ProductID: other.ID, Name: "Fuji", Slug: "fuji"}).Error)
}
