package audit

import (
	"context"
	"testing"
	"time"

	"tastyfruit-backend/internal/database/dbtest"
	"tastyfruit-backend/internal/models"
	"tastyfruit-backend/internal/ordering"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var now = time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)

func newRecorder(db *gorm.DB) *Recorder {
	return NewRecorder(db, zerolog.Nop(), func() time.Time { return now })
}

func lastLog(t *testing.T, db *gorm.DB) models.AuditLog {
	t.Helper()
	var l models.AuditLog
	require.NoError(t, db.Order("id DESC").First(&l).Error)
	return l
}

func TestWriteLogSnapshots(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	p := models.Product{ID: 3, Name: "Apel", Category: "Buah Segar"}
	require.NoError(t, WriteLog(ctx, db, LogOptions{
		UserID: 1, UserName: "Sari", EntityType: EntityProduct, EntityID: 3,
		Action: models.AuditActionCreate, Description: "Product created", After: p,
	}))

	l := lastLog(t, db)
	assert.Equal(t, "null", l.BeforeData)
	assert.Contains(t, l.AfterData, `"name":"Apel"`)
	assert.False(t, l.IsUndone)
}

func TestUndoUpdateRestoresBeforeSnapshot(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	rec := newRecorder(db)

	r := models.Recipe{Title: "Es Buah", Ingredients: "semangka", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.Create(&r).Error)
	before := r

	r.Title = "Es Buah Segar"
	r.IsPublished = true
	require.NoError(t, db.Save(&r).Error)
	rec.Record(ctx, LogOptions{UserID: 1, EntityType: EntityRecipe, EntityID: r.ID, Action: models.AuditActionUpdate, Before: before, After: r})
	logID := lastLog(t, db).ID

	undo, err := rec.Undo(ctx, logID, 2, "Budi")
	require.NoError(t, err)
	assert.Equal(t, models.AuditActionUndo, undo.Action)
	assert.Equal(t, "Budi", undo.UserName)

	var got models.Recipe
	require.NoError(t, db.First(&got, r.ID).Error)
	assert.Equal(t, "Es Buah", got.Title)
	assert.False(t, got.IsPublished)

	var orig models.AuditLog
	require.NoError(t, db.First(&orig, logID).Error)
	assert.True(t, orig.IsUndone)
	require.NotNil(t, orig.UndoneBy)
	assert.Equal(t, uint(2), *orig.UndoneBy)

	_, err = rec.Undo(ctx, logID, 2, "Budi")
	assert.ErrorIs(t, err, ErrAlreadyUndone)
}

func TestUndoCreateDeletes(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	rec := newRecorder(db)

	p := models.Product{Name: "Jeruk", Category: "Buah Segar", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.Create(&p).Error)
	require.NoError(t, db.Create(&models.FruitType{ProductID: p.ID, Name: "Pontianak", Slug: "pontianak", CreatedAt: now}).Error)
	rec.Record(ctx, LogOptions{EntityType: EntityProduct, EntityID: p.ID, Action: models.AuditActionCreate, After: p})

	_, err := rec.Undo(ctx, lastLog(t, db).ID, 1, "Sari")
	require.NoError(t, err)

	var n int64
	require.NoError(t, db.Model(&models.Product{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.FruitType{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestUndoDeleteRecreatesWithSameID(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	rec := newRecorder(db)

	pub := models.Publication{Title: "Panen Raya", CreatedAt: now, UpdatedAt: now}
	pub.SetPublished(true, now)
	require.NoError(t, db.Create(&pub).Error)
	require.NoError(t, db.Delete(&pub).Error)
	rec.Record(ctx, LogOptions{EntityType: EntityPublication, EntityID: pub.ID, Action: models.AuditActionDelete, Before: pub})

	_, err := rec.Undo(ctx, lastLog(t, db).ID, 1, "Sari")
	require.NoError(t, err)

	var got models.Publication
	require.NoError(t, db.First(&got, pub.ID).Error)
	assert.Equal(t, "Panen Raya", got.Title)
	assert.True(t, got.IsPublished)
	require.NotNil(t, got.PublishedAt)
	assert.True(t, got.PublishedAt.Equal(now))
}

func TestUndoRejectsUsersAndUnknownLogs(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	rec := newRecorder(db)

	rec.Record(ctx, LogOptions{EntityType: EntityUser, EntityID: 1, Action: models.AuditActionDelete})
	_, err := rec.Undo(ctx, lastLog(t, db).ID, 1, "Sari")
	assert.ErrorIs(t, err, ErrNotUndoable)

	_, err = rec.Undo(ctx, 999, 1, "Sari")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUndoUpdateOfDeletedRecord(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	rec := newRecorder(db)

	before := models.Recipe{ID: 42, Title: "Rujak"}
	rec.Record(ctx, LogOptions{EntityType: EntityRecipe, EntityID: 42, Action: models.AuditActionUpdate, Before: before})

	logID := lastLog(t, db).ID
	_, err := rec.Undo(ctx, logID, 1, "Sari")
	assert.ErrorIs(t, err, ErrEntityGone)

	var l models.AuditLog
	require.NoError(t, db.First(&l, logID).Error)
	assert.False(t, l.IsUndone, "failed undo rolls back")
}

func TestUndoToggleKeepsLaterReorder(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	rec := newRecorder(db)

	p := models.Product{Name: "Apel", Category: "Buah Segar", IsActive: true, Order: 5, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.Create(&p).Error)
	before := p
	p.IsActive = false
	require.NoError(t, db.Model(&p).Update("is_active", false).Error)
	rec.Record(ctx, LogOptions{EntityType: EntityProduct, EntityID: p.ID, Action: models.AuditActionUnpublish, Before: before, After: p})
	logID := lastLog(t, db).ID

	_, err := ordering.NewEngine(db).SetProductOrder(ctx, p.ID, 0)
	require.NoError(t, err)

	_, err = rec.Undo(ctx, logID, 1, "Sari")
	require.NoError(t, err)

	var got models.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.True(t, got.IsActive)
	assert.Equal(t, 0, got.Order)
}

func TestUndoFruitTypeDeleteNeedsItsProduct(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	rec := newRecorder(db)

	p := models.Product{Name: "Apel", Category: "Buah Segar", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.Create(&p).Error)
	ft := models.FruitType{ProductID: p.ID, Name: "Fuji", Slug: "fuji", CreatedAt: now}
	require.NoError(t, db.Create(&ft).Error)
	require.NoError(t, db.Delete(&ft).Error)
	rec.Record(ctx, LogOptions{EntityType: EntityFruitType, EntityID: ft.ID, Action: models.AuditActionDelete, Before: ft})
	logID := lastLog(t, db).ID

	require.NoError(t, db.Delete(&p).Error)

	_, err := rec.Undo(ctx, logID, 1, "Sari")
	assert.ErrorIs(t, err, ErrEntityGone)

	var n int64
	require.NoError(t, db.Model(&models.FruitType{}).Count(&n).Error)
	assert.Zero(t, n)
}
