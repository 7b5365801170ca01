package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tastyfruit-backend/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// Entity types that carry audit entries.
const (
	EntityProduct     = "product"
	EntityFruitType   = "fruit_type"
	EntityRecipe      = "recipe"
	EntityPublication = "publication"
	EntityUser        = "user"
)

var (
	ErrAlreadyUndone = errors.New("this action has already been undone")
	ErrNotUndoable   = errors.New("this action cannot be undone")
	ErrEntityGone    = errors.New("the record no longer exists")
)

func snapshot(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// WriteLog inserts one audit entry using db, which may be a transaction.
func WriteLog(ctx context.Context, db *gorm.DB, opts LogOptions) error {
	log := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  snapshot(opts.Before),
		AfterData:   snapshot(opts.After),
	}
	if err := db.WithContext(ctx).Create(&log).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// Recorder writes audit entries after the fact. A failed write is logged and
// never fails the request that triggered it.
type Recorder struct {
	db     *gorm.DB
	logger zerolog.Logger
	now    func() time.Time
}

func NewRecorder(db *gorm.DB, logger zerolog.Logger, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{db: db, logger: logger, now: now}
}

func (r *Recorder) Record(ctx context.Context, opts LogOptions) {
	if err := WriteLog(ctx, r.db, opts); err != nil {
		r.logger.Error().
			Err(err).
			Str("entity_type", opts.EntityType).
			Uint("entity_id", opts.EntityID).
			Str("action", string(opts.Action)).
			Msg("audit log write failed")
	}
}

// undoable maps entity types to a fresh model value. Users are excluded since
// their snapshots omit the password hash.
var undoable = map[string]func() any{
	EntityProduct:     func() any { return &models.Product{} },
	EntityFruitType:   func() any { return &models.FruitType{} },
	EntityRecipe:      func() any { return &models.Recipe{} },
	EntityPublication: func() any { return &models.Publication{} },
}

// Undo reverts the change recorded by log logID: a create is deleted, an
// update or publish toggle is restored from its before snapshot and a delete
// is recreated with its original id. The entry is marked undone and an
// "undo" entry is written, all in one transaction.
func (r *Recorder) Undo(ctx context.Context, logID, userID uint, userName string) (*models.AuditLog, error) {
	var undo models.AuditLog
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var log models.AuditLog
		if err := tx.First(&log, logID).Error; err != nil {
			return err
		}
		if log.IsUndone {
			return ErrAlreadyUndone
		}
		newModel, ok := undoable[log.EntityType]
		if !ok {
			return ErrNotUndoable
		}

		if err := revert(tx, &log, newModel); err != nil {
			return err
		}

		now := r.now()
		log.IsUndone = true
		log.UndoneBy = &userID
		log.UndoneAt = &now
		if err := tx.Save(&log).Error; err != nil {
			return fmt.Errorf("mark log %d undone: %w", log.ID, err)
		}

		undo = models.AuditLog{
			UserID:      userID,
			UserName:    userName,
			EntityType:  log.EntityType,
			EntityID:    log.EntityID,
			Action:      models.AuditActionUndo,
			Description: truncate("Undone: "+log.Description, 255),
			BeforeData:  log.AfterData,
			AfterData:   log.BeforeData,
		}
		if err := tx.Create(&undo).Error; err != nil {
			return fmt.Errorf("write undo log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &undo, nil
}

func revert(tx *gorm.DB, log *models.AuditLog, newModel func() any) error {
	switch log.Action {
	case models.AuditActionCreate:
		res := tx.Select(clause.Associations).Delete(fill(newModel(), log.EntityID))
		if res.Error != nil {
			return fmt.Errorf("delete %s %d: %w", log.EntityType, log.EntityID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrEntityGone
		}

	case models.AuditActionUpdate, models.AuditActionPublish, models.AuditActionUnpublish:
		rec := newModel()
		if err := json.Unmarshal([]byte(log.BeforeData), rec); err != nil {
			return fmt.Errorf("decode before snapshot: %w", err)
		}
		// sort_order is owned by the reorder route, which is not audited
		res := tx.Model(rec).
			Where("id = ?", log.EntityID).
			Select("*").
			Omit("id", "created_at", "sort_order", clause.Associations).
			Updates(rec)
		if res.Error != nil {
			return fmt.Errorf("restore %s %d: %w", log.EntityType, log.EntityID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrEntityGone
		}

	case models.AuditActionDelete:
		rec := newModel()
		if err := json.Unmarshal([]byte(log.BeforeData), rec); err != nil {
			return fmt.Errorf("decode before snapshot: %w", err)
		}
		if ft, ok := rec.(*models.FruitType); ok {
			var parents int64
			if err := tx.Model(&models.Product{}).Where("id = ?", ft.ProductID).Count(&parents).Error; err != nil {
				return fmt.Errorf("look up product %d: %w", ft.ProductID, err)
			}
			if parents == 0 {
				return ErrEntityGone
			}
		}
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("recreate %s %d: %w", log.EntityType, log.EntityID, err)
		}

	default:
		return ErrNotUndoable
	}
	return nil
}

// fill sets the primary key on a fresh model so Delete targets one row.
func fill(model any, id uint) any {
	switch m := model.(type) {
	case *models.Product:
		m.ID = id
	case *models.FruitType:
		m.ID = id
	case *models.Recipe:
		m.ID = id
	case *models.Publication:
		m.ID = id
	}
	return model
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
