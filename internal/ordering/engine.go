// Package ordering persists drag-and-drop positions for products and fruit
// types.
//
// Each record carries an integer order key. A reorder writes the key of one
// record and nothing else: siblings are never renumbered, so gaps and ties are
// allowed and readers sort by (order, created_at). Two concurrent reorders in
// the same sibling group are last-write-wins per record.
package ordering

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"tastyfruit-backend/internal/apperror"
	"tastyfruit-backend/internal/models"

	"gorm.io/gorm"
)

// maxOrder keeps order keys inside the range a float64 JSON number represents exactly.
const maxOrder = 1 << 53

// SiblingOrder is the ORDER BY clause readers must use for sibling lists.
const SiblingOrder = "sort_order ASC, created_at ASC, id ASC"

type Engine struct {
	db *gorm.DB
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// ParseOrder validates a decoded JSON "newOrder" value. Only JSON numbers with
// an integral value are accepted; numeric-looking strings are rejected.
func ParseOrder(raw any) (int, error) {
	var f float64
	switch v := raw.(type) {
	case nil:
		return 0, invalidOrder("is required")
	case float64:
		f = v
	case int:
		return v, nil
	case int64:
		f = float64(v)
	default:
		return 0, invalidOrder("must be a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, invalidOrder("must be an integer")
	}
	if math.Abs(f) > maxOrder {
		return 0, invalidOrder("is out of range")
	}
	return int(f), nil
}

func invalidOrder(msg string) error {
	return apperror.Validation("invalid order value", apperror.FieldError{Field: "newOrder", Message: msg})
}

// SetProductOrder stores newOrder on one product.
func (e *Engine) SetProductOrder(ctx context.Context, id uint, raw any) (*models.Product, error) {
	order, err := ParseOrder(raw)
	if err != nil {
		return nil, err
	}
	return setOrder[models.Product](ctx, e.db, "ordering.product", id, order, "product not found")
}

// SetFruitTypeOrder stores newOrder on one fruit type. The sibling group is
// implied by the row's own product_id, so no other product's list is touched.
func (e *Engine) SetFruitTypeOrder(ctx context.Context, id uint, raw any) (*models.FruitType, error) {
	order, err := ParseOrder(raw)
	if err != nil {
		return nil, err
	}
	return setOrder[models.FruitType](ctx, e.db, "ordering.fruit_type", id, order, "fruit type not found")
}

func setOrder[T any](ctx context.Context, db *gorm.DB, op string, id uint, order int, notFoundMsg string) (*T, error) {
	res := db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Update("sort_order", order)
	if res.Error != nil {
		return nil, apperror.Internal(op, fmt.Errorf("update order of %d: %w", id, res.Error))
	}
	if res.RowsAffected == 0 {
		return nil, apperror.NotFound(notFoundMsg)
	}

	var rec T
	if err := db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// deleted between the write and the read-back
			return nil, apperror.NotFound(notFoundMsg)
		}
		return nil, apperror.Internal(op, fmt.Errorf("read back %d: %w", id, err))
	}
	return &rec, nil
}

// NextOrder returns the key that places a new record after its current
// siblings. scope narrows the sibling group (e.g. product_id = ?).
func NextOrder(ctx context.Context, db *gorm.DB, model any, scope func(*gorm.DB) *gorm.DB) (int, error) {
	var last sql.NullInt64
	q := db.WithContext(ctx).Model(model)
	if scope != nil {
		q = scope(q)
	}
	if err := q.Select("MAX(sort_order)").Row().Scan(&last); err != nil {
		return 0, err
	}
	if !last.Valid {
		return 0, nil
	}
	return int(last.Int64) + 1, nil
}
