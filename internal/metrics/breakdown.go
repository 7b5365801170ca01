package metrics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"tastyfruit-backend/internal/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type CategoryCount struct {
	Name       string `json:"name"`
	Count      int64  `json:"count"`
	Percentage int64  `json:"percentage"`
}

// CategoryBreakdown groups products by category. Rows are sorted by count
// descending, ties by name ascending. No products yields an empty slice.
func (e *Engine) CategoryBreakdown(ctx context.Context) ([]CategoryCount, error) {
	var rows []CategoryCount
	err := e.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("category AS name, COUNT(*) AS count").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("group products by category: %w", err)
	}

	var total int64
	for _, r := range rows {
		total += r.Count
	}

	out := make([]CategoryCount, 0, len(rows))
	for _, r := range rows {
		if total > 0 {
			r.Percentage = int64(math.Round(float64(r.Count) / float64(total) * 100))
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

type StatusCount struct {
	Published int64 `json:"published"`
	Draft     int64 `json:"draft"`
}

type PublishStatus struct {
	Products     StatusCount `json:"products"`
	Recipes      StatusCount `json:"recipes"`
	Publications StatusCount `json:"publications"`
}

// PublishStatus splits every collection by its live flag. The creation-date
// filter applies only when both bounds are given; one bound alone is ignored.
func (e *Engine) PublishStatus(ctx context.Context, from, to *time.Time) (*PublishStatus, error) {
	var scope func(*gorm.DB) *gorm.DB
	if from != nil && to != nil {
		scope = createdWithin(Range{From: *from, To: *to})
	}

	results := make([]StatusCount, len(collections))
	g, gctx := errgroup.WithContext(ctx)
	for i, col := range collections {
		sc := &results[i]
		for _, live := range []bool{true, false} {
			dst := &sc.Draft
			if live {
				dst = &sc.Published
			}
			g.Go(func() error {
				n, err := e.count(gctx, col.model(), func(db *gorm.DB) *gorm.DB {
					if scope != nil {
						db = scope(db)
					}
					return db.Where(col.flag+" = ?", live)
				})
				if err != nil {
					return fmt.Errorf("count %s %s=%t: %w", col.name, col.flag, live, err)
				}
				*dst = n
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &PublishStatus{
		Products:     results[0],
		Recipes:      results[1],
		Publications: results[2],
	}, nil
}
