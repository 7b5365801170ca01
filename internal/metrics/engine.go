// Package metrics computes the dashboard counters: content totals with
// period-over-period trends, the product category breakdown and the
// published/draft split. All reads are counts issued concurrently and joined
// before any arithmetic; one failing query fails the whole computation.
package metrics

import (
	"context"
	"fmt"
	"time"

	"tastyfruit-backend/internal/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	week = 7 * 24 * time.Hour

	LabelPreviousPeriod = "vs periode sebelumnya"
	LabelLastWeek       = "vs minggu lalu"
)

// collection is one content table and the boolean column that marks its rows live.
type collection struct {
	name  string
	model func() any
	flag  string
}

var collections = []collection{
	{name: "products", model: func() any { return &models.Product{} }, flag: "is_active"},
	{name: "recipes", model: func() any { return &models.Recipe{} }, flag: "is_published"},
	{name: "publications", model: func() any { return &models.Publication{} }, flag: "is_published"},
}

type Engine struct {
	db  *gorm.DB
	now func() time.Time
}

// NewEngine builds an engine reading the wall clock through now; nil means time.Now.
func NewEngine(db *gorm.DB, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{db: db, now: now}
}

func (e *Engine) Now() time.Time { return e.now() }

type Range struct {
	From time.Time
	To   time.Time
}

// DefaultRange is the trailing seven days ending at now.
func DefaultRange(now time.Time) Range {
	return Range{From: now.Add(-week), To: now}
}

// ResolveRange fills a missing bound: to defaults to now, from to seven days
// before to. An inverted range is passed through untouched.
func ResolveRange(from, to *time.Time, now time.Time) Range {
	r := DefaultRange(now)
	if to != nil {
		r.To = *to
		r.From = r.To.Add(-week)
	}
	if from != nil {
		r.From = *from
	}
	return r
}

// Previous is the window of equal length that ends where r starts. A window
// closing on the last nanosecond of a day spans whole days, so the previous
// one starts at midnight too.
func (r Range) Previous() Range {
	span := r.To.Sub(r.From)
	if endOfDay(r.To) {
		span += time.Nanosecond
	}
	return Range{From: r.From.Add(-span), To: r.From}
}

func endOfDay(t time.Time) bool {
	next := t.Add(time.Nanosecond)
	return next.Hour() == 0 && next.Minute() == 0 && next.Second() == 0 && next.Nanosecond() == 0
}

type collectionCounts struct {
	Current        int64
	Previous       int64
	ActiveCurrent  int64
	ActivePrevious int64
	ThisWeek       int64
	LastWeek       int64
}

type Trends struct {
	TotalContent    TrendValue `json:"totalContent"`
	ActiveContent   TrendValue `json:"activeContent"`
	ContentThisWeek TrendValue `json:"contentThisWeek"`
}

type Breakdown struct {
	Products     int64 `json:"products"`
	Recipes      int64 `json:"recipes"`
	Publications int64 `json:"publications"`
}

type Metrics struct {
	TotalContent    int64     `json:"totalContent"`
	ActiveContent   int64     `json:"activeContent"`
	ContentThisWeek int64     `json:"contentThisWeek"`
	Trends          Trends    `json:"trends"`
	Breakdown       Breakdown `json:"breakdown"`
}

// Compute aggregates the three collections over r.
//
// activeCurrent is a point-in-time count of live rows. activePrevious counts
// rows that are live now and were created by the end of the previous window;
// rows unpublished since then are not seen, so it can undercount or overcount
// the true historical figure. There is no state history to do better.
func (e *Engine) Compute(ctx context.Context, r Range) (*Metrics, error) {
	now := e.now()
	prev := r.Previous()
	thisWeek := Range{From: now.Add(-week), To: now}
	lastWeek := Range{From: now.Add(-2 * week), To: now.Add(-week)}

	counts := make([]collectionCounts, len(collections))
	g, gctx := errgroup.WithContext(ctx)

	for i, col := range collections {
		c := &counts[i]
		queries := []struct {
			name  string
			dst   *int64
			scope func(*gorm.DB) *gorm.DB
		}{
			{"current", &c.Current, createdWithin(r)},
			{"previous", &c.Previous, createdWithin(prev)},
			{"active_current", &c.ActiveCurrent, flagged(col.flag)},
			{"active_previous", &c.ActivePrevious, both(flagged(col.flag), createdUpTo(prev.To))},
			{"this_week", &c.ThisWeek, createdWithin(thisWeek)},
			{"last_week", &c.LastWeek, createdWithin(lastWeek)},
		}
		for _, q := range queries {
			g.Go(func() error {
				n, err := e.count(gctx, col.model(), q.scope)
				if err != nil {
					return fmt.Errorf("count %s %s: %w", col.name, q.name, err)
				}
				*q.dst = n
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var sum collectionCounts
	for _, c := range counts {
		sum.Current += c.Current
		sum.Previous += c.Previous
		sum.ActiveCurrent += c.ActiveCurrent
		sum.ActivePrevious += c.ActivePrevious
		sum.ThisWeek += c.ThisWeek
		sum.LastWeek += c.LastWeek
	}

	return &Metrics{
		TotalContent:    sum.Current,
		ActiveContent:   sum.ActiveCurrent,
		ContentThisWeek: sum.ThisWeek,
		Trends: Trends{
			TotalContent:    Trend(sum.Current, sum.Previous).WithLabel(LabelPreviousPeriod),
			ActiveContent:   Trend(sum.ActiveCurrent, sum.ActivePrevious).WithLabel(LabelPreviousPeriod),
			ContentThisWeek: Trend(sum.ThisWeek, sum.LastWeek).WithLabel(LabelLastWeek),
		},
		Breakdown: Breakdown{
			Products:     counts[0].Current,
			Recipes:      counts[1].Current,
			Publications: counts[2].Current,
		},
	}, nil
}

func (e *Engine) count(ctx context.Context, model any, scope func(*gorm.DB) *gorm.DB) (int64, error) {
	var n int64
	q := e.db.WithContext(ctx).Model(model)
	if scope != nil {
		q = scope(q)
	}
	err := q.Count(&n).Error
	return n, err
}

func createdWithin(r Range) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("created_at >= ? AND created_at <= ?", r.From, r.To)
	}
}

func createdUpTo(t time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("created_at <= ?", t)
	}
}

func flagged(column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(column+" = ?", true)
	}
}

func both(a, b func(*gorm.DB) *gorm.DB) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB { return b(a(db)) }
}
