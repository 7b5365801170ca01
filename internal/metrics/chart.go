package metrics

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"

	maxChartPoints = 366
)

// DefaultCount is the number of buckets returned when the caller gives none.
func (p Period) DefaultCount() int {
	switch p {
	case PeriodWeekly:
		return 8
	case PeriodMonthly:
		return 12
	default:
		return 7
	}
}

func (p Period) Valid() bool {
	return p == PeriodDaily || p == PeriodWeekly || p == PeriodMonthly
}

type ChartPoint struct {
	Label        string `json:"label"`
	Products     int64  `json:"products"`
	Recipes      int64  `json:"recipes"`
	Publications int64  `json:"publications"`
	Total        int64  `json:"total"`
}

type Chart struct {
	Period      Period       `json:"period"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Points      []ChartPoint `json:"points"`
	GrandTotals ChartPoint   `json:"grandTotals"`
}

// bucketStart truncates t (UTC) to the start of its bucket. Weeks start on Monday.
func (p Period) bucketStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch p {
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case PeriodMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

func (p Period) next(t time.Time) time.Time {
	switch p {
	case PeriodWeekly:
		return t.AddDate(0, 0, 7)
	case PeriodMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// ContentChart counts content created per bucket for the last count buckets,
// the current one included. Empty buckets are returned as zero points.
func (e *Engine) ContentChart(ctx context.Context, period Period, count int) (*Chart, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("unknown period %q", period)
	}
	if count <= 0 || count > maxChartPoints {
		return nil, fmt.Errorf("count must be between 1 and %d", maxChartPoints)
	}

	last := period.bucketStart(e.now())
	starts := make([]time.Time, count)
	starts[count-1] = last
	for i := count - 2; i >= 0; i-- {
		switch period {
		case PeriodWeekly:
			starts[i] = starts[i+1].AddDate(0, 0, -7)
		case PeriodMonthly:
			starts[i] = starts[i+1].AddDate(0, -1, 0)
		default:
			starts[i] = starts[i+1].AddDate(0, 0, -1)
		}
	}
	from, to := starts[0], period.next(last)

	created := make([][]time.Time, len(collections))
	g, gctx := errgroup.WithContext(ctx)
	for i, col := range collections {
		g.Go(func() error {
			var ts []time.Time
			err := e.db.WithContext(gctx).
				Model(col.model()).
				Where("created_at >= ? AND created_at < ?", from, to).
				Pluck("created_at", &ts).Error
			if err != nil {
				return fmt.Errorf("load %s creation times: %w", col.name, err)
			}
			created[i] = ts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	index := make(map[time.Time]int, count)
	points := make([]ChartPoint, count)
	for i, s := range starts {
		index[s] = i
		points[i].Label = s.Format(time.DateOnly)
	}
	for ci, ts := range created {
		for _, t := range ts {
			i, ok := index[period.bucketStart(t)]
			if !ok {
				continue
			}
			switch ci {
			case 0:
				points[i].Products++
			case 1:
				points[i].Recipes++
			case 2:
				points[i].Publications++
			}
		}
	}

	grand := ChartPoint{Label: "total"}
	for i := range points {
		p := &points[i]
		p.Total = p.Products + p.Recipes + p.Publications
		grand.Products += p.Products
		grand.Recipes += p.Recipes
		grand.Publications += p.Publications
		grand.Total += p.Total
	}

	return &Chart{
		Period:      period,
		From:        from.Format(time.DateOnly),
		To:          to.AddDate(0, 0, -1).Format(time.DateOnly),
		Points:      points,
		GrandTotals: grand,
	}, nil
}
