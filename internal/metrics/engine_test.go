package metrics

import (
	"context"
	"testing"
	"time"

	"tastyfruit-backend/internal/database/dbtest"
	"tastyfruit-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var now = time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

func daysAgo(d int) time.Time { return now.Add(-time.Duration(d) * 24 * time.Hour) }

func product(t *testing.T, db *gorm.DB, category string, active bool, created time.Time) {
	t.Helper()
	p := models.Product{Name: category + "-item", Category: category, IsActive: active, CreatedAt: created, UpdatedAt: created}
	require.NoError(t, db.Create(&p).Error)
}

func recipe(t *testing.T, db *gorm.DB, published bool, created time.Time) {
	t.Helper()
	r := models.Recipe{Title: "Es Buah", IsPublished: published, CreatedAt: created, UpdatedAt: created}
	require.NoError(t, db.Create(&r).Error)
}

func publication(t *testing.T, db *gorm.DB, published bool, created time.Time) {
	t.Helper()
	p := models.Publication{Title: "Panen Raya", CreatedAt: created, UpdatedAt: created}
	p.SetPublished(published, created)
	require.NoError(t, db.Create(&p).Error)
}

func TestTrend(t *testing.T) {
	assert.Equal(t, TrendValue{Value: 200, Direction: DirectionUp}, Trend(3, 1))
	assert.Equal(t, TrendValue{Value: 50, Direction: DirectionDown}, Trend(1, 2))
	assert.Equal(t, TrendValue{Value: 0, Direction: DirectionNeutral}, Trend(4, 4))
	assert.Equal(t, TrendValue{Value: 33, Direction: DirectionUp}, Trend(4, 3))
	assert.Equal(t, TrendValue{Value: 67, Direction: DirectionDown}, Trend(1, 3))

	for _, current := range []int64{0, 1, 10, 1000} {
		assert.Equal(t, TrendValue{Value: 0, Direction: DirectionNeutral}, Trend(current, 0))
	}
}

func TestRangePrevious(t *testing.T) {
	r := Range{
		From: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 2, 7, 0, 0, 0, 0, time.UTC),
	}
	prev := r.Previous()
	assert.True(t, prev.From.Equal(time.Date(2024, 1, 26, 0, 0, 0, 0, time.UTC)), prev.From.String())
	assert.True(t, prev.To.Equal(r.From))
	assert.Equal(t, r.To.Sub(r.From), prev.To.Sub(prev.From))

	// ?to=2024-02-07 covers the whole day, so the previous window starts on 2024-01-25
	r.To = time.Date(2024, 2, 7, 23, 59, 59, 999999999, time.UTC)
	prev = r.Previous()
	assert.True(t, prev.From.Equal(time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC)), prev.From.String())
	assert.True(t, prev.To.Equal(r.From))
}

func TestComputePreviousWindowIncludesItsFirstMidnight(t *testing.T) {
	db := dbtest.Open(t)
	product(t, db, "Buah Segar", true, time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC))

	e := NewEngine(db, fixedClock)
	m, err := e.Compute(context.Background(), Range{
		From: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 2, 7, 23, 59, 59, 999999999, time.UTC),
	})
	require.NoError(t, err)
	assert.Zero(t, m.TotalContent)
	assert.Equal(t, TrendValue{Value: 100, Direction: DirectionDown, Label: LabelPreviousPeriod}, m.Trends.TotalContent)
}

func TestResolveRange(t *testing.T) {
	r := ResolveRange(nil, nil, now)
	assert.Equal(t, DefaultRange(now), r)
	assert.True(t, r.From.Equal(daysAgo(7)))

	from := daysAgo(30)
	r = ResolveRange(&from, nil, now)
	assert.True(t, r.From.Equal(from))
	assert.True(t, r.To.Equal(now))

	to := daysAgo(10)
	r = ResolveRange(nil, &to, now)
	assert.True(t, r.To.Equal(to))
	assert.True(t, r.From.Equal(daysAgo(17)))

	// inverted ranges pass through
	r = ResolveRange(&to, &from, now)
	assert.True(t, r.From.After(r.To))
}

func TestComputeEmpty(t *testing.T) {
	db := dbtest.Open(t)
	m, err := NewEngine(db, fixedClock).Compute(context.Background(), DefaultRange(now))
	require.NoError(t, err)

	assert.Zero(t, m.TotalContent)
	assert.Equal(t, DirectionNeutral, m.Trends.TotalContent.Direction)
	assert.Equal(t, LabelPreviousPeriod, m.Trends.TotalContent.Label)
	assert.Equal(t, LabelPreviousPeriod, m.Trends.ActiveContent.Label)
	assert.Equal(t, LabelLastWeek, m.Trends.ContentThisWeek.Label)
}

func TestCompute(t *testing.T) {
	db := dbtest.Open(t)

	// this week: 3 products, 1 recipe
	product(t, db, "Buah Segar", true, daysAgo(1))
	product(t, db, "Buah Segar", false, daysAgo(2))
	product(t, db, "Buah Kering", true, daysAgo(3))
	recipe(t, db, true, daysAgo(4))
	// last week: 1 publication
	publication(t, db, true, daysAgo(10))
	// long ago, still live
	product(t, db, "Jus", true, daysAgo(60))

	m, err := NewEngine(db, fixedClock).Compute(context.Background(), DefaultRange(now))
	require.NoError(t, err)

	assert.EqualValues(t, 4, m.TotalContent)
	assert.EqualValues(t, 5, m.ActiveContent)
	assert.EqualValues(t, 4, m.ContentThisWeek)
	assert.Equal(t, Breakdown{Products: 3, Recipes: 1, Publications: 0}, m.Breakdown)

	// previous window holds only the publication
	assert.Equal(t, TrendValue{Value: 300, Direction: DirectionUp, Label: LabelPreviousPeriod}, m.Trends.TotalContent)
	assert.Equal(t, TrendValue{Value: 300, Direction: DirectionUp, Label: LabelLastWeek}, m.Trends.ContentThisWeek)
	// live and created by the end of the previous window: the publication and "Jus"
	assert.Equal(t, TrendValue{Value: 150, Direction: DirectionUp, Label: LabelPreviousPeriod}, m.Trends.ActiveContent)
}

func TestComputeThisWeekIgnoresRange(t *testing.T) {
	db := dbtest.Open(t)
	product(t, db, "Buah Segar", true, daysAgo(1))
	product(t, db, "Buah Segar", true, daysAgo(100))

	r := Range{From: daysAgo(120), To: daysAgo(90)}
	m, err := NewEngine(db, fixedClock).Compute(context.Background(), r)
	require.NoError(t, err)

	assert.EqualValues(t, 1, m.TotalContent)
	assert.EqualValues(t, 1, m.ContentThisWeek)
	assert.EqualValues(t, 2, m.ActiveContent)
}

func TestComputeInvertedRangeCountsNothing(t *testing.T) {
	db := dbtest.Open(t)
	product(t, db, "Buah Segar", true, daysAgo(1))

	m, err := NewEngine(db, fixedClock).Compute(context.Background(), Range{From: now, To: daysAgo(7)})
	require.NoError(t, err)
	assert.Zero(t, m.TotalContent)
	assert.EqualValues(t, 1, m.ActiveContent)
}

func TestComputeFailsWhole(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, db.Migrator().DropTable(&models.Recipe{}))

	m, err := NewEngine(db, fixedClock).Compute(context.Background(), DefaultRange(now))
	require.Error(t, err)
	assert.Nil(t, m)
}

func TestCategoryBreakdown(t *testing.T) {
	db := dbtest.Open(t)
	e := NewEngine(db, fixedClock)

	got, err := e.CategoryBreakdown(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	for _, c := range []string{"Jus", "Buah Segar", "Buah Segar", "Buah Kering", "Buah Segar", "Jus"} {
		product(t, db, c, true, daysAgo(1))
	}
	product(t, db, "Apel Impor", false, daysAgo(1))

	got, err = e.CategoryBreakdown(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []CategoryCount{
		{Name: "Buah Segar", Count: 3, Percentage: 43},
		{Name: "Jus", Count: 2, Percentage: 29},
		{Name: "Apel Impor", Count: 1, Percentage: 14},
		{Name: "Buah Kering", Count: 1, Percentage: 14},
	}, got)

	var sum int64
	for _, c := range got {
		sum += c.Percentage
	}
	assert.InDelta(t, 100, sum, float64(len(got)))
}

func TestPublishStatus(t *testing.T) {
	db := dbtest.Open(t)
	e := NewEngine(db, fixedClock)
	ctx := context.Background()

	product(t, db, "Buah Segar", true, daysAgo(1))
	product(t, db, "Buah Segar", false, daysAgo(30))
	recipe(t, db, false, daysAgo(2))
	publication(t, db, true, daysAgo(3))
	publication(t, db, true, daysAgo(40))

	all, err := e.PublishStatus(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, PublishStatus{
		Products:     StatusCount{Published: 1, Draft: 1},
		Recipes:      StatusCount{Published: 0, Draft: 1},
		Publications: StatusCount{Published: 2, Draft: 0},
	}, *all)

	from, to := daysAgo(7), now
	filtered, err := e.PublishStatus(ctx, &from, &to)
	require.NoError(t, err)
	assert.Equal(t, PublishStatus{
		Products:     StatusCount{Published: 1},
		Recipes:      StatusCount{Draft: 1},
		Publications: StatusCount{Published: 1},
	}, *filtered)

	onlyFrom, err := e.PublishStatus(ctx, &from, nil)
	require.NoError(t, err)
	assert.Equal(t, all, onlyFrom)

	onlyTo, err := e.PublishStatus(ctx, nil, &to)
	require.NoError(t, err)
	assert.Equal(t, all, onlyTo)
}

func TestContentChartDaily(t *testing.T) {
	db := dbtest.Open(t)
	// now is Thursday 2024-02-15 12:00 UTC
	product(t, db, "Buah Segar", true, now.Add(-time.Hour))
	recipe(t, db, true, now.Add(-25*time.Hour))
	publication(t, db, false, now.Add(-26*time.Hour))
	product(t, db, "Jus", true, daysAgo(10))

	chart, err := NewEngine(db, fixedClock).ContentChart(context.Background(), PeriodDaily, 3)
	require.NoError(t, err)

	assert.Equal(t, "2024-02-13", chart.From)
	assert.Equal(t, "2024-02-15", chart.To)
	require.Len(t, chart.Points, 3)
	assert.Equal(t, ChartPoint{Label: "2024-02-13"}, chart.Points[0])
	assert.Equal(t, ChartPoint{Label: "2024-02-14", Recipes: 1, Publications: 1, Total: 2}, chart.Points[1])
	assert.Equal(t, ChartPoint{Label: "2024-02-15", Products: 1, Total: 1}, chart.Points[2])
	assert.EqualValues(t, 3, chart.GrandTotals.Total)
}

func TestContentChartWeeklyAndMonthlyBuckets(t *testing.T) {
	db := dbtest.Open(t)
	product(t, db, "Buah Segar", true, time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC)) // Monday
	product(t, db, "Buah Segar", true, time.Date(2024, 2, 11, 23, 0, 0, 0, time.UTC)) // Sunday before
	product(t, db, "Buah Segar", true, time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC))

	e := NewEngine(db, fixedClock)

	weekly, err := e.ContentChart(context.Background(), PeriodWeekly, 2)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-05", weekly.Points[0].Label)
	assert.EqualValues(t, 1, weekly.Points[0].Products)
	assert.Equal(t, "2024-02-12", weekly.Points[1].Label)
	assert.EqualValues(t, 1, weekly.Points[1].Products)
	assert.Equal(t, "2024-02-18", weekly.To)

	monthly, err := e.ContentChart(context.Background(), PeriodMonthly, 2)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", monthly.Points[0].Label)
	assert.EqualValues(t, 1, monthly.Points[0].Products)
	assert.EqualValues(t, 2, monthly.Points[1].Products)
	assert.Equal(t, "2024-02-29", monthly.To)

	_, err = e.ContentChart(context.Background(), Period("hourly"), 2)
	assert.Error(t, err)
	_, err = e.ContentChart(context.Background(), PeriodDaily, 0)
	assert.Error(t, err)
}
