package metrics

import "math"

type Direction string

const (
	DirectionUp      Direction = "up"
	DirectionDown    Direction = "down"
	DirectionNeutral Direction = "neutral"
)

type TrendValue struct {
	Value     int64     `json:"value"`
	Direction Direction `json:"direction"`
	Label     string    `json:"label"`
}

// Trend is the rounded absolute percentage change from previous to current.
// A zero baseline has nothing to compare against and reports neutral.
func Trend(current, previous int64) TrendValue {
	if previous == 0 {
		return TrendValue{Value: 0, Direction: DirectionNeutral}
	}
	change := float64(current-previous) / float64(previous) * 100
	dir := DirectionNeutral
	switch {
	case change > 0:
		dir = DirectionUp
	case change < 0:
		dir = DirectionDown
	}
	return TrendValue{Value: int64(math.Round(math.Abs(change))), Direction: dir}
}

func (t TrendValue) WithLabel(label string) TrendValue {
	t.Label = label
	return t
}
