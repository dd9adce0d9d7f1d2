package indicator

import (
	"math"
	"sort"
	"time"
)

// Point 为一次记录的价格。
type Point struct {
	Time  time.Time
	Price float64
}

// Series 将价格记录拆分为便于指标计算的序列。
type Series struct {
	Timestamps []time.Time
	Price      []float64
}

// NewSeries 从价格记录创建 Series，按时间升序排列。
func NewSeries(points []Point) Series {
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	series := Series{
		Timestamps: make([]time.Time, len(sorted)),
		Price:      make([]float64, len(sorted)),
	}
	for i, p := range sorted {
		series.Timestamps[i] = p.Time.UTC()
		series.Price[i] = p.Price
	}
	return series
}

// Len 返回序列长度。
func (s Series) Len() int {
	return len(s.Price)
}

// Last 返回序列最后一个值，若为空则返回 NaN。
func Last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

// SafeDivide 除法保护，除数为0时返回0。
func SafeDivide(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
