package indicator

import (
	"errors"
	"math"

	talib "github.com/markcheno/go-talib"
)

const (
	// DefaultPeriod 为均线默认周期。
	DefaultPeriod = 20
	rsiPeriod     = 14
)

// ErrInsufficientData 表示价格记录不足以计算指标。
var ErrInsufficientData = errors.New("indicator: insufficient data")

// Summary 为一次指标计算的汇总。
type Summary struct {
	Count  int
	Period int
	First  float64
	Last   float64
	Change float64 // 相对首个记录的涨跌幅
	SMA    float64
	EMA    float64
	RSI    float64 // 记录不足时为 NaN
}

// Compute 计算价格序列的均线与 RSI。周期大于样本数时自动缩短。
func Compute(series Series, period int) (Summary, error) {
	if series.Len() < 2 {
		return Summary{}, ErrInsufficientData
	}
	if period <= 0 {
		period = DefaultPeriod
	}
	if period > series.Len() {
		period = series.Len()
	}

	prices := series.Price
	first := prices[0]
	last := Last(prices)

	summary := Summary{
		Count:  series.Len(),
		Period: period,
		First:  first,
		Last:   last,
		Change: SafeDivide(last-first, first),
		SMA:    Last(talib.Sma(prices, period)),
		EMA:    Last(talib.Ema(prices, period)),
		RSI:    math.NaN(),
	}
	if series.Len() > rsiPeriod {
		summary.RSI = Last(talib.Rsi(prices, rsiPeriod))
	}
	return summary, nil
}
