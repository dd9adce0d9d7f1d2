package exchange

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// TimeframeMinute 用于取最新成交价。
	TimeframeMinute = "1m"
	// TimeframeHour 用于计算 24 小时涨跌。
	TimeframeHour = "1h"
)

// Candle 代表单根K线。
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// QuotePrice 为报价资产（SOL）的美元行情，仅用于展示。
type QuotePrice struct {
	Market      string          `json:"market"`
	Last        decimal.Decimal `json:"last"`
	Change24h   decimal.Decimal `json:"change_24h"`
	RetrievedAt time.Time       `json:"retrieved_at"`
}
