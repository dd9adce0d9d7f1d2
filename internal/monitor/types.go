package monitor

import (
	"time"
)

// EventType 表示监控事件类型。
type EventType string

const (
	EventTrade EventType = "trade"
	EventError EventType = "error"
)

// Event 封装通用监控事件。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Observation 为一次价格观测。价格与市值均为十进制字符串（SOL）。
type Observation struct {
	Mint          string    `json:"mint"`
	SpotPrice     string    `json:"spot_price"`
	MarketCap     string    `json:"market_cap"`
	VirtualBase   string    `json:"virtual_base"`
	VirtualQuote  string    `json:"virtual_quote"`
	Complete      bool      `json:"complete"`
	QuoteUSDPrice string    `json:"quote_usd_price,omitempty"`
	ObservedAt    time.Time `json:"observed_at"`
}

// TradeSummary 为一次交易的结果摘要，不包含报价与各次提交细节。
type TradeSummary struct {
	TradeID   string `json:"trade_id"`
	Mint      string `json:"mint"`
	Side      string `json:"side"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
	Status    string `json:"status"`
	Attempts  int    `json:"attempts"`
	Signature string `json:"signature,omitempty"`
	Simulated bool   `json:"simulated"`
	Error     string `json:"error,omitempty"`
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}
