package position

import (
	"time"

	"curve-trader/internal/units"
)

// Summary 为持仓的展示形式，金额均为十进制字符串。
type Summary struct {
	Mint           string `json:"mint"`
	Balance        string `json:"balance"`
	SpotValue      string `json:"spot_value"`
	ExitValue      string `json:"exit_value"`
	SupplyShareBps int64  `json:"supply_share_bps"`
	Complete       bool   `json:"complete"`
	Timestamp      string `json:"timestamp"`
}

// Summarize 按精度格式化持仓。
func Summarize(h Holding, baseDecimals, quoteDecimals int32) Summary {
	return Summary{
		Mint:           h.Mint.String(),
		Balance:        units.Format(h.Balance, baseDecimals),
		SpotValue:      units.Format(h.SpotValue, quoteDecimals),
		ExitValue:      units.Format(h.ExitValue, quoteDecimals),
		SupplyShareBps: h.SupplyShareBps,
		Complete:       h.Reserves.Complete,
		Timestamp:      h.Timestamp.Format(time.RFC3339),
	}
}
