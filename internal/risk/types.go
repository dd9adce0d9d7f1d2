package risk

import (
	"errors"
	"math/big"
)

var (
	// ErrMaxBuyExceeded 表示单笔买入超过上限。
	ErrMaxBuyExceeded = errors.New("risk: buy amount exceeds per-trade limit")
	// ErrDailyLimitExceeded 表示当日累计买入超过上限。
	ErrDailyLimitExceeded = errors.New("risk: daily spend limit exceeded")
)

// Limits 为买入限额，nil 表示不限制。数量均为 lamports。
type Limits struct {
	MaxBuyAmount    *big.Int
	DailySpendLimit *big.Int
}

// DailyStatus 表示当日买入额度使用情况。
type DailyStatus struct {
	TradingDate string
	Spent       *big.Int
	Trades      int
	Remaining   *big.Int // 未设置日限额时为 nil
}
