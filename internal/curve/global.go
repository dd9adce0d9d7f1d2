package curve

import "math/big"

// GlobalState 为曲线程序的全局参数。
type GlobalState struct {
	Initialized                 bool
	FeeRecipient                string
	InitialVirtualBaseReserves  *big.Int
	InitialVirtualQuoteReserves *big.Int
	InitialRealBaseReserves     *big.Int
	TokenTotalSupply            *big.Int
	FeeBasisPoints              int
}

// InitialReserves 返回新建曲线的初始储备快照。
func (g GlobalState) InitialReserves() ReserveState {
	return ReserveState{
		VirtualBase:    new(big.Int).Set(value(g.InitialVirtualBaseReserves)),
		VirtualQuote:   new(big.Int).Set(value(g.InitialVirtualQuoteReserves)),
		RealBase:       new(big.Int).Set(value(g.InitialRealBaseReserves)),
		RealQuote:      new(big.Int),
		TotalSupply:    new(big.Int).Set(value(g.TokenTotalSupply)),
		FeeBasisPoints: g.FeeBasisPoints,
	}
}

// InitialBuyPrice 计算在新建曲线上投入 amount 可得的代币数量。
func (g GlobalState) InitialBuyPrice(amount *big.Int) *big.Int {
	if value(amount).Sign() <= 0 {
		return new(big.Int)
	}
	out, err := QuoteBuy(g.InitialReserves(), amount)
	if err != nil {
		return new(big.Int)
	}
	return out
}
