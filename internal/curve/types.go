package curve

import "math/big"

// BasisPointsDenominator 为基点分母，10000 基点即 100%。
const BasisPointsDenominator = 10000

var bpsDenominator = big.NewInt(BasisPointsDenominator)

// ReserveState 是某一时刻联合曲线储备的只读快照。
//
// 所有数量均为最小单位的整数（代币为 base，SOL 为 quote），调用方在每次交易前重新读取，
// 不跨交易缓存。快照构造后不应再修改，可在多个 goroutine 间共享。
type ReserveState struct {
	VirtualBase    *big.Int // 虚拟代币储备
	VirtualQuote   *big.Int // 虚拟 SOL 储备
	RealBase       *big.Int // 实际可兑付的代币储备
	RealQuote      *big.Int // 实际 SOL 储备
	TotalSupply    *big.Int // 代币总供应量
	FeeBasisPoints int      // 卖出手续费（基点）
	Complete       bool     // 曲线已完成迁移，不再接受交易
}

// ConstantProduct 返回 VirtualBase * VirtualQuote。
func (r ReserveState) ConstantProduct() *big.Int {
	return new(big.Int).Mul(value(r.VirtualBase), value(r.VirtualQuote))
}

// AfterBuy 返回买入 quoteIn 并取走 baseOut 之后的储备快照。
func (r ReserveState) AfterBuy(quoteIn, baseOut *big.Int) ReserveState {
	next := r.clone()
	next.VirtualQuote.Add(next.VirtualQuote, value(quoteIn))
	next.RealQuote.Add(next.RealQuote, value(quoteIn))
	next.VirtualBase.Sub(next.VirtualBase, value(baseOut))
	next.RealBase.Sub(next.RealBase, value(baseOut))
	return next
}

// AfterSell 返回卖出 baseIn 并取走 quoteOut 之后的储备快照。
func (r ReserveState) AfterSell(baseIn, quoteOut *big.Int) ReserveState {
	next := r.clone()
	next.VirtualBase.Add(next.VirtualBase, value(baseIn))
	next.RealBase.Add(next.RealBase, value(baseIn))
	next.VirtualQuote.Sub(next.VirtualQuote, value(quoteOut))
	next.RealQuote.Sub(next.RealQuote, value(quoteOut))
	return next
}

func (r ReserveState) clone() ReserveState {
	return ReserveState{
		VirtualBase:    new(big.Int).Set(value(r.VirtualBase)),
		VirtualQuote:   new(big.Int).Set(value(r.VirtualQuote)),
		RealBase:       new(big.Int).Set(value(r.RealBase)),
		RealQuote:      new(big.Int).Set(value(r.RealQuote)),
		TotalSupply:    new(big.Int).Set(value(r.TotalSupply)),
		FeeBasisPoints: r.FeeBasisPoints,
		Complete:       r.Complete,
	}
}

// Side 表示报价方向。
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Quote 为一次定价结果。
//
// 买入时 AmountIn 为 SOL，AmountOut 为代币，LimitAmount 为可接受的最大 SOL 成本；
// 卖出时 AmountIn 为代币，AmountOut 为扣费后的 SOL，LimitAmount 为可接受的最少 SOL。
type Quote struct {
	Side           Side
	AmountIn       *big.Int
	AmountOut      *big.Int
	LimitAmount    *big.Int
	SlippageBps    int
	FeeBasisPoints int
}

// SlippageDirection 决定滑点对金额的调整方向。
type SlippageDirection int

const (
	// WorstCaseForBuyer 上调金额，作为买方愿意支付的上限。
	WorstCaseForBuyer SlippageDirection = iota
	// WorstCaseForSeller 下调金额，作为卖方接受的下限。
	WorstCaseForSeller
)

func (d SlippageDirection) String() string {
	switch d {
	case WorstCaseForBuyer:
		return "worst_case_for_buyer"
	case WorstCaseForSeller:
		return "worst_case_for_seller"
	default:
		return "unknown"
	}
}

// value 将 nil 视为 0。
func value(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
