package curve

import (
	"fmt"
	"math/big"
)

// DefaultPoolFeeBasisPoints 为 AMM v4 池默认的交易手续费（25/10000）。
const DefaultPoolFeeBasisPoints = 25

// PoolReserves 是曲线迁移后常数乘积池的储备快照。Base 为代币，Quote 为 SOL。
type PoolReserves struct {
	Pool           string
	BaseReserve    *big.Int
	QuoteReserve   *big.Int
	FeeBasisPoints int // 输入侧扣除的手续费（基点）
}

// AfterSwap 返回 amountIn 进、amountOut 出之后的池子快照。
func (p PoolReserves) AfterSwap(side Side, amountIn, amountOut *big.Int) PoolReserves {
	next := PoolReserves{
		Pool:           p.Pool,
		BaseReserve:    new(big.Int).Set(value(p.BaseReserve)),
		QuoteReserve:   new(big.Int).Set(value(p.QuoteReserve)),
		FeeBasisPoints: p.FeeBasisPoints,
	}
	switch side {
	case SideBuy:
		next.QuoteReserve.Add(next.QuoteReserve, value(amountIn))
		next.BaseReserve.Sub(next.BaseReserve, value(amountOut))
	case SideSell:
		next.BaseReserve.Add(next.BaseReserve, value(amountIn))
		next.QuoteReserve.Sub(next.QuoteReserve, value(amountOut))
	}
	return next
}

// MarketCap 返回以池子价格计的市值 totalSupply*QuoteReserve/BaseReserve，BaseReserve 为 0 时返回 0。
func (p PoolReserves) MarketCap(totalSupply *big.Int) *big.Int {
	base := value(p.BaseReserve)
	if base.Sign() == 0 {
		return new(big.Int)
	}
	mc := new(big.Int).Mul(value(totalSupply), value(p.QuoteReserve))
	return mc.Quo(mc, base)
}

// AmountOut 按常数乘积公式计算 amountIn 可换出的数量，手续费从输入侧扣除：
//
//	out = in*(10000-fee)*reserveOut / (reserveIn*10000 + in*(10000-fee))
//
// 结果向下取整，且严格小于 reserveOut。
func AmountOut(amountIn, reserveIn, reserveOut *big.Int, feeBasisPoints int) (*big.Int, error) {
	if feeBasisPoints < 0 || feeBasisPoints > BasisPointsDenominator {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFee, feeBasisPoints)
	}
	in := value(amountIn)
	if in.Sign() < 0 {
		return nil, fmt.Errorf("%w: amount_in=%s", ErrNegativeAmount, in)
	}
	rIn, rOut := value(reserveIn), value(reserveOut)
	if rIn.Sign() <= 0 || rOut.Sign() <= 0 {
		return nil, ErrEmptyPool
	}
	if in.Sign() == 0 {
		return new(big.Int), nil
	}

	inWithFee := new(big.Int).Mul(in, big.NewInt(int64(BasisPointsDenominator-feeBasisPoints)))
	den := new(big.Int).Mul(rIn, bpsDenominator)
	den.Add(den, inWithFee)
	num := new(big.Int).Mul(inWithFee, rOut)
	return num.Quo(num, den), nil
}

// PoolBuyQuote 在池子上生成买入报价，LimitAmount 为含滑点的最大 SOL 成本。
func PoolBuyQuote(pool PoolReserves, quoteAmountIn *big.Int, slippageBps int) (Quote, error) {
	out, err := AmountOut(quoteAmountIn, pool.QuoteReserve, pool.BaseReserve, pool.FeeBasisPoints)
	if err != nil {
		return Quote{}, err
	}
	limit, err := ApplySlippage(value(quoteAmountIn), slippageBps, WorstCaseForBuyer)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Side:           SideBuy,
		AmountIn:       new(big.Int).Set(value(quoteAmountIn)),
		AmountOut:      out,
		LimitAmount:    limit,
		SlippageBps:    slippageBps,
		FeeBasisPoints: pool.FeeBasisPoints,
	}, nil
}

// PoolSellQuote 在池子上生成卖出报价，LimitAmount 为含滑点的最少 SOL 收入。
func PoolSellQuote(pool PoolReserves, baseAmountIn *big.Int, slippageBps int) (Quote, error) {
	out, err := AmountOut(baseAmountIn, pool.BaseReserve, pool.QuoteReserve, pool.FeeBasisPoints)
	if err != nil {
		return Quote{}, err
	}
	limit, err := ApplySlippage(out, slippageBps, WorstCaseForSeller)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Side:           SideSell,
		AmountIn:       new(big.Int).Set(value(baseAmountIn)),
		AmountOut:      out,
		LimitAmount:    limit,
		SlippageBps:    slippageBps,
		FeeBasisPoints: pool.FeeBasisPoints,
	}, nil
}
