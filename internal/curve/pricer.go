package curve

import (
	"fmt"
	"math/big"
)

var one = big.NewInt(1)

// QuoteBuy 计算投入 quoteAmountIn 个 SOL 最小单位可得到的代币数量。
//
// 新的虚拟代币储备向上取整（k/i + 1），即输出向下取整；结果不超过实际代币储备。
func QuoteBuy(reserves ReserveState, quoteAmountIn *big.Int) (*big.Int, error) {
	if reserves.Complete {
		return nil, ErrCurveComplete
	}
	amount := value(quoteAmountIn)
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: quote_amount_in=%s", ErrNegativeAmount, amount)
	}
	if amount.Sign() == 0 {
		return new(big.Int), nil
	}

	virtualBase := value(reserves.VirtualBase)
	virtualQuote := value(reserves.VirtualQuote)

	k := new(big.Int).Mul(virtualQuote, virtualBase)
	i := new(big.Int).Add(virtualQuote, amount)
	r := new(big.Int).Quo(k, i)
	r.Add(r, one)

	out := new(big.Int).Sub(virtualBase, r)
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	if realBase := value(reserves.RealBase); out.Cmp(realBase) > 0 {
		out.Set(realBase)
	}
	return out, nil
}

// QuoteSell 计算卖出 baseAmountIn 个代币最小单位后扣除手续费的 SOL 数量。
//
// 卖出只使用虚拟储备，不按实际 SOL 储备截断。
func QuoteSell(reserves ReserveState, baseAmountIn *big.Int, feeBasisPoints int) (*big.Int, error) {
	if reserves.Complete {
		return nil, ErrCurveComplete
	}
	if feeBasisPoints < 0 || feeBasisPoints > BasisPointsDenominator {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFee, feeBasisPoints)
	}
	amount := value(baseAmountIn)
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: base_amount_in=%s", ErrNegativeAmount, amount)
	}
	if amount.Sign() == 0 {
		return new(big.Int), nil
	}

	gross := new(big.Int).Mul(amount, value(reserves.VirtualQuote))
	gross.Quo(gross, new(big.Int).Add(value(reserves.VirtualBase), amount))

	fee := new(big.Int).Mul(gross, big.NewInt(int64(feeBasisPoints)))
	fee.Quo(fee, bpsDenominator)

	return gross.Sub(gross, fee), nil
}

// BuyQuote 生成买入报价，LimitAmount 为含滑点的最大 SOL 成本。
func BuyQuote(reserves ReserveState, quoteAmountIn *big.Int, slippageBps int) (Quote, error) {
	out, err := QuoteBuy(reserves, quoteAmountIn)
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
		FeeBasisPoints: reserves.FeeBasisPoints,
	}, nil
}

// SellQuote 生成卖出报价，LimitAmount 为含滑点的最少 SOL 收入。
func SellQuote(reserves ReserveState, baseAmountIn *big.Int, feeBasisPoints, slippageBps int) (Quote, error) {
	out, err := QuoteSell(reserves, baseAmountIn, feeBasisPoints)
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
		FeeBasisPoints: feeBasisPoints,
	}, nil
}
