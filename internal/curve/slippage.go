package curve

import (
	"fmt"
	"math/big"
)

// ApplySlippage 按滑点基点调整金额。
//
// WorstCaseForBuyer: amount + amount*bps/10000；
// WorstCaseForSeller: amount - amount*bps/10000。
func ApplySlippage(amount *big.Int, basisPoints int, direction SlippageDirection) (*big.Int, error) {
	if basisPoints < 0 || basisPoints > BasisPointsDenominator {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlippage, basisPoints)
	}
	base := value(amount)
	if base.Sign() < 0 {
		return nil, fmt.Errorf("%w: amount=%s", ErrNegativeAmount, base)
	}

	delta := new(big.Int).Mul(base, big.NewInt(int64(basisPoints)))
	delta.Quo(delta, bpsDenominator)

	switch direction {
	case WorstCaseForBuyer:
		return delta.Add(base, delta), nil
	case WorstCaseForSeller:
		bound := delta.Sub(base, delta)
		if bound.Sign() < 0 {
			return nil, fmt.Errorf("%w: bound=%s", ErrInvalidSlippage, bound)
		}
		return bound, nil
	default:
		return nil, fmt.Errorf("curve: unknown slippage direction %d", int(direction))
	}
}
