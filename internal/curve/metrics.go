package curve

import "math/big"

// MarketCap 返回以 SOL 最小单位计的市值 TotalSupply*VirtualQuote/VirtualBase。
// VirtualBase 为 0 时返回 0。
func MarketCap(reserves ReserveState) *big.Int {
	virtualBase := value(reserves.VirtualBase)
	if virtualBase.Sign() == 0 {
		return new(big.Int)
	}
	mc := new(big.Int).Mul(value(reserves.TotalSupply), value(reserves.VirtualQuote))
	return mc.Quo(mc, virtualBase)
}

// FinalMarketCap 估算实际代币储备全部售出后的市值。
// 剩余虚拟代币（VirtualBase-RealBase）不为正时返回 0。
func FinalMarketCap(reserves ReserveState, feeBasisPoints int) *big.Int {
	totalVirtualTokens := new(big.Int).Sub(value(reserves.VirtualBase), value(reserves.RealBase))
	if totalVirtualTokens.Sign() <= 0 {
		return new(big.Int)
	}

	totalSellValue := BuyOutPrice(reserves, value(reserves.RealBase), feeBasisPoints)
	totalVirtualValue := new(big.Int).Add(value(reserves.VirtualQuote), totalSellValue)

	mc := new(big.Int).Mul(value(reserves.TotalSupply), totalVirtualValue)
	return mc.Quo(mc, totalVirtualTokens)
}

// BuyOutPrice 估算买空 amount 个代币所需的含费 SOL。
// 取 amount 与 RealQuote 的较大者参与计算；分母不为正时返回 0。
func BuyOutPrice(reserves ReserveState, amount *big.Int, feeBasisPoints int) *big.Int {
	tokens := value(amount)
	if realQuote := value(reserves.RealQuote); tokens.Cmp(realQuote) < 0 {
		tokens = realQuote
	}

	denominator := new(big.Int).Sub(value(reserves.VirtualBase), tokens)
	if denominator.Sign() <= 0 {
		return new(big.Int)
	}

	total := new(big.Int).Mul(tokens, value(reserves.VirtualQuote))
	total.Quo(total, denominator)
	total.Add(total, one)

	fee := new(big.Int).Mul(total, big.NewInt(int64(clampBps(feeBasisPoints))))
	fee.Quo(fee, bpsDenominator)
	return total.Add(total, fee)
}

func clampBps(bps int) int {
	if bps < 0 {
		return 0
	}
	if bps > BasisPointsDenominator {
		return BasisPointsDenominator
	}
	return bps
}
