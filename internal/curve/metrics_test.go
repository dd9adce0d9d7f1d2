package curve

import (
	"math/big"
	"testing"
)

func TestMarketCap(t *testing.T) {
	if mc := MarketCap(makeReserves()); mc.Cmp(big.NewInt(30_000_000_000_000)) != 0 {
		t.Fatalf("unexpected market cap: %s", mc)
	}

	reserves := makeReserves()
	reserves.VirtualBase = big.NewInt(0)
	if mc := MarketCap(reserves); mc.Sign() != 0 {
		t.Fatalf("expected zero market cap for empty virtual base, got %s", mc)
	}
}

func TestFinalMarketCap(t *testing.T) {
	if mc := FinalMarketCap(makeReserves(), 100); mc.Cmp(big.NewInt(756_000_000_005_000)) != 0 {
		t.Fatalf("unexpected final market cap: %s", mc)
	}

	reserves := makeReserves()
	reserves.RealBase = new(big.Int).Set(reserves.VirtualBase)
	if mc := FinalMarketCap(reserves, 100); mc.Sign() != 0 {
		t.Fatalf("expected zero when no virtual tokens remain, got %s", mc)
	}
}

func TestGlobalState_InitialBuyPrice(t *testing.T) {
	global := GlobalState{
		InitialVirtualBaseReserves:  big.NewInt(1_000_000_000_000),
		InitialVirtualQuoteReserves: big.NewInt(30_000_000_000),
		InitialRealBaseReserves:     big.NewInt(800_000_000_000),
		TokenTotalSupply:            big.NewInt(1_000_000_000_000_000),
		FeeBasisPoints:              100,
	}

	if got := global.InitialBuyPrice(big.NewInt(1_000_000_000)); got.Cmp(big.NewInt(32_258_064_516)) != 0 {
		t.Fatalf("unexpected initial buy price: %s", got)
	}
	if got := global.InitialBuyPrice(big.NewInt(0)); got.Sign() != 0 {
		t.Fatalf("expected zero for zero amount, got %s", got)
	}
}
