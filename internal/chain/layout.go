package chain

import (
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"curve-trader/internal/curve"
)

// 账户种子。
var (
	globalSeed       = []byte("global")
	bondingCurveSeed = []byte("bonding-curve")
)

// bondingCurveLayout 对应链上联合曲线账户的 Borsh 布局。
type bondingCurveLayout struct {
	Discriminator        [8]byte
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

// globalLayout 对应程序全局账户，尾部字段忽略。
type globalLayout struct {
	Discriminator               [8]byte
	Initialized                 bool
	Authority                   solana.PublicKey
	FeeRecipient                solana.PublicKey
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	FeeBasisPoints              uint64
}

func decodeBondingCurve(data []byte) (curve.ReserveState, error) {
	var layout bondingCurveLayout
	if err := bin.NewBorshDecoder(data).Decode(&layout); err != nil {
		return curve.ReserveState{}, fmt.Errorf("chain: 解析联合曲线账户失败: %w", err)
	}
	return curve.ReserveState{
		VirtualBase:  new(big.Int).SetUint64(layout.VirtualTokenReserves),
		VirtualQuote: new(big.Int).SetUint64(layout.VirtualSolReserves),
		RealBase:     new(big.Int).SetUint64(layout.RealTokenReserves),
		RealQuote:    new(big.Int).SetUint64(layout.RealSolReserves),
		TotalSupply:  new(big.Int).SetUint64(layout.TokenTotalSupply),
		Complete:     layout.Complete,
	}, nil
}

func decodeGlobal(data []byte) (curve.GlobalState, error) {
	var layout globalLayout
	if err := bin.NewBorshDecoder(data).Decode(&layout); err != nil {
		return curve.GlobalState{}, fmt.Errorf("chain: 解析全局账户失败: %w", err)
	}
	if layout.FeeBasisPoints > curve.BasisPointsDenominator {
		return curve.GlobalState{}, fmt.Errorf("chain: 全局手续费越界 %d: %w", layout.FeeBasisPoints, curve.ErrInvalidFee)
	}
	return curve.GlobalState{
		Initialized:                 layout.Initialized,
		FeeRecipient:                layout.FeeRecipient.String(),
		InitialVirtualBaseReserves:  new(big.Int).SetUint64(layout.InitialVirtualTokenReserves),
		InitialVirtualQuoteReserves: new(big.Int).SetUint64(layout.InitialVirtualSolReserves),
		InitialRealBaseReserves:     new(big.Int).SetUint64(layout.InitialRealTokenReserves),
		TokenTotalSupply:            new(big.Int).SetUint64(layout.TokenTotalSupply),
		FeeBasisPoints:              int(layout.FeeBasisPoints),
	}, nil
}

// BondingCurveAddress 推导代币对应的联合曲线账户地址。
func BondingCurveAddress(programID, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{bondingCurveSeed, mint.Bytes()}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("chain: 推导联合曲线地址失败: %w", err)
	}
	return addr, nil
}

// GlobalAddress 推导程序全局账户地址。
func GlobalAddress(programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{globalSeed}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("chain: 推导全局账户地址失败: %w", err)
	}
	return addr, nil
}
