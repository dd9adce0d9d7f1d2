package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"curve-trader/internal/curve"
)

// AMM v4 池账户的固定大小与 mint 字段偏移。
const (
	ammPoolSize     = 752
	baseMintOffset  = 400
	quoteMintOffset = 432
)

var wrappedSOL = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

// ammPoolLayout 对应 AMM v4 池账户布局，u128 统计字段保留原始字节。
type ammPoolLayout struct {
	Status                 uint64
	Nonce                  uint64
	MaxOrder               uint64
	Depth                  uint64
	BaseDecimal            uint64
	QuoteDecimal           uint64
	State                  uint64
	ResetFlag              uint64
	MinSize                uint64
	VolMaxCutRatio         uint64
	AmountWaveRatio        uint64
	BaseLotSize            uint64
	QuoteLotSize           uint64
	MinPriceMultiplier     uint64
	MaxPriceMultiplier     uint64
	SystemDecimalValue     uint64
	MinSeparateNumerator   uint64
	MinSeparateDenominator uint64
	TradeFeeNumerator      uint64
	TradeFeeDenominator    uint64
	PnlNumerator           uint64
	PnlDenominator         uint64
	SwapFeeNumerator       uint64
	SwapFeeDenominator     uint64
	BaseNeedTakePnl        uint64
	QuoteNeedTakePnl       uint64
	QuoteTotalPnl          uint64
	BaseTotalPnl           uint64
	PoolOpenTime           uint64
	PunishPcAmount         uint64
	PunishCoinAmount       uint64
	OrderbookToInitTime    uint64
	SwapBaseInAmount       [16]byte
	SwapQuoteOutAmount     [16]byte
	SwapBase2QuoteFee      uint64
	SwapQuoteInAmount      [16]byte
	SwapBaseOutAmount      [16]byte
	SwapQuote2BaseFee      uint64
	BaseVault              solana.PublicKey
	QuoteVault             solana.PublicKey
	BaseMint               solana.PublicKey
	QuoteMint              solana.PublicKey
	LpMint                 solana.PublicKey
	OpenOrders             solana.PublicKey
	MarketID               solana.PublicKey
	MarketProgramID        solana.PublicKey
	TargetOrders           solana.PublicKey
	WithdrawQueue          solana.PublicKey
	LpVault                solana.PublicKey
	Owner                  solana.PublicKey
	LpReserve              uint64
	Padding                [3]uint64
}

func decodeAMMPool(data []byte) (ammPoolLayout, error) {
	var layout ammPoolLayout
	if len(data) < ammPoolSize {
		return layout, fmt.Errorf("chain: 池账户长度不足 %d", len(data))
	}
	if err := bin.NewBorshDecoder(data).Decode(&layout); err != nil {
		return layout, fmt.Errorf("chain: 解析池账户失败: %w", err)
	}
	return layout, nil
}

// feeBasisPoints 将 swap 手续费分数换算为基点，分母为 0 时使用默认值。
func (l ammPoolLayout) feeBasisPoints() int {
	if l.SwapFeeDenominator == 0 {
		return curve.DefaultPoolFeeBasisPoints
	}
	num := new(big.Int).SetUint64(l.SwapFeeNumerator)
	num.Mul(num, big.NewInt(curve.BasisPointsDenominator))
	num.Quo(num, new(big.Int).SetUint64(l.SwapFeeDenominator))
	return int(num.Int64())
}

// Pool 读取 mint 与 SOL 组成的常数乘积池储备。
//
// 储备为金库余额扣除待提取的 PnL，未计入挂在订单簿上的部分。
// 池子中 SOL 在 base 侧时会对调，返回值的 Base 始终是 mint。
func (r *Reader) Pool(ctx context.Context, mint solana.PublicKey) (curve.PoolReserves, error) {
	if r.ammProgram.IsZero() {
		return curve.PoolReserves{}, fmt.Errorf("chain: 未配置 amm_program_id: %w", curve.ErrPoolNotFound)
	}

	addr, layout, mintIsBase, err := r.findPool(ctx, mint)
	if err != nil {
		return curve.PoolReserves{}, err
	}

	var baseVault, quoteVault *big.Int
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		v, err := r.vaultBalance(groupCtx, layout.BaseVault)
		baseVault = v
		return err
	})
	group.Go(func() error {
		v, err := r.vaultBalance(groupCtx, layout.QuoteVault)
		quoteVault = v
		return err
	})
	if err := group.Wait(); err != nil {
		return curve.PoolReserves{}, fmt.Errorf("chain: 读取池子 %s 金库失败: %w", addr, err)
	}

	base := subFloor(baseVault, layout.BaseNeedTakePnl)
	quote := subFloor(quoteVault, layout.QuoteNeedTakePnl)
	if !mintIsBase {
		base, quote = quote, base
	}

	r.logger.Debug("读取 AMM 池储备",
		zap.String("mint", mint.String()),
		zap.String("pool", addr.String()),
		zap.String("base_reserve", base.String()),
		zap.String("quote_reserve", quote.String()),
	)
	return curve.PoolReserves{
		Pool:           addr.String(),
		BaseReserve:    base,
		QuoteReserve:   quote,
		FeeBasisPoints: layout.feeBasisPoints(),
	}, nil
}

// findPool 先按 mint/SOL 再按 SOL/mint 查找池账户，返回首个匹配项。
func (r *Reader) findPool(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, ammPoolLayout, bool, error) {
	for _, mintIsBase := range []bool{true, false} {
		base, quote := mint, wrappedSOL
		if !mintIsBase {
			base, quote = wrappedSOL, mint
		}
		accounts, err := r.client.GetProgramAccountsWithOpts(ctx, r.ammProgram, &rpc.GetProgramAccountsOpts{
			Commitment: r.commitment,
			Encoding:   solana.EncodingBase64,
			Filters: []rpc.RPCFilter{
				{DataSize: ammPoolSize},
				{Memcmp: &rpc.RPCFilterMemcmp{Offset: baseMintOffset, Bytes: solana.Base58(base.Bytes())}},
				{Memcmp: &rpc.RPCFilterMemcmp{Offset: quoteMintOffset, Bytes: solana.Base58(quote.Bytes())}},
			},
		})
		if err != nil {
			return solana.PublicKey{}, ammPoolLayout{}, false, fmt.Errorf("chain: 查询池账户失败: %w", err)
		}
		for _, acc := range accounts {
			if acc == nil || acc.Account == nil || acc.Account.Data == nil {
				continue
			}
			layout, err := decodeAMMPool(acc.Account.Data.GetBinary())
			if err != nil {
				r.logger.Warn("跳过无法解析的池账户", zap.String("pool", acc.Pubkey.String()), zap.Error(err))
				continue
			}
			if len(accounts) > 1 {
				r.logger.Info("匹配到多个池子，使用第一个",
					zap.String("mint", mint.String()),
					zap.Int("count", len(accounts)),
				)
			}
			return acc.Pubkey, layout, mintIsBase, nil
		}
	}
	return solana.PublicKey{}, ammPoolLayout{}, false, fmt.Errorf("chain: %s: %w", mint, curve.ErrPoolNotFound)
}

func (r *Reader) vaultBalance(ctx context.Context, vault solana.PublicKey) (*big.Int, error) {
	res, err := r.client.GetTokenAccountBalance(ctx, vault, r.commitment)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("金库 %s 不存在: %w", vault, curve.ErrNotFound)
		}
		return nil, err
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("金库 %s 无余额数据: %w", vault, curve.ErrNotFound)
	}
	amount, ok := new(big.Int).SetString(res.Value.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("金库余额格式无效 %q", res.Value.Amount)
	}
	return amount, nil
}

func subFloor(v *big.Int, pnl uint64) *big.Int {
	out := new(big.Int).Sub(v, new(big.Int).SetUint64(pnl))
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	return out
}
