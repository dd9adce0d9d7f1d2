package position

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"curve-trader/internal/curve"
)

type balanceClient interface {
	TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (*big.Int, error)
}

type reserveClient interface {
	Reserves(ctx context.Context, mint solana.PublicKey) (curve.ReserveState, error)
	Global(ctx context.Context) (curve.GlobalState, error)
}

// Holding 描述钱包在某条曲线上的持仓。数量均为最小单位整数。
type Holding struct {
	Mint           solana.PublicKey
	Owner          solana.PublicKey
	Balance        *big.Int
	Reserves       curve.ReserveState
	FeeBasisPoints int
	// SpotValue 为按现价估算的 SOL 价值，不含价格冲击。
	SpotValue *big.Int
	// ExitValue 为全部卖回曲线可得的扣费后 SOL；曲线已完成时为 0。
	ExitValue      *big.Int
	SupplyShareBps int64
	Timestamp      time.Time
}

// Manager 读取钱包余额并按曲线状态估值。
type Manager struct {
	balances balanceClient
	reserves reserveClient
	logger   *zap.Logger
}

// NewManager 创建持仓管理器。
func NewManager(balances balanceClient, reserves reserveClient, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		balances: balances,
		reserves: reserves,
		logger:   logger,
	}
}

// FetchSnapshot 并发读取余额与曲线状态，返回估值后的持仓。
func (m *Manager) FetchSnapshot(ctx context.Context, owner, mint solana.PublicKey) (Holding, error) {
	holding := Holding{Mint: mint, Owner: owner}
	if owner.IsZero() {
		return holding, errors.New("position: 钱包地址不能为空")
	}

	var global curve.GlobalState
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		balance, err := m.balances.TokenBalance(gctx, owner, mint)
		if err != nil {
			return fmt.Errorf("position: 获取代币余额失败: %w", err)
		}
		holding.Balance = balance
		return nil
	})
	g.Go(func() error {
		state, err := m.reserves.Reserves(gctx, mint)
		if err != nil {
			return fmt.Errorf("position: 读取曲线储备失败: %w", err)
		}
		holding.Reserves = state
		return nil
	})
	g.Go(func() error {
		state, err := m.reserves.Global(gctx)
		if err != nil {
			return fmt.Errorf("position: 读取全局参数失败: %w", err)
		}
		global = state
		return nil
	})
	if err := g.Wait(); err != nil {
		return holding, err
	}

	if holding.Balance == nil {
		holding.Balance = new(big.Int)
	}
	holding.FeeBasisPoints = global.FeeBasisPoints
	holding.Reserves.FeeBasisPoints = global.FeeBasisPoints
	holding.SpotValue = spotValue(holding.Reserves, holding.Balance)
	holding.SupplyShareBps = supplyShare(holding.Reserves.TotalSupply, holding.Balance)
	holding.ExitValue = new(big.Int)
	holding.Timestamp = time.Now().UTC()

	if holding.Balance.Sign() > 0 && !holding.Reserves.Complete {
		exit, err := curve.QuoteSell(holding.Reserves, holding.Balance, global.FeeBasisPoints)
		if err != nil {
			return holding, fmt.Errorf("position: 估算卖出价值失败: %w", err)
		}
		holding.ExitValue = exit
	}

	m.logger.Debug("持仓估值完成",
		zap.String("mint", mint.String()),
		zap.String("balance", holding.Balance.String()),
		zap.String("exit_value", holding.ExitValue.String()),
	)
	return holding, nil
}

func spotValue(reserves curve.ReserveState, balance *big.Int) *big.Int {
	if reserves.VirtualBase == nil || reserves.VirtualBase.Sign() == 0 || reserves.VirtualQuote == nil {
		return new(big.Int)
	}
	v := new(big.Int).Mul(balance, reserves.VirtualQuote)
	return v.Quo(v, reserves.VirtualBase)
}

func supplyShare(totalSupply, balance *big.Int) int64 {
	if totalSupply == nil || totalSupply.Sign() == 0 {
		return 0
	}
	share := new(big.Int).Mul(balance, big.NewInt(curve.BasisPointsDenominator))
	return share.Quo(share, totalSupply).Int64()
}
