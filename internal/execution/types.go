package execution

import (
	"context"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"

	"curve-trader/internal/curve"
	"curve-trader/internal/relay"
)

// ReserveReader 读取最新的曲线储备与全局参数，实现方不得缓存。
type ReserveReader interface {
	Reserves(ctx context.Context, mint solana.PublicKey) (curve.ReserveState, error)
	Global(ctx context.Context) (curve.GlobalState, error)
}

// PayloadBuilder 根据执行计划生成已签名的交易字节。
type PayloadBuilder interface {
	Build(ctx context.Context, plan ExecutionPlan) ([]byte, error)
}

// PoolReader 读取曲线迁移后的常数乘积池储备。ReserveReader 同时实现该接口时，
// 已完成的曲线改在池子上报价。
type PoolReader interface {
	Pool(ctx context.Context, mint solana.PublicKey) (curve.PoolReserves, error)
}

// Venue 为成交场所。
type Venue string

const (
	VenueBondingCurve Venue = "bonding_curve"
	VenueAMM          Venue = "amm"
)

type payloadSubmitter interface {
	Submit(ctx context.Context, payload []byte, policy relay.Policy) (relay.Outcome, error)
}

// PlanRequest 描述一次交易意图。
//
// 买入时 Amount 为投入的 SOL（lamports），卖出时为卖出的代币数量（最小单位）。
type PlanRequest struct {
	Mint        solana.PublicKey
	Owner       solana.PublicKey
	Side        curve.Side
	Amount      *big.Int
	SlippageBps int
}

// ExecutionPlan 为定价完成、待签名提交的交易计划。
type ExecutionPlan struct {
	TradeID     string
	Mint        solana.PublicKey
	Owner       solana.PublicKey
	Side        curve.Side
	Venue       Venue
	Reserves    curve.ReserveState
	Pool        *curve.PoolReserves // 仅 VenueAMM
	Quote       curve.Quote
	TipAccount  solana.PublicKey
	TipLamports *big.Int
	GeneratedAt time.Time
}

// Result 为执行结果摘要。
type Result struct {
	TradeID       string
	Executed      bool
	Simulated     bool
	Outcome       relay.Outcome
	Projected     *curve.ReserveState
	ProjectedPool *curve.PoolReserves
	ExecutionTime time.Time
	Notes         []string
}
