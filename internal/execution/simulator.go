package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"curve-trader/internal/curve"
	"curve-trader/internal/relay"
)

// SimulatedExecutor 生成与真实执行相同的计划，但不签名也不提交，只推算成交后的储备。
type SimulatedExecutor struct {
	planner
	logger *zap.Logger
}

// NewSimulatedExecutor 创建模拟执行器。
func NewSimulatedExecutor(reader ReserveReader, tips relay.TipSelector, opts Options, logger *zap.Logger) (*SimulatedExecutor, error) {
	p, err := newPlanner(reader, tips, opts)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulatedExecutor{planner: p, logger: logger}, nil
}

// BuildPlan 读取最新储备并生成执行计划。
func (s *SimulatedExecutor) BuildPlan(ctx context.Context, req PlanRequest) (ExecutionPlan, error) {
	return s.buildPlan(ctx, req)
}

// Execute 推算成交后的储备，不产生网络请求。
func (s *SimulatedExecutor) Execute(ctx context.Context, plan ExecutionPlan) (Result, error) {
	result := Result{
		TradeID:       plan.TradeID,
		Simulated:     true,
		ExecutionTime: time.Now().UTC(),
		Notes:         []string{"模拟模式，交易未提交"},
	}

	if plan.Venue == VenueAMM {
		if plan.Pool == nil {
			return result, errors.New("execution: 池子计划缺少储备快照")
		}
		// 池子手续费留在池内，输入全额计入储备。
		projected := plan.Pool.AfterSwap(plan.Side, plan.Quote.AmountIn, plan.Quote.AmountOut)
		result.ProjectedPool = &projected
		result.Executed = true
		result.Outcome = relay.Outcome{Status: relay.StatusAccepted}
		s.logger.Info("模拟执行完成",
			zap.String("trade_id", plan.TradeID),
			zap.String("venue", string(plan.Venue)),
			zap.String("side", string(plan.Side)),
			zap.String("amount_out", plan.Quote.AmountOut.String()),
			zap.String("pool", projected.Pool),
		)
		return result, nil
	}

	var projected curve.ReserveState
	switch plan.Side {
	case curve.SideBuy:
		projected = plan.Reserves.AfterBuy(plan.Quote.AmountIn, plan.Quote.AmountOut)
	case curve.SideSell:
		// 曲线支付的是扣费前金额。
		gross, err := curve.QuoteSell(plan.Reserves, plan.Quote.AmountIn, 0)
		if err != nil {
			return result, fmt.Errorf("execution: 模拟卖出失败: %w", err)
		}
		projected = plan.Reserves.AfterSell(plan.Quote.AmountIn, gross)
	default:
		return result, fmt.Errorf("execution: 不支持的交易方向 %q", plan.Side)
	}

	result.Projected = &projected
	result.Executed = true
	result.Outcome = relay.Outcome{Status: relay.StatusAccepted}

	s.logger.Info("模拟执行完成",
		zap.String("trade_id", plan.TradeID),
		zap.String("venue", string(VenueBondingCurve)),
		zap.String("side", string(plan.Side)),
		zap.String("amount_out", plan.Quote.AmountOut.String()),
		zap.String("virtual_base_after", projected.VirtualBase.String()),
	)
	return result, nil
}
