package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"curve-trader/internal/relay"
)

// Executor 将执行计划签名后交给中继提交器。
type Executor struct {
	planner
	builder   PayloadBuilder
	submitter payloadSubmitter
	policy    relay.Policy
	deadline  time.Duration
	logger    *zap.Logger
}

// NewExecutor 创建执行器。deadline 为整个提交过程的时限，0 表示只受 ctx 约束。
func NewExecutor(
	reader ReserveReader,
	builder PayloadBuilder,
	submitter payloadSubmitter,
	tips relay.TipSelector,
	policy relay.Policy,
	deadline time.Duration,
	opts Options,
	logger *zap.Logger,
) (*Executor, error) {
	if builder == nil {
		return nil, errors.New("execution: payload builder 不能为空")
	}
	if submitter == nil {
		return nil, errors.New("execution: submitter 不能为空")
	}
	p, err := newPlanner(reader, tips, opts)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		planner:   p,
		builder:   builder,
		submitter: submitter,
		policy:    policy,
		deadline:  deadline,
		logger:    logger,
	}, nil
}

// BuildPlan 读取最新储备并生成执行计划。
func (e *Executor) BuildPlan(ctx context.Context, req PlanRequest) (ExecutionPlan, error) {
	plan, err := e.buildPlan(ctx, req)
	if err != nil {
		return ExecutionPlan{}, err
	}
	e.logger.Info("生成执行计划",
		zap.String("trade_id", plan.TradeID),
		zap.String("mint", plan.Mint.String()),
		zap.String("side", string(plan.Side)),
		zap.String("venue", string(plan.Venue)),
		zap.String("amount_in", plan.Quote.AmountIn.String()),
		zap.String("amount_out", plan.Quote.AmountOut.String()),
		zap.String("limit", plan.Quote.LimitAmount.String()),
		zap.String("tip_account", plan.TipAccount.String()),
	)
	return plan, nil
}

// Execute 签名并提交交易。签名失败不会触发任何网络请求。
func (e *Executor) Execute(ctx context.Context, plan ExecutionPlan) (Result, error) {
	result := Result{
		TradeID:       plan.TradeID,
		ExecutionTime: time.Now().UTC(),
		Notes:         make([]string, 0, 2),
	}

	payload, err := e.builder.Build(ctx, plan)
	if err != nil {
		result.Notes = append(result.Notes, fmt.Sprintf("签名失败: %v", err))
		return result, fmt.Errorf("execution: 构建交易失败: %w", err)
	}
	if len(payload) == 0 {
		result.Notes = append(result.Notes, "签名结果为空")
		return result, errors.New("execution: 签名结果为空")
	}

	submitCtx := ctx
	if e.deadline > 0 {
		var cancel context.CancelFunc
		submitCtx, cancel = context.WithTimeout(ctx, e.deadline)
		defer cancel()
	}

	outcome, err := e.submitter.Submit(submitCtx, payload, e.policy)
	result.Outcome = outcome
	result.Executed = outcome.Status == relay.StatusAccepted
	if err != nil {
		result.Notes = append(result.Notes, fmt.Sprintf("提交失败: %v", err))
		return result, err
	}

	e.logger.Info("交易已被中继接受",
		zap.String("trade_id", plan.TradeID),
		zap.String("signature", outcome.Result),
		zap.Int("attempts", len(outcome.Attempts)),
	)
	return result, nil
}
