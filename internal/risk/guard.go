package risk

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"curve-trader/internal/store"
)

// Guard 在买入前检查单笔与日度限额，成交后累加日度买入额。卖出不受限制。
type Guard struct {
	limits  Limits
	tracker *DailyTracker
	logger  *zap.Logger
	now     func() time.Time
}

// NewGuard 创建风控守卫。
func NewGuard(ctx context.Context, limits Limits, store *store.Store, logger *zap.Logger) (*Guard, error) {
	if store == nil {
		return nil, errors.New("risk: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	tracker, err := NewDailyTracker(ctx, store, logger)
	if err != nil {
		return nil, err
	}

	return &Guard{
		limits:  limits,
		tracker: tracker,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// CheckBuy 判断买入 amount lamports 是否在限额内。
func (g *Guard) CheckBuy(ctx context.Context, tradeID string, amount *big.Int) (DailyStatus, error) {
	status, err := g.tracker.Status(ctx, g.now())
	if err != nil {
		return DailyStatus{}, err
	}
	if g.limits.DailySpendLimit != nil {
		status.Remaining = new(big.Int).Sub(g.limits.DailySpendLimit, status.Spent)
	}

	if maxBuy := g.limits.MaxBuyAmount; maxBuy != nil && amount.Cmp(maxBuy) > 0 {
		g.deny(ctx, tradeID, "max_buy", fmt.Sprintf("单笔买入 %s 超过上限 %s", amount, maxBuy))
		return status, fmt.Errorf("%w: %s > %s", ErrMaxBuyExceeded, amount, maxBuy)
	}

	if limit := g.limits.DailySpendLimit; limit != nil {
		projected := new(big.Int).Add(status.Spent, amount)
		if projected.Cmp(limit) > 0 {
			g.deny(ctx, tradeID, "daily_limit", fmt.Sprintf("当日累计 %s 将超过上限 %s", projected, limit))
			return status, fmt.Errorf("%w: %s > %s", ErrDailyLimitExceeded, projected, limit)
		}
	}

	return status, nil
}

// RecordBuy 累加已被接受的买入金额。
func (g *Guard) RecordBuy(ctx context.Context, tradeID string, amount *big.Int) (DailyStatus, error) {
	status, err := g.tracker.Add(ctx, g.now(), tradeID, amount)
	if err != nil {
		return DailyStatus{}, err
	}
	if g.limits.DailySpendLimit != nil {
		status.Remaining = new(big.Int).Sub(g.limits.DailySpendLimit, status.Spent)
	}
	return status, nil
}

func (g *Guard) deny(ctx context.Context, tradeID, eventType, message string) {
	g.logger.Warn("风控拒绝买入", zap.String("trade_id", tradeID), zap.String("reason", message))
	if err := g.tracker.LogEvent(ctx, eventType, message, tradeID); err != nil {
		g.logger.Warn("记录风控事件失败", zap.Error(err))
	}
}
