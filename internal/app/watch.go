package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Watch 周期性读取 mints 的曲线状态并记录价格观测，直到 ctx 结束。
// interval 不为正时使用 scheduler.loop_interval。
func (a *App) Watch(ctx context.Context, mints []string, interval time.Duration) error {
	if len(mints) == 0 {
		return errors.New("app: 至少需要一个 mint")
	}
	for _, mint := range mints {
		if _, err := solana.PublicKeyFromBase58(mint); err != nil {
			return fmt.Errorf("app: mint 地址无效 %q: %w", mint, err)
		}
	}
	if interval <= 0 {
		interval = a.cfg.Scheduler.LoopInterval
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	a.logger.Info("开始监听曲线价格", zap.Strings("mints", mints), zap.Duration("interval", interval))
	a.tick(ctx, mints)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("监听异常退出: %w", err)
			}
			a.logger.Info("收到退出信号，停止监听")
			return nil
		case <-ticker.C:
			a.tick(ctx, mints)
		}
	}
}

func (a *App) tick(ctx context.Context, mints []string) {
	for _, mint := range mints {
		if ctx.Err() != nil {
			return
		}
		res := a.Price(ctx, mint)
		if !res.Success {
			a.logger.Warn("价格观测失败", zap.String("mint", mint), zap.String("error", res.Error))
			continue
		}
		a.logger.Info("价格观测",
			zap.String("mint", mint),
			zap.String("spot_price", res.SpotPrice),
			zap.String("market_cap", res.MarketCap),
			zap.Bool("complete", res.Complete),
		)
	}
}
