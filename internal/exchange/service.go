package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// candleSource 为 PriceFeed 依赖的K线来源，*Client 满足该接口。
type candleSource interface {
	Market() string
	FetchCandles(ctx context.Context, timeframe string, limit int64) ([]Candle, error)
}

// PriceFeed 提供报价资产的美元价格。
type PriceFeed struct {
	source candleSource
	logger *zap.Logger
}

// NewPriceFeed 创建价格服务。
func NewPriceFeed(source candleSource, logger *zap.Logger) *PriceFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceFeed{source: source, logger: logger}
}

// QuotePrice 并发拉取分钟线与小时线，返回最新价与 24 小时涨跌幅。
func (f *PriceFeed) QuotePrice(ctx context.Context) (QuotePrice, error) {
	var (
		minute []Candle
		hourly []Candle
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		data, err := f.source.FetchCandles(groupCtx, TimeframeMinute, 1)
		if err != nil {
			return err
		}
		minute = data
		return nil
	})
	group.Go(func() error {
		data, err := f.source.FetchCandles(groupCtx, TimeframeHour, 25)
		if err != nil {
			return err
		}
		hourly = data
		return nil
	})
	if err := group.Wait(); err != nil {
		return QuotePrice{}, err
	}

	if len(minute) == 0 {
		return QuotePrice{}, errors.New("exchange: 未获取到最新K线")
	}

	last := decimal.NewFromFloat(minute[len(minute)-1].Close)
	if !last.IsPositive() {
		return QuotePrice{}, fmt.Errorf("exchange: 最新价格无效 %s", last)
	}

	change := decimal.Zero
	if len(hourly) > 0 {
		open := decimal.NewFromFloat(hourly[0].Open)
		if open.IsPositive() {
			change = last.Sub(open).Div(open)
		}
	}

	price := QuotePrice{
		Market:      f.source.Market(),
		Last:        last,
		Change24h:   change.Round(6),
		RetrievedAt: time.Now().UTC(),
	}

	f.logger.Debug("报价资产行情获取完成",
		zap.String("market", price.Market),
		zap.String("last", price.Last.String()),
		zap.String("change_24h", price.Change24h.String()),
	)

	return price, nil
}
