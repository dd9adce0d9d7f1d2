package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"curve-trader/internal/curve"
	"curve-trader/internal/exchange"
	"curve-trader/internal/execution"
	"curve-trader/internal/indicator"
	"curve-trader/internal/monitor"
	"curve-trader/internal/position"
	"curve-trader/internal/relay"
	"curve-trader/internal/units"
)

const (
	// priceQuoteAmount 为 price 命令展示的参考买入金额（SOL）。
	priceQuoteAmount = "0.1"
	// statusBlocked 表示买入被风控拦截，未进入执行。
	statusBlocked = "blocked"
)

// ErrWalletRequired 表示卖出时未配置钱包地址。
var ErrWalletRequired = errors.New("app: trade.wallet_address is required")

// Price 读取储备并输出现价、市值及参考报价。
func (a *App) Price(ctx context.Context, mintArg string) PriceResult {
	result := PriceResult{Mint: mintArg}
	mint, err := solana.PublicKeyFromBase58(strings.TrimSpace(mintArg))
	if err != nil {
		result.fail(fmt.Errorf("mint 地址无效: %w", err))
		return result
	}

	var (
		reserves curve.ReserveState
		global   curve.GlobalState
		usd      *exchange.QuotePrice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reserves, err = a.reader.Reserves(gctx, mint)
		return err
	})
	g.Go(func() error {
		var err error
		global, err = a.reader.Global(gctx)
		return err
	})
	if a.prices != nil {
		g.Go(func() error {
			quote, err := a.prices.QuotePrice(gctx)
			if err != nil {
				// 美元行情仅用于展示，失败不影响结果。
				a.logger.Warn("获取美元行情失败", zap.Error(err))
				return nil
			}
			usd = &quote
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.Error("读取储备失败", zap.String("mint", mintArg), zap.Error(err))
		result.fail(err)
		return result
	}

	baseDec, quoteDec := a.cfg.Curve.TokenDecimals, a.cfg.Curve.QuoteDecimals
	reserves.FeeBasisPoints = global.FeeBasisPoints

	buyIn, err := units.Parse(priceQuoteAmount, quoteDec)
	if err != nil {
		result.fail(err)
		return result
	}

	result.Complete = reserves.Complete
	result.FeeBasisPoints = global.FeeBasisPoints
	result.BuyAmount = priceQuoteAmount
	result.InitialBuyTokens = units.Format(global.InitialBuyPrice(buyIn), baseDec)

	var (
		spot      decimal.Decimal
		marketCap *big.Int
		// 观测记录的储备：曲线为虚拟储备，迁移后为池子储备。
		obsBase, obsQuote *big.Int
	)
	quote, err := curve.BuyQuote(reserves, buyIn, a.cfg.Trade.SlippageBps)
	switch {
	case errors.Is(err, curve.ErrCurveComplete):
		pool, poolErr := a.reader.Pool(ctx, mint)
		if poolErr != nil {
			a.logger.Warn("曲线已完成且无可用池子", zap.String("mint", mintArg), zap.Error(poolErr))
			result.fail(fmt.Errorf("%w: %w", err, poolErr))
			return result
		}
		quote, err = curve.PoolBuyQuote(pool, buyIn, a.cfg.Trade.SlippageBps)
		if err != nil {
			result.fail(err)
			return result
		}
		result.Venue = string(execution.VenueAMM)
		result.Pool = pool.Pool
		result.PoolBase = units.Format(pool.BaseReserve, baseDec)
		result.PoolQuote = units.Format(pool.QuoteReserve, quoteDec)
		result.FeeBasisPoints = pool.FeeBasisPoints
		spot = units.SpotPrice(pool.BaseReserve, pool.QuoteReserve, baseDec, quoteDec)
		marketCap = pool.MarketCap(reserves.TotalSupply)
		obsBase, obsQuote = pool.BaseReserve, pool.QuoteReserve
	case err != nil:
		result.fail(err)
		return result
	default:
		result.Venue = string(execution.VenueBondingCurve)
		result.VirtualBase = units.Format(reserves.VirtualBase, baseDec)
		result.VirtualQuote = units.Format(reserves.VirtualQuote, quoteDec)
		result.RealBase = units.Format(reserves.RealBase, baseDec)
		result.RealQuote = units.Format(reserves.RealQuote, quoteDec)
		result.FinalMarketCap = units.Format(curve.FinalMarketCap(reserves, global.FeeBasisPoints), quoteDec)
		spot = units.SpotPrice(reserves.VirtualBase, reserves.VirtualQuote, baseDec, quoteDec)
		marketCap = curve.MarketCap(reserves)
		obsBase, obsQuote = reserves.VirtualBase, reserves.VirtualQuote
	}
	result.BuyTokens = units.Format(quote.AmountOut, baseDec)
	result.SpotPrice = spot.String()
	result.MarketCap = units.Format(marketCap, quoteDec)

	obs := monitor.Observation{
		Mint:         mint.String(),
		SpotPrice:    result.SpotPrice,
		MarketCap:    result.MarketCap,
		VirtualBase:  obsBase.String(),
		VirtualQuote: obsQuote.String(),
		Complete:     reserves.Complete,
		ObservedAt:   time.Now().UTC(),
	}
	if usd != nil {
		result.QuoteUSDPrice = usd.Last.String()
		result.MarketCapUSD = units.ToDecimal(marketCap, quoteDec).Mul(usd.Last).StringFixed(2)
		obs.QuoteUSDPrice = result.QuoteUSDPrice
	}
	a.monitor.RecordObservation(ctx, obs)

	result.Success = true
	return result
}

// Buy 以 amount SOL 买入 mint，amount 为空时使用 trade.buy_amount。
func (a *App) Buy(ctx context.Context, mintArg, amountArg string) TradeResult {
	result := TradeResult{Mint: mintArg, Side: string(curve.SideBuy)}
	mint, err := solana.PublicKeyFromBase58(strings.TrimSpace(mintArg))
	if err != nil {
		result.fail(fmt.Errorf("mint 地址无效: %w", err))
		return result
	}
	if strings.TrimSpace(amountArg) == "" {
		amountArg = a.cfg.Trade.BuyAmount
	}
	amount, err := units.Parse(amountArg, a.cfg.Curve.QuoteDecimals)
	if err != nil {
		result.fail(err)
		return result
	}

	plan, err := a.trader.BuildPlan(ctx, execution.PlanRequest{
		Mint:   mint,
		Owner:  a.owner,
		Side:   curve.SideBuy,
		Amount: amount,
	})
	if err != nil {
		a.logger.Error("生成买入计划失败", zap.String("mint", mintArg), zap.Error(err))
		result.fail(err)
		return result
	}
	a.fillPlan(&result, plan)

	// 风控按签名允许的最大 SOL 成本计算，而非名义投入。
	if _, err := a.guard.CheckBuy(ctx, plan.TradeID, plan.Quote.LimitAmount); err != nil {
		result.Status = statusBlocked
		result.fail(err)
		a.journal(ctx, result)
		return result
	}

	res, execErr := a.trader.Execute(ctx, plan)
	a.fillExecution(&result, res)
	if execErr != nil {
		a.logger.Error("买入执行失败", zap.String("trade_id", plan.TradeID), zap.Error(execErr))
		result.fail(execErr)
		a.monitor.RecordError(ctx, "买入执行失败", execErr, map[string]interface{}{"trade_id": plan.TradeID})
		a.journal(ctx, result)
		return result
	}

	if res.Executed && !res.Simulated {
		if _, err := a.guard.RecordBuy(ctx, plan.TradeID, plan.Quote.LimitAmount); err != nil {
			a.logger.Warn("记录当日买入额度失败", zap.String("trade_id", plan.TradeID), zap.Error(err))
		}
	}

	result.Success = true
	a.journal(ctx, result)
	return result
}

// Sell 卖出钱包持仓的 percent%，percent 为空时使用 trade.sell_percent。
func (a *App) Sell(ctx context.Context, mintArg, percentArg string) TradeResult {
	result := TradeResult{Mint: mintArg, Side: string(curve.SideSell)}
	mint, err := solana.PublicKeyFromBase58(strings.TrimSpace(mintArg))
	if err != nil {
		result.fail(fmt.Errorf("mint 地址无效: %w", err))
		return result
	}
	if a.owner.IsZero() {
		result.fail(ErrWalletRequired)
		return result
	}

	percent := a.cfg.Trade.SellPercent
	if s := strings.TrimSpace(percentArg); s != "" {
		percent, err = strconv.Atoi(s)
		if err != nil {
			result.fail(fmt.Errorf("卖出比例无效: %q", s))
			return result
		}
	}

	balance, err := a.reader.TokenBalance(ctx, a.owner, mint)
	if err != nil {
		a.logger.Error("读取代币余额失败", zap.String("mint", mintArg), zap.Error(err))
		result.fail(err)
		return result
	}
	amount, err := units.Percent(balance, percent)
	if err != nil {
		result.fail(err)
		return result
	}
	if amount.Sign() == 0 {
		result.fail(fmt.Errorf("可卖数量为 0（余额 %s，比例 %d%%）", balance, percent))
		return result
	}

	plan, err := a.trader.BuildPlan(ctx, execution.PlanRequest{
		Mint:   mint,
		Owner:  a.owner,
		Side:   curve.SideSell,
		Amount: amount,
	})
	if err != nil {
		a.logger.Error("生成卖出计划失败", zap.String("mint", mintArg), zap.Error(err))
		result.fail(err)
		return result
	}
	a.fillPlan(&result, plan)

	res, execErr := a.trader.Execute(ctx, plan)
	a.fillExecution(&result, res)
	if execErr != nil {
		a.logger.Error("卖出执行失败", zap.String("trade_id", plan.TradeID), zap.Error(execErr))
		result.fail(execErr)
		a.monitor.RecordError(ctx, "卖出执行失败", execErr, map[string]interface{}{"trade_id": plan.TradeID})
		a.journal(ctx, result)
		return result
	}

	result.Success = true
	a.journal(ctx, result)
	return result
}

// Position 输出钱包在 mint 曲线上的持仓及估值。
func (a *App) Position(ctx context.Context, mintArg string) PositionResult {
	var result PositionResult
	mint, err := solana.PublicKeyFromBase58(strings.TrimSpace(mintArg))
	if err != nil {
		result.fail(fmt.Errorf("mint 地址无效: %w", err))
		return result
	}
	if a.owner.IsZero() {
		result.fail(ErrWalletRequired)
		return result
	}

	holding, err := a.positions.FetchSnapshot(ctx, a.owner, mint)
	if err != nil {
		a.logger.Error("读取持仓失败", zap.String("mint", mintArg), zap.Error(err))
		result.fail(err)
		return result
	}
	summary := position.Summarize(holding, a.cfg.Curve.TokenDecimals, a.cfg.Curve.QuoteDecimals)
	result.Summary = &summary
	result.Success = true
	return result
}

// Submit 通过中继提交已签名的 base58 交易。
func (a *App) Submit(ctx context.Context, txArg string) SubmitResult {
	var result SubmitResult
	payload, err := base58.Decode(strings.TrimSpace(txArg))
	if err != nil {
		result.fail(fmt.Errorf("交易数据不是有效的 base58: %w", err))
		return result
	}
	if len(payload) == 0 {
		result.fail(errors.New("交易数据为空"))
		return result
	}

	submitCtx := ctx
	if a.cfg.Relay.Deadline > 0 {
		var cancel context.CancelFunc
		submitCtx, cancel = context.WithTimeout(ctx, a.cfg.Relay.Deadline)
		defer cancel()
	}

	outcome, err := a.submitter.Submit(submitCtx, payload, a.policy)
	result.Status = string(outcome.Status)
	result.PayloadHash = outcome.PayloadHash
	result.Attempts = len(outcome.Attempts)
	result.Signature = outcome.Result
	if err != nil {
		a.logger.Error("提交交易失败", zap.String("payload_hash", outcome.PayloadHash), zap.Error(err))
		result.fail(err)
		return result
	}
	result.Success = true
	return result
}

// History 输出最近的价格观测以及均线指标。
func (a *App) History(ctx context.Context, mintArg string, limit int) HistoryResult {
	result := HistoryResult{Mint: mintArg}
	mint, err := solana.PublicKeyFromBase58(strings.TrimSpace(mintArg))
	if err != nil {
		result.fail(fmt.Errorf("mint 地址无效: %w", err))
		return result
	}

	observations, err := a.monitor.ListObservations(ctx, mint.String(), limit)
	if err != nil {
		result.fail(err)
		return result
	}

	points := make([]indicator.Point, 0, len(observations))
	for _, obs := range observations {
		result.Observations = append(result.Observations, HistoryPoint{
			ObservedAt: obs.ObservedAt.Format(time.RFC3339),
			SpotPrice:  obs.SpotPrice,
			MarketCap:  obs.MarketCap,
		})
		price, err := strconv.ParseFloat(obs.SpotPrice, 64)
		if err != nil {
			continue
		}
		points = append(points, indicator.Point{Time: obs.ObservedAt, Price: price})
	}
	result.Count = len(observations)

	summary, err := indicator.Compute(indicator.NewSeries(points), indicator.DefaultPeriod)
	switch {
	case errors.Is(err, indicator.ErrInsufficientData):
		// 观测不足时只返回原始记录。
	case err != nil:
		result.fail(err)
		return result
	default:
		result.Period = summary.Period
		result.SMA = formatFloat(summary.SMA)
		result.EMA = formatFloat(summary.EMA)
		result.RSI = formatFloat(summary.RSI)
		result.Change = formatFloat(summary.Change)
	}

	result.Success = true
	return result
}

func (a *App) fillPlan(result *TradeResult, plan execution.ExecutionPlan) {
	inDec, outDec := a.cfg.Curve.QuoteDecimals, a.cfg.Curve.TokenDecimals
	if plan.Side == curve.SideSell {
		inDec, outDec = outDec, inDec
	}
	result.TradeID = plan.TradeID
	result.Venue = string(plan.Venue)
	result.AmountIn = units.Format(plan.Quote.AmountIn, inDec)
	result.AmountOut = units.Format(plan.Quote.AmountOut, outDec)
	// 买入上限为 SOL 成本，卖出下限为 SOL 收入。
	result.LimitAmount = units.Format(plan.Quote.LimitAmount, a.cfg.Curve.QuoteDecimals)
	result.TipAccount = plan.TipAccount.String()
}

func (a *App) fillExecution(result *TradeResult, res execution.Result) {
	result.Simulated = res.Simulated
	result.Status = string(res.Outcome.Status)
	result.Attempts = len(res.Outcome.Attempts)
	result.Signature = res.Outcome.Result
	if result.Status == "" {
		result.Status = string(relay.StatusPending)
	}
}

func (a *App) journal(ctx context.Context, result TradeResult) {
	a.monitor.RecordTrade(ctx, monitor.TradeSummary{
		TradeID:   result.TradeID,
		Mint:      result.Mint,
		Side:      result.Side,
		AmountIn:  result.AmountIn,
		AmountOut: result.AmountOut,
		Status:    result.Status,
		Attempts:  result.Attempts,
		Signature: result.Signature,
		Simulated: result.Simulated,
		Error:     result.Error,
	})
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
