package app

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"curve-trader/internal/chain"
	"curve-trader/internal/config"
	"curve-trader/internal/exchange"
	"curve-trader/internal/execution"
	"curve-trader/internal/log"
	"curve-trader/internal/monitor"
	"curve-trader/internal/position"
	"curve-trader/internal/relay"
	"curve-trader/internal/risk"
	"curve-trader/internal/store"
	"curve-trader/internal/units"
)

type chainReader interface {
	execution.ReserveReader
	execution.PoolReader
	TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (*big.Int, error)
}

type quotePricer interface {
	QuotePrice(ctx context.Context) (exchange.QuotePrice, error)
}

// candleSource 为价格服务的K线来源，*exchange.Client 满足该接口。
type candleSource interface {
	Market() string
	FetchCandles(ctx context.Context, timeframe string, limit int64) ([]exchange.Candle, error)
}

type rawSubmitter interface {
	Submit(ctx context.Context, payload []byte, policy relay.Policy) (relay.Outcome, error)
}

// App 聚合核心依赖，对外提供命令行各子命令。
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	reader    chainReader
	trader    execution.Trader
	submitter rawSubmitter
	prices    quotePricer
	guard     *risk.Guard
	monitor   *monitor.Service
	positions *position.Manager
	policy    relay.Policy
	owner     solana.PublicKey
}

// New 根据配置装配全部组件。
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, st *store.Store) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	reader, err := chain.NewReader(cfg.RPC, cfg.Curve, log.Component(logger, "chain"))
	if err != nil {
		return nil, fmt.Errorf("初始化链上读取器失败: %w", err)
	}

	tips, err := relay.NewTipAccounts(cfg.Relay.TipAccounts)
	if err != nil {
		return nil, fmt.Errorf("初始化小费地址失败: %w", err)
	}
	tipLamports, err := units.Parse(cfg.Relay.TipAmount, cfg.Curve.QuoteDecimals)
	if err != nil {
		return nil, fmt.Errorf("解析 relay.tip_amount 失败: %w", err)
	}

	relayLogger := log.Component(logger, "relay")
	submitter := relay.NewSubmitter(relay.NewJSONRPCClient(&http.Client{}), cfg.Relay.Endpoint, relayLogger)
	policy := relay.Policy{
		MaxAttempts:    cfg.Relay.MaxAttempts,
		Backoff:        cfg.Relay.Backoff,
		AttemptTimeout: cfg.Relay.AttemptTimeout,
	}

	opts := execution.Options{SlippageBps: cfg.Trade.SlippageBps, TipLamports: tipLamports}
	execLogger := log.Component(logger, "execution")

	var trader execution.Trader
	if cfg.Trade.Simulation {
		logger.Info("执行器处于模拟模式")
		trader, err = execution.NewSimulatedExecutor(reader, tips.Selector(), opts, execLogger)
	} else {
		builder, buildErr := execution.NewCommandBuilder(cfg.Signer, execLogger)
		if buildErr != nil {
			return nil, buildErr
		}
		builder.WithBondingCurve(func(plan execution.ExecutionPlan) string {
			addr, addrErr := chain.BondingCurveAddress(reader.ProgramID(), plan.Mint)
			if addrErr != nil {
				return ""
			}
			return addr.String()
		})
		trader, err = execution.NewExecutor(reader, builder, submitter, tips.Selector(), policy, cfg.Relay.Deadline, opts, execLogger)
	}
	if err != nil {
		return nil, fmt.Errorf("初始化执行器失败: %w", err)
	}

	limits, err := parseLimits(cfg.Trade, cfg.Curve.QuoteDecimals)
	if err != nil {
		return nil, err
	}
	guard, err := risk.NewGuard(ctx, limits, st, log.Component(logger, "risk"))
	if err != nil {
		return nil, fmt.Errorf("初始化风控失败: %w", err)
	}

	monitorSvc, err := monitor.NewService(ctx, st, log.Component(logger, "monitor"))
	if err != nil {
		return nil, fmt.Errorf("初始化监控服务失败: %w", err)
	}

	var prices quotePricer
	if cfg.Exchange.Enabled {
		exClient, exErr := exchange.NewClient(cfg.Exchange, log.Component(logger, "exchange"))
		if exErr != nil {
			return nil, fmt.Errorf("初始化行情客户端失败: %w", exErr)
		}
		prices = newPriceFeed(exClient, logger)
	}

	var owner solana.PublicKey
	if addr := strings.TrimSpace(cfg.Trade.WalletAddress); addr != "" {
		owner, err = solana.PublicKeyFromBase58(addr)
		if err != nil {
			return nil, fmt.Errorf("trade.wallet_address 无效: %w", err)
		}
	}

	logger.Info("系统已初始化",
		zap.String("environment", cfg.App.Environment),
		zap.String("rpc", cfg.RPC.Endpoint),
		zap.String("relay", cfg.Relay.Endpoint),
		zap.Bool("simulation", cfg.Trade.Simulation),
		zap.Int("tip_accounts", tips.Len()),
	)

	return &App{
		cfg:       cfg,
		logger:    logger,
		reader:    reader,
		trader:    trader,
		submitter: submitter,
		prices:    prices,
		guard:     guard,
		monitor:   monitorSvc,
		positions: position.NewManager(reader, reader, log.Component(logger, "position")),
		policy:    policy,
		owner:     owner,
	}, nil
}

func newPriceFeed(source candleSource, logger *zap.Logger) *exchange.PriceFeed {
	return exchange.NewPriceFeed(source, log.Component(logger, "price_feed"))
}

func parseLimits(cfg config.TradeConfig, quoteDecimals int32) (risk.Limits, error) {
	var limits risk.Limits
	if cfg.MaxBuyAmount != "" {
		v, err := units.Parse(cfg.MaxBuyAmount, quoteDecimals)
		if err != nil {
			return limits, fmt.Errorf("解析 trade.max_buy_amount 失败: %w", err)
		}
		limits.MaxBuyAmount = v
	}
	if cfg.DailySpendLimit != "" {
		v, err := units.Parse(cfg.DailySpendLimit, quoteDecimals)
		if err != nil {
			return limits, fmt.Errorf("解析 trade.daily_spend_limit 失败: %w", err)
		}
		limits.DailySpendLimit = v
	}
	return limits, nil
}
