package execution

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"curve-trader/internal/curve"
	"curve-trader/internal/relay"
)

// Options 控制计划生成参数。
type Options struct {
	SlippageBps int
	TipLamports *big.Int
}

// planner 负责读取储备、定价并选择小费地址，真实与模拟执行器共用。
type planner struct {
	reader ReserveReader
	pools  PoolReader
	tips   relay.TipSelector
	opts   Options
	now    func() time.Time
}

func newPlanner(reader ReserveReader, tips relay.TipSelector, opts Options) (planner, error) {
	if reader == nil {
		return planner{}, errors.New("execution: reserve reader 不能为空")
	}
	if tips == nil {
		return planner{}, errors.New("execution: tip selector 不能为空")
	}
	if opts.TipLamports == nil {
		opts.TipLamports = new(big.Int)
	}
	pools, _ := reader.(PoolReader)
	return planner{reader: reader, pools: pools, tips: tips, opts: opts, now: time.Now}, nil
}

// buildPlan 每次都重新读取储备，不复用上一次的快照。
func (p planner) buildPlan(ctx context.Context, req PlanRequest) (ExecutionPlan, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return ExecutionPlan{}, errors.New("execution: 交易数量必须大于0")
	}
	if req.Mint.IsZero() {
		return ExecutionPlan{}, errors.New("execution: mint 不能为空")
	}

	slippage := req.SlippageBps
	if slippage <= 0 {
		slippage = p.opts.SlippageBps
	}

	var (
		reserves curve.ReserveState
		global   curve.GlobalState
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		state, err := p.reader.Reserves(groupCtx, req.Mint)
		if err != nil {
			return err
		}
		reserves = state
		return nil
	})
	group.Go(func() error {
		state, err := p.reader.Global(groupCtx)
		if err != nil {
			return err
		}
		global = state
		return nil
	})
	if err := group.Wait(); err != nil {
		return ExecutionPlan{}, fmt.Errorf("execution: 读取曲线状态失败: %w", err)
	}
	reserves.FeeBasisPoints = global.FeeBasisPoints

	venue := VenueBondingCurve
	var pool *curve.PoolReserves
	if reserves.Complete && p.pools != nil {
		state, err := p.pools.Pool(ctx, req.Mint)
		if err != nil {
			return ExecutionPlan{}, fmt.Errorf("execution: %w: %w", curve.ErrCurveComplete, err)
		}
		venue, pool = VenueAMM, &state
	}

	var (
		quote curve.Quote
		err   error
	)
	switch {
	case req.Side == curve.SideBuy && venue == VenueAMM:
		quote, err = curve.PoolBuyQuote(*pool, req.Amount, slippage)
	case req.Side == curve.SideSell && venue == VenueAMM:
		quote, err = curve.PoolSellQuote(*pool, req.Amount, slippage)
	case req.Side == curve.SideBuy:
		quote, err = curve.BuyQuote(reserves, req.Amount, slippage)
	case req.Side == curve.SideSell:
		quote, err = curve.SellQuote(reserves, req.Amount, global.FeeBasisPoints, slippage)
	default:
		return ExecutionPlan{}, fmt.Errorf("execution: 不支持的交易方向 %q", req.Side)
	}
	if err != nil {
		return ExecutionPlan{}, fmt.Errorf("execution: 定价失败: %w", err)
	}
	if quote.AmountOut.Sign() == 0 {
		return ExecutionPlan{}, errors.New("execution: 报价结果为0，放弃交易")
	}

	return ExecutionPlan{
		TradeID:     uuid.NewString(),
		Mint:        req.Mint,
		Owner:       req.Owner,
		Side:        req.Side,
		Venue:       venue,
		Reserves:    reserves,
		Pool:        pool,
		Quote:       quote,
		TipAccount:  p.pickTip(),
		TipLamports: new(big.Int).Set(p.opts.TipLamports),
		GeneratedAt: p.now().UTC(),
	}, nil
}

func (p planner) pickTip() solana.PublicKey {
	return p.tips()
}
