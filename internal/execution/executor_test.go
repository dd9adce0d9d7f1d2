package execution

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"curve-trader/internal/curve"
	"curve-trader/internal/relay"
)

type fakeReader struct {
	mu       sync.Mutex
	reserves func() curve.ReserveState
	global   curve.GlobalState
	reads    int
	err      error
}

func (f *fakeReader) Reserves(ctx context.Context, mint solana.PublicKey) (curve.ReserveState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return curve.ReserveState{}, f.err
	}
	return f.reserves(), nil
}

func (f *fakeReader) Global(ctx context.Context) (curve.GlobalState, error) {
	return f.global, nil
}

type fakePoolReader struct {
	*fakeReader
	pool  curve.PoolReserves
	err   error
	calls int
}

func (f *fakePoolReader) Pool(ctx context.Context, mint solana.PublicKey) (curve.PoolReserves, error) {
	f.calls++
	if f.err != nil {
		return curve.PoolReserves{}, f.err
	}
	return f.pool, nil
}

func newFakePoolReader() *fakePoolReader {
	reader := newFakeReader()
	reader.reserves = func() curve.ReserveState {
		r := makeReserves()
		r.Complete = true
		return r
	}
	return &fakePoolReader{
		fakeReader: reader,
		pool: curve.PoolReserves{
			Pool:           "pool-account",
			BaseReserve:    big.NewInt(200_000_000_000_000),
			QuoteReserve:   big.NewInt(80_000_000_000),
			FeeBasisPoints: curve.DefaultPoolFeeBasisPoints,
		},
	}
}

type fakeBuilder struct {
	payload []byte
	err     error
	calls   int
}

func (b *fakeBuilder) Build(ctx context.Context, plan ExecutionPlan) ([]byte, error) {
	b.calls++
	return b.payload, b.err
}

type fakeRelayClient struct {
	mu       sync.Mutex
	resp     relay.Response
	err      error
	payloads [][]byte
}

func (c *fakeRelayClient) Post(ctx context.Context, endpoint string, payload []byte) (relay.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
	return c.resp, c.err
}

func makeReserves() curve.ReserveState {
	return curve.ReserveState{
		VirtualBase:  big.NewInt(1_000_000_000_000),
		VirtualQuote: big.NewInt(30_000_000_000),
		RealBase:     big.NewInt(800_000_000_000),
		RealQuote:    big.NewInt(0),
		TotalSupply:  big.NewInt(1_000_000_000_000_000),
	}
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		reserves: makeReserves,
		global:   curve.GlobalState{Initialized: true, FeeBasisPoints: 100},
	}
}

func mustTips(t *testing.T) relay.TipAccounts {
	t.Helper()
	tips, err := relay.NewTipAccounts(relay.DefaultTipAccounts)
	if err != nil {
		t.Fatalf("NewTipAccounts returned error: %v", err)
	}
	return tips
}

func buyRequest() PlanRequest {
	return PlanRequest{
		Mint:   solana.NewWallet().PublicKey(),
		Owner:  solana.NewWallet().PublicKey(),
		Side:   curve.SideBuy,
		Amount: big.NewInt(1_000_000_000),
	}
}

func fastPolicy() relay.Policy {
	return relay.Policy{MaxAttempts: 3, Backoff: time.Millisecond, AttemptTimeout: time.Second}
}

func TestBuildPlan_Buy(t *testing.T) {
	tips := mustTips(t)
	reader := newFakeReader()
	sim, err := NewSimulatedExecutor(reader, tips.Selector(), Options{SlippageBps: 500, TipLamports: big.NewInt(100_000)}, nil)
	if err != nil {
		t.Fatalf("NewSimulatedExecutor returned error: %v", err)
	}

	plan, err := sim.BuildPlan(context.Background(), buyRequest())
	if err != nil {
		t.Fatalf("BuildPlan returned error: %v", err)
	}
	if plan.TradeID == "" {
		t.Errorf("expected trade id")
	}
	if plan.Quote.AmountOut.String() != "32258064516" {
		t.Errorf("unexpected amount out %s", plan.Quote.AmountOut)
	}
	if plan.Quote.LimitAmount.String() != "1050000000" {
		t.Errorf("expected max cost 1050000000, got %s", plan.Quote.LimitAmount)
	}
	if plan.Reserves.FeeBasisPoints != 100 {
		t.Errorf("expected fee from global state, got %d", plan.Reserves.FeeBasisPoints)
	}
	if !tips.Contains(plan.TipAccount) {
		t.Errorf("tip account %s not in table", plan.TipAccount)
	}
	if plan.TipLamports.Int64() != 100_000 {
		t.Errorf("unexpected tip %s", plan.TipLamports)
	}
}

func TestBuildPlan_RereadsReservesEveryTime(t *testing.T) {
	reader := newFakeReader()
	sim, err := NewSimulatedExecutor(reader, mustTips(t).Selector(), Options{SlippageBps: 100}, nil)
	if err != nil {
		t.Fatalf("NewSimulatedExecutor returned error: %v", err)
	}

	req := buyRequest()
	for i := 0; i < 3; i++ {
		if _, err := sim.BuildPlan(context.Background(), req); err != nil {
			t.Fatalf("BuildPlan returned error: %v", err)
		}
	}
	if reader.reads != 3 {
		t.Fatalf("expected 3 reserve reads, got %d", reader.reads)
	}
}

func TestBuildPlan_TipVariesAcrossTrades(t *testing.T) {
	sim, err := NewSimulatedExecutor(newFakeReader(), mustTips(t).Selector(), Options{SlippageBps: 100}, nil)
	if err != nil {
		t.Fatalf("NewSimulatedExecutor returned error: %v", err)
	}

	seen := make(map[solana.PublicKey]struct{})
	for i := 0; i < 64; i++ {
		plan, err := sim.BuildPlan(context.Background(), buyRequest())
		if err != nil {
			t.Fatalf("BuildPlan returned error: %v", err)
		}
		seen[plan.TipAccount] = struct{}{}
	}
	if len(seen) < 2 {
		t.Fatalf("expected tip recipient to vary, saw %d", len(seen))
	}
}

func TestBuildPlan_Errors(t *testing.T) {
	reader := newFakeReader()
	reader.reserves = func() curve.ReserveState {
		r := makeReserves()
		r.Complete = true
		return r
	}
	sim, err := NewSimulatedExecutor(reader, mustTips(t).Selector(), Options{SlippageBps: 100}, nil)
	if err != nil {
		t.Fatalf("NewSimulatedExecutor returned error: %v", err)
	}

	if _, err := sim.BuildPlan(context.Background(), buyRequest()); !errors.Is(err, curve.ErrCurveComplete) {
		t.Fatalf("expected ErrCurveComplete, got %v", err)
	}

	reader.err = curve.ErrNotFound
	if _, err := sim.BuildPlan(context.Background(), buyRequest()); !errors.Is(err, curve.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	req := buyRequest()
	req.Amount = big.NewInt(0)
	if _, err := sim.BuildPlan(context.Background(), req); err == nil {
		t.Fatalf("expected error for zero amount")
	}

	req = buyRequest()
	req.SlippageBps = 20000
	reader.err = nil
	reader.reserves = makeReserves
	if _, err := sim.BuildPlan(context.Background(), req); !errors.Is(err, curve.ErrInvalidSlippage) {
		t.Fatalf("expected ErrInvalidSlippage, got %v", err)
	}
}

func TestExecutorExecute_SubmitsSignedPayload(t *testing.T) {
	builder := &fakeBuilder{payload: []byte{0x01, 0x02}}
	client := &fakeRelayClient{resp: relay.Response{Result: "sig"}}
	submitter := relay.NewSubmitter(client, "relay", nil)

	exec, err := NewExecutor(newFakeReader(), builder, submitter, mustTips(t).Selector(), fastPolicy(), time.Second, Options{SlippageBps: 500}, nil)
	if err != nil {
		t.Fatalf("NewExecutor returned error: %v", err)
	}

	plan, err := exec.BuildPlan(context.Background(), buyRequest())
	if err != nil {
		t.Fatalf("BuildPlan returned error: %v", err)
	}
	result, err := exec.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.Executed || result.Outcome.Result != "sig" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.TradeID != plan.TradeID {
		t.Errorf("trade id mismatch")
	}
	if builder.calls != 1 || len(client.payloads) != 1 {
		t.Fatalf("expected one build and one post, got %d/%d", builder.calls, len(client.payloads))
	}
}

func TestExecutorExecute_BuildFailureSkipsSubmit(t *testing.T) {
	builder := &fakeBuilder{err: errors.New("no key")}
	client := &fakeRelayClient{resp: relay.Response{Result: "sig"}}

	exec, err := NewExecutor(newFakeReader(), builder, relay.NewSubmitter(client, "relay", nil), mustTips(t).Selector(), fastPolicy(), 0, Options{SlippageBps: 500}, nil)
	if err != nil {
		t.Fatalf("NewExecutor returned error: %v", err)
	}

	plan, err := exec.BuildPlan(context.Background(), buyRequest())
	if err != nil {
		t.Fatalf("BuildPlan returned error: %v", err)
	}
	result, err := exec.Execute(context.Background(), plan)
	if err == nil || result.Executed {
		t.Fatalf("expected build failure, got %+v", result)
	}
	if len(client.payloads) != 0 {
		t.Fatalf("expected no relay calls, got %d", len(client.payloads))
	}
}

func TestExecutorExecute_Rejected(t *testing.T) {
	builder := &fakeBuilder{payload: []byte{0x01}}
	client := &fakeRelayClient{resp: relay.Response{Rejection: &relay.Rejection{Code: -32002, Message: "blockhash not found"}}}

	exec, err := NewExecutor(newFakeReader(), builder, relay.NewSubmitter(client, "relay", nil), mustTips(t).Selector(), fastPolicy(), 0, Options{SlippageBps: 500}, nil)
	if err != nil {
		t.Fatalf("NewExecutor returned error: %v", err)
	}

	plan, err := exec.BuildPlan(context.Background(), buyRequest())
	if err != nil {
		t.Fatalf("BuildPlan returned error: %v", err)
	}
	result, err := exec.Execute(context.Background(), plan)
	if !errors.Is(err, relay.ErrPermanent) {
		t.Fatalf("expected ErrPermanent, got %v", err)
	}
	if result.Executed || result.Outcome.Status != relay.StatusRejected {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(client.payloads) != 1 {
		t.Fatalf("rejection must not be retried, got %d calls", len(client.payloads))
	}
}

func TestSimulatedExecutor_ProjectsReserves(t *testing.T) {
	sim, err := NewSimulatedExecutor(newFakeReader(), mustTips(t).Selector(), Options{SlippageBps: 500}, nil)
	if err != nil {
		t.Fatalf("NewSimulatedExecutor returned error: %v", err)
	}

	plan, err := sim.BuildPlan(context.Background(), buyRequest())
	if err != nil {
		t.Fatalf("BuildPlan returned error: %v", err)
	}
	result, err := sim.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.Simulated || result.Projected == nil {
		t.Fatalf("expected simulated projection, got %+v", result)
	}
	if result.Projected.VirtualBase.String() != "967741935484" {
		t.Errorf("unexpected projected virtual base %s", result.Projected.VirtualBase)
	}
	if result.Projected.VirtualQuote.String() != "31000000000" {
		t.Errorf("unexpected projected virtual quote %s", result.Projected.VirtualQuote)
	}
	if plan.Reserves.VirtualBase.String() != "1000000000000" {
		t.Errorf("plan reserves were mutated: %s", plan.Reserves.VirtualBase)
	}

	sell := PlanRequest{Mint: plan.Mint, Side: curve.SideSell, Amount: big.NewInt(1_000_000_000)}
	sellPlan, err := sim.BuildPlan(context.Background(), sell)
	if err != nil {
		t.Fatalf("BuildPlan(sell) returned error: %v", err)
	}
	if sellPlan.Quote.AmountOut.String() != "29670329" {
		t.Errorf("unexpected sell proceeds %s", sellPlan.Quote.AmountOut)
	}
	sellResult, err := sim.Execute(context.Background(), sellPlan)
	if err != nil {
		t.Fatalf("Execute(sell) returned error: %v", err)
	}
	if sellResult.Projected.VirtualQuote.String() != "29970029971" {
		t.Errorf("unexpected projected quote after sell %s", sellResult.Projected.VirtualQuote)
	}
}

func TestBuildPlan_CompleteCurveRoutesToPool(t *testing.T) {
	reader := newFakePoolReader()
	sim, err := NewSimulatedExecutor(reader, mustTips(t).Selector(), Options{SlippageBps: 500}, nil)
	if err != nil {
		t.Fatalf("NewSimulatedExecutor returned error: %v", err)
	}

	plan, err := sim.BuildPlan(context.Background(), buyRequest())
	if err != nil {
		t.Fatalf("BuildPlan returned error: %v", err)
	}
	if plan.Venue != VenueAMM || plan.Pool == nil || plan.Pool.Pool != "pool-account" {
		t.Fatalf("expected pool plan, got venue=%s pool=%+v", plan.Venue, plan.Pool)
	}
	if plan.Quote.AmountOut.String() != "2463038982684" {
		t.Errorf("unexpected pool amount out %s", plan.Quote.AmountOut)
	}
	if plan.Quote.LimitAmount.String() != "1050000000" {
		t.Errorf("unexpected pool limit %s", plan.Quote.LimitAmount)
	}

	result, err := sim.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Projected != nil || result.ProjectedPool == nil {
		t.Fatalf("expected pool projection only, got %+v", result)
	}
	if result.ProjectedPool.QuoteReserve.String() != "81000000000" {
		t.Errorf("unexpected projected pool quote %s", result.ProjectedPool.QuoteReserve)
	}

	sell := PlanRequest{Mint: plan.Mint, Side: curve.SideSell, Amount: big.NewInt(1_000_000_000_000)}
	sellPlan, err := sim.BuildPlan(context.Background(), sell)
	if err != nil {
		t.Fatalf("BuildPlan(sell) returned error: %v", err)
	}
	if sellPlan.Quote.AmountOut.String() != "397019863" {
		t.Errorf("unexpected pool sell proceeds %s", sellPlan.Quote.AmountOut)
	}
}

func TestBuildPlan_CompleteCurveWithoutPool(t *testing.T) {
	reader := newFakePoolReader()
	reader.err = curve.ErrPoolNotFound
	sim, err := NewSimulatedExecutor(reader, mustTips(t).Selector(), Options{SlippageBps: 500}, nil)
	if err != nil {
		t.Fatalf("NewSimulatedExecutor returned error: %v", err)
	}

	_, err = sim.BuildPlan(context.Background(), buyRequest())
	if !errors.Is(err, curve.ErrCurveComplete) || !errors.Is(err, curve.ErrPoolNotFound) {
		t.Fatalf("expected ErrCurveComplete and ErrPoolNotFound, got %v", err)
	}
}

func TestBuildPlan_OpenCurveSkipsPool(t *testing.T) {
	reader := newFakePoolReader()
	reader.reserves = makeReserves
	sim, err := NewSimulatedExecutor(reader, mustTips(t).Selector(), Options{SlippageBps: 500}, nil)
	if err != nil {
		t.Fatalf("NewSimulatedExecutor returned error: %v", err)
	}

	plan, err := sim.BuildPlan(context.Background(), buyRequest())
	if err != nil {
		t.Fatalf("BuildPlan returned error: %v", err)
	}
	if plan.Venue != VenueBondingCurve || plan.Pool != nil || reader.calls != 0 {
		t.Fatalf("open curve must not read the pool: venue=%s calls=%d", plan.Venue, reader.calls)
	}
}
