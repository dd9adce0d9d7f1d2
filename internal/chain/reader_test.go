package chain

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"curve-trader/internal/curve"
)

const testProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

type fakeRPC struct {
	accounts map[solana.PublicKey][]byte
	balances map[solana.PublicKey]string
	programs map[solana.PublicKey][]*rpc.KeyedAccount
	opts     *rpc.GetAccountInfoOpts
	scans    int
}

func (f *fakeRPC) GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	f.opts = opts
	data, ok := f.accounts[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{Data: rpc.DataBytesOrJSONFromBytes(data)},
	}, nil
}

func (f *fakeRPC) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	amount, ok := f.balances[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetTokenAccountBalanceResult{Value: &rpc.UiTokenAmount{Amount: amount, Decimals: 6}}, nil
}

// GetProgramAccountsWithOpts 按 dataSize 与 memcmp 过滤，行为与节点一致。
func (f *fakeRPC) GetProgramAccountsWithOpts(ctx context.Context, program solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	f.scans++
	var out rpc.GetProgramAccountsResult
	for _, acc := range f.programs[program] {
		data := acc.Account.Data.GetBinary()
		if opts != nil && !matchFilters(data, opts.Filters) {
			continue
		}
		out = append(out, acc)
	}
	return out, nil
}

func matchFilters(data []byte, filters []rpc.RPCFilter) bool {
	for _, filter := range filters {
		if filter.DataSize != 0 && uint64(len(data)) != filter.DataSize {
			return false
		}
		if m := filter.Memcmp; m != nil {
			end := int(m.Offset) + len(m.Bytes)
			if end > len(data) || !bytes.Equal(data[m.Offset:end], m.Bytes) {
				return false
			}
		}
	}
	return true
}

func encode(t *testing.T, v interface{}) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).Encode(v); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestReader_Reserves(t *testing.T) {
	program := solana.MustPublicKeyFromBase58(testProgramID)
	mint := solana.NewWallet().PublicKey()
	addr, err := BondingCurveAddress(program, mint)
	if err != nil {
		t.Fatalf("BondingCurveAddress returned error: %v", err)
	}

	fake := &fakeRPC{accounts: map[solana.PublicKey][]byte{
		addr: encode(t, bondingCurveLayout{
			VirtualTokenReserves: 1_000_000_000_000,
			VirtualSolReserves:   30_000_000_000,
			RealTokenReserves:    800_000_000_000,
			RealSolReserves:      0,
			TokenTotalSupply:     1_000_000_000_000_000,
			Complete:             false,
		}),
	}}

	reader, err := newReader(fake, testProgramID, "", nil)
	if err != nil {
		t.Fatalf("newReader returned error: %v", err)
	}

	state, err := reader.Reserves(context.Background(), mint)
	if err != nil {
		t.Fatalf("Reserves returned error: %v", err)
	}
	if state.VirtualBase.Int64() != 1_000_000_000_000 || state.VirtualQuote.Int64() != 30_000_000_000 {
		t.Fatalf("unexpected reserves: %+v", state)
	}
	if state.RealBase.Int64() != 800_000_000_000 || state.Complete {
		t.Fatalf("unexpected real reserves: %+v", state)
	}
	if fake.opts == nil || fake.opts.Commitment != rpc.CommitmentConfirmed {
		t.Errorf("expected confirmed commitment, got %+v", fake.opts)
	}

	out, err := curve.QuoteBuy(state, bigInt(1_000_000_000))
	if err != nil {
		t.Fatalf("QuoteBuy returned error: %v", err)
	}
	if out.String() != "32258064516" {
		t.Errorf("unexpected quote from decoded reserves: %s", out)
	}
}

func TestReader_ReservesNotFound(t *testing.T) {
	reader, err := newReader(&fakeRPC{}, testProgramID, rpc.CommitmentFinalized, nil)
	if err != nil {
		t.Fatalf("newReader returned error: %v", err)
	}
	_, err = reader.Reserves(context.Background(), solana.NewWallet().PublicKey())
	if !errors.Is(err, curve.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReader_Global(t *testing.T) {
	program := solana.MustPublicKeyFromBase58(testProgramID)
	addr, err := GlobalAddress(program)
	if err != nil {
		t.Fatalf("GlobalAddress returned error: %v", err)
	}
	feeRecipient := solana.NewWallet().PublicKey()

	data := encode(t, globalLayout{
		Initialized:                 true,
		FeeRecipient:                feeRecipient,
		InitialVirtualTokenReserves: 1_073_000_000_000_000,
		InitialVirtualSolReserves:   30_000_000_000,
		InitialRealTokenReserves:    793_100_000_000_000,
		TokenTotalSupply:            1_000_000_000_000_000,
		FeeBasisPoints:              100,
	})
	// 真实账户尾部还有其他字段。
	data = append(data, make([]byte, 64)...)

	reader, err := newReader(&fakeRPC{accounts: map[solana.PublicKey][]byte{addr: data}}, testProgramID, "", nil)
	if err != nil {
		t.Fatalf("newReader returned error: %v", err)
	}

	global, err := reader.Global(context.Background())
	if err != nil {
		t.Fatalf("Global returned error: %v", err)
	}
	if !global.Initialized || global.FeeBasisPoints != 100 {
		t.Fatalf("unexpected global state: %+v", global)
	}
	if global.FeeRecipient != feeRecipient.String() {
		t.Errorf("unexpected fee recipient %s", global.FeeRecipient)
	}
	if global.InitialRealBaseReserves.Int64() != 793_100_000_000_000 {
		t.Errorf("unexpected initial real reserves %s", global.InitialRealBaseReserves)
	}
}

func TestReader_TokenBalance(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		t.Fatalf("FindAssociatedTokenAddress returned error: %v", err)
	}

	reader, err := newReader(&fakeRPC{balances: map[solana.PublicKey]string{ata: "123456789"}}, testProgramID, "", nil)
	if err != nil {
		t.Fatalf("newReader returned error: %v", err)
	}

	balance, err := reader.TokenBalance(context.Background(), owner, mint)
	if err != nil {
		t.Fatalf("TokenBalance returned error: %v", err)
	}
	if balance.Int64() != 123456789 {
		t.Fatalf("unexpected balance %s", balance)
	}

	if _, err := reader.TokenBalance(context.Background(), owner, solana.NewWallet().PublicKey()); !errors.Is(err, curve.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing account, got %v", err)
	}
}

func TestDecodeBondingCurve_Short(t *testing.T) {
	if _, err := decodeBondingCurve([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected decode error for truncated account")
	}
}

func TestNewReader_InvalidProgram(t *testing.T) {
	if _, err := newReader(&fakeRPC{}, "bad-program", "", nil); err == nil {
		t.Fatalf("expected error for invalid program id")
	}
}

func bigInt(v int64) *big.Int {
	return big.NewInt(v)
}
