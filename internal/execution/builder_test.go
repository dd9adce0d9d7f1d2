package execution

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"curve-trader/internal/config"
	"curve-trader/internal/curve"
)

func samplePlan() ExecutionPlan {
	return ExecutionPlan{
		TradeID: "trade-1",
		Mint:    solana.NewWallet().PublicKey(),
		Owner:   solana.NewWallet().PublicKey(),
		Side:    curve.SideBuy,
		Quote: curve.Quote{
			Side:        curve.SideBuy,
			AmountIn:    big.NewInt(1_000_000_000),
			AmountOut:   big.NewInt(32258064516),
			LimitAmount: big.NewInt(1_050_000_000),
			SlippageBps: 500,
		},
		TipAccount:  solana.NewWallet().PublicKey(),
		TipLamports: big.NewInt(100_000),
	}
}

func TestCommandBuilder_Build(t *testing.T) {
	dir := t.TempDir()
	captured := filepath.Join(dir, "request.json")
	tx := []byte{0xca, 0xfe, 0xba, 0xbe}

	script := "cat > " + captured + "; printf '{\"transaction\":\"" + base58.Encode(tx) + "\",\"encoding\":\"base58\"}'"
	builder, err := NewCommandBuilder(config.SignerConfig{
		Command: "sh",
		Args:    []string{"-c", script},
		Timeout: 5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewCommandBuilder returned error: %v", err)
	}
	builder.WithBondingCurve(func(ExecutionPlan) string { return "curve-account" })

	plan := samplePlan()
	payload, err := builder.Build(context.Background(), plan)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !bytes.Equal(payload, tx) {
		t.Fatalf("unexpected payload %x", payload)
	}

	raw, err := os.ReadFile(captured)
	if err != nil {
		t.Fatalf("read captured request: %v", err)
	}
	var req signRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		t.Fatalf("signer received invalid JSON: %v", err)
	}
	if req.LimitAmount != "1050000000" || req.Mint != plan.Mint.String() || req.BondingCurve != "curve-account" {
		t.Fatalf("unexpected sign request: %+v", req)
	}
	if req.Venue != string(VenueBondingCurve) || req.Pool != "" {
		t.Fatalf("unexpected venue in sign request: %+v", req)
	}
}

func TestCommandBuilder_BuildPoolPlan(t *testing.T) {
	dir := t.TempDir()
	captured := filepath.Join(dir, "request.json")
	script := "cat > " + captured + "; printf '{\"transaction\":\"" + base58.Encode([]byte{0x01}) + "\"}'"
	builder, err := NewCommandBuilder(config.SignerConfig{Command: "sh", Args: []string{"-c", script}}, nil)
	if err != nil {
		t.Fatalf("NewCommandBuilder returned error: %v", err)
	}
	builder.WithBondingCurve(func(ExecutionPlan) string { return "curve-account" })

	plan := samplePlan()
	plan.Venue = VenueAMM
	plan.Pool = &curve.PoolReserves{Pool: "pool-account"}
	if _, err := builder.Build(context.Background(), plan); err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	raw, err := os.ReadFile(captured)
	if err != nil {
		t.Fatalf("read captured request: %v", err)
	}
	var req signRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		t.Fatalf("signer received invalid JSON: %v", err)
	}
	if req.Venue != "amm" || req.Pool != "pool-account" || req.BondingCurve != "" {
		t.Fatalf("unexpected sign request: %+v", req)
	}
}

func TestCommandBuilder_SignerFailure(t *testing.T) {
	builder, err := NewCommandBuilder(config.SignerConfig{
		Command: "sh",
		Args:    []string{"-c", "echo 'locked' >&2; exit 3"},
		Timeout: 5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewCommandBuilder returned error: %v", err)
	}
	if _, err := builder.Build(context.Background(), samplePlan()); !errors.Is(err, ErrSignerFailed) {
		t.Fatalf("expected ErrSignerFailed, got %v", err)
	}
}

func TestNewCommandBuilder_RequiresCommand(t *testing.T) {
	if _, err := NewCommandBuilder(config.SignerConfig{}, nil); err == nil {
		t.Fatalf("expected error for empty command")
	}
}

func TestDecodeSignResponse(t *testing.T) {
	tx := []byte("signed-transaction")

	got, err := decodeSignResponse([]byte(`{"transaction":"` + base64.StdEncoding.EncodeToString(tx) + `","encoding":"base64"}`))
	if err != nil {
		t.Fatalf("decode base64 returned error: %v", err)
	}
	if !bytes.Equal(got, tx) {
		t.Fatalf("unexpected base64 payload %q", got)
	}

	got, err = decodeSignResponse([]byte(`{"transaction":"` + base58.Encode(tx) + `"}` + "\n"))
	if err != nil {
		t.Fatalf("decode default encoding returned error: %v", err)
	}
	if !bytes.Equal(got, tx) {
		t.Fatalf("unexpected base58 payload %q", got)
	}

	for _, raw := range []string{"", "not json", `{"transaction":""}`, `{"transaction":"abc","encoding":"hex"}`, `{"transaction":"0OIl"}`} {
		if _, err := decodeSignResponse([]byte(raw)); !errors.Is(err, ErrSignerFailed) {
			t.Errorf("decodeSignResponse(%q): expected ErrSignerFailed, got %v", raw, err)
		}
	}
}
