package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"curve-trader/internal/relay"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "app:\n  environment: test\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Relay.MaxAttempts != 3 || cfg.Relay.Backoff != time.Second || cfg.Relay.AttemptTimeout != 10*time.Second {
		t.Errorf("unexpected relay defaults: %+v", cfg.Relay)
	}
	if len(cfg.Relay.TipAccounts) != len(relay.DefaultTipAccounts) {
		t.Errorf("expected %d tip accounts, got %d", len(relay.DefaultTipAccounts), len(cfg.Relay.TipAccounts))
	}
	if cfg.Trade.SlippageBps != 500 {
		t.Errorf("unexpected slippage default %d", cfg.Trade.SlippageBps)
	}
	if cfg.Curve.TokenDecimals != 6 || cfg.Curve.QuoteDecimals != 9 {
		t.Errorf("unexpected decimals: %+v", cfg.Curve)
	}
	if cfg.Curve.AMMProgramID != "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8" {
		t.Errorf("unexpected amm program id %q", cfg.Curve.AMMProgramID)
	}
	if cfg.Scheduler.LoopInterval != 30*time.Second {
		t.Errorf("unexpected loop interval %s", cfg.Scheduler.LoopInterval)
	}
	if len(cfg.Logging.OutputPaths) != 1 || cfg.Logging.OutputPaths[0] != "stderr" {
		t.Errorf("expected logs on stderr, got %v", cfg.Logging.OutputPaths)
	}
	if cfg.App.Environment != "test" {
		t.Errorf("expected file value to win, got %q", cfg.App.Environment)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "relay:\n  backoff: 2s\n")
	t.Setenv("CURVE_RELAY_MAX_ATTEMPTS", "5")
	t.Setenv("CURVE_TRADE_SLIPPAGE_BPS", "100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Relay.MaxAttempts != 5 {
		t.Errorf("expected env override, got %d", cfg.Relay.MaxAttempts)
	}
	if cfg.Relay.Backoff != 2*time.Second {
		t.Errorf("expected file backoff, got %s", cfg.Relay.Backoff)
	}
	if cfg.Trade.SlippageBps != 100 {
		t.Errorf("expected slippage 100, got %d", cfg.Trade.SlippageBps)
	}
}

func TestLoad_ValidationAggregates(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"relay:",
		"  max_attempts: 0",
		"trade:",
		"  slippage_bps: 20000",
		"  simulation: false",
	}, "\n"))

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"relay.max_attempts", "trade.slippage_bps", "signer.command"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error: %v", want, err)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
