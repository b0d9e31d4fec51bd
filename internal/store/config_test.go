package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

const minimalConfig = `
auth:
  tokens:
    tok: owner-1
`

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("default addr = %s", cfg.Server.Addr)
	}
	if cfg.MarketData.Provider != "STATIC" {
		t.Errorf("default provider = %s", cfg.MarketData.Provider)
	}
	if cfg.MarketData.AnalysisBars != 30 {
		t.Errorf("default analysis bars = %d", cfg.MarketData.AnalysisBars)
	}
	if cfg.Sizing.OpeningCash != 100000 || cfg.Sizing.BuyCashFraction != 0.10 || cfg.Sizing.SellPositionFraction != 0.50 {
		t.Errorf("sizing defaults wrong: %+v", cfg.Sizing)
	}
	if cfg.Backtest.InitialCapital != 100000 || cfg.Backtest.ShortWindow != 5 || cfg.Backtest.LongWindow != 10 {
		t.Errorf("backtest defaults wrong: %+v", cfg.Backtest)
	}
	if cfg.Agents.StageTimeoutSeconds != 30 {
		t.Errorf("default stage timeout = %d", cfg.Agents.StageTimeoutSeconds)
	}
}

func TestStageConfidenceDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	want := map[string]float64{
		"sentiment":    0.7,
		"fundamentals": 0.75,
		"quant":        0.8,
		"risk":         0.85,
		"portfolio":    0.9,
	}
	for stage, conf := range want {
		if got := cfg.StageConfidence(stage); got != conf {
			t.Errorf("StageConfidence(%s) = %.2f, want %.2f", stage, got, conf)
		}
	}
	if got := cfg.StageConfidence("nope"); got != 0 {
		t.Errorf("unknown stage confidence = %.2f, want 0", got)
	}
}

func TestValidateRejectsBadProvider(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
market_data:
  provider: BLOOMBERG
auth:
  tokens:
    tok: owner-1
`))
	if err == nil || !strings.Contains(err.Error(), "market_data.provider") {
		t.Errorf("expected provider validation error, got %v", err)
	}
}

func TestValidateRejectsBadWindows(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
backtest:
  short_window: 10
  long_window: 5
auth:
  tokens:
    tok: owner-1
`))
	if err == nil || !strings.Contains(err.Error(), "windows") {
		t.Errorf("expected window validation error, got %v", err)
	}
}

func TestValidateRejectsOutOfRangeFraction(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
sizing:
  buy_cash_fraction: 1.5
auth:
  tokens:
    tok: owner-1
`))
	if err == nil || !strings.Contains(err.Error(), "buy_cash_fraction") {
		t.Errorf("expected sizing validation error, got %v", err)
	}
}

func TestValidateRequiresTokens(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
server:
  addr: ":9090"
`))
	if err == nil || !strings.Contains(err.Error(), "auth.tokens") {
		t.Errorf("expected auth validation error, got %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
