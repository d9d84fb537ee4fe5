package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

const validConfig = `
exchanges:
  - platform: bithumb
    key_name: user1
    access_key: file-key
    secret_key: file-secret
    markets:
      - BTC-USDT
      - ETH-USDT
trade:
  strategy: maker
  max_trade_time_sec: 45
  min_price_update_period_sec: 7
storage:
  path: data/test.db
logging:
  level: debug
`

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if len(cfg.Exchanges) != 1 {
		t.Fatalf("Expected 1 exchange account, got %d", len(cfg.Exchanges))
	}
	account := cfg.Exchanges[0].Account()
	if account.String() != "bithumb_user1" {
		t.Errorf("Expected account bithumb_user1, got %s", account)
	}
	if cfg.MaxTradeTime() != 45*time.Second {
		t.Errorf("Expected 45s trade deadline, got %v", cfg.MaxTradeTime())
	}
	if cfg.MinPriceUpdatePeriod() != 7*time.Second {
		t.Errorf("Expected 7s poll period, got %v", cfg.MinPriceUpdatePeriod())
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("COINFLOW_BITHUMB_USER1_KEY", "env-key")
	t.Setenv("COINFLOW_BITHUMB_USER1_SECRET", "env-secret")

	cfg, err := LoadConfig(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Exchanges[0].AccessKey != "env-key" {
		t.Errorf("Expected env override for access key, got %q", cfg.Exchanges[0].AccessKey)
	}
	if cfg.Exchanges[0].SecretKey != "env-secret" {
		t.Errorf("Expected env override for secret key, got %q", cfg.Exchanges[0].SecretKey)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no accounts", "exchanges: []"},
		{"bad market", `
exchanges:
  - platform: bithumb
    markets: ["BTCUSDT"]
`},
		{"bad stream url", `
exchanges:
  - platform: bithumb
stream:
  url: http://not-a-websocket
`},
		{"negative deadline", `
exchanges:
  - platform: bithumb
trade:
  max_trade_time_sec: -1
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tc.content)); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
