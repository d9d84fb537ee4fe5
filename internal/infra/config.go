package infra

import (
	"fmt"
	"os"
	"strings"
	"time"

	"coinflow/internal/domain"

	"gopkg.in/yaml.v3"
)

// Config holds the whole engine configuration. Secrets can be overridden
// through environment variables after loading, so the yaml file never has to
// contain live API keys.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Exchanges []ExchangeAccountConfig `yaml:"exchanges"`

	Stream struct {
		URL     string   `yaml:"url"`
		Markets []string `yaml:"markets"`
	} `yaml:"stream"`

	Trade struct {
		Strategy                string `yaml:"strategy"`
		TimeoutAction           string `yaml:"timeout_action"`
		MaxTradeTimeSec         int    `yaml:"max_trade_time_sec"`
		MinPriceUpdatePeriodSec int    `yaml:"min_price_update_period_sec"`
		Simulation              bool   `yaml:"simulation"`
	} `yaml:"trade"`

	Cache struct {
		CurrenciesRefreshSec int `yaml:"currencies_refresh_sec"`
		MarketsRefreshSec    int `yaml:"markets_refresh_sec"`
		OrderBookRefreshMS   int `yaml:"orderbook_refresh_ms"`
		BalanceRefreshSec    int `yaml:"balance_refresh_sec"`
		BookDepth            int `yaml:"book_depth"`
	} `yaml:"cache"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// ExchangeAccountConfig describes one (exchange, account) pair.
type ExchangeAccountConfig struct {
	Platform  string   `yaml:"platform"`
	KeyName   string   `yaml:"key_name"`
	AccessKey string   `yaml:"access_key"`
	SecretKey string   `yaml:"secret_key"`
	Markets   []string `yaml:"markets"`
}

// Account returns the account identifier for this entry.
func (e ExchangeAccountConfig) Account() domain.PrivateExchangeName {
	return domain.PrivateExchangeName{
		Platform: domain.ExchangeName(strings.ToLower(e.Platform)),
		KeyName:  e.KeyName,
	}
}

// LoadConfig reads and parses the configuration file, applies environment
// overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if len(c.Exchanges) == 0 {
		return &domain.ConfigError{Field: "exchanges", Err: fmt.Errorf("at least one exchange account is required")}
	}
	for i, e := range c.Exchanges {
		if e.Platform == "" {
			return &domain.ConfigError{Field: fmt.Sprintf("exchanges[%d].platform", i), Err: fmt.Errorf("missing platform name")}
		}
		for _, m := range e.Markets {
			if _, err := domain.ParseMarket(m); err != nil {
				return &domain.ConfigError{Field: fmt.Sprintf("exchanges[%d].markets", i), Err: err}
			}
		}
	}
	if c.Trade.MaxTradeTimeSec < 0 || c.Trade.MinPriceUpdatePeriodSec < 0 {
		return &domain.ConfigError{Field: "trade", Err: fmt.Errorf("durations must be non-negative")}
	}
	if c.Stream.URL != "" && !strings.HasPrefix(c.Stream.URL, "ws://") && !strings.HasPrefix(c.Stream.URL, "wss://") {
		return &domain.ConfigError{Field: "stream.url", Err: fmt.Errorf("invalid websocket URL %q", c.Stream.URL)}
	}
	return nil
}

// MaxTradeTime returns the configured per-hop deadline, zero when unset so
// callers can fall back to their default.
func (c *Config) MaxTradeTime() time.Duration {
	return time.Duration(c.Trade.MaxTradeTimeSec) * time.Second
}

// MinPriceUpdatePeriod returns the configured poll spacing, zero when unset.
func (c *Config) MinPriceUpdatePeriod() time.Duration {
	return time.Duration(c.Trade.MinPriceUpdatePeriodSec) * time.Second
}

// overrideWithEnv replaces account secrets with per-account environment
// variables of the form COINFLOW_<PLATFORM>[_<KEYNAME>]_KEY / _SECRET.
func overrideWithEnv(cfg *Config) {
	for i := range cfg.Exchanges {
		prefix := "COINFLOW_" + strings.ToUpper(cfg.Exchanges[i].Platform)
		if cfg.Exchanges[i].KeyName != "" {
			prefix += "_" + strings.ToUpper(cfg.Exchanges[i].KeyName)
		}
		if key := os.Getenv(prefix + "_KEY"); key != "" {
			cfg.Exchanges[i].AccessKey = key
		}
		if secret := os.Getenv(prefix + "_SECRET"); secret != "" {
			cfg.Exchanges[i].SecretKey = secret
		}
	}
}
