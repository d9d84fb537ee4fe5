package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseMarket(t *testing.T) {
	m, err := ParseMarket("btc-usdt")
	if err != nil {
		t.Fatalf("ParseMarket failed: %v", err)
	}
	if m.Base != "BTC" || m.Quote != "USDT" {
		t.Errorf("Expected BTC-USDT, got %v", m)
	}

	if _, err := ParseMarket("BTCUSDT"); !errors.Is(err, ErrInvalidMarket) {
		t.Errorf("Expected ErrInvalidMarket, got %v", err)
	}
}

func TestMarket_SideFor(t *testing.T) {
	m := NewMarket("BTC", "USDT")

	side, err := m.SideFor("BTC")
	if err != nil || side != SideSell {
		t.Errorf("Converting away from base should sell, got %v (%v)", side, err)
	}

	side, err = m.SideFor("USDT")
	if err != nil || side != SideBuy {
		t.Errorf("Converting away from quote should buy, got %v (%v)", side, err)
	}

	if _, err := m.SideFor("ETH"); !errors.Is(err, ErrInvalidMarket) {
		t.Errorf("Expected ErrInvalidMarket for foreign currency, got %v", err)
	}
}

func TestParsePrivateExchangeName(t *testing.T) {
	p := ParsePrivateExchangeName("kraken_user2")
	if p.Platform != "kraken" || p.KeyName != "user2" {
		t.Errorf("Expected kraken/user2, got %v", p)
	}

	p = ParsePrivateExchangeName("Bithumb")
	if p.Platform != "bithumb" || p.HasKeyName() {
		t.Errorf("Expected platform-only bithumb, got %v", p)
	}

	t.Run("selector matching", func(t *testing.T) {
		account := PrivateExchangeName{Platform: "kraken", KeyName: "user2"}
		if !ParsePrivateExchangeName("kraken").Matches(account) {
			t.Error("Platform-only selector should match any key")
		}
		if !ParsePrivateExchangeName("kraken_user2").Matches(account) {
			t.Error("Full selector should match same key")
		}
		if ParsePrivateExchangeName("kraken_user1").Matches(account) {
			t.Error("Different key should not match")
		}
	})
}

func TestOrderBook_StrategyPrices(t *testing.T) {
	book := OrderBook{
		Market:   NewMarket("BTC", "USDT"),
		Bids:     []PriceLevel{{Price: decimal.NewFromInt(100), Volume: decimal.NewFromInt(1)}},
		Asks:     []PriceLevel{{Price: decimal.NewFromInt(102), Volume: decimal.NewFromInt(1)}},
		TickSize: decimal.NewFromFloat(0.5),
	}

	t.Run("maker joins own side", func(t *testing.T) {
		if p, _ := book.MakerPrice(SideBuy); !p.Equal(decimal.NewFromInt(100)) {
			t.Errorf("Buy maker: expected 100, got %v", p)
		}
		if p, _ := book.MakerPrice(SideSell); !p.Equal(decimal.NewFromInt(102)) {
			t.Errorf("Sell maker: expected 102, got %v", p)
		}
	})

	t.Run("nibble one tick inside", func(t *testing.T) {
		if p, _ := book.NibblePrice(SideBuy); !p.Equal(decimal.NewFromFloat(100.5)) {
			t.Errorf("Buy nibble: expected 100.5, got %v", p)
		}
		if p, _ := book.NibblePrice(SideSell); !p.Equal(decimal.NewFromFloat(101.5)) {
			t.Errorf("Sell nibble: expected 101.5, got %v", p)
		}
	})

	t.Run("taker crosses the spread", func(t *testing.T) {
		if p, _ := book.TakerPrice(SideBuy); !p.Equal(decimal.NewFromInt(102)) {
			t.Errorf("Buy taker: expected 102, got %v", p)
		}
		if p, _ := book.TakerPrice(SideSell); !p.Equal(decimal.NewFromInt(100)) {
			t.Errorf("Sell taker: expected 100, got %v", p)
		}
	})

	t.Run("empty side", func(t *testing.T) {
		empty := OrderBook{Market: book.Market}
		if _, ok := empty.MakerPrice(SideBuy); ok {
			t.Error("Empty book should not produce a price")
		}
	})
}
