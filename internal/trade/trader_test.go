package trade

import (
	"context"
	"errors"
	"testing"
	"time"

	"coinflow/internal/domain"
	"coinflow/internal/exchange"

	"github.com/shopspring/decimal"
)

// tradeClock drives the trader's wall clock: every poll sleep advances it,
// so deadline behavior is deterministic without real waiting.
type tradeClock struct {
	t time.Time
}

func (c *tradeClock) now() time.Time {
	return c.t
}

func (c *tradeClock) sleep(_ context.Context, d time.Duration) error {
	c.t = c.t.Add(d)
	return nil
}

func level(price int64, volume int64) domain.PriceLevel {
	return domain.PriceLevel{Price: decimal.NewFromInt(price), Volume: decimal.NewFromInt(volume)}
}

func book(market domain.Market, bid, ask int64) domain.OrderBook {
	return domain.OrderBook{
		Market:   market,
		Bids:     []domain.PriceLevel{level(bid, 100)},
		Asks:     []domain.PriceLevel{level(ask, 100)},
		TickSize: decimal.NewFromInt(1),
	}
}

// newTestTrader wires a paper venue behind the caching layer, the way the
// bootstrap does it, and pins the trader to a fake clock.
func newTestTrader(t *testing.T, paper *exchange.PaperExchange) (*Trader, *tradeClock) {
	t.Helper()
	cached := exchange.NewCachedExchange(paper, exchange.RefreshPeriods{
		Currencies: time.Hour,
		Markets:    time.Hour,
		OrderBook:  time.Second,
		Balance:    time.Second,
	})
	trader := New(Config{Exchange: cached, Vault: cached.Vault()})
	clock := &tradeClock{t: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)}
	trader.now = clock.now
	trader.sleep = clock.sleep
	return trader, clock
}

func TestTrader_TwoHopFullFill(t *testing.T) {
	ctx := context.Background()
	btcEur := domain.NewMarket("BTC", "EUR")
	btcUsdt := domain.NewMarket("BTC", "USDT")

	paper := exchange.NewPaperExchange(domain.ParsePrivateExchangeName("paper_user1"), btcEur, btcUsdt)
	paper.SetOrderBook(book(btcEur, 100, 101))
	paper.SetOrderBook(book(btcUsdt, 110, 111))
	paper.Deposit(domain.NewMonetaryAmount(decimal.NewFromInt(1000), "EUR"))

	trader, _ := newTestTrader(t, paper)

	result, err := trader.Trade(ctx, domain.NewMonetaryAmount(decimal.NewFromInt(1000), "EUR"), "USDT", NewOptions())
	if err != nil {
		t.Fatalf("Trade failed: %v", err)
	}

	if !result.IsComplete {
		t.Error("Both hops fill under the deadline, conversion should be complete")
	}
	if result.Hops != 2 {
		t.Errorf("Expected 2 hops, got %d", result.Hops)
	}
	// Hop 1 buys 10 BTC at the 100 bid; hop 2 sells them at the 111 ask.
	if !result.Traded.From.Equal(domain.NewMonetaryAmount(decimal.NewFromInt(1000), "EUR")) {
		t.Errorf("Expected the full 1000 EUR consumed, got %v", result.Traded.From)
	}
	if !result.Traded.To.Equal(domain.NewMonetaryAmount(decimal.NewFromInt(1110), "USDT")) {
		t.Errorf("Expected 1110 USDT received, got %v", result.Traded.To)
	}

	balance, _ := paper.Balance(ctx)
	if !balance.Get("USDT").Amount.Equal(decimal.NewFromInt(1110)) {
		t.Errorf("Venue balance should agree with the result, got %v", balance.Get("USDT"))
	}
}

func TestTrader_TimeoutCancelKeepsPartialFill(t *testing.T) {
	ctx := context.Background()
	btcUsdt := domain.NewMarket("BTC", "USDT")

	paper := exchange.NewPaperExchange(domain.ParsePrivateExchangeName("paper"), btcUsdt)
	paper.SetOrderBook(book(btcUsdt, 100, 102))
	paper.Deposit(domain.NewMonetaryAmount(decimal.NewFromInt(10), "BTC"))
	paper.SetFillPerPoll(decimal.RequireFromString("0.25"))

	trader, _ := newTestTrader(t, paper)

	opts := NewOptions()
	opts.MaxTradeTime = 12 * time.Second
	opts.MinTimeBetweenPriceUpdates = 5 * time.Second

	result, err := trader.Trade(ctx, domain.NewMonetaryAmount(decimal.NewFromInt(10), "BTC"), "USDT", opts)
	if err != nil {
		t.Fatalf("Trade failed: %v", err)
	}

	if result.IsComplete {
		t.Error("Timed-out conversion must not be reported complete")
	}
	// Three polls fit in the deadline: 7.5 BTC sold at the 102 ask.
	if !result.Traded.From.Amount.Equal(decimal.RequireFromString("7.5")) {
		t.Errorf("Expected 7.5 BTC partially filled, got %v", result.Traded.From)
	}
	if !result.Traded.To.Amount.Equal(decimal.NewFromInt(765)) {
		t.Errorf("Expected 765 USDT from partial fill, got %v", result.Traded.To)
	}
	if paper.CallCount("cancel") != 1 {
		t.Errorf("Expected exactly one cancel, got %d", paper.CallCount("cancel"))
	}
}

func TestTrader_TimeoutForceMatchFinishesRemainder(t *testing.T) {
	ctx := context.Background()
	btcUsdt := domain.NewMarket("BTC", "USDT")

	paper := exchange.NewPaperExchange(domain.ParsePrivateExchangeName("paper"), btcUsdt)
	paper.SetOrderBook(book(btcUsdt, 100, 102))
	paper.Deposit(domain.NewMonetaryAmount(decimal.NewFromInt(10), "BTC"))
	paper.SetFillPerPoll(decimal.RequireFromString("0.25"))

	trader, _ := newTestTrader(t, paper)

	opts := NewOptions()
	opts.MaxTradeTime = 12 * time.Second
	opts.MinTimeBetweenPriceUpdates = 5 * time.Second
	opts.TimeoutAction = TimeoutForceMatch

	result, err := trader.Trade(ctx, domain.NewMonetaryAmount(decimal.NewFromInt(10), "BTC"), "USDT", opts)
	if err != nil {
		t.Fatalf("Trade failed: %v", err)
	}

	if !result.IsComplete {
		t.Error("Force-match should finish the remainder")
	}
	if !result.Traded.From.Amount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected all 10 BTC sold, got %v", result.Traded.From)
	}
	// 7.5 BTC at the 102 ask before timeout, 2.5 BTC at the 100 bid after.
	if !result.Traded.To.Amount.Equal(decimal.NewFromInt(1015)) {
		t.Errorf("Expected 1015 USDT total, got %v", result.Traded.To)
	}
	if paper.CallCount("place") != 2 {
		t.Errorf("Expected the taker remainder as a second order, got %d placements", paper.CallCount("place"))
	}
}

func TestTrader_SimulationPlacesNoOrders(t *testing.T) {
	ctx := context.Background()
	btcUsdt := domain.NewMarket("BTC", "USDT")

	paper := exchange.NewPaperExchange(domain.ParsePrivateExchangeName("paper"), btcUsdt)
	paper.SetOrderBook(book(btcUsdt, 100, 102))

	trader, _ := newTestTrader(t, paper)

	opts := NewOptions()
	opts.Mode = ModeSimulation

	result, err := trader.Trade(ctx, domain.NewMonetaryAmount(decimal.NewFromInt(10), "BTC"), "USDT", opts)
	if err != nil {
		t.Fatalf("Trade failed: %v", err)
	}

	if !result.IsComplete {
		t.Error("Simulated conversion should report completion")
	}
	// Assumed full fill at the maker price (the 102 ask for a sell).
	if !result.Traded.To.Amount.Equal(decimal.NewFromInt(1020)) {
		t.Errorf("Expected simulated 1020 USDT, got %v", result.Traded.To)
	}
	if paper.CallCount("place") != 0 {
		t.Errorf("Simulation must not place orders, got %d", paper.CallCount("place"))
	}
}

func TestTrader_InputValidation(t *testing.T) {
	ctx := context.Background()
	btcUsdt := domain.NewMarket("BTC", "USDT")
	paper := exchange.NewPaperExchange(domain.ParsePrivateExchangeName("paper"), btcUsdt)
	trader, _ := newTestTrader(t, paper)

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := trader.Trade(ctx, domain.ZeroAmount("BTC"), "USDT", NewOptions())
		if err == nil {
			t.Error("Expected error for zero amount")
		}
	})

	t.Run("same currency", func(t *testing.T) {
		_, err := trader.Trade(ctx, domain.NewMonetaryAmount(decimal.NewFromInt(1), "BTC"), "BTC", NewOptions())
		if err == nil {
			t.Error("Expected error for identity conversion")
		}
	})

	t.Run("unreachable currency", func(t *testing.T) {
		_, err := trader.Trade(ctx, domain.NewMonetaryAmount(decimal.NewFromInt(1), "BTC"), "DOGE", NewOptions())
		if !errors.Is(err, domain.ErrNoConversionPath) {
			t.Errorf("Expected ErrNoConversionPath, got %v", err)
		}
	})
}

func TestTrader_SingleTypeRejectsMultiHop(t *testing.T) {
	ctx := context.Background()
	btcEur := domain.NewMarket("BTC", "EUR")
	btcUsdt := domain.NewMarket("BTC", "USDT")
	paper := exchange.NewPaperExchange(domain.ParsePrivateExchangeName("paper"), btcEur, btcUsdt)
	trader, _ := newTestTrader(t, paper)

	opts := NewOptions()
	opts.Type = TypeSingle

	_, err := trader.Trade(ctx, domain.NewMonetaryAmount(decimal.NewFromInt(1000), "EUR"), "USDT", opts)
	if !errors.Is(err, domain.ErrNoConversionPath) {
		t.Errorf("Expected rejection of 2-hop path under TypeSingle, got %v", err)
	}
}

type tradeLog struct {
	accounts []domain.PrivateExchangeName
	results  []Result
}

func (l *tradeLog) RecordTrade(account domain.PrivateExchangeName, result Result) error {
	l.accounts = append(l.accounts, account)
	l.results = append(l.results, result)
	return nil
}

func TestTrader_RecordsOutcome(t *testing.T) {
	ctx := context.Background()
	btcUsdt := domain.NewMarket("BTC", "USDT")

	paper := exchange.NewPaperExchange(domain.ParsePrivateExchangeName("paper_user1"), btcUsdt)
	paper.SetOrderBook(book(btcUsdt, 100, 102))
	paper.Deposit(domain.NewMonetaryAmount(decimal.NewFromInt(1), "BTC"))

	cached := exchange.NewCachedExchange(paper, exchange.DefaultRefreshPeriods())
	log := &tradeLog{}
	trader := New(Config{Exchange: cached, Vault: cached.Vault(), Recorder: log})
	clock := &tradeClock{t: time.Now()}
	trader.now = clock.now
	trader.sleep = clock.sleep

	if _, err := trader.Trade(ctx, domain.NewMonetaryAmount(decimal.NewFromInt(1), "BTC"), "USDT", NewOptions()); err != nil {
		t.Fatalf("Trade failed: %v", err)
	}

	if len(log.results) != 1 {
		t.Fatalf("Expected 1 recorded trade, got %d", len(log.results))
	}
	if log.accounts[0].String() != "paper_user1" {
		t.Errorf("Expected account recorded, got %s", log.accounts[0])
	}
	if !log.results[0].IsComplete {
		t.Error("Recorded result should be complete")
	}
}
