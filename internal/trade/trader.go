package trade

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"coinflow/internal/cache"
	"coinflow/internal/domain"
	"coinflow/internal/exchange"
	"coinflow/internal/infra/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

var (
	metricHopsTotal     = metrics.GetCounter("coinflow", "trade_hops_total", []string{"exchange"})
	metricTimeoutsTotal = metrics.GetCounter("coinflow", "trade_timeouts_total", []string{"exchange", "action"})
	metricHopLatency    = metrics.GetHistogram("coinflow", "trade_hop_latency_seconds", []string{"exchange"})
)

// Recorder persists completed conversions. Optional; a nil recorder disables
// history.
type Recorder interface {
	RecordTrade(account domain.PrivateExchangeName, result Result) error
}

// Result is the outcome of one conversion: the source amount actually
// consumed, the destination amount actually received, and whether the whole
// chain completed. Partial results are normal outcomes, not errors.
type Result struct {
	Traded     domain.TradedAmounts
	IsComplete bool
	Hops       int
}

// Config wires a Trader.
type Config struct {
	Exchange exchange.Exchange
	// Vault is the exchange's freeze group; nil disables snapshotting (only
	// sensible with an uncached backend, as in some tests).
	Vault    *cache.Vault
	Recorder Recorder
	Logger   *slog.Logger
	// BookDepth is the order book depth requested for pricing.
	BookDepth int
}

// Trader runs currency conversions on one exchange account, one hop per
// market, tracking partial fills and enforcing per-hop wall-clock deadlines.
// It is single-threaded per conversion: one call to Trade runs the whole
// state machine to completion.
type Trader struct {
	exchange  exchange.Exchange
	vault     *cache.Vault
	recorder  Recorder
	logger    *slog.Logger
	bookDepth int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Trader.
func New(cfg Config) *Trader {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	depth := cfg.BookDepth
	if depth <= 0 {
		depth = 10
	}
	return &Trader{
		exchange:  cfg.Exchange,
		vault:     cfg.Vault,
		recorder:  cfg.Recorder,
		logger:    logger.With(slog.String("module", "trader"), slog.String("exchange", cfg.Exchange.Account().String())),
		bookDepth: depth,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Trade converts the given amount into the target currency, traversing as
// many markets as the conversion path needs. Amounts traded on completed hops
// are always preserved in the result, even when a later hop fails or times
// out: exchange trades are not reversible, so there is no rollback.
func (t *Trader) Trade(ctx context.Context, from domain.MonetaryAmount, to domain.CurrencyCode, opts Options) (Result, error) {
	result := Result{Traded: domain.NewTradedAmounts(from.Currency, to)}
	if !from.IsPositive() {
		return result, fmt.Errorf("cannot trade non-positive amount %s", from)
	}
	if from.Currency == to {
		return result, fmt.Errorf("cannot convert %s to itself", to)
	}

	path, err := t.resolvePath(ctx, from.Currency, to)
	if err != nil {
		return result, err
	}
	if opts.Type == TypeSingle && len(path) > 1 {
		return result, fmt.Errorf("%w: %s -> %s needs %d hops but only a single trade is allowed",
			domain.ErrNoConversionPath, from.Currency, to, len(path))
	}

	t.logger.Info("starting conversion",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Int("hops", len(path)),
		slog.String("strategy", opts.Strategy.String()))

	current := from
	for i, market := range path {
		// Fresh options per hop: a taker escalation on one hop must not make
		// the following hops aggressive, and the deadline resets per hop.
		hopOpts := opts

		hopStart := t.now()
		hopTraded, closed, err := t.executeHop(ctx, current, market, hopOpts)

		if i == 0 {
			result.Traded.From = hopTraded.From
		}
		if i == len(path)-1 {
			result.Traded.To = hopTraded.To
		}
		if !hopTraded.IsZero() {
			result.Hops++
		}

		account := t.exchange.Account()
		metricHopsTotal.With(prometheus.Labels{"exchange": account.Platform.String()}).Inc()
		metricHopLatency.With(prometheus.Labels{"exchange": account.Platform.String()}).
			Observe(t.now().Sub(hopStart).Seconds())

		if err != nil {
			// Abort the remaining chain; completed hops stay reported.
			t.record(result)
			return result, err
		}
		if !closed {
			t.logger.Warn("conversion stopped on partial hop",
				slog.String("market", market.String()),
				slog.String("traded", hopTraded.String()))
			t.record(result)
			return result, nil
		}

		current = hopTraded.To
	}

	result.IsComplete = true
	t.logger.Info("conversion complete", slog.String("traded", result.Traded.String()))
	t.record(result)
	return result, nil
}

// resolvePath finds the market chain under a frozen cache view, so that the
// market list cannot change between the search and the first hop decision.
func (t *Trader) resolvePath(ctx context.Context, from, to domain.CurrencyCode) ([]domain.Market, error) {
	if t.vault != nil {
		f := t.vault.Freezer()
		defer f.Release()
	}
	return ResolveConversionPath(ctx, t.exchange, from, to)
}

// executeHop runs the order loop for one market: price, place, poll, and on
// deadline either cancel or force-match. Returns the amounts traded on this
// hop and whether the hop fully completed.
func (t *Trader) executeHop(ctx context.Context, from domain.MonetaryAmount, market domain.Market, opts Options) (domain.TradedAmounts, bool, error) {
	side, err := market.SideFor(from.Currency)
	if err != nil {
		return domain.NewTradedAmounts(from.Currency, market.Opposite(from.Currency)), false, err
	}
	info := domain.TradeInfo{Market: market, Side: side}
	total := domain.NewTradedAmounts(from.Currency, market.Opposite(from.Currency))

	price, err := t.decidePrice(ctx, market, side, opts.Strategy)
	if err != nil {
		return total, false, err
	}

	if opts.IsSimulation() {
		// Dry run: assume a full fill at the decided price.
		total.From = from
		total.To = convertAt(from, market, price)
		t.logger.Info("simulated hop",
			slog.String("market", market.String()),
			slog.String("price", price.String()),
			slog.String("traded", total.String()))
		return total, true, nil
	}

	placed, err := t.exchange.PlaceOrder(ctx, volumeFor(from, price, side), price, info)
	if err != nil {
		return total, false, err
	}
	t.logger.Info("order placed",
		slog.String("market", market.String()),
		slog.String("side", string(side)),
		slog.String("price", price.String()),
		slog.String("order_id", string(placed.OrderID)))

	orderTraded := placed.Traded
	closed := placed.IsClosed
	deadline := t.now().Add(opts.MaxTradeTime)

	for !closed {
		if !t.now().Before(deadline) {
			return t.handleTimeout(ctx, from, placed.OrderID, info, total, orderTraded, opts)
		}
		if err := t.sleep(ctx, opts.MinTimeBetweenPriceUpdates); err != nil {
			return total.Add(orderTraded), false, err
		}
		status, err := t.exchange.OrderInfo(ctx, placed.OrderID, info)
		if err != nil {
			return total.Add(orderTraded), false, err
		}
		orderTraded = status.Traded
		closed = status.IsClosed
	}

	return total.Add(orderTraded), true, nil
}

// handleTimeout applies the configured timeout action to a still-open order.
func (t *Trader) handleTimeout(ctx context.Context, from domain.MonetaryAmount, orderID domain.OrderID, info domain.TradeInfo, total, orderTraded domain.TradedAmounts, opts Options) (domain.TradedAmounts, bool, error) {
	account := t.exchange.Account().Platform.String()
	metricTimeoutsTotal.With(prometheus.Labels{"exchange": account, "action": opts.TimeoutAction.String()}).Inc()

	canceled, err := t.exchange.CancelOrder(ctx, orderID, info)
	if err != nil {
		return total.Add(orderTraded), false, err
	}
	total = total.Add(canceled.Traded)

	if opts.TimeoutAction == TimeoutCancel {
		t.logger.Warn("trade timed out, canceled remainder",
			slog.String("market", info.Market.String()),
			slog.String("traded", total.String()))
		return total, false, nil
	}

	// Force-match: escalate to taker pricing and finish the remainder.
	opts.SwitchToTakerStrategy()
	remaining := from.Sub(canceled.Traded.From)
	if !remaining.IsPositive() {
		return total, true, nil
	}
	t.logger.Warn("trade timed out, force-matching remainder",
		slog.String("market", info.Market.String()),
		slog.String("remaining", remaining.String()))

	price, err := t.decidePrice(ctx, info.Market, info.Side, opts.Strategy)
	if err != nil {
		return total, false, err
	}
	placed, err := t.exchange.PlaceOrder(ctx, volumeFor(remaining, price, info.Side), price, info)
	if err != nil {
		return total, false, err
	}
	if placed.IsClosed {
		return total.Add(placed.Traded), true, nil
	}

	// One more status poll; a taker order should settle immediately.
	if err := t.sleep(ctx, opts.MinTimeBetweenPriceUpdates); err != nil {
		return total.Add(placed.Traded), false, err
	}
	status, err := t.exchange.OrderInfo(ctx, placed.OrderID, info)
	if err != nil {
		return total.Add(placed.Traded), false, err
	}
	return total.Add(status.Traded), status.IsClosed, nil
}

// decidePrice computes the strategy price under a frozen cache view, so the
// book consulted is one stable snapshot per decision.
func (t *Trader) decidePrice(ctx context.Context, market domain.Market, side domain.Side, strategy PriceStrategy) (decimal.Decimal, error) {
	if t.vault != nil {
		f := t.vault.Freezer()
		defer f.Release()
	}

	book, err := t.exchange.OrderBook(ctx, market, t.bookDepth)
	if err != nil {
		return decimal.Decimal{}, err
	}

	var price decimal.Decimal
	var ok bool
	switch strategy {
	case StrategyMaker:
		price, ok = book.MakerPrice(side)
	case StrategyNibble:
		price, ok = book.NibblePrice(side)
	case StrategyTaker:
		price, ok = book.TakerPrice(side)
	}
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s %s", domain.ErrEmptyOrderBook, market, side)
	}
	return price, nil
}

func (t *Trader) record(result Result) {
	if t.recorder == nil {
		return
	}
	if err := t.recorder.RecordTrade(t.exchange.Account(), result); err != nil {
		t.logger.Error("failed to record trade", slog.Any("error", err))
	}
}

// volumeFor converts a source amount into an order volume in the base
// currency: selling the base trades it directly, buying with the quote
// divides by price.
func volumeFor(from domain.MonetaryAmount, price decimal.Decimal, side domain.Side) decimal.Decimal {
	if side == domain.SideSell {
		return from.Amount
	}
	return from.Amount.Div(price)
}

// convertAt computes the destination amount of a full fill at price.
func convertAt(from domain.MonetaryAmount, market domain.Market, price decimal.Decimal) domain.MonetaryAmount {
	if from.Currency == market.Base {
		return domain.NewMonetaryAmount(from.Amount.Mul(price), market.Quote)
	}
	return domain.NewMonetaryAmount(from.Amount.Div(price), market.Base)
}
