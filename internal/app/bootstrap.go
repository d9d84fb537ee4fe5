package app

import (
	"fmt"
	"log/slog"
	"time"

	"coinflow/internal/domain"
	"coinflow/internal/exchange"
	"coinflow/internal/infra"
	"coinflow/internal/infra/storage"
	"coinflow/internal/infra/stream"
	"coinflow/internal/trade"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config    *infra.Config
	Store     *storage.Store
	Retriever exchange.Retriever

	venues  map[string]*venue
	traders map[string]*trade.Trader
}

// venue bundles one account's execution backend with its caching layer.
type venue struct {
	paper  *exchange.PaperExchange
	cached *exchange.CachedExchange
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{
		venues:  make(map[string]*venue),
		traders: make(map[string]*trade.Trader),
	}
}

// Initialize performs core system initialization (config, logger, DB, venues)
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping Coinflow...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = "data/coinflow.db"
	}
	store, err := storage.NewStore(dbPath)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("✅ Database initialized", slog.String("path", dbPath))

	// 4. Build one cached venue and one trader per configured account
	if err := b.buildVenues(); err != nil {
		return err
	}
	slog.Info("✅ Exchange accounts ready", slog.Int("accounts", len(b.venues)))

	return nil
}

func (b *Bootstrap) buildVenues() error {
	cfg := b.Config
	periods := b.refreshPeriods()
	opts, err := b.TradeOptions()
	if err != nil {
		return err
	}

	var backends []exchange.Exchange
	for _, account := range cfg.Exchanges {
		markets := make([]domain.Market, 0, len(account.Markets))
		for _, m := range account.Markets {
			market, err := domain.ParseMarket(m)
			if err != nil {
				return err
			}
			markets = append(markets, market)
		}

		paper := exchange.NewPaperExchange(account.Account(), markets...)
		cached := exchange.NewCachedExchange(paper, periods)
		backends = append(backends, cached)

		name := account.Account().String()
		b.venues[name] = &venue{paper: paper, cached: cached}
		b.traders[name] = trade.New(trade.Config{
			Exchange:  cached,
			Vault:     cached.Vault(),
			Recorder:  b.Store,
			BookDepth: cfg.Cache.BookDepth,
		})

		slog.Info("account configured",
			slog.String("account", name),
			slog.Int("markets", len(markets)),
			slog.Bool("simulation", opts.IsSimulation()))
	}

	b.Retriever = exchange.NewRetriever(backends)
	return nil
}

// Trader returns the conversion engine bound to one configured account.
func (b *Bootstrap) Trader(account string) (*trade.Trader, error) {
	t, ok := b.traders[account]
	if !ok {
		return nil, fmt.Errorf("%w: no trader for account %q", domain.ErrExchangeNotFound, account)
	}
	return t, nil
}

// TradeOptions translates the configuration into conversion options, falling
// back to the defaults for anything unset.
func (b *Bootstrap) TradeOptions() (trade.Options, error) {
	cfg := b.Config
	opts := trade.NewOptions()

	if cfg.Trade.Strategy != "" {
		strategy, err := trade.ParsePriceStrategy(cfg.Trade.Strategy)
		if err != nil {
			return opts, err
		}
		opts.Strategy = strategy
	}
	action, err := trade.ParseTimeoutAction(cfg.Trade.TimeoutAction)
	if err != nil {
		return opts, err
	}
	opts.TimeoutAction = action
	if d := cfg.MaxTradeTime(); d > 0 {
		opts.MaxTradeTime = d
	}
	if d := cfg.MinPriceUpdatePeriod(); d > 0 {
		opts.MinTimeBetweenPriceUpdates = d
	}
	if cfg.Trade.Simulation {
		opts.Mode = trade.ModeSimulation
	}
	return opts, nil
}

// StartStreams connects one order book stream per account. Each update lands
// in the venue's book (so fills price correctly) and is injected into the
// cache, where the newest-timestamp rule reconciles it with pull refreshes.
func (b *Bootstrap) StartStreams() ([]*stream.Worker, error) {
	cfg := b.Config
	if cfg.Stream.URL == "" {
		slog.Info("no stream configured, running on pull refresh only")
		return nil, nil
	}

	markets := make([]domain.Market, 0, len(cfg.Stream.Markets))
	for _, m := range cfg.Stream.Markets {
		market, err := domain.ParseMarket(m)
		if err != nil {
			return nil, err
		}
		markets = append(markets, market)
	}

	var workers []*stream.Worker
	for name, v := range b.venues {
		worker := stream.NewWorker(cfg.Stream.URL, markets, b.bookDepth(), &venueSink{venue: v})
		workers = append(workers, worker)
		slog.Info("✅ Order book stream configured",
			slog.String("account", name),
			slog.Int("markets", len(markets)))
	}
	return workers, nil
}

func (b *Bootstrap) bookDepth() int {
	if b.Config.Cache.BookDepth > 0 {
		return b.Config.Cache.BookDepth
	}
	return 10
}

func (b *Bootstrap) refreshPeriods() exchange.RefreshPeriods {
	periods := exchange.DefaultRefreshPeriods()
	cfg := b.Config
	if cfg.Cache.CurrenciesRefreshSec > 0 {
		periods.Currencies = time.Duration(cfg.Cache.CurrenciesRefreshSec) * time.Second
	}
	if cfg.Cache.MarketsRefreshSec > 0 {
		periods.Markets = time.Duration(cfg.Cache.MarketsRefreshSec) * time.Second
	}
	if cfg.Cache.OrderBookRefreshMS > 0 {
		periods.OrderBook = time.Duration(cfg.Cache.OrderBookRefreshMS) * time.Millisecond
	}
	if cfg.Cache.BalanceRefreshSec > 0 {
		periods.Balance = time.Duration(cfg.Cache.BalanceRefreshSec) * time.Second
	}
	return periods
}

// venueSink fans one stream update out to the paper book and the cache.
type venueSink struct {
	venue *venue
}

func (s *venueSink) InjectOrderBook(book domain.OrderBook, at time.Time, depth int) {
	s.venue.paper.SetOrderBook(book)
	s.venue.cached.InjectOrderBook(book, at, depth)
}
