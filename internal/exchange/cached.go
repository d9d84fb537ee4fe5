package exchange

import (
	"context"
	"time"

	"coinflow/internal/cache"
	"coinflow/internal/domain"

	"github.com/shopspring/decimal"
)

// RefreshPeriods sets how long each read query of an exchange stays fresh.
// Currencies and markets barely change; order books go stale within seconds.
type RefreshPeriods struct {
	Currencies time.Duration
	Markets    time.Duration
	OrderBook  time.Duration
	Balance    time.Duration
}

// DefaultRefreshPeriods mirrors the volatility of each query type.
func DefaultRefreshPeriods() RefreshPeriods {
	return RefreshPeriods{
		Currencies: 4 * time.Hour,
		Markets:    1 * time.Hour,
		OrderBook:  1 * time.Second,
		Balance:    5 * time.Second,
	}
}

type bookKey struct {
	market domain.Market
	depth  int
}

// CachedExchange wraps an Exchange, routing every read query through a
// CachedResult registered in one shared Vault. Freezing the vault gives
// multi-step algorithms a stable snapshot of the whole exchange state.
// Side-effecting calls pass through untouched.
type CachedExchange struct {
	inner Exchange
	vault *cache.Vault

	currencies *cache.CachedResult[struct{}, []domain.CurrencyExchange]
	markets    *cache.CachedResult[struct{}, []domain.Market]
	books      *cache.CachedResult[bookKey, domain.OrderBook]
	balance    *cache.CachedResult[struct{}, domain.BalancePortfolio]
}

// NewCachedExchange builds the caching layer around an exchange backend.
func NewCachedExchange(inner Exchange, periods RefreshPeriods) *CachedExchange {
	vault := cache.NewVault()
	c := &CachedExchange{inner: inner, vault: vault}

	c.currencies = cache.New(cache.Options{RefreshPeriod: periods.Currencies, Vault: vault},
		func(ctx context.Context, _ struct{}) ([]domain.CurrencyExchange, error) {
			return inner.TradableCurrencies(ctx)
		})
	c.markets = cache.New(cache.Options{RefreshPeriod: periods.Markets, Vault: vault},
		func(ctx context.Context, _ struct{}) ([]domain.Market, error) {
			return inner.TradableMarkets(ctx)
		})
	c.books = cache.New(cache.Options{RefreshPeriod: periods.OrderBook, Vault: vault},
		func(ctx context.Context, key bookKey) (domain.OrderBook, error) {
			return inner.OrderBook(ctx, key.market, key.depth)
		})
	c.balance = cache.New(cache.Options{RefreshPeriod: periods.Balance, Vault: vault},
		func(ctx context.Context, _ struct{}) (domain.BalancePortfolio, error) {
			return inner.Balance(ctx)
		})
	return c
}

// Vault exposes the freeze group for scoped snapshots:
//
//	f := ex.Vault().Freezer()
//	defer f.Release()
func (c *CachedExchange) Vault() *cache.Vault {
	return c.vault
}

func (c *CachedExchange) Account() domain.PrivateExchangeName {
	return c.inner.Account()
}

func (c *CachedExchange) TradableCurrencies(ctx context.Context) ([]domain.CurrencyExchange, error) {
	return c.currencies.Get(ctx, struct{}{})
}

func (c *CachedExchange) TradableMarkets(ctx context.Context) ([]domain.Market, error) {
	return c.markets.Get(ctx, struct{}{})
}

func (c *CachedExchange) OrderBook(ctx context.Context, market domain.Market, depth int) (domain.OrderBook, error) {
	return c.books.Get(ctx, bookKey{market: market, depth: depth})
}

// InjectOrderBook feeds a book obtained out-of-band (e.g., from a websocket
// stream) into the cache. Only kept if newer than the cached snapshot.
func (c *CachedExchange) InjectOrderBook(book domain.OrderBook, at time.Time, depth int) {
	c.books.Set(book, at, bookKey{market: book.Market, depth: depth})
}

func (c *CachedExchange) Balance(ctx context.Context) (domain.BalancePortfolio, error) {
	return c.balance.Get(ctx, struct{}{})
}

func (c *CachedExchange) PlaceOrder(ctx context.Context, volume, price decimal.Decimal, info domain.TradeInfo) (domain.PlaceOrderInfo, error) {
	return c.inner.PlaceOrder(ctx, volume, price, info)
}

func (c *CachedExchange) CancelOrder(ctx context.Context, orderID domain.OrderID, info domain.TradeInfo) (domain.OrderInfo, error) {
	return c.inner.CancelOrder(ctx, orderID, info)
}

func (c *CachedExchange) OrderInfo(ctx context.Context, orderID domain.OrderID, info domain.TradeInfo) (domain.OrderInfo, error) {
	return c.inner.OrderInfo(ctx, orderID, info)
}

func (c *CachedExchange) DepositWallet(ctx context.Context, currency domain.CurrencyCode) (domain.Wallet, error) {
	return c.inner.DepositWallet(ctx, currency)
}

func (c *CachedExchange) Withdraw(ctx context.Context, amount domain.MonetaryAmount, target domain.PrivateExchangeName) (domain.WithdrawInfo, error) {
	return c.inner.Withdraw(ctx, amount, target)
}
