// Package exchange defines the uniform surface the trading core needs from
// any exchange backend, the account retriever that maps user selectors to
// exchange handles, and a caching wrapper that routes read queries through
// time-bounded caches.
package exchange

import (
	"context"

	"coinflow/internal/domain"

	"github.com/shopspring/decimal"
)

// Exchange is the uniform contract over one (exchange, account) pair.
// Wire formats and authentication are backend concerns; the core only sees
// normalized domain values.
//
// Read queries are expected to be wrapped by CachedExchange with refresh
// periods matching their volatility. Place/Cancel/Withdraw are side-effecting
// and must never be cached.
type Exchange interface {
	// Account identifies this handle's platform and API key name.
	Account() domain.PrivateExchangeName

	TradableCurrencies(ctx context.Context) ([]domain.CurrencyExchange, error)
	TradableMarkets(ctx context.Context) ([]domain.Market, error)
	OrderBook(ctx context.Context, market domain.Market, depth int) (domain.OrderBook, error)
	Balance(ctx context.Context) (domain.BalancePortfolio, error)

	// PlaceOrder places a limit order for volume (base currency) at price
	// (quote currency) on info.Market. A marketable price makes it an
	// effective taker order.
	PlaceOrder(ctx context.Context, volume, price decimal.Decimal, info domain.TradeInfo) (domain.PlaceOrderInfo, error)
	CancelOrder(ctx context.Context, orderID domain.OrderID, info domain.TradeInfo) (domain.OrderInfo, error)
	OrderInfo(ctx context.Context, orderID domain.OrderID, info domain.TradeInfo) (domain.OrderInfo, error)

	DepositWallet(ctx context.Context, currency domain.CurrencyCode) (domain.Wallet, error)
	Withdraw(ctx context.Context, amount domain.MonetaryAmount, target domain.PrivateExchangeName) (domain.WithdrawInfo, error)
}
