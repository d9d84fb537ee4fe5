package exchange

import (
	"context"
	"fmt"
	"sync"

	"coinflow/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaperExchange is an in-memory exchange backend. It fills orders against
// configured order books with a scriptable fill pace, which makes it the
// execution venue for dry runs and for tests of the trade loop and the cache
// layer.
type PaperExchange struct {
	account domain.PrivateExchangeName

	mu          sync.Mutex
	currencies  []domain.CurrencyExchange
	markets     []domain.Market
	books       map[domain.Market]domain.OrderBook
	balances    domain.BalancePortfolio
	orders      map[domain.OrderID]*paperOrder
	fillPerPoll decimal.Decimal
	calls       map[string]int
}

type paperOrder struct {
	market domain.Market
	side   domain.Side
	volume decimal.Decimal // requested, base currency
	price  decimal.Decimal
	filled decimal.Decimal // cumulative, base currency
	closed bool
}

// NewPaperExchange creates a paper venue trading the given markets. Orders
// fill completely on the first status poll unless SetFillPerPoll says
// otherwise.
func NewPaperExchange(account domain.PrivateExchangeName, markets ...domain.Market) *PaperExchange {
	p := &PaperExchange{
		account:     account,
		markets:     markets,
		books:       make(map[domain.Market]domain.OrderBook),
		balances:    domain.NewBalancePortfolio(),
		orders:      make(map[domain.OrderID]*paperOrder),
		fillPerPoll: decimal.NewFromInt(1),
		calls:       make(map[string]int),
	}
	seen := make(map[domain.CurrencyCode]bool)
	for _, m := range markets {
		for _, cur := range []domain.CurrencyCode{m.Base, m.Quote} {
			if !seen[cur] {
				seen[cur] = true
				p.currencies = append(p.currencies, domain.CurrencyExchange{
					Currency: cur, CanDeposit: true, CanWithdraw: true,
				})
			}
		}
	}
	return p
}

// SetOrderBook installs the depth snapshot served for a market.
func (p *PaperExchange) SetOrderBook(book domain.OrderBook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.books[book.Market] = book
}

// Deposit credits the account balance.
func (p *PaperExchange) Deposit(amount domain.MonetaryAmount) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances.Add(amount)
}

// SetFillPerPoll sets the fraction of an order's volume filled by each status
// poll. 1 fills on the first poll; 0.5 takes two polls.
func (p *PaperExchange) SetFillPerPoll(fraction decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fillPerPoll = fraction
}

// CallCount reports how many times an operation hit the backend, for cache
// behavior tests. Operation names: "currencies", "markets", "orderbook",
// "balance", "place", "cancel", "orderinfo".
func (p *PaperExchange) CallCount(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

func (p *PaperExchange) Account() domain.PrivateExchangeName {
	return p.account
}

func (p *PaperExchange) TradableCurrencies(ctx context.Context) ([]domain.CurrencyExchange, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["currencies"]++
	out := make([]domain.CurrencyExchange, len(p.currencies))
	copy(out, p.currencies)
	return out, nil
}

func (p *PaperExchange) TradableMarkets(ctx context.Context) ([]domain.Market, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["markets"]++
	out := make([]domain.Market, len(p.markets))
	copy(out, p.markets)
	return out, nil
}

func (p *PaperExchange) OrderBook(ctx context.Context, market domain.Market, depth int) (domain.OrderBook, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["orderbook"]++
	book, ok := p.books[market]
	if !ok {
		return domain.OrderBook{}, domain.NewFatalExchangeError(p.account.Platform, "orderbook",
			fmt.Errorf("%w: %s", domain.ErrInvalidMarket, market))
	}
	return book, nil
}

func (p *PaperExchange) Balance(ctx context.Context) (domain.BalancePortfolio, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["balance"]++
	out := domain.NewBalancePortfolio()
	for _, cur := range p.balances.Currencies() {
		out.Add(p.balances.Get(cur))
	}
	return out, nil
}

func (p *PaperExchange) PlaceOrder(ctx context.Context, volume, price decimal.Decimal, info domain.TradeInfo) (domain.PlaceOrderInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["place"]++

	if err := p.checkFunds(volume, price, info); err != nil {
		return domain.PlaceOrderInfo{}, err
	}

	order := &paperOrder{
		market: info.Market,
		side:   info.Side,
		volume: volume,
		price:  price,
	}
	id := domain.OrderID(uuid.NewString())
	p.orders[id] = order

	// A marketable price fills immediately against the book.
	if p.crossesSpread(order) {
		p.fill(order, order.volume)
	}

	return domain.PlaceOrderInfo{
		OrderInfo: domain.OrderInfo{Traded: p.tradedFor(order), IsClosed: order.closed},
		OrderID:   id,
	}, nil
}

func (p *PaperExchange) OrderInfo(ctx context.Context, orderID domain.OrderID, info domain.TradeInfo) (domain.OrderInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["orderinfo"]++

	order, ok := p.orders[orderID]
	if !ok {
		return domain.OrderInfo{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	if !order.closed {
		step := order.volume.Mul(p.fillPerPoll)
		p.fill(order, step)
	}
	return domain.OrderInfo{Traded: p.tradedFor(order), IsClosed: order.closed}, nil
}

func (p *PaperExchange) CancelOrder(ctx context.Context, orderID domain.OrderID, info domain.TradeInfo) (domain.OrderInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["cancel"]++

	order, ok := p.orders[orderID]
	if !ok {
		return domain.OrderInfo{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	order.closed = true
	return domain.OrderInfo{Traded: p.tradedFor(order), IsClosed: true}, nil
}

func (p *PaperExchange) DepositWallet(ctx context.Context, currency domain.CurrencyCode) (domain.Wallet, error) {
	return domain.Wallet{
		Exchange: p.account.Platform,
		Currency: currency,
		Address:  "paper-" + string(currency) + "-" + uuid.NewString(),
	}, nil
}

func (p *PaperExchange) Withdraw(ctx context.Context, amount domain.MonetaryAmount, target domain.PrivateExchangeName) (domain.WithdrawInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	held := p.balances.Get(amount.Currency)
	if held.LessThan(amount) {
		return domain.WithdrawInfo{}, fmt.Errorf("%w: withdraw %s, have %s", domain.ErrInsufficientBalance, amount, held)
	}
	p.balances.Add(domain.ZeroAmount(amount.Currency).Sub(amount))
	return domain.WithdrawInfo{
		WithdrawID: uuid.NewString(),
		Sent:       amount,
		Fee:        domain.ZeroAmount(amount.Currency),
	}, nil
}

// checkFunds verifies the order is covered by the current balance, ignoring
// amounts tied up in other open orders. Called with the lock held.
func (p *PaperExchange) checkFunds(volume, price decimal.Decimal, info domain.TradeInfo) error {
	var needed domain.MonetaryAmount
	if info.Side == domain.SideBuy {
		needed = domain.NewMonetaryAmount(volume.Mul(price), info.Market.Quote)
	} else {
		needed = domain.NewMonetaryAmount(volume, info.Market.Base)
	}
	held := p.balances.Get(needed.Currency)
	if held.LessThan(needed) {
		return domain.NewFatalExchangeError(p.account.Platform, "place-order",
			fmt.Errorf("%w: need %s, have %s", domain.ErrInsufficientBalance, needed, held))
	}
	return nil
}

func (p *PaperExchange) crossesSpread(order *paperOrder) bool {
	book, ok := p.books[order.market]
	if !ok {
		return false
	}
	if order.side == domain.SideBuy {
		ask, ok := book.BestAsk()
		return ok && order.price.GreaterThanOrEqual(ask.Price)
	}
	bid, ok := book.BestBid()
	return ok && order.price.LessThanOrEqual(bid.Price)
}

// fill advances an order by up to step base units and settles the balances.
// Called with the lock held.
func (p *PaperExchange) fill(order *paperOrder, step decimal.Decimal) {
	remaining := order.volume.Sub(order.filled)
	if step.GreaterThan(remaining) {
		step = remaining
	}
	if step.IsPositive() {
		order.filled = order.filled.Add(step)
		quote := step.Mul(order.price)
		if order.side == domain.SideBuy {
			p.balances.Add(domain.NewMonetaryAmount(quote.Neg(), order.market.Quote))
			p.balances.Add(domain.NewMonetaryAmount(step, order.market.Base))
		} else {
			p.balances.Add(domain.NewMonetaryAmount(step.Neg(), order.market.Base))
			p.balances.Add(domain.NewMonetaryAmount(quote, order.market.Quote))
		}
	}
	if order.filled.Equal(order.volume) {
		order.closed = true
	}
}

// tradedFor reports the cumulative traded amounts of one order, oriented from
// the source currency to the destination. Called with the lock held.
func (p *PaperExchange) tradedFor(order *paperOrder) domain.TradedAmounts {
	quote := order.filled.Mul(order.price)
	if order.side == domain.SideBuy {
		return domain.TradedAmounts{
			From: domain.NewMonetaryAmount(quote, order.market.Quote),
			To:   domain.NewMonetaryAmount(order.filled, order.market.Base),
		}
	}
	return domain.TradedAmounts{
		From: domain.NewMonetaryAmount(order.filled, order.market.Base),
		To:   domain.NewMonetaryAmount(quote, order.market.Quote),
	}
}

// ensure both backends stay assignable to the uniform contract.
var _ Exchange = (*PaperExchange)(nil)
var _ Exchange = (*CachedExchange)(nil)
