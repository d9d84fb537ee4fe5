package domain

import (
	"fmt"
	"strings"
)

// Market is a tradable currency pair. Prices on the market are expressed in
// the quote currency, volumes in the base currency.
type Market struct {
	Base  CurrencyCode `json:"base"`
	Quote CurrencyCode `json:"quote"`
}

// NewMarket creates a market from its two legs.
func NewMarket(base, quote CurrencyCode) Market {
	return Market{Base: base, Quote: quote}
}

// ParseMarket parses the canonical "BTC-USDT" form.
func ParseMarket(s string) (Market, error) {
	base, quote, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok || base == "" || quote == "" {
		return Market{}, fmt.Errorf("%w: %q", ErrInvalidMarket, s)
	}
	return Market{Base: ParseCurrencyCode(base), Quote: ParseCurrencyCode(quote)}, nil
}

func (m Market) String() string {
	return string(m.Base) + "-" + string(m.Quote)
}

// Contains reports whether cur is one of the market's two legs.
func (m Market) Contains(cur CurrencyCode) bool {
	return m.Base == cur || m.Quote == cur
}

// Opposite returns the other leg of the market. Panics if cur is not part of
// the market.
func (m Market) Opposite(cur CurrencyCode) CurrencyCode {
	switch cur {
	case m.Base:
		return m.Quote
	case m.Quote:
		return m.Base
	}
	panic(fmt.Sprintf("MARKET_LEG_MISMATCH: %s not in %s", cur, m))
}

// Side is the direction of an order on a market.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// SideFor returns the order side needed to convert away from the given source
// currency: selling the base or buying with the quote.
func (m Market) SideFor(from CurrencyCode) (Side, error) {
	switch from {
	case m.Base:
		return SideSell, nil
	case m.Quote:
		return SideBuy, nil
	}
	return "", fmt.Errorf("%w: %s not in %s", ErrInvalidMarket, from, m)
}

// CurrencyExchange describes one currency as listed by an exchange, with its
// deposit and withdrawal availability.
type CurrencyExchange struct {
	Currency    CurrencyCode `json:"currency"`
	CanDeposit  bool         `json:"can_deposit"`
	CanWithdraw bool         `json:"can_withdraw"`
}
