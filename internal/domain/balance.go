package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// BalancePortfolio is the set of per-currency amounts held on one account.
type BalancePortfolio struct {
	amounts map[CurrencyCode]decimal.Decimal
}

// NewBalancePortfolio creates an empty portfolio.
func NewBalancePortfolio() BalancePortfolio {
	return BalancePortfolio{amounts: make(map[CurrencyCode]decimal.Decimal)}
}

// Add credits the portfolio with the given amount.
func (b BalancePortfolio) Add(amount MonetaryAmount) {
	b.amounts[amount.Currency] = b.amounts[amount.Currency].Add(amount.Amount)
}

// Get returns the held amount for a currency, zero if none.
func (b BalancePortfolio) Get(cur CurrencyCode) MonetaryAmount {
	return MonetaryAmount{Amount: b.amounts[cur], Currency: cur}
}

// Currencies returns the held currencies in sorted order.
func (b BalancePortfolio) Currencies() []CurrencyCode {
	out := make([]CurrencyCode, 0, len(b.amounts))
	for cur, amount := range b.amounts {
		if !amount.IsZero() {
			out = append(out, cur)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Wallet is a deposit destination for one currency on one exchange.
type Wallet struct {
	Exchange ExchangeName `json:"exchange"`
	Currency CurrencyCode `json:"currency"`
	Address  string       `json:"address"`
	Tag      string       `json:"tag,omitempty"`
}

// WithdrawInfo is the outcome of a withdrawal request.
type WithdrawInfo struct {
	WithdrawID string         `json:"withdraw_id"`
	Sent       MonetaryAmount `json:"sent"`
	Fee        MonetaryAmount `json:"fee"`
}
