package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyCode is a short upper-case currency symbol (e.g., "BTC", "USDT").
type CurrencyCode string

// ParseCurrencyCode normalizes a currency symbol to its canonical form.
func ParseCurrencyCode(s string) CurrencyCode {
	return CurrencyCode(strings.ToUpper(strings.TrimSpace(s)))
}

func (c CurrencyCode) String() string {
	return string(c)
}

// IsNeutral returns true for the empty code, used as "no currency specified".
func (c CurrencyCode) IsNeutral() bool {
	return c == ""
}

// MonetaryAmount couples an exact decimal quantity with its currency.
// All trade accounting goes through this type; raw decimals are only used
// for prices and volumes whose currency is implied by a market side.
type MonetaryAmount struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency CurrencyCode    `json:"currency"`
}

// NewMonetaryAmount creates an amount from an exact decimal value.
func NewMonetaryAmount(amount decimal.Decimal, currency CurrencyCode) MonetaryAmount {
	return MonetaryAmount{Amount: amount, Currency: currency}
}

// ZeroAmount returns the zero amount of the given currency.
func ZeroAmount(currency CurrencyCode) MonetaryAmount {
	return MonetaryAmount{Amount: decimal.Zero, Currency: currency}
}

// ParseMonetaryAmount parses strings such as "33.1 EUR" or "0.5BTC".
func ParseMonetaryAmount(s string) (MonetaryAmount, error) {
	s = strings.TrimSpace(s)
	split := strings.LastIndexFunc(s, func(r rune) bool {
		return (r >= '0' && r <= '9') || r == '.' || r == '-'
	})
	if split < 0 || split+1 >= len(s) {
		return MonetaryAmount{}, fmt.Errorf("cannot parse monetary amount from %q", s)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(s[:split+1]))
	if err != nil {
		return MonetaryAmount{}, fmt.Errorf("cannot parse monetary amount from %q: %w", s, err)
	}
	return MonetaryAmount{Amount: amount, Currency: ParseCurrencyCode(s[split+1:])}, nil
}

// checkCurrency panics on cross-currency arithmetic. Mixing currencies is a
// programming error, never a recoverable runtime condition.
func (m MonetaryAmount) checkCurrency(other MonetaryAmount) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("CURRENCY_MISMATCH: %s vs %s", m.Currency, other.Currency))
	}
}

// Add returns m + other. Panics if currencies differ.
func (m MonetaryAmount) Add(other MonetaryAmount) MonetaryAmount {
	m.checkCurrency(other)
	return MonetaryAmount{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}
}

// Sub returns m - other. Panics if currencies differ.
func (m MonetaryAmount) Sub(other MonetaryAmount) MonetaryAmount {
	m.checkCurrency(other)
	return MonetaryAmount{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}
}

func (m MonetaryAmount) IsZero() bool {
	return m.Amount.IsZero()
}

func (m MonetaryAmount) IsPositive() bool {
	return m.Amount.IsPositive()
}

// LessThan compares amounts of the same currency. Panics if currencies differ.
func (m MonetaryAmount) LessThan(other MonetaryAmount) bool {
	m.checkCurrency(other)
	return m.Amount.LessThan(other.Amount)
}

// Equal reports whether both the numeric value and the currency match.
func (m MonetaryAmount) Equal(other MonetaryAmount) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

func (m MonetaryAmount) String() string {
	return m.Amount.String() + " " + string(m.Currency)
}
