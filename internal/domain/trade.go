package domain

// OrderID identifies an order on one exchange.
type OrderID string

// TradedAmounts accumulates the source and destination amounts actually
// filled by one or more orders. It forms an additive monoid: the zero value
// for a (from, to) currency pair plus repeated Add calls tracks partial fills
// across sequential orders and conversion hops.
type TradedAmounts struct {
	From MonetaryAmount `json:"from"`
	To   MonetaryAmount `json:"to"`
}

// NewTradedAmounts returns the zero element for the given currency pair.
func NewTradedAmounts(from, to CurrencyCode) TradedAmounts {
	return TradedAmounts{From: ZeroAmount(from), To: ZeroAmount(to)}
}

// Add returns the component-wise sum. Panics if either component's currency
// differs.
func (t TradedAmounts) Add(other TradedAmounts) TradedAmounts {
	return TradedAmounts{From: t.From.Add(other.From), To: t.To.Add(other.To)}
}

// IsZero reports whether nothing has been traded in either direction.
func (t TradedAmounts) IsZero() bool {
	return t.From.IsZero() && t.To.IsZero()
}

func (t TradedAmounts) String() string {
	return t.From.String() + " -> " + t.To.String()
}

// OrderInfo is the lifecycle status of one order: what it has filled so far
// and whether it is still live on the exchange.
type OrderInfo struct {
	Traded   TradedAmounts `json:"traded"`
	IsClosed bool          `json:"is_closed"`
}

// PlaceOrderInfo is the outcome of placing an order.
type PlaceOrderInfo struct {
	OrderInfo
	OrderID OrderID `json:"order_id"`
}

// TradeInfo carries the per-order context an exchange needs to interpret
// order ids: the market the order lives on and its side.
type TradeInfo struct {
	Market Market
	Side   Side
}
