package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceLevel is a single price+volume entry on one side of an order book.
// Price is in the quote currency, Volume in the base currency.
type PriceLevel struct {
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
}

// OrderBook is a depth snapshot of a market. Bids are sorted best (highest)
// first, asks best (lowest) first.
type OrderBook struct {
	Market   Market          `json:"market"`
	Bids     []PriceLevel    `json:"bids"`
	Asks     []PriceLevel    `json:"asks"`
	TickSize decimal.Decimal `json:"tick_size"`
	Time     time.Time       `json:"time"`
}

// BestBid returns the highest bid level, if any.
func (b OrderBook) BestBid() (PriceLevel, bool) {
	if len(b.Bids) == 0 {
		return PriceLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask level, if any.
func (b OrderBook) BestAsk() (PriceLevel, bool) {
	if len(b.Asks) == 0 {
		return PriceLevel{}, false
	}
	return b.Asks[0], true
}

// MakerPrice returns the passive limit price for the given side: joining the
// best level on our own side of the book.
func (b OrderBook) MakerPrice(side Side) (decimal.Decimal, bool) {
	if side == SideBuy {
		lvl, ok := b.BestBid()
		return lvl.Price, ok
	}
	lvl, ok := b.BestAsk()
	return lvl.Price, ok
}

// NibblePrice returns a limit price one tick inside the best price of our own
// side: slightly more aggressive than maker, still passive against the
// opposite side.
func (b OrderBook) NibblePrice(side Side) (decimal.Decimal, bool) {
	price, ok := b.MakerPrice(side)
	if !ok {
		return decimal.Decimal{}, false
	}
	tick := b.TickSize
	if tick.IsZero() {
		return price, true
	}
	if side == SideBuy {
		return price.Add(tick), true
	}
	return price.Sub(tick), true
}

// TakerPrice returns a marketable price crossing the spread, matching the best
// opposite-side level immediately.
func (b OrderBook) TakerPrice(side Side) (decimal.Decimal, bool) {
	if side == SideBuy {
		lvl, ok := b.BestAsk()
		return lvl.Price, ok
	}
	lvl, ok := b.BestBid()
	return lvl.Price, ok
}
