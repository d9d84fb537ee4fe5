// Package trade implements the multi-hop conversion engine: price strategy
// configuration, conversion path resolution, and the per-hop order loop with
// timeout-driven strategy switching.
package trade

import (
	"fmt"
	"time"
)

// PriceStrategy selects how aggressively orders are priced against the book.
type PriceStrategy int

const (
	// StrategyMaker rests a passive limit at the best own-side price.
	StrategyMaker PriceStrategy = iota
	// StrategyNibble prices one tick inside the best own-side price.
	StrategyNibble
	// StrategyTaker crosses the spread for immediate execution.
	StrategyTaker
)

func (s PriceStrategy) String() string {
	switch s {
	case StrategyMaker:
		return "maker"
	case StrategyNibble:
		return "nibble"
	case StrategyTaker:
		return "taker"
	default:
		return "unknown"
	}
}

// ParsePriceStrategy parses the configuration form of a strategy.
func ParsePriceStrategy(s string) (PriceStrategy, error) {
	switch s {
	case "maker":
		return StrategyMaker, nil
	case "nibble", "adapt":
		return StrategyNibble, nil
	case "taker":
		return StrategyTaker, nil
	}
	return 0, fmt.Errorf("unknown price strategy %q", s)
}

// TimeoutAction decides what happens to an order still open when the trade
// deadline passes.
type TimeoutAction int

const (
	// TimeoutCancel cancels the remainder and stops the conversion chain.
	TimeoutCancel TimeoutAction = iota
	// TimeoutForceMatch escalates to taker pricing to finish the remainder.
	TimeoutForceMatch
)

func (a TimeoutAction) String() string {
	if a == TimeoutForceMatch {
		return "force-match"
	}
	return "cancel"
}

// ParseTimeoutAction parses the configuration form of a timeout action.
func ParseTimeoutAction(s string) (TimeoutAction, error) {
	switch s {
	case "cancel", "":
		return TimeoutCancel, nil
	case "force-match", "forcematch", "match":
		return TimeoutForceMatch, nil
	}
	return 0, fmt.Errorf("unknown timeout action %q", s)
}

// Mode separates real order placement from dry runs.
type Mode int

const (
	ModeReal Mode = iota
	ModeSimulation
)

// Type restricts a conversion to one market or allows multi-hop chains.
type Type int

const (
	TypeSingle Type = iota
	TypeMultiHop
)

// Defaults applied by NewOptions.
const (
	DefaultMaxTradeTime               = 30 * time.Second
	DefaultMinTimeBetweenPriceUpdates = 5 * time.Second
)

// Options configures one conversion. Immutable once handed to the trader,
// with the single exception of SwitchToTakerStrategy which the trade loop
// uses to escalate at timeout under TimeoutForceMatch.
type Options struct {
	MaxTradeTime               time.Duration
	MinTimeBetweenPriceUpdates time.Duration
	Strategy                   PriceStrategy
	TimeoutAction              TimeoutAction
	Mode                       Mode
	Type                       Type
}

// NewOptions returns the default configuration: passive maker pricing, 30s
// per-hop deadline with cancellation, real mode, multi-hop allowed.
func NewOptions() Options {
	return Options{
		MaxTradeTime:               DefaultMaxTradeTime,
		MinTimeBetweenPriceUpdates: DefaultMinTimeBetweenPriceUpdates,
		Strategy:                   StrategyMaker,
		TimeoutAction:              TimeoutCancel,
		Mode:                       ModeReal,
		Type:                       TypeMultiHop,
	}
}

// IsSimulation reports whether order placement should be short-circuited.
func (o Options) IsSimulation() bool {
	return o.Mode == ModeSimulation
}

// SwitchToTakerStrategy escalates the price strategy to taker. One-way: there
// is no going back to passive pricing within a trade.
func (o *Options) SwitchToTakerStrategy() {
	o.Strategy = StrategyTaker
}
