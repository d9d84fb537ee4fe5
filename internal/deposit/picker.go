// Package deposit correlates deposits reported by an exchange with the
// deposit we expect to see after a withdrawal. Exchanges deduct their own
// fees and apply their own rounding, so the match is a nearest-amount
// heuristic over a recent time window rather than an exact lookup.
package deposit

import (
	"sort"
	"time"

	"coinflow/internal/domain"

	"github.com/shopspring/decimal"
)

// Matching heuristics carried over from production tuning. Exposed as
// configuration so callers can widen them for slow chains.
var (
	// DefaultRelativeTolerance is the maximum relative amount difference
	// still considered the same deposit (0.1%).
	DefaultRelativeTolerance = decimal.NewFromFloat(0.001)
)

// DefaultEligibilityWindow absorbs clock and UTC skew between when we
// expected the deposit and when the exchange timestamps it.
const DefaultEligibilityWindow = 24 * time.Hour

// RecentDeposit is one deposit as observed on an exchange, or as expected.
type RecentDeposit struct {
	Amount domain.MonetaryAmount
	Time   time.Time
}

// ClosestRecentDepositPicker owns a small working set of observed deposits
// and selects the one most plausibly matching an expected deposit.
type ClosestRecentDepositPicker struct {
	deposits  []RecentDeposit
	tolerance decimal.Decimal
	window    time.Duration
}

// NewPicker creates a picker with the default tolerance and window.
func NewPicker() ClosestRecentDepositPicker {
	return ClosestRecentDepositPicker{
		tolerance: DefaultRelativeTolerance,
		window:    DefaultEligibilityWindow,
	}
}

// Add records one observed deposit.
func (p *ClosestRecentDepositPicker) Add(d RecentDeposit) {
	p.deposits = append(p.deposits, d)
}

// PickClosestOrDefault returns the best-matching observed deposit, or the
// zero RecentDeposit when no observed deposit is plausible.
func (p *ClosestRecentDepositPicker) PickClosestOrDefault(expected RecentDeposit) RecentDeposit {
	if d := p.selectClosest(expected); d != nil {
		return *d
	}
	return RecentDeposit{}
}

// selectClosest implements the matching heuristic:
//  1. keep only deposits newer than expected.Time minus the window slack,
//  2. an exact amount on the most recent eligible deposit wins outright,
//  3. otherwise the closest amount wins, most recent first on ties,
//  4. but only within the relative tolerance.
func (p *ClosestRecentDepositPicker) selectClosest(expected RecentDeposit) *RecentDeposit {
	if len(p.deposits) == 0 {
		return nil
	}

	// Newest first.
	sort.SliceStable(p.deposits, func(i, j int) bool {
		return p.deposits[i].Time.After(p.deposits[j].Time)
	})

	// Time-eligible prefix: deposit.Time + window > expected.Time.
	eligible := p.deposits
	for i, d := range p.deposits {
		if !d.Time.Add(p.window).After(expected.Time) {
			eligible = p.deposits[:i]
			break
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	if eligible[0].Amount.Equal(expected.Amount) {
		return &eligible[0]
	}

	closest := &eligible[0]
	closestGap := amountGap(eligible[0], expected)
	for i := 1; i < len(eligible); i++ {
		if gap := amountGap(eligible[i], expected); gap.LessThan(closestGap) {
			closest = &eligible[i]
			closestGap = gap
		}
	}

	if !withinTolerance(closestGap, expected.Amount.Amount, p.tolerance) {
		return nil
	}
	return closest
}

func amountGap(d, expected RecentDeposit) decimal.Decimal {
	return d.Amount.Amount.Sub(expected.Amount.Amount).Abs()
}

// withinTolerance checks gap < |expected| * tolerance. A zero expected amount
// only matches exactly.
func withinTolerance(gap, expected, tolerance decimal.Decimal) bool {
	if expected.IsZero() {
		return gap.IsZero()
	}
	return gap.LessThan(expected.Abs().Mul(tolerance))
}
