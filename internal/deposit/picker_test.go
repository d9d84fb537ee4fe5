package deposit

import (
	"testing"
	"time"

	"coinflow/internal/domain"

	"github.com/shopspring/decimal"
)

func eur(amount float64, age time.Duration, now time.Time) RecentDeposit {
	return RecentDeposit{
		Amount: domain.NewMonetaryAmount(decimal.NewFromFloat(amount), "EUR"),
		Time:   now.Add(-age),
	}
}

func TestPicker_EmptyHasNoMatch(t *testing.T) {
	now := time.Now()
	picker := NewPicker()

	got := picker.PickClosestOrDefault(eur(10, 0, now))
	if !got.Amount.IsZero() || !got.Time.IsZero() {
		t.Errorf("Empty picker should return the zero deposit, got %v", got)
	}
}

func TestPicker_ExactMatchMostRecent(t *testing.T) {
	now := time.Now()
	picker := NewPicker()
	picker.Add(eur(10, 4*24*time.Hour, now))
	picker.Add(eur(10, 3*24*time.Hour, now))
	picker.Add(eur(10, 52*time.Hour, now))
	picker.Add(eur(10, 50*time.Hour, now))
	picker.Add(eur(10, 20*time.Hour, now))

	got := picker.PickClosestOrDefault(eur(10, 0, now))
	if !got.Time.Equal(now.Add(-20 * time.Hour)) {
		t.Errorf("Expected the 20h-old deposit (only time-eligible exact match), got %v", got.Time)
	}
}

func TestPicker_CloseMatchWithinTolerance(t *testing.T) {
	now := time.Now()
	picker := NewPicker()
	picker.Add(eur(34, 5*time.Minute, now))
	picker.Add(eur(33.1, 12*time.Minute, now))
	picker.Add(eur(32, time.Hour, now))

	t.Run("within 0.1%", func(t *testing.T) {
		got := picker.PickClosestOrDefault(eur(33.0998, 0, now))
		if !got.Amount.Amount.Equal(decimal.NewFromFloat(33.1)) {
			t.Errorf("Expected 33.1 deposit, got %v", got.Amount)
		}
	})

	t.Run("outside 0.1%", func(t *testing.T) {
		got := picker.PickClosestOrDefault(eur(33.06, 0, now))
		if !got.Amount.Amount.IsZero() {
			t.Errorf("33.1 vs 33.06 is outside tolerance, got %v", got.Amount)
		}
	})
}

func TestPicker_TooOldNeverMatches(t *testing.T) {
	now := time.Now()

	for _, age := range []time.Duration{3 * 24 * time.Hour, 4 * 24 * time.Hour} {
		picker := NewPicker()
		picker.Add(eur(27.5, age, now))

		got := picker.PickClosestOrDefault(eur(27.5, 0, now))
		if !got.Amount.Amount.IsZero() {
			t.Errorf("Deposit aged %v is outside the 1-day window, got %v", age, got.Amount)
		}
	}
}

func TestPicker_TieBreakMostRecent(t *testing.T) {
	now := time.Now()
	picker := NewPicker()
	picker.Add(eur(100.05, 2*time.Hour, now))
	picker.Add(eur(100.05, 30*time.Minute, now))

	got := picker.PickClosestOrDefault(eur(100, 0, now))
	if !got.Time.Equal(now.Add(-30 * time.Minute)) {
		t.Errorf("Equal gaps should prefer the most recent deposit, got %v", got.Time)
	}
}
