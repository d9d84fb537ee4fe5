// Package storage persists the engine's trade history and observed deposits
// in a local SQLite database.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"coinflow/internal/deposit"
	"coinflow/internal/domain"
	"coinflow/internal/trade"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TradeRecord is one completed (possibly partial) conversion. Amounts are
// stored as decimal strings; SQLite floats would lose exactness.
type TradeRecord struct {
	ID           uint   `gorm:"primaryKey"`
	Exchange     string `gorm:"index"`
	FromCurrency string
	FromAmount   string
	ToCurrency   string
	ToAmount     string
	Hops         int
	Complete     bool
	CreatedAt    time.Time
}

// DepositRecord is one deposit observed on an exchange, feeding the
// closest-recent-deposit correlation.
type DepositRecord struct {
	ID         uint   `gorm:"primaryKey"`
	Exchange   string `gorm:"index"`
	Currency   string `gorm:"index"`
	Amount     string
	ObservedAt time.Time
}

// Store wraps the SQLite database.
type Store struct {
	db *gorm.DB
}

// NewStore opens (and migrates) the database at path, creating parent
// directories as needed.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&TradeRecord{}, &DepositRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// RecordTrade appends one conversion outcome. Satisfies trade.Recorder.
func (s *Store) RecordTrade(account domain.PrivateExchangeName, result trade.Result) error {
	rec := TradeRecord{
		Exchange:     account.String(),
		FromCurrency: result.Traded.From.Currency.String(),
		FromAmount:   result.Traded.From.Amount.String(),
		ToCurrency:   result.Traded.To.Currency.String(),
		ToAmount:     result.Traded.To.Amount.String(),
		Hops:         result.Hops,
		Complete:     result.IsComplete,
	}
	return s.db.Create(&rec).Error
}

// Trades returns the recorded conversions for an account, newest first.
func (s *Store) Trades(account domain.PrivateExchangeName) ([]TradeRecord, error) {
	var recs []TradeRecord
	err := s.db.Where("exchange = ?", account.String()).Order("id desc").Find(&recs).Error
	return recs, err
}

// RecordDeposit appends one observed deposit.
func (s *Store) RecordDeposit(exchange domain.ExchangeName, amount domain.MonetaryAmount, observedAt time.Time) error {
	rec := DepositRecord{
		Exchange:   exchange.String(),
		Currency:   amount.Currency.String(),
		Amount:     amount.Amount.String(),
		ObservedAt: observedAt,
	}
	return s.db.Create(&rec).Error
}

// RecentDeposits loads the deposits of one currency observed since the given
// time into a picker, ready for correlation. A missing history is not an
// error; the picker is just empty.
func (s *Store) RecentDeposits(exchange domain.ExchangeName, currency domain.CurrencyCode, since time.Time) (deposit.ClosestRecentDepositPicker, error) {
	picker := deposit.NewPicker()

	var recs []DepositRecord
	err := s.db.
		Where("exchange = ? AND currency = ? AND observed_at >= ?", exchange.String(), currency.String(), since).
		Find(&recs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return picker, nil
	}
	if err != nil {
		return picker, err
	}

	for _, rec := range recs {
		amount, err := decimal.NewFromString(rec.Amount)
		if err != nil {
			return picker, fmt.Errorf("corrupt deposit record %d: %w", rec.ID, err)
		}
		picker.Add(deposit.RecentDeposit{
			Amount: domain.NewMonetaryAmount(amount, domain.CurrencyCode(rec.Currency)),
			Time:   rec.ObservedAt,
		})
	}
	return picker, nil
}
