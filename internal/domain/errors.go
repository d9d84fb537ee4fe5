package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// ExchangeError represents a failed exchange call. Network-level faults are
// usually retriable; exchange-reported rejections are not.
type ExchangeError struct {
	Exchange  ExchangeName
	Op        string // Operation that failed (e.g., "orderbook", "place-order")
	Err       error  // Underlying error
	Retriable bool
}

func (e *ExchangeError) Error() string {
	return string(e.Exchange) + " " + e.Op + ": " + e.Err.Error()
}

func (e *ExchangeError) IsRetriable() bool {
	return e.Retriable
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// NewExchangeError creates a retriable exchange call error
func NewExchangeError(exchange ExchangeName, op string, err error) *ExchangeError {
	return &ExchangeError{Exchange: exchange, Op: op, Err: err, Retriable: true}
}

// NewFatalExchangeError creates a non-retriable exchange call error
func NewFatalExchangeError(exchange ExchangeName, op string, err error) *ExchangeError {
	return &ExchangeError{Exchange: exchange, Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration or usage error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrExchangeNotFound is returned when no configured account matches a
	// requested exchange name. Not retriable.
	ErrExchangeNotFound = errors.New("exchange not found")

	// ErrAmbiguousExchange is returned when a platform-only selector matches
	// several accounts and the caller gave no key name to disambiguate.
	ErrAmbiguousExchange = errors.New("ambiguous exchange name")

	// ErrInvalidMarket is returned when a market string is malformed or a
	// currency is not part of the market.
	ErrInvalidMarket = errors.New("invalid market")

	// ErrNoConversionPath is returned when no market chain links the source
	// currency to the destination.
	ErrNoConversionPath = errors.New("no conversion path")

	// ErrOrderNotFound is returned when an order id is unknown to the exchange.
	ErrOrderNotFound = errors.New("order not found")

	// ErrEmptyOrderBook is returned when a book side needed for pricing has no
	// levels.
	ErrEmptyOrderBook = errors.New("empty order book")

	// ErrInsufficientBalance is returned when an order exceeds the available
	// account balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
)
