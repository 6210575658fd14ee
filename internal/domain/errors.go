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

// LedgerError represents a failed balance movement. Transfers rejected by
// the ledger abort the whole operation; whether a retry can succeed
// depends on the cause (a busy store is retriable, insufficient funds is not).
type LedgerError struct {
	Op        string // "escrow", "payout", "refund", ...
	Err       error
	Retriable bool
}

func (e *LedgerError) Error() string {
	return "ledger " + e.Op + ": " + e.Err.Error()
}

func (e *LedgerError) IsRetriable() bool {
	return e.Retriable
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error (never retriable)
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

// Engine error taxonomy. Validation and queue-state errors are rejected
// before any state mutation; a failed operation leaves the curve and all
// order records untouched.
var (
	// ErrMathOverflow is returned when checked curve arithmetic overflows.
	ErrMathOverflow = errors.New("math overflow")

	// ErrInvalidAmount is returned for zero or below-minimum amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrAmountTooLarge is returned for amounts above the per-transaction cap.
	ErrAmountTooLarge = errors.New("transaction amount too large")

	// ErrInsufficientFunds is returned when a party cannot cover a transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientLiquidity is returned when the reserve cannot cover a trade.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrQueueEmpty is returned when processing is requested on an empty queue.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrOrderProcessed is returned when the head order is already settled.
	ErrOrderProcessed = errors.New("order already processed")

	// ErrOrderNotFound is returned when no record exists at a cursor position.
	ErrOrderNotFound = errors.New("order not found")

	// ErrSlotOccupied is returned when an enqueue hits an existing sequence
	// number (replay protection). Recovery is via the bump/skip operations.
	ErrSlotOccupied = errors.New("order slot already occupied")

	// ErrRefundNotReady is returned when a refund is requested before the timeout.
	ErrRefundNotReady = errors.New("transaction not ready for refund")

	// ErrInvalidBuyer is returned when a refund caller does not own the order.
	ErrInvalidBuyer = errors.New("invalid buyer address")

	// ErrPriceCalculation is returned when curve math produces an inconsistent quote.
	ErrPriceCalculation = errors.New("price calculation failed")

	// ErrCurveExists is returned when initialization runs twice.
	ErrCurveExists = errors.New("curve already initialized")

	// ErrCurveNotFound is returned when the curve singleton is missing.
	ErrCurveNotFound = errors.New("curve not initialized")

	// ErrCurveCorrupted is returned when K no longer matches the reserves.
	ErrCurveCorrupted = errors.New("curve invariant violated")
)
