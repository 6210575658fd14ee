package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRetriable(t *testing.T) {
	busy := &LedgerError{Op: "escrow", Err: errors.New("database is locked"), Retriable: true}
	if !IsRetriable(busy) {
		t.Error("busy ledger error should be retriable")
	}

	broke := &LedgerError{Op: "payout", Err: ErrInsufficientFunds}
	if IsRetriable(broke) {
		t.Error("insufficient funds is not retriable")
	}

	cfg := &ConfigError{Field: "ws_addr", Err: errors.New("missing")}
	if IsRetriable(cfg) {
		t.Error("config errors are never retriable")
	}

	if IsRetriable(errors.New("plain")) {
		t.Error("plain errors are not retriable")
	}
}

func TestLedgerErrorUnwrap(t *testing.T) {
	err := &LedgerError{Op: "refund", Err: ErrInsufficientFunds}
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Error("LedgerError should unwrap to its cause")
	}

	wrapped := fmt.Errorf("operation failed: %w", err)
	if !errors.Is(wrapped, ErrInsufficientFunds) {
		t.Error("unwrap chain broken through fmt wrapping")
	}
}
