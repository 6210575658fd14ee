package safe

import (
	"errors"
	"math"
	"testing"
)

func TestAdd(t *testing.T) {
	if v, err := Add(1, 2); err != nil || v != 3 {
		t.Errorf("Add(1,2) = %d, %v", v, err)
	}
	if _, err := Add(math.MaxUint64, 1); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected overflow, got %v", err)
	}
}

func TestSub(t *testing.T) {
	if v, err := Sub(5, 3); err != nil || v != 2 {
		t.Errorf("Sub(5,3) = %d, %v", v, err)
	}
	if _, err := Sub(3, 5); !errors.Is(err, ErrUnderflow) {
		t.Errorf("expected underflow, got %v", err)
	}
}

func TestMul(t *testing.T) {
	if v, err := Mul(0, math.MaxUint64); err != nil || v != 0 {
		t.Errorf("Mul(0,max) = %d, %v", v, err)
	}
	if v, err := Mul(1<<32, 1<<31); err != nil || v != 1<<63 {
		t.Errorf("Mul = %d, %v", v, err)
	}
	if _, err := Mul(1<<32, 1<<32); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected overflow, got %v", err)
	}
}

func TestDiv(t *testing.T) {
	if v, err := Div(10, 3); err != nil || v != 3 {
		t.Errorf("Div(10,3) = %d, %v", v, err)
	}
	if _, err := Div(1, 0); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("expected division by zero, got %v", err)
	}
}

func TestMulDiv(t *testing.T) {
	// Intermediate product overflows uint64, result does not.
	x := uint64(100_000_000_000) // 100k quote, 6 decimals
	if v, err := MulDiv(x, 1_000_000_000, 1_000_000_000_000_000); err != nil || v != 100_000 {
		t.Errorf("MulDiv = %d, %v", v, err)
	}
	if _, err := MulDiv(math.MaxUint64, math.MaxUint64, 1); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected overflow, got %v", err)
	}
	if _, err := MulDiv(1, 1, 0); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("expected division by zero, got %v", err)
	}
}

func TestWideInvariant(t *testing.T) {
	x := uint64(100_000_000_000)
	y := uint64(1_000_000_000_000_000)
	k := MulWide(x, y) // 1e26, beyond uint64

	newY, err := DivWide(k, x+1_000_000_000)
	if err != nil {
		t.Fatalf("DivWide failed: %v", err)
	}
	if newY >= y {
		t.Errorf("reserve should shrink after buy: %d >= %d", newY, y)
	}

	if _, err := DivWide(k, 0); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("expected division by zero, got %v", err)
	}
}

func TestDivByWide(t *testing.T) {
	d := MulWide(100_000, 1_000_000_000)
	v, err := DivByWide(1_000_000, d)
	if err != nil {
		t.Fatalf("DivByWide failed: %v", err)
	}
	if v != 0 {
		t.Errorf("tiny dividend over wide divisor should round to 0, got %d", v)
	}
}
