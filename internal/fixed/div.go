package fixed

import (
	"errors"
	"fmt"
)

// ErrDomain is the sentinel wrapped by every DomainError.
var ErrDomain = errors.New("fixed: argument outside operator domain")

// DomainError reports a violated division precondition. It is a programming
// error, never a saturation case.
type DomainError struct {
	Op     string
	Num    int32
	Den    int32
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("fixed: %s(%d, %d): %s", e.Op, e.Num, e.Den, e.Reason)
}

func (e *DomainError) Unwrap() error {
	return ErrDomain
}

// DivFraction returns v1/v2 in Q15 by restoring long division.
// It requires 0 <= v1 <= v2 and v2 > 0; DivFraction(v, v) is MaxInt16.
func (s *Status) DivFraction(v1, v2 int16) (int16, error) {
	switch {
	case v2 <= 0:
		return 0, &DomainError{Op: "DivFraction", Num: int32(v1), Den: int32(v2), Reason: "denominator must be positive"}
	case v1 < 0:
		return 0, &DomainError{Op: "DivFraction", Num: int32(v1), Den: int32(v2), Reason: "numerator must be non-negative"}
	case v1 > v2:
		return 0, &DomainError{Op: "DivFraction", Num: int32(v1), Den: int32(v2), Reason: "numerator exceeds denominator"}
	}

	if v1 == 0 {
		return 0, nil
	}
	if v1 == v2 {
		return MaxInt16, nil
	}

	var out int16
	num := DepositLow(v1)
	den := DepositLow(v2)
	for i := 0; i < 15; i++ {
		out <<= 1
		num <<= 1
		if num >= den {
			num = s.Sub32(num, den)
			out = s.Add(out, 1)
		}
	}
	return out, nil
}

// DivLong divides a non-negative Q31 numerator by a positive Q15 denominator
// and returns the Q15 quotient, saturating to MaxInt16 when num >= den<<16.
func (s *Status) DivLong(num int32, den int16) (int16, error) {
	switch {
	case den <= 0:
		return 0, &DomainError{Op: "DivLong", Num: num, Den: int32(den), Reason: "denominator must be positive"}
	case num < 0:
		return 0, &DomainError{Op: "DivLong", Num: num, Den: int32(den), Reason: "numerator must be non-negative"}
	}

	lden := DepositHigh(den)
	if num >= lden {
		return MaxInt16, nil
	}

	var out int16
	num = s.ShiftRight32(num, 1)
	lden = s.ShiftRight32(lden, 1)
	for i := 0; i < 15; i++ {
		out = s.ShiftLeft(out, 1)
		num = s.ShiftLeft32(num, 1)
		if num >= lden {
			num = s.Sub32(num, lden)
			out = s.Add(out, 1)
		}
	}
	return out, nil
}
