package fixed

// FromFloat converts v to a raw Qq integer with two's-complement round half
// up: (int64(1 + v*2^(q+1))) >> 1. q must not exceed 61.
func FromFloat(v float64, q uint) int64 {
	return int64(1+v*float64(int64(2)<<q)) >> 1
}

// Qn converts v to a 16-bit Qq value, clamping to the int16 range.
func Qn(v float64, q uint) int16 {
	r := FromFloat(v, q)
	switch {
	case r > MaxInt16:
		return MaxInt16
	case r < MinInt16:
		return MinInt16
	}
	return int16(r)
}

// Qn32 converts v to a 32-bit Qq value, clamping to the int32 range.
func Qn32(v float64, q uint) int32 {
	r := FromFloat(v, q)
	switch {
	case r > MaxInt32:
		return MaxInt32
	case r < MinInt32:
		return MinInt32
	}
	return int32(r)
}

// Q15 converts v to Q15. Q15(1.0) saturates to MaxInt16.
func Q15(v float64) int16 { return Qn(v, 15) }

// Q14 converts v to Q14.
func Q14(v float64) int16 { return Qn(v, 14) }

// ToFloat returns the real value of a raw Qq integer.
func ToFloat(raw int64, q uint) float64 {
	return float64(raw) / float64(int64(1)<<q)
}

// Sqrt returns the square root of a non-negative Q31 value as Q15, rounded
// half up and saturated. Negative input yields 0.
func Sqrt(l int32) int16 {
	if l <= 0 {
		return 0
	}
	// sqrt(l/2^31) * 2^15 == sqrt(l/2) == isqrt(2l)/2
	r := (isqrt(uint64(l)<<1) + 1) >> 1
	if r > MaxInt16 {
		return MaxInt16
	}
	return int16(r)
}

func isqrt(n uint64) uint64 {
	var r uint64
	bit := uint64(1) << 62
	for bit > n {
		bit >>= 2
	}
	for bit != 0 {
		if n >= r+bit {
			n -= r + bit
			r = r>>1 + bit
		} else {
			r >>= 1
		}
		bit >>= 2
	}
	return r
}
