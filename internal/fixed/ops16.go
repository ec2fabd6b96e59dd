package fixed

// Saturate clamps a 32-bit value into the int16 range.
func (s *Status) Saturate(l int32) int16 {
	switch {
	case l > MaxInt16:
		s.Overflow = true
		return MaxInt16
	case l < MinInt16:
		s.Overflow = true
		return MinInt16
	default:
		return int16(l)
	}
}

// Add returns v1+v2 with saturation.
func (s *Status) Add(v1, v2 int16) int16 {
	return s.Saturate(int32(v1) + int32(v2))
}

// Sub returns v1-v2 with saturation.
func (s *Status) Sub(v1, v2 int16) int16 {
	return s.Saturate(int32(v1) - int32(v2))
}

// IntMult returns the plain integer product v1*v2 saturated to 16 bits.
func (s *Status) IntMult(v1, v2 int16) int16 {
	return s.Saturate(int32(v1) * int32(v2))
}

// ShiftLeft arithmetically shifts v left by n bits with saturation.
// A negative n shifts right. n is clamped to [-16, 16].
func (s *Status) ShiftLeft(v, n int16) int16 {
	if n < 0 {
		if n < -16 {
			n = -16
		}
		return s.ShiftRight(v, -n)
	}
	if n > 16 {
		n = 16
	}
	result := int64(v) << uint(n)
	if (n > 15 && v != 0) || result > MaxInt16 || result < MinInt16 {
		s.Overflow = true
		if v > 0 {
			return MaxInt16
		}
		return MinInt16
	}
	return int16(result)
}

// ShiftRight arithmetically shifts v right by n bits with sign extension.
// A negative n shifts left with saturation. n is clamped to [-16, 16].
func (s *Status) ShiftRight(v, n int16) int16 {
	if n < 0 {
		if n < -16 {
			n = -16
		}
		return s.ShiftLeft(v, -n)
	}
	if n >= 15 {
		if v < 0 {
			return -1
		}
		return 0
	}
	return v >> uint(n)
}

// ShiftRightRound is ShiftRight with the last shifted-out bit added back,
// i.e. rounding half up.
func (s *Status) ShiftRightRound(v, n int16) int16 {
	if n > 15 {
		return 0
	}
	out := s.ShiftRight(v, n)
	if n > 0 && int32(v)&(int32(1)<<uint(n-1)) != 0 {
		out++
	}
	return out
}

// Norm returns the number of left shifts needed to normalize v so that its
// magnitude occupies bit 14. Norm(0) is 0 and Norm(-1) is 15.
func Norm(v int16) int16 {
	if v == 0 {
		return 0
	}
	if v == -1 {
		return 15
	}
	x := int32(v)
	if x < 0 {
		x = ^x
	}
	var n int16
	for ; x < 0x4000; n++ {
		x <<= 1
	}
	return n
}

// Negate returns -v, with Negate(MinInt16) = MaxInt16.
func Negate(v int16) int16 {
	if v == MinInt16 {
		return MaxInt16
	}
	return -v
}

// Abs returns |v|, with Abs(MinInt16) = MaxInt16.
func Abs(v int16) int16 {
	if v == MinInt16 {
		return MaxInt16
	}
	if v < 0 {
		return -v
	}
	return v
}

// High returns the 16 most significant bits of l.
func High(l int32) int16 {
	return int16(l >> 16)
}

// Low returns the 16 least significant bits of l.
func Low(l int32) int16 {
	return int16(l)
}

// DepositHigh places v in the high half of a 32-bit value, zeroing the low half.
func DepositHigh(v int16) int32 {
	return int32(v) << 16
}

// DepositLow sign-extends v to 32 bits.
func DepositLow(v int16) int32 {
	return int32(v)
}
