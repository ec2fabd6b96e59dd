package fixed

func (s *Status) saturate32(l int64) int32 {
	switch {
	case l > MaxInt32:
		s.Overflow = true
		return MaxInt32
	case l < MinInt32:
		s.Overflow = true
		return MinInt32
	default:
		return int32(l)
	}
}

// Add32 returns l1+l2 with saturation.
func (s *Status) Add32(l1, l2 int32) int32 {
	return s.saturate32(int64(l1) + int64(l2))
}

// Sub32 returns l1-l2 with saturation.
func (s *Status) Sub32(l1, l2 int32) int32 {
	return s.saturate32(int64(l1) - int64(l2))
}

// ShiftLeft32 shifts l left by n bits with saturation. A negative n shifts
// right. n is clamped to [-32, 32].
func (s *Status) ShiftLeft32(l int32, n int16) int32 {
	if n <= 0 {
		if n < -32 {
			n = -32
		}
		return s.ShiftRight32(l, -n)
	}
	if n > 32 {
		n = 32
	}
	out := l
	for ; n > 0; n-- {
		if out > 0x3fffffff {
			s.Overflow = true
			return MaxInt32
		}
		if out < -0x40000000 {
			s.Overflow = true
			return MinInt32
		}
		out *= 2
	}
	return out
}

// ShiftRight32 arithmetically shifts l right by n bits. A negative n shifts
// left with saturation. n is clamped to [-32, 32].
func (s *Status) ShiftRight32(l int32, n int16) int32 {
	if n < 0 {
		if n < -32 {
			n = -32
		}
		return s.ShiftLeft32(l, -n)
	}
	if n >= 31 {
		if l < 0 {
			return -1
		}
		return 0
	}
	return l >> uint(n)
}

// ShiftRightRound32 is ShiftRight32 with rounding half up.
func (s *Status) ShiftRightRound32(l int32, n int16) int32 {
	if n > 31 {
		return 0
	}
	out := s.ShiftRight32(l, n)
	if n > 0 && int64(l)&(int64(1)<<uint(n-1)) != 0 {
		out++
	}
	return out
}

// Norm32 returns the number of left shifts needed to normalize l so that its
// magnitude occupies bit 30. Norm32(0) is 0 and Norm32(-1) is 31.
func Norm32(l int32) int16 {
	if l == 0 {
		return 0
	}
	if l == -1 {
		return 31
	}
	x := int64(l)
	if x < 0 {
		x = ^x
	}
	var n int16
	for ; x < 0x40000000; n++ {
		x <<= 1
	}
	return n
}

// Negate32 returns -l, with Negate32(MinInt32) = MaxInt32.
func Negate32(l int32) int32 {
	if l == MinInt32 {
		return MaxInt32
	}
	return -l
}

// Abs32 returns |l|, with Abs32(MinInt32) = MaxInt32.
func Abs32(l int32) int32 {
	if l == MinInt32 {
		return MaxInt32
	}
	if l < 0 {
		return -l
	}
	return l
}

// Round rounds a Q31 value to Q15: High(Add32(l, 0x8000)).
func (s *Status) Round(l int32) int16 {
	return High(s.Add32(l, 0x8000))
}

// AddCarry returns l1+l2+Carry without saturation and updates both flags so
// that wider-than-32-bit sums can be chained.
func (s *Status) AddCarry(l1, l2 int32) int32 {
	out := wrap32(int64(l1) + int64(l2) + s.carryBit())
	test := wrap32(int64(l1) + int64(l2))

	carry := false
	switch {
	case l1 > 0 && l2 > 0 && test < 0:
		s.Overflow = true
	case l1 < 0 && l2 < 0:
		s.Overflow = test >= 0
		carry = true
	case (l1^l2) < 0 && test >= 0:
		s.Overflow = false
		carry = true
	default:
		s.Overflow = false
	}

	if s.Carry {
		switch test {
		case MaxInt32:
			s.Overflow = true
			s.Carry = carry
		case -1:
			s.Carry = true
		default:
			s.Carry = carry
		}
	} else {
		s.Carry = carry
	}
	return out
}

// SubCarry returns l1-l2 with borrow handling through Carry, without
// saturation.
func (s *Status) SubCarry(l1, l2 int32) int32 {
	if s.Carry {
		s.Carry = false
		if l2 != MinInt32 {
			return s.AddCarry(l1, -l2)
		}
		out := wrap32(int64(l1) - int64(l2))
		if l1 > 0 {
			s.Overflow = true
		}
		return out
	}

	out := wrap32(int64(l1) - int64(l2) - 1)
	test := wrap32(int64(l1) - int64(l2))

	carry := false
	switch {
	case test < 0 && l1 > 0 && l2 < 0:
		s.Overflow = true
	case test > 0 && l1 < 0 && l2 > 0:
		s.Overflow = true
		carry = true
	case test > 0 && (l1^l2) > 0:
		s.Overflow = false
		carry = true
	}
	if test == MinInt32 {
		s.Overflow = true
	}
	s.Carry = carry
	return out
}
