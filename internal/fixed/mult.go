package fixed

// Mult returns the Q15 product (v1*v2)>>15. Mult(MinInt16, MinInt16) is
// MaxInt16 and does not touch the flags.
func Mult(v1, v2 int16) int16 {
	if v1 == MinInt16 && v2 == MinInt16 {
		return MaxInt16
	}
	return int16((int32(v1) * int32(v2)) >> 15)
}

// MultRound returns the Q15 product rounded half up, saturated.
func (s *Status) MultRound(v1, v2 int16) int16 {
	p := int64(v1)*int64(v2) + 0x4000
	return s.Saturate(int32(p >> 15))
}

// LongMult returns the Q31 product (v1*v2)<<1.
// LongMult(MinInt16, MinInt16) saturates to MaxInt32.
func (s *Status) LongMult(v1, v2 int16) int32 {
	p := int32(v1) * int32(v2)
	if p == 0x40000000 {
		s.Overflow = true
		return MaxInt32
	}
	return p << 1
}

// LongMult0 returns the plain 32-bit product v1*v2 with no shift.
func LongMult0(v1, v2 int16) int32 {
	return int32(v1) * int32(v2)
}

// Mac returns acc + LongMult(v1, v2) with saturation.
func (s *Status) Mac(acc int32, v1, v2 int16) int32 {
	return s.Add32(acc, s.LongMult(v1, v2))
}

// Mac0 returns acc + LongMult0(v1, v2) with saturation.
func (s *Status) Mac0(acc int32, v1, v2 int16) int32 {
	return s.Add32(acc, LongMult0(v1, v2))
}

// MacNoSat returns acc + LongMult(v1, v2) + Carry through AddCarry.
func (s *Status) MacNoSat(acc int32, v1, v2 int16) int32 {
	return s.AddCarry(acc, s.LongMult(v1, v2))
}

// MacRound returns Round(Mac(acc, v1, v2)).
func (s *Status) MacRound(acc int32, v1, v2 int16) int16 {
	return s.Round(s.Mac(acc, v1, v2))
}

// Msu returns acc - LongMult(v1, v2) with saturation.
func (s *Status) Msu(acc int32, v1, v2 int16) int32 {
	return s.Sub32(acc, s.LongMult(v1, v2))
}

// Msu0 returns acc - LongMult0(v1, v2) with saturation.
func (s *Status) Msu0(acc int32, v1, v2 int16) int32 {
	return s.Sub32(acc, LongMult0(v1, v2))
}

// MsuNoSat returns acc - LongMult(v1, v2) through SubCarry.
func (s *Status) MsuNoSat(acc int32, v1, v2 int16) int32 {
	return s.SubCarry(acc, s.LongMult(v1, v2))
}

// MsuRound returns Round(Msu(acc, v1, v2)).
func (s *Status) MsuRound(acc int32, v1, v2 int16) int16 {
	return s.Round(s.Msu(acc, v1, v2))
}

// Mls multiplies a Q31 value by a Q15 value, returning Q31. The low half of l
// is multiplied separately so no precision is lost before the final Mac.
func (s *Status) Mls(l int32, v int16) int32 {
	acc := (l & 0xffff) * int32(v)
	acc = s.ShiftRight32(acc, 15)
	return s.Mac(acc, v, High(l))
}
