// Package fixed implements saturating 16/32-bit fixed-point arithmetic
// compatible with the ITU-T G.191 basic operators.
//
// Operations that can clamp or propagate a carry are methods on *Status, which
// holds the sticky Overflow and Carry flags for one processing instance.
// Operations that never touch the flags are plain functions.
package fixed

import "math"

// Integer range limits used throughout the package.
const (
	MaxInt16 = math.MaxInt16
	MinInt16 = math.MinInt16
	MaxInt32 = math.MaxInt32
	MinInt32 = math.MinInt32
)

// Status carries the sticky arithmetic flags of one signal chain stage.
// The zero value is ready to use. A Status must not be shared between
// goroutines.
type Status struct {
	// Overflow is set when an operation clamps its result.
	Overflow bool
	// Carry is read and written by AddCarry and SubCarry.
	Carry bool
}

// Reset clears both flags.
func (s *Status) Reset() {
	s.Overflow = false
	s.Carry = false
}

// SaturateCarry saturates a long accumulator built with the carry operations.
// If Overflow is set the result is MinInt32 when Carry is set and MaxInt32
// otherwise. Both flags are cleared afterwards.
func (s *Status) SaturateCarry(l int32) int32 {
	out := l
	if s.Overflow {
		if s.Carry {
			out = MinInt32
		} else {
			out = MaxInt32
		}
		s.Carry = false
		s.Overflow = false
	}
	return out
}

func (s *Status) carryBit() int64 {
	if s.Carry {
		return 1
	}
	return 0
}

// wrap32 reduces a widened intermediate to 32 bits with two's-complement
// wraparound. Only the carry operations use it.
func wrap32(v int64) int32 {
	return int32(uint32(uint64(v)))
}
