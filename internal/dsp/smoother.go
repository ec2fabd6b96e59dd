// internal/dsp/smoother.go
package dsp

import (
	"errors"

	"github.com/ColonelBlimp/cwdsp/internal/fixed"
)

// ErrInvalidSmoothing indicates a smoothing coefficient must be positive
var ErrInvalidSmoothing = errors.New("smoothing coefficients must be positive")

// Smoother is an asymmetric one-pole envelope follower. Rising input moves
// the output by up/32768 of the difference per sample, falling input by
// down/32768.
type Smoother struct {
	up   int16 // Q15
	down int16 // Q15
	acc  int32 // Q31

	status fixed.Status
}

// NewSmoother creates a smoother with raw Q15 up and down coefficients.
func NewSmoother(up, down int16) (*Smoother, error) {
	if up <= 0 || down <= 0 {
		return nil, ErrInvalidSmoothing
	}
	return &Smoother{up: up, down: down}, nil
}

// SmoothSample feeds one value and returns the new smoothed output.
func (m *Smoother) SmoothSample(x int16) int16 {
	s := &m.status
	delta := s.Sub(x, s.Round(m.acc))
	coef := m.down
	if delta >= 0 {
		coef = m.up
	}
	m.acc = s.Mac(m.acc, delta, coef)
	return s.Round(m.acc)
}

// Smooth runs in through the smoother into out. out and in may be the same
// slice. It processes min(len(out), len(in)) values.
func (m *Smoother) Smooth(out, in []int16) int {
	n := min(len(out), len(in))
	for i := 0; i < n; i++ {
		out[i] = m.SmoothSample(in[i])
	}
	return n
}

// Value returns the current smoothed output without advancing.
func (m *Smoother) Value() int16 {
	var s fixed.Status
	return s.Round(m.acc)
}

// Up returns the Q15 rise coefficient.
func (m *Smoother) Up() int16 { return m.up }

// Down returns the Q15 fall coefficient.
func (m *Smoother) Down() int16 { return m.down }

// Reset zeroes the accumulator and clears the status flags.
func (m *Smoother) Reset() {
	m.acc = 0
	m.status.Reset()
}

// Status returns the smoother's arithmetic flags.
func (m *Smoother) Status() *fixed.Status {
	return &m.status
}
