// internal/filter/iir.go
package filter

import (
	"math"
	"math/cmplx"

	"github.com/ColonelBlimp/cwdsp/internal/fixed"
)

// stepFunc runs one sample through the order-specific recurrence and returns
// the new Q31 output.
type stepFunc func(f *Filter, in int16) int32

// Filter is a fixed-point direct form I IIR filter of first or second order.
// The delay line persists across calls. A Filter is not safe for concurrent
// use, and reconfiguring it must not overlap with filtering.
type Filter struct {
	order Order
	typ   Type

	// Design parameters, zero for filters built from raw coefficients
	cutoff     float64
	sampleRate float64
	q          float64

	coef Coefficients

	// Delay line: previous inputs (Q15) and previous outputs (Q31)
	ff0, ff1 int16
	fb0, fb1 int32

	status fixed.Status
	step   stepFunc
}

// NewFirstOrder creates a first order LPF, HPF or APF with Q15 coefficients.
func NewFirstOrder(cutoff, sampleRate float64, typ Type) (*Filter, error) {
	f := &Filter{order: First, step: firstOrderStep}
	if err := f.SetFrequency(cutoff, sampleRate, typ, 0); err != nil {
		return nil, err
	}
	return f, nil
}

// NewSecondOrder creates a second order LPF, BPF, HPF, APF or BEF with Q14
// coefficients and quality factor q.
func NewSecondOrder(cutoff, sampleRate float64, typ Type, q float64) (*Filter, error) {
	f := &Filter{order: Second, step: secondOrderStep}
	if err := f.SetFrequency(cutoff, sampleRate, typ, q); err != nil {
		return nil, err
	}
	return f, nil
}

// New creates a filter of the given order. q is ignored for first order
// filters.
func New(order Order, cutoff, sampleRate float64, typ Type, q float64) (*Filter, error) {
	switch order {
	case First:
		return NewFirstOrder(cutoff, sampleRate, typ)
	case Second:
		return NewSecondOrder(cutoff, sampleRate, typ, q)
	}
	return nil, &ConfigError{Op: "new", Value: order.String(), Err: ErrInvalidOrder}
}

// NewDirectForm creates a filter from raw coefficients, Q15 for First and
// Q14 for Second. Use PassThrough for the default coefficient set.
func NewDirectForm(order Order, c Coefficients) (*Filter, error) {
	f := &Filter{order: order, coef: c}
	switch order {
	case First:
		f.step = firstOrderStep
		f.coef.B2, f.coef.A2 = 0, 0
	case Second:
		f.step = secondOrderStep
	default:
		return nil, &ConfigError{Op: "new", Value: order.String(), Err: ErrInvalidOrder}
	}
	return f, nil
}

// SetFrequency redesigns the coefficients for a new cutoff, sample rate and
// type. q is ignored for first order filters. The delay line is kept. On
// error the filter is left unchanged.
func (f *Filter) SetFrequency(cutoff, sampleRate float64, typ Type, q float64) error {
	c, err := Design(f.order, cutoff, sampleRate, typ, q)
	if err != nil {
		return err
	}
	f.coef = c
	f.typ = typ
	f.cutoff = cutoff
	f.sampleRate = sampleRate
	if f.order == Second {
		f.q = q
	}
	return nil
}

// Filter runs in through the filter and writes the rounded Q15 output to out.
// out and in may be the same slice. It processes min(len(out), len(in))
// samples and returns that count.
func (f *Filter) Filter(out, in []int16) int {
	n := min(len(out), len(in))
	for i := 0; i < n; i++ {
		out[i] = f.status.Round(f.step(f, in[i]))
	}
	return n
}

// FilterWide is Filter with the full Q31 accumulator as output.
func (f *Filter) FilterWide(out []int32, in []int16) int {
	n := min(len(out), len(in))
	for i := 0; i < n; i++ {
		out[i] = f.step(f, in[i])
	}
	return n
}

// ProcessSample filters a single sample.
func (f *Filter) ProcessSample(in int16) int16 {
	return f.status.Round(f.step(f, in))
}

// firstOrderStep: y = b0 x[n] + b1 x[n-1] + a1 y[n-1], all Q15.
func firstOrderStep(f *Filter, in int16) int32 {
	s := &f.status
	acc := s.LongMult(s.Round(f.fb0), f.coef.A1)
	acc = s.Mac(acc, f.ff0, f.coef.B1)
	f.ff0 = in
	acc = s.Mac(acc, in, f.coef.B0)
	f.fb0 = acc
	return acc
}

// secondOrderStep evaluates the Q14 biquad. Each Q30 product is shifted
// back to Q31 before accumulation.
func secondOrderStep(f *Filter, in int16) int32 {
	s := &f.status
	c := &f.coef
	acc := s.ShiftLeft32(s.LongMult(s.Round(f.fb1), c.A2), 1)
	acc = s.Add32(acc, s.ShiftLeft32(s.LongMult(s.Round(f.fb0), c.A1), 1))
	acc = s.Add32(acc, s.ShiftLeft32(s.LongMult(f.ff1, c.B2), 1))
	acc = s.Add32(acc, s.ShiftLeft32(s.LongMult(f.ff0, c.B1), 1))
	f.ff1 = f.ff0
	acc = s.Add32(acc, s.ShiftLeft32(s.LongMult(in, c.B0), 1))
	f.ff0 = in
	f.fb1 = f.fb0
	f.fb0 = acc
	return acc
}

// Reset clears the delay line and the status flags.
func (f *Filter) Reset() {
	f.ff0, f.ff1 = 0, 0
	f.fb0, f.fb1 = 0, 0
	f.status.Reset()
}

// Coefficients returns the current raw coefficients.
func (f *Filter) Coefficients() Coefficients {
	return f.coef
}

// Order returns the filter order.
func (f *Filter) Order() Order {
	return f.order
}

// Type returns the designed filter type. It is LPF for filters built from
// raw coefficients.
func (f *Filter) Type() Type {
	return f.typ
}

// Cutoff returns the design cutoff in Hz.
func (f *Filter) Cutoff() float64 {
	return f.cutoff
}

// SampleRate returns the design sample rate in Hz.
func (f *Filter) SampleRate() float64 {
	return f.sampleRate
}

// Q returns the design quality factor of a second order filter.
func (f *Filter) Q() float64 {
	return f.q
}

// Status returns the filter's arithmetic flags.
func (f *Filter) Status() *fixed.Status {
	return &f.status
}

// Response returns the magnitude response |H(e^jw)| of the quantized
// coefficients at freq for sample rate sampleRate. It is a design-time
// diagnostic and is not used on the sample path.
func (f *Filter) Response(freq, sampleRate float64) float64 {
	v := f.coef.Float(f.order)
	b0, b1, b2, a1, a2 := v[0], v[1], v[2], v[3], v[4]

	z1 := cmplx.Exp(complex(0, -2*math.Pi*freq/sampleRate))
	z2 := z1 * z1
	num := complex(b0, 0) + complex(b1, 0)*z1 + complex(b2, 0)*z2
	den := 1 - complex(a1, 0)*z1 - complex(a2, 0)*z2
	if den == 0 {
		return math.Inf(1)
	}
	return cmplx.Abs(num / den)
}
