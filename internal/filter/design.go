// internal/filter/design.go
package filter

import (
	"fmt"
	"math"

	"github.com/ColonelBlimp/cwdsp/internal/bilinear"
	"github.com/ColonelBlimp/cwdsp/internal/fixed"
)

func validate(op string, order Order, cutoff, sampleRate float64, typ Type, q float64) error {
	if !order.valid() {
		return &ConfigError{Op: op, Value: fmt.Sprintf("order=%d", int(order)), Err: ErrInvalidOrder}
	}
	if !typ.valid() {
		return &ConfigError{Op: op, Value: typ.String(), Err: ErrUnknownType}
	}
	if !order.Supports(typ) {
		return &ConfigError{Op: op, Value: fmt.Sprintf("%s order=%d", typ, int(order)), Err: ErrUnsupportedType}
	}
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return &ConfigError{Op: op, Value: fmt.Sprintf("sample_rate=%g", sampleRate), Err: ErrInvalidSampleRate}
	}
	if !(cutoff > 0) || cutoff >= sampleRate/2 {
		return &ConfigError{Op: op, Value: fmt.Sprintf("cutoff=%g", cutoff), Err: ErrInvalidCutoff}
	}
	if order == Second && (!(q > 0) || math.IsInf(q, 0)) {
		return &ConfigError{Op: op, Value: fmt.Sprintf("q=%g", q), Err: ErrInvalidQ}
	}
	return nil
}

// prototype returns the analog numerator and denominator in ascending powers
// of s for the given order, type, prewarped angular cutoff wp and Q.
func prototype(order Order, typ Type, wp, q float64) (num, den []float64) {
	if order == First {
		den = []float64{wp, 1}
		switch typ {
		case LPF: // wp/(s+wp)
			num = []float64{wp, 0}
		case HPF: // s/(s+wp)
			num = []float64{0, 1}
		case APF: // (s-wp)/(s+wp)
			num = []float64{-wp, 1}
		}
		return num, den
	}

	bw := wp / q
	den = []float64{wp * wp, bw, 1}
	switch typ {
	case LPF: // wp^2/(s^2 + (wp/Q)s + wp^2)
		num = []float64{wp * wp, 0, 0}
	case BPF: // (wp/Q)s/(...)
		num = []float64{0, bw, 0}
	case HPF: // s^2/(...)
		num = []float64{0, 0, 1}
	case APF: // (s^2 - (wp/Q)s + wp^2)/(...)
		num = []float64{wp * wp, -bw, 1}
	case BEF: // (s^2 + wp^2)/(...)
		num = []float64{wp * wp, 0, 1}
	}
	return num, den
}

// Design computes quantized coefficients for a filter of the given order
// and type. q is ignored for first order filters.
func Design(order Order, cutoff, sampleRate float64, typ Type, q float64) (Coefficients, error) {
	if err := validate("design", order, cutoff, sampleRate, typ, q); err != nil {
		return Coefficients{}, err
	}

	T := 1 / sampleRate
	wp := bilinear.Prewarp(2*math.Pi*cutoff, T)
	numA, denA := prototype(order, typ, wp, q)

	numD, denD, err := bilinear.Transform(numA, denA, T)
	if err != nil {
		return Coefficients{}, fmt.Errorf("filter: design %s: %w", typ, err)
	}

	if order == First {
		return Coefficients{
			B0: fixed.Q15(numD[0]),
			B1: fixed.Q15(numD[1]),
			A1: fixed.Q15(-denD[1]),
		}, nil
	}
	return Coefficients{
		B0: fixed.Q14(numD[0]),
		B1: fixed.Q14(numD[1]),
		B2: fixed.Q14(numD[2]),
		A1: fixed.Q14(-denD[1]),
		A2: fixed.Q14(-denD[2]),
	}, nil
}

// PassThrough returns the default coefficients of a freshly built direct form
// filter: B0 = 0x7FFF and everything else zero. In Q15 this is unity gain;
// in Q14 it is a gain of two.
func PassThrough() Coefficients {
	return Coefficients{B0: fixed.MaxInt16}
}

// qBits returns the fractional bit count of the coefficients for order o.
func (o Order) qBits() uint {
	if o == First {
		return 15
	}
	return 14
}

// Float returns the real value of each coefficient for order o, in the order
// b0, b1, b2, a1, a2.
func (c Coefficients) Float(o Order) [5]float64 {
	q := o.qBits()
	return [5]float64{
		fixed.ToFloat(int64(c.B0), q),
		fixed.ToFloat(int64(c.B1), q),
		fixed.ToFloat(int64(c.B2), q),
		fixed.ToFloat(int64(c.A1), q),
		fixed.ToFloat(int64(c.A2), q),
	}
}
