// internal/bilinear/bilinear.go

// Package bilinear converts analog transfer functions H(s) into digital
// transfer functions H(z) with the bilinear transform. It runs at
// configuration time only and works in float64.
package bilinear

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrEmptyPolynomial indicates that no coefficients were given
	ErrEmptyPolynomial = errors.New("bilinear: polynomial must have at least one coefficient")
	// ErrLengthMismatch indicates numerator and denominator differ in length
	ErrLengthMismatch = errors.New("bilinear: numerator and denominator must have the same length")
	// ErrInvalidPeriod indicates the sampling period must be positive
	ErrInvalidPeriod = errors.New("bilinear: sampling period must be positive")
	// ErrZeroDenominator indicates the digital denominator has no constant term
	ErrZeroDenominator = errors.New("bilinear: leading denominator coefficient is zero")
)

// Transform maps the analog transfer function
//
//	H(s) = (numA[0] + numA[1] s + ... ) / (denA[0] + denA[1] s + ... )
//
// onto H(z) by substituting s = (2/T)(1-z^-1)/(1+z^-1). The returned
// polynomials are in ascending powers of z^-1 and normalized so that
// denD[0] is 1.
//
// Trailing positions that are zero in both inputs do not raise the order;
// they come back as zero in both outputs. The inputs are not modified.
func Transform(numA, denA []float64, T float64) (numD, denD []float64, err error) {
	if len(numA) == 0 || len(denA) == 0 {
		return nil, nil, ErrEmptyPolynomial
	}
	if len(numA) != len(denA) {
		return nil, nil, ErrLengthMismatch
	}
	if !(T > 0) || math.IsInf(T, 0) {
		return nil, nil, ErrInvalidPeriod
	}

	n := len(numA)
	numD = make([]float64, n)
	denD = make([]float64, n)

	order := n
	for order > 1 && numA[order-1] == 0 && denA[order-1] == 0 {
		order--
	}

	expand(numD[:order], numA[:order], T)
	expand(denD[:order], denA[:order], T)

	if denD[0] == 0 {
		return nil, nil, ErrZeroDenominator
	}
	d := denD[0]
	for i := range numD[:order] {
		numD[i] /= d
	}
	for i := 1; i < order; i++ {
		denD[i] /= d
	}
	denD[0] = 1

	return numD, denD, nil
}

// expand writes into dst the z^-1 polynomial of sum_k a[k] s^k after
// clearing the common (1+z^-1)^(n-1) denominator, where n = len(a):
// each term becomes a[k] (2-2z^-1)^k (T+Tz^-1)^(n-1-k).
func expand(dst, a []float64, T float64) {
	n := len(a)
	for i := range dst {
		dst[i] = 0
	}
	term := make([]float64, n)
	for k := 0; k < n; k++ {
		for i := range term {
			term[i] = 0
		}
		term[0] = a[k]
		for i := 0; i < k; i++ {
			mulBinomial(term, 2, -2)
		}
		for i := k + 1; i < n; i++ {
			mulBinomial(term, T, T)
		}
		floats.Add(dst, term)
	}
}

// mulBinomial multiplies p in place by (c0 + c1 z^-1). The highest
// coefficient of p must be zero on entry.
func mulBinomial(p []float64, c0, c1 float64) {
	for m := len(p) - 1; m >= 1; m-- {
		p[m] = c0*p[m] + c1*p[m-1]
	}
	p[0] *= c0
}

// Prewarp returns the analog angular frequency that lands exactly on wa
// after the bilinear transform with sampling period T: (2/T) tan(wa T/2).
func Prewarp(wa, T float64) float64 {
	return 2 * math.Tan(wa*T/2) / T
}
