// internal/filter/types.go

// Package filter implements first and second order fixed-point IIR filters
// in direct form I, with coefficients designed from analog prototypes through
// the bilinear transform.
package filter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownType indicates the filter type is not one of LPF, BPF, HPF, APF, BEF
	ErrUnknownType = errors.New("unknown filter type")
	// ErrUnsupportedType indicates the filter type has no prototype for the requested order
	ErrUnsupportedType = errors.New("filter type not supported for this order")
	// ErrInvalidOrder indicates the order must be First or Second
	ErrInvalidOrder = errors.New("filter order must be 1 or 2")
	// ErrInvalidCutoff indicates the cutoff must be positive and below Nyquist
	ErrInvalidCutoff = errors.New("cutoff frequency must be positive and less than Nyquist frequency")
	// ErrInvalidSampleRate indicates the sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidQ indicates the quality factor must be positive
	ErrInvalidQ = errors.New("filter Q must be positive")
)

// ConfigError describes a rejected filter configuration. It wraps one of the
// package sentinel errors.
type ConfigError struct {
	Op    string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("filter: %s %s: %v", e.Op, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Type selects the analog prototype a filter is designed from.
type Type int

const (
	LPF Type = iota // low pass
	BPF             // band pass
	HPF             // high pass
	APF             // all pass
	BEF             // band elimination (notch)
)

var typeNames = [...]string{"lpf", "bpf", "hpf", "apf", "bef"}

func (t Type) valid() bool {
	return t >= LPF && t <= BEF
}

func (t Type) String() string {
	if !t.valid() {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType parses a filter type name such as "bpf". Matching is case
// insensitive.
func ParseType(s string) (Type, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}
	return 0, &ConfigError{Op: "parse", Value: fmt.Sprintf("%q", s), Err: ErrUnknownType}
}

// Order is the filter order.
type Order int

const (
	First  Order = 1
	Second Order = 2
)

func (o Order) String() string {
	switch o {
	case First:
		return "first"
	case Second:
		return "second"
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

func (o Order) valid() bool {
	return o == First || o == Second
}

// Supports reports whether a prototype of type t exists for order o.
// First order filters provide LPF, HPF and APF; second order filters provide
// all five types.
func (o Order) Supports(t Type) bool {
	switch o {
	case First:
		return t == LPF || t == HPF || t == APF
	case Second:
		return t.valid()
	}
	return false
}

// Coefficients holds the raw fixed-point filter coefficients for
//
//	H(z) = (B0 + B1 z^-1 + B2 z^-2) / (1 - A1 z^-1 - A2 z^-2)
//
// They are Q15 for first order filters, where B2 and A2 are unused, and Q14
// for second order filters.
type Coefficients struct {
	B0, B1, B2 int16
	A1, A2     int16
}
