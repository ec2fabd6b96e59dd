// internal/dsp/smoother_test.go
package dsp

import (
	"testing"

	"github.com/ColonelBlimp/cwdsp/internal/fixed"
)

func TestNewSmoother_Invalid(t *testing.T) {
	testCases := []struct {
		name     string
		up, down int16
	}{
		{"zero up", 0, 1024},
		{"zero down", 4096, 0},
		{"negative", -1, -1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewSmoother(tc.up, tc.down); err != ErrInvalidSmoothing {
				t.Errorf("expected ErrInvalidSmoothing, got: %v", err)
			}
		})
	}
}

func TestSmoother_StepSettlesWithDistinctRates(t *testing.T) {
	m, err := NewSmoother(4096, 1024)
	if err != nil {
		t.Fatalf("NewSmoother failed: %v", err)
	}

	// The first step moves up/32768 of the difference
	if got := m.SmoothSample(16384); got != 2048 {
		t.Errorf("first rising output = %d, want 2048", got)
	}

	rise := 1
	for ; rise < 1000; rise++ {
		if m.SmoothSample(16384) >= 16384-16 {
			break
		}
	}

	fall := 0
	for ; fall < 1000; fall++ {
		if m.SmoothSample(0) <= 16 {
			break
		}
	}

	if rise >= 1000 || fall >= 1000 {
		t.Fatalf("did not settle: rise %d, fall %d", rise, fall)
	}
	if fall <= 3*rise {
		t.Errorf("fall took %d samples, rise %d; a 4:1 coefficient ratio should fall much slower", fall, rise)
	}
}

func TestSmoother_Monotonic(t *testing.T) {
	m, _ := NewSmoother(4096, 1024)

	prev := int16(0)
	for i := 0; i < 100; i++ {
		v := m.SmoothSample(20000)
		if v < prev || v > 20000 {
			t.Fatalf("sample %d: output %d after %d", i, v, prev)
		}
		prev = v
	}
	for i := 0; i < 300; i++ {
		v := m.SmoothSample(-5000)
		if v > prev || v < -5000 {
			t.Fatalf("falling sample %d: output %d after %d", i, v, prev)
		}
		prev = v
	}
}

func TestSmoother_SaturatesDifference(t *testing.T) {
	m, _ := NewSmoother(fixed.MaxInt16, fixed.MaxInt16)

	for i := 0; i < 3; i++ {
		m.SmoothSample(fixed.MaxInt16)
	}
	hi := m.Value()

	// MinInt16 - ~MaxInt16 does not fit in 16 bits; the difference clamps
	// negative instead of wrapping to a small positive step
	if got := m.SmoothSample(fixed.MinInt16); got >= hi {
		t.Errorf("output rose from %d to %d on full-scale negative input", hi, got)
	}
	if !m.Status().Overflow {
		t.Error("expected overflow from the clamped difference")
	}
}

func TestSmoother_SmoothMatchesSmoothSample(t *testing.T) {
	a, _ := NewSmoother(4096, 1024)
	b, _ := NewSmoother(4096, 1024)

	in := generateNoise(200, 0.8)
	out := make([]int16, len(in))
	a.Smooth(out, in)
	for i, x := range in {
		if got := b.SmoothSample(x); got != out[i] {
			t.Fatalf("sample %d: SmoothSample %d, Smooth %d", i, got, out[i])
		}
	}
	if a.Value() != out[len(out)-1] {
		t.Errorf("Value() = %d, want last output %d", a.Value(), out[len(out)-1])
	}
}

func TestSmoother_Reset(t *testing.T) {
	m, _ := NewSmoother(4096, 1024)
	m.SmoothSample(10000)
	m.Status().Overflow = true

	m.Reset()
	if m.Value() != 0 || m.Status().Overflow {
		t.Errorf("after Reset: value %d overflow %v", m.Value(), m.Status().Overflow)
	}
	if m.Up() != 4096 || m.Down() != 1024 {
		t.Errorf("Reset changed coefficients: %d/%d", m.Up(), m.Down())
	}
}
