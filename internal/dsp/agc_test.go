// internal/dsp/agc_test.go
package dsp

import (
	"math"
	"testing"

	"github.com/ColonelBlimp/cwdsp/internal/fixed"
)

func newTestAGC(t *testing.T, cfg AGCConfig) *AGC {
	t.Helper()
	a, err := NewAGC(cfg)
	if err != nil {
		t.Fatalf("NewAGC failed: %v", err)
	}
	return a
}

func TestNewAGC_DefaultCoefficients(t *testing.T) {
	a := newTestAGC(t, DefaultAGCConfig())

	testCases := []struct {
		name string
		got  int16
		want int16
	}{
		{"attack", a.Attack(), 31959},
		{"release", a.Release(), 82},
		{"target", a.Target(), 23166},
		{"max gain", a.MaxGainRaw(), 10240},
		{"min gain", a.MinGainRaw(), 717},
	}
	for _, tc := range testCases {
		if tc.got != tc.want {
			t.Errorf("%s = %d, want %d", tc.name, tc.got, tc.want)
		}
	}
	if a.GainRaw() != 0 {
		t.Errorf("initial gain = %d, want 0", a.GainRaw())
	}
}

func TestNewAGC_ChainCoefficients(t *testing.T) {
	a := newTestAGC(t, DefaultChainConfig().AGC)

	if a.Attack() != 31431 || a.Release() != 3 || a.Target() != 22937 || a.MaxGainRaw() != 20480 {
		t.Errorf("got attack %d release %d target %d max %d", a.Attack(), a.Release(), a.Target(), a.MaxGainRaw())
	}
}

func TestNewAGC_InvalidConfig(t *testing.T) {
	testCases := []struct {
		name    string
		modify  func(*AGCConfig)
		wantErr error
	}{
		{"zero target", func(c *AGCConfig) { c.TargetLevel = 0 }, ErrInvalidTargetLevel},
		{"target above one", func(c *AGCConfig) { c.TargetLevel = 1.01 }, ErrInvalidTargetLevel},
		{"zero max gain", func(c *AGCConfig) { c.MaxGain = 0; c.MinGain = 0 }, ErrInvalidGain},
		{"max gain 32", func(c *AGCConfig) { c.MaxGain = 32 }, ErrInvalidGain},
		{"negative min gain", func(c *AGCConfig) { c.MinGain = -1 }, ErrInvalidGain},
		{"min above max", func(c *AGCConfig) { c.MinGain = 11 }, ErrInvalidGainRange},
		{"negative attack", func(c *AGCConfig) { c.AttackMs = -1 }, ErrInvalidTime},
		{"NaN release", func(c *AGCConfig) { c.ReleaseMs = math.NaN() }, ErrInvalidTime},
		{"zero sample rate", func(c *AGCConfig) { c.SampleRate = 0 }, ErrInvalidSampleRate},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultAGCConfig()
			tc.modify(&cfg)
			if _, err := NewAGC(cfg); err != tc.wantErr {
				t.Errorf("expected %v, got: %v", tc.wantErr, err)
			}
		})
	}
}

func TestNewAGC_ValidBoundaryValues(t *testing.T) {
	cfg := DefaultAGCConfig()
	cfg.TargetLevel = 1
	cfg.MaxGain = 31.9
	cfg.AttackMs = 0
	cfg.ReleaseMs = 0

	a := newTestAGC(t, cfg)
	if a.Target() != fixed.MaxInt16 {
		t.Errorf("target 1.0 = %d, want %d", a.Target(), fixed.MaxInt16)
	}
	if a.Attack() != 0 {
		t.Errorf("zero attack time coefficient = %d, want 0", a.Attack())
	}
	if a.Release() != fixed.MaxInt16 {
		t.Errorf("zero release time coefficient = %d, want saturated %d", a.Release(), fixed.MaxInt16)
	}
}

func TestTimeConstantCoef(t *testing.T) {
	if got, want := TimeConstantCoef(5, 8000), math.Exp(-1.0/40); math.Abs(got-want) > 1e-15 {
		t.Errorf("TimeConstantCoef(5, 8000) = %v, want %v", got, want)
	}
	// Times below one microsecond are clamped
	if TimeConstantCoef(0, 8000) != TimeConstantCoef(1e-3, 8000) {
		t.Error("zero time should be treated as one microsecond")
	}
}

func TestAGC_FirstSampleClampsToMinGain(t *testing.T) {
	a := newTestAGC(t, DefaultAGCConfig())

	if out := a.ProcessSample(1000); out != 0 {
		t.Errorf("first output = %d, want 0 (gain starts at zero)", out)
	}
	if a.GainRaw() != fixed.DepositHigh(a.MinGainRaw()) {
		t.Errorf("gain after first sample = %d, want min gain %d", a.GainRaw(), fixed.DepositHigh(a.MinGainRaw()))
	}
}

func TestAGC_QuietInputRisesToMaxGain(t *testing.T) {
	a := newTestAGC(t, DefaultAGCConfig())
	maxGain := fixed.DepositHigh(a.MaxGainRaw())

	prev := int32(0)
	reached := -1
	for i := 0; i < 20000; i++ {
		a.ProcessSample(100)
		if a.GainRaw() > maxGain {
			t.Fatalf("sample %d: gain %d exceeds max %d", i, a.GainRaw(), maxGain)
		}
		if a.GainRaw() < prev {
			t.Fatalf("sample %d: gain fell from %d to %d on quiet input", i, prev, a.GainRaw())
		}
		prev = a.GainRaw()
		if reached < 0 && prev == maxGain {
			reached = i
		}
	}
	if reached < 0 {
		t.Fatal("gain never reached max")
	}
	if math.Abs(a.Gain()-10) > 1e-9 {
		t.Errorf("Gain() = %v, want 10", a.Gain())
	}
	if out := a.ProcessSample(100); out != 1000 {
		t.Errorf("output at max gain = %d, want 1000", out)
	}
}

func TestAGC_LoudInputDecaysGeometricallyToMinGain(t *testing.T) {
	cfg := DefaultAGCConfig()
	cfg.TargetLevel = 0.1
	a := newTestAGC(t, cfg)

	for i := 0; i < 20000; i++ {
		a.ProcessSample(100)
	}

	ratio := float64(a.Attack()) / 32768
	gains := make([]int32, 300)
	for i := range gains {
		a.ProcessSample(20000)
		gains[i] = a.GainRaw()
	}

	// Each loud sample multiplies the gain by the attack coefficient
	for i := 0; i < 5; i++ {
		got := float64(gains[i+1]) / float64(gains[i])
		if math.Abs(got-ratio) > 1e-3 {
			t.Errorf("step %d: gain ratio %v, want %v", i, got, ratio)
		}
	}

	minGain := fixed.DepositHigh(a.MinGainRaw())
	if gains[len(gains)-1] != minGain {
		t.Errorf("final gain = %d, want min gain %d", gains[len(gains)-1], minGain)
	}
	for i, g := range gains {
		if g < minGain {
			t.Fatalf("sample %d: gain %d below min %d", i, g, minGain)
		}
	}
}

func TestAGC_OutputTracksTarget(t *testing.T) {
	a := newTestAGC(t, DefaultAGCConfig())

	in := generateSineWave(600, 8000, 8000, 0.2)
	out := make([]int16, len(in))
	a.Process(out, in)

	// After settling the peak sits near the target
	var peak int16
	for _, v := range out[4000:] {
		peak = max(peak, fixed.Abs(v))
	}
	target := int32(a.Target())
	if p := int32(peak); p < target*9/10 || p > target*11/10 {
		t.Errorf("settled peak = %d, want near target %d", peak, target)
	}
}

func TestAGC_ZerosStayZero(t *testing.T) {
	a := newTestAGC(t, DefaultAGCConfig())
	out := make([]int16, 256)
	a.Process(out, generateSilence(256))
	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d = %d, want 0", i, v)
		}
	}
}

func TestAGC_SettersValidate(t *testing.T) {
	a := newTestAGC(t, DefaultAGCConfig())
	before := a.Target()

	if err := a.SetTargetLevel(-0.5); err != ErrInvalidTargetLevel {
		t.Errorf("SetTargetLevel(-0.5) = %v", err)
	}
	if a.Target() != before {
		t.Error("rejected target changed state")
	}
	if err := a.SetMaxGain(40); err != ErrInvalidGain {
		t.Errorf("SetMaxGain(40) = %v", err)
	}
	if err := a.SetMinGain(0); err != ErrInvalidGain {
		t.Errorf("SetMinGain(0) = %v", err)
	}
	if err := a.SetAttackTime(5, -1); err != ErrInvalidSampleRate {
		t.Errorf("SetAttackTime(5, -1) = %v", err)
	}
	if err := a.SetReleaseTime(-5, 8000); err != ErrInvalidTime {
		t.Errorf("SetReleaseTime(-5, 8000) = %v", err)
	}

	if err := a.SetTargetLevel(0.5); err != nil {
		t.Fatalf("SetTargetLevel(0.5) = %v", err)
	}
	if a.Target() != 16384 || a.Config().TargetLevel != 0.5 {
		t.Errorf("target = %d (%v), want 16384", a.Target(), a.Config().TargetLevel)
	}
}

func TestAGC_SettersKeepGainRangeOrdered(t *testing.T) {
	cfg := DefaultAGCConfig()
	cfg.MaxGain = 10
	a := newTestAGC(t, cfg)
	maxBefore, minBefore := a.MaxGainRaw(), a.MinGainRaw()

	if err := a.SetMinGain(15); err != ErrInvalidGainRange {
		t.Errorf("SetMinGain(15) with max 10 = %v, want %v", err, ErrInvalidGainRange)
	}
	if err := a.SetMaxGain(0.5); err != ErrInvalidGainRange {
		t.Errorf("SetMaxGain(0.5) with min 0.7 = %v, want %v", err, ErrInvalidGainRange)
	}
	if a.MaxGainRaw() != maxBefore || a.MinGainRaw() != minBefore {
		t.Error("rejected gain limits changed state")
	}

	// Equal limits are allowed
	if err := a.SetMinGain(10); err != nil {
		t.Errorf("SetMinGain(10) = %v", err)
	}
	if err := a.SetMaxGain(10); err != nil {
		t.Errorf("SetMaxGain(10) = %v", err)
	}
	if a.MinGainRaw() != a.MaxGainRaw() {
		t.Errorf("min %d != max %d", a.MinGainRaw(), a.MaxGainRaw())
	}
}

func TestAGC_Reset(t *testing.T) {
	a := newTestAGC(t, DefaultAGCConfig())
	a.Process(make([]int16, 100), generateSineWave(600, 8000, 100, 0.9))
	a.Status().Overflow = true

	a.Reset()
	if a.GainRaw() != 0 || a.Status().Overflow {
		t.Errorf("after Reset: gain %d overflow %v", a.GainRaw(), a.Status().Overflow)
	}
}
