// internal/dsp/agc.go
package dsp

import (
	"errors"
	"math"

	"github.com/ColonelBlimp/cwdsp/internal/fixed"
)

var (
	// ErrInvalidTargetLevel indicates the AGC target must be in (0, 1]
	ErrInvalidTargetLevel = errors.New("agc target level must be between 0.0 (exclusive) and 1.0")
	// ErrInvalidGain indicates an AGC gain limit is out of range
	ErrInvalidGain = errors.New("agc gain must be positive and below 32")
	// ErrInvalidGainRange indicates the minimum gain exceeds the maximum gain
	ErrInvalidGainRange = errors.New("agc min gain must not exceed max gain")
	// ErrInvalidTime indicates an attack or release time is negative
	ErrInvalidTime = errors.New("agc time constant must be non-negative")
)

// agcGainQ is the number of fractional bits of the gain limits. The running
// gain keeps the same format in its high half.
const agcGainQ = 10

// AGCConfig holds the automatic gain control parameters.
type AGCConfig struct {
	// TargetLevel is the output amplitude the AGC steers towards (0..1) (from config: agc_target)
	TargetLevel float64
	// MaxGain is the largest linear gain (from config: agc_max_gain)
	MaxGain float64
	// MinGain is the smallest linear gain (from config: agc_min_gain)
	MinGain float64
	// AttackMs is the time constant for reducing gain (from config: agc_attack_ms)
	AttackMs float64
	// ReleaseMs is the time constant for raising gain (from config: agc_release_ms)
	ReleaseMs float64
	// SampleRate is the audio sample rate in Hz (from config: sample_rate)
	SampleRate float64
}

// DefaultAGCConfig returns the stand-alone AGC defaults.
func DefaultAGCConfig() AGCConfig {
	return AGCConfig{
		TargetLevel: 0.707,
		MaxGain:     10,
		MinGain:     0.7,
		AttackMs:    5,
		ReleaseMs:   200,
		SampleRate:  8000,
	}
}

// AGC is a sample-by-sample fixed-point automatic gain control. The gain
// falls geometrically while the output exceeds the target and recovers
// slowly otherwise, and is clamped to [MinGain, MaxGain] after every sample.
type AGC struct {
	config AGCConfig

	gain    int32 // Q10 in the high half
	attack  int16 // Q15 per-sample decay factor
	release int16 // Q15 recovery rate
	target  int16 // Q15
	maxGain int16 // Q10
	minGain int16 // Q10

	status fixed.Status
}

// NewAGC creates an AGC. The gain starts at zero and is pulled up to
// MinGain by the first sample.
func NewAGC(cfg AGCConfig) (*AGC, error) {
	if cfg.MinGain > cfg.MaxGain {
		return nil, ErrInvalidGainRange
	}
	a := &AGC{}
	if err := a.SetTargetLevel(cfg.TargetLevel); err != nil {
		return nil, err
	}
	if err := a.SetMaxGain(cfg.MaxGain); err != nil {
		return nil, err
	}
	if err := a.SetMinGain(cfg.MinGain); err != nil {
		return nil, err
	}
	if err := a.SetAttackTime(cfg.AttackMs, cfg.SampleRate); err != nil {
		return nil, err
	}
	if err := a.SetReleaseTime(cfg.ReleaseMs, cfg.SampleRate); err != nil {
		return nil, err
	}
	return a, nil
}

// TimeConstantCoef returns the one-pole coefficient exp(-1/(t*fs)) for a time
// constant of ms milliseconds. Times below one microsecond are treated as one
// microsecond.
func TimeConstantCoef(ms, sampleRate float64) float64 {
	sec := math.Max(ms/1000, 1e-6)
	return math.Exp(-1 / (sec * sampleRate))
}

// toInt16 truncates v+0.5 to int16, saturating at the range limits.
func toInt16(v float64) int16 {
	r := v + 0.5
	switch {
	case r >= fixed.MaxInt16:
		return fixed.MaxInt16
	case r <= fixed.MinInt16:
		return fixed.MinInt16
	}
	return int16(r)
}

// SetTargetLevel sets the target output amplitude, 0 < amp <= 1.
func (a *AGC) SetTargetLevel(amp float64) error {
	if !(amp > 0 && amp <= 1) {
		return ErrInvalidTargetLevel
	}
	a.target = toInt16(fixed.MaxInt16 * amp)
	a.config.TargetLevel = amp
	return nil
}

func validGain(amp float64) bool {
	return amp > 0 && amp*(1<<agcGainQ) < fixed.MaxInt16
}

// SetMaxGain sets the upper gain limit as a linear ratio. It must not
// fall below the current minimum gain.
func (a *AGC) SetMaxGain(amp float64) error {
	if !validGain(amp) {
		return ErrInvalidGain
	}
	if amp < a.config.MinGain {
		return ErrInvalidGainRange
	}
	a.maxGain = toInt16(amp * (1 << agcGainQ))
	a.config.MaxGain = amp
	return nil
}

// SetMinGain sets the lower gain limit as a linear ratio. It must not
// exceed the current maximum gain.
func (a *AGC) SetMinGain(amp float64) error {
	if !validGain(amp) {
		return ErrInvalidGain
	}
	if amp > a.config.MaxGain {
		return ErrInvalidGainRange
	}
	a.minGain = toInt16(amp * (1 << agcGainQ))
	a.config.MinGain = amp
	return nil
}

// SetAttackTime sets the gain reduction time constant.
func (a *AGC) SetAttackTime(ms, sampleRate float64) error {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return ErrInvalidSampleRate
	}
	if !(ms >= 0) {
		return ErrInvalidTime
	}
	a.attack = toInt16(32768 * TimeConstantCoef(ms, sampleRate))
	a.config.AttackMs = ms
	a.config.SampleRate = sampleRate
	return nil
}

// SetReleaseTime sets the gain recovery time constant.
func (a *AGC) SetReleaseTime(ms, sampleRate float64) error {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return ErrInvalidSampleRate
	}
	if !(ms >= 0) {
		return ErrInvalidTime
	}
	a.release = toInt16(4 * 32768 * (1 - TimeConstantCoef(ms, sampleRate)))
	a.config.ReleaseMs = ms
	a.config.SampleRate = sampleRate
	return nil
}

// Process applies the AGC to in and writes the result to out. out and in may
// be the same slice. It processes min(len(out), len(in)) samples.
func (a *AGC) Process(out, in []int16) int {
	n := min(len(out), len(in))
	for i := 0; i < n; i++ {
		out[i] = a.ProcessSample(in[i])
	}
	return n
}

// ProcessSample applies the current gain to x and then updates the gain.
func (a *AGC) ProcessSample(x int16) int16 {
	s := &a.status

	// Q15 * Q10 -> Q26, shifted back up to Q31
	out := s.Round(s.ShiftLeft32(s.LongMult(x, fixed.High(a.gain)), 15-agcGainQ))

	if a.target < fixed.Abs(out) {
		a.gain = s.LongMult(s.Round(a.gain), a.attack)
	} else {
		acc := s.Sub(fixed.MaxInt16, s.Round(a.gain))
		acc = s.ShiftRight(acc, 2)
		a.gain = s.Mac(a.gain, acc, a.release)
	}

	a.gain = min(max(a.gain, fixed.DepositHigh(a.minGain)), fixed.DepositHigh(a.maxGain))
	return out
}

// Reset sets the gain back to zero and clears the status flags.
func (a *AGC) Reset() {
	a.gain = 0
	a.status.Reset()
}

// Gain returns the current linear gain.
func (a *AGC) Gain() float64 {
	return fixed.ToFloat(int64(a.gain), 16+agcGainQ)
}

// GainRaw returns the raw gain accumulator (Q10 in the high half).
func (a *AGC) GainRaw() int32 {
	return a.gain
}

// Attack returns the Q15 attack coefficient.
func (a *AGC) Attack() int16 {
	return a.attack
}

// Release returns the Q15 release coefficient.
func (a *AGC) Release() int16 {
	return a.release
}

// Target returns the Q15 target level.
func (a *AGC) Target() int16 {
	return a.target
}

// MaxGainRaw returns the Q10 upper gain limit.
func (a *AGC) MaxGainRaw() int16 {
	return a.maxGain
}

// MinGainRaw returns the Q10 lower gain limit.
func (a *AGC) MinGainRaw() int16 {
	return a.minGain
}

// Config returns the parameters the AGC was last configured with.
func (a *AGC) Config() AGCConfig {
	return a.config
}

// Status returns the AGC's arithmetic flags.
func (a *AGC) Status() *fixed.Status {
	return &a.status
}
