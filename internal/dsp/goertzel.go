// internal/dsp/goertzel.go
package dsp

import (
	"errors"
	"math"

	"github.com/ColonelBlimp/cwdsp/internal/fixed"
)

var (
	// ErrInvalidBlockSize indicates block size must be positive
	ErrInvalidBlockSize = errors.New("block size must be positive")
	// ErrInvalidSampleRate indicates sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidFrequency indicates frequency must be positive and below Nyquist
	ErrInvalidFrequency = errors.New("target frequency must be positive and less than Nyquist frequency")
	// ErrBlockLength indicates the sample count differs from the configured block size
	ErrBlockLength = errors.New("sample count must equal block size")
)

// GoertzelConfig holds configuration for the Goertzel algorithm.
// All values should come from the application config file.
type GoertzelConfig struct {
	// TargetFrequency is the frequency to detect in Hz (from config: tone_frequency)
	TargetFrequency float64
	// SampleRate is the audio sample rate in Hz (from config: sample_rate)
	SampleRate float64
	// BlockSize is the number of samples per detection window (from config: block_size)
	BlockSize int
}

// Goertzel is a fixed-point single-bin DFT detector. It measures the energy
// of one frequency bin over a block of exactly BlockSize Q15 samples.
//
// The target frequency is snapped to the nearest bin k = round(N*f/fs).
// Each sample is pre-scaled by 1/N so the Q31 accumulators cannot grow
// beyond full scale for in-range input.
type Goertzel struct {
	config      GoertzelConfig
	bin         int
	coefficient int16 // Q14: 2cos(2πk/N)
	attenuation int16 // Q15: 1/N

	y0, y1 int32 // Q31 recursion state, zeroed per block
	status fixed.Status
}

// NewGoertzel creates a new Goertzel detector with the given configuration.
// Returns an error if the configuration is invalid.
func NewGoertzel(cfg GoertzelConfig) (*Goertzel, error) {
	g := &Goertzel{}
	if err := g.SetFrequency(cfg.TargetFrequency, cfg.SampleRate, cfg.BlockSize); err != nil {
		return nil, err
	}
	return g, nil
}

// SetFrequency recomputes the bin, coefficient and attenuation. On error the
// detector is left unchanged.
func (g *Goertzel) SetFrequency(target, sampleRate float64, blockSize int) error {
	if blockSize <= 0 {
		return ErrInvalidBlockSize
	}
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return ErrInvalidSampleRate
	}
	if !(target > 0) || target >= sampleRate/2 {
		return ErrInvalidFrequency
	}

	n := float64(blockSize)
	k := int(n*target/sampleRate + 0.5)

	g.config = GoertzelConfig{TargetFrequency: target, SampleRate: sampleRate, BlockSize: blockSize}
	g.bin = k
	g.coefficient = fixed.Q14(2 * math.Cos(2*math.Pi*float64(k)/n))
	g.attenuation = fixed.Q15(1 / n)
	return nil
}

// SquaredMagnitude returns the Q31 energy of the target bin in samples,
// which must hold exactly BlockSize values. A sinusoid of amplitude A
// centred on the bin yields about (A/2)^2.
func (g *Goertzel) SquaredMagnitude(samples []int16) (int32, error) {
	if len(samples) != g.config.BlockSize {
		return 0, ErrBlockLength
	}
	return g.computeSquared(samples), nil
}

// Magnitude returns the Q15 magnitude of the target bin, sqrt of
// SquaredMagnitude with a floor of 1.
func (g *Goertzel) Magnitude(samples []int16) (int16, error) {
	if len(samples) != g.config.BlockSize {
		return 0, ErrBlockLength
	}
	return MagnitudeOf(g.computeSquared(samples)), nil
}

// SquaredMagnitudeNoCheck is SquaredMagnitude without the length check for
// the hot path. Caller MUST pass exactly BlockSize samples.
func (g *Goertzel) SquaredMagnitudeNoCheck(samples []int16) int32 {
	return g.computeSquared(samples)
}

// MagnitudeNoCheck is Magnitude without the length check for the hot path.
// Caller MUST pass exactly BlockSize samples.
func (g *Goertzel) MagnitudeNoCheck(samples []int16) int16 {
	return MagnitudeOf(g.computeSquared(samples))
}

// MagnitudeOf converts a Q31 squared magnitude to a Q15 magnitude.
func MagnitudeOf(squared int32) int16 {
	return fixed.Sqrt(max(squared, 1))
}

// computeSquared is the core Goertzel recursion.
func (g *Goertzel) computeSquared(samples []int16) int32 {
	s := &g.status
	coef := g.coefficient
	att := g.attenuation

	g.y0, g.y1 = 0, 0
	for _, x := range samples[:g.config.BlockSize] {
		// y0' = coef*y0 - y1 + x/N
		acc := s.ShiftLeft32(s.LongMult(s.Round(g.y0), coef), 1)
		acc = s.Sub32(acc, g.y1)
		g.y1 = g.y0
		g.y0 = s.Mac(acc, att, x)
	}

	// |X|^2 = y0^2 + y1^2 - coef*y0*y1
	y0 := s.Round(g.y0)
	y1 := s.Round(g.y1)
	m := s.ShiftLeft32(s.LongMult(fixed.Mult(y0, y1), coef), 1)
	m = fixed.Negate32(m)
	m = s.Mac(m, y1, y1)
	return s.Mac(m, y0, y0)
}

// Config returns the current configuration (for testing and inspection)
func (g *Goertzel) Config() GoertzelConfig {
	return g.config
}

// Coefficient returns the Q14 Goertzel coefficient
func (g *Goertzel) Coefficient() int16 {
	return g.coefficient
}

// Attenuation returns the Q15 per-sample input scale 1/N
func (g *Goertzel) Attenuation() int16 {
	return g.attenuation
}

// Bin returns the DFT bin index the target frequency was snapped to
func (g *Goertzel) Bin() int {
	return g.bin
}

// BinFrequency returns the centre frequency of the detected bin in Hz
func (g *Goertzel) BinFrequency() float64 {
	return float64(g.bin) * g.config.SampleRate / float64(g.config.BlockSize)
}

// BlockSize returns the configured block size
func (g *Goertzel) BlockSize() int {
	return g.config.BlockSize
}

// Status returns the detector's arithmetic flags
func (g *Goertzel) Status() *fixed.Status {
	return &g.status
}
