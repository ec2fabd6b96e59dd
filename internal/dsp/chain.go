// internal/dsp/chain.go
package dsp

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ColonelBlimp/cwdsp/internal/filter"
)

var (
	// ErrInvalidOverlap indicates overlap percentage must be 0-99
	ErrInvalidOverlap = errors.New("overlap percentage must be between 0 and 99")
)

// BlockResult is emitted once per completed Goertzel block.
type BlockResult struct {
	// Index counts blocks from zero since construction or Reset
	Index uint64
	// SquaredMagnitude is the Q31 bin energy
	SquaredMagnitude int32
	// Magnitude is the Q15 bin magnitude
	Magnitude int16
	// Smoothed is the Q15 envelope after the smoother
	Smoothed int16
	// Gain is the AGC gain at the end of the block (1.0 when AGC is disabled)
	Gain float64
	// Overflow reports whether any stage saturated since the previous block
	Overflow bool
}

// BlockCallback receives block results.
// Must be non-blocking and fast - called from the audio processing path.
type BlockCallback func(result BlockResult)

// ChainConfig holds configuration for one signal chain.
// All values should come from the application config file.
type ChainConfig struct {
	// SampleRate is the audio sample rate in Hz (from config: sample_rate)
	SampleRate float64
	// ToneFrequency is the Goertzel target and filter centre in Hz (from config: tone_frequency)
	ToneFrequency float64
	// BlockSize is the Goertzel block length (from config: block_size)
	BlockSize int
	// OverlapPct is the block overlap percentage 0-99 (from config: overlap_pct)
	OverlapPct int

	// FilterOrder is the front-end filter order (from config: filter_order)
	FilterOrder filter.Order
	// FilterType is the front-end filter type (from config: filter_type)
	FilterType filter.Type
	// FilterQ is the second order quality factor (from config: filter_q)
	FilterQ float64

	// AGCEnabled enables automatic gain control (from config: agc_enabled)
	AGCEnabled bool
	// AGC holds the gain control parameters. Its SampleRate is replaced by the chain's.
	AGC AGCConfig

	// SmootherUp is the raw Q15 rise coefficient (from config: smoother_up)
	SmootherUp int16
	// SmootherDown is the raw Q15 fall coefficient (from config: smoother_down)
	SmootherDown int16
}

// DefaultChainConfig returns the chain set up as a CW front end: a second
// order bandpass at the tone, a fast-attack slow-release AGC, and a smoother.
func DefaultChainConfig() ChainConfig {
	return ChainConfig{
		SampleRate:    8000,
		ToneFrequency: 600,
		BlockSize:     128,
		OverlapPct:    0,
		FilterOrder:   filter.Second,
		FilterType:    filter.BPF,
		FilterQ:       0.7071,
		AGCEnabled:    true,
		AGC: AGCConfig{
			TargetLevel: 0.7,
			MaxGain:     20,
			MinGain:     0.7,
			AttackMs:    3,
			ReleaseMs:   5000,
			SampleRate:  8000,
		},
		SmootherUp:   4096,
		SmootherDown: 1024,
	}
}

// Chain runs raw PCM through filter, AGC, Goertzel and smoother.
// Samples are conditioned as they arrive and collected into a fixed block
// buffer; every full block produces one BlockResult.
type Chain struct {
	config   ChainConfig
	filter   *filter.Filter
	agc      *AGC
	goertzel *Goertzel
	smoother *Smoother

	// Block buffer for overlap processing
	block     []int16
	fill      int
	blockSize int
	hopSize   int // samples to advance between blocks

	blocks   uint64
	overflow bool // sticky across blocks until ClearStatus or Reset

	// Callback for block results (atomic for thread safety)
	callbackPtr atomic.Pointer[BlockCallback]
}

// NewChain creates a signal chain with the given configuration.
func NewChain(cfg ChainConfig) (*Chain, error) {
	if cfg.OverlapPct < 0 || cfg.OverlapPct >= 100 {
		return nil, ErrInvalidOverlap
	}

	bpf, err := filter.New(cfg.FilterOrder, cfg.ToneFrequency, cfg.SampleRate, cfg.FilterType, cfg.FilterQ)
	if err != nil {
		return nil, fmt.Errorf("creating filter: %w", err)
	}

	cfg.AGC.SampleRate = cfg.SampleRate
	agc, err := NewAGC(cfg.AGC)
	if err != nil {
		return nil, fmt.Errorf("creating agc: %w", err)
	}

	goertzel, err := NewGoertzel(GoertzelConfig{
		TargetFrequency: cfg.ToneFrequency,
		SampleRate:      cfg.SampleRate,
		BlockSize:       cfg.BlockSize,
	})
	if err != nil {
		return nil, fmt.Errorf("creating goertzel: %w", err)
	}

	smoother, err := NewSmoother(cfg.SmootherUp, cfg.SmootherDown)
	if err != nil {
		return nil, fmt.Errorf("creating smoother: %w", err)
	}

	blockSize := goertzel.BlockSize()
	overlapSize := (blockSize * cfg.OverlapPct) / 100
	hopSize := blockSize - overlapSize

	return &Chain{
		config:    cfg,
		filter:    bpf,
		agc:       agc,
		goertzel:  goertzel,
		smoother:  smoother,
		block:     make([]int16, blockSize),
		blockSize: blockSize,
		hopSize:   hopSize,
	}, nil
}

// SetCallback sets the callback for block results.
// The callback is invoked from the processing goroutine - it must be fast and non-blocking.
func (c *Chain) SetCallback(cb BlockCallback) {
	if cb == nil {
		c.callbackPtr.Store(nil)
	} else {
		c.callbackPtr.Store(&cb)
	}
}

// Process conditions incoming Q15 samples and runs detection on every
// completed block. It does not allocate.
func (c *Chain) Process(samples []int16) {
	for len(samples) > 0 {
		n := min(len(samples), c.blockSize-c.fill)
		dst := c.block[c.fill : c.fill+n]

		c.filter.Filter(dst, samples[:n])
		if c.config.AGCEnabled {
			c.agc.Process(dst, dst)
		}
		c.fill += n
		samples = samples[n:]

		if c.fill == c.blockSize {
			c.processBlock()

			// Slide the buffer by hopSize
			if c.hopSize < c.blockSize {
				copy(c.block, c.block[c.hopSize:])
				c.fill = c.blockSize - c.hopSize
			} else {
				c.fill = 0
			}
		}
	}
}

// processBlock runs the detector over the full block buffer.
func (c *Chain) processBlock() {
	squared := c.goertzel.SquaredMagnitudeNoCheck(c.block)
	magnitude := MagnitudeOf(squared)
	smoothed := c.smoother.SmoothSample(magnitude)

	gain := 1.0
	if c.config.AGCEnabled {
		gain = c.agc.Gain()
	}

	result := BlockResult{
		Index:            c.blocks,
		SquaredMagnitude: squared,
		Magnitude:        magnitude,
		Smoothed:         smoothed,
		Gain:             gain,
		Overflow:         c.stageOverflow(),
	}
	if result.Overflow {
		c.overflow = true
		c.resetStageStatus()
	}
	c.blocks++
	c.emit(result)
}

// emit calls the registered callback if set
func (c *Chain) emit(result BlockResult) {
	cbPtr := c.callbackPtr.Load()
	if cbPtr != nil {
		(*cbPtr)(result)
	}
}

// Overflow reports whether any stage has saturated since the last
// ClearStatus or Reset.
func (c *Chain) Overflow() bool {
	return c.overflow || c.stageOverflow()
}

func (c *Chain) stageOverflow() bool {
	return c.filter.Status().Overflow ||
		c.agc.Status().Overflow ||
		c.goertzel.Status().Overflow ||
		c.smoother.Status().Overflow
}

// ClearStatus clears the arithmetic flags of every stage.
func (c *Chain) ClearStatus() {
	c.overflow = false
	c.resetStageStatus()
}

func (c *Chain) resetStageStatus() {
	c.filter.Status().Reset()
	c.agc.Status().Reset()
	c.goertzel.Status().Reset()
	c.smoother.Status().Reset()
}

// Reset clears all stage state, the block buffer and the block counter.
func (c *Chain) Reset() {
	c.filter.Reset()
	c.agc.Reset()
	c.goertzel.Status().Reset()
	c.smoother.Reset()
	c.fill = 0
	c.blocks = 0
	c.overflow = false
}

// Blocks returns the number of blocks processed.
func (c *Chain) Blocks() uint64 {
	return c.blocks
}

// HopSize returns the number of samples between block starts.
func (c *Chain) HopSize() int {
	return c.hopSize
}

// Config returns the current configuration
func (c *Chain) Config() ChainConfig {
	return c.config
}

// Filter returns the front-end filter stage.
func (c *Chain) Filter() *filter.Filter {
	return c.filter
}

// AGC returns the gain control stage.
func (c *Chain) AGC() *AGC {
	return c.agc
}

// Goertzel returns the detector stage.
func (c *Chain) Goertzel() *Goertzel {
	return c.goertzel
}

// Smoother returns the envelope smoother stage.
func (c *Chain) Smoother() *Smoother {
	return c.smoother
}
