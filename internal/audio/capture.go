// internal/audio/capture.go
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"
)

var (
	ErrNotInitialized = errors.New("audio capture not initialized")
	ErrAlreadyRunning = errors.New("audio capture already running")
	ErrNotRunning     = errors.New("audio capture not running")
	ErrClosed         = errors.New("audio capture closed")
)

// Config holds audio capture configuration
type Config struct {
	DeviceIndex int    // -1 for default device
	SampleRate  uint32 // e.g., 8000
	Channels    uint32 // 1 for mono, 2 for stereo (downmixed before delivery)
	BufferSize  uint32 // frames per callback
}

// DefaultConfig returns the capture settings matching the default chain
func DefaultConfig() Config {
	return Config{
		DeviceIndex: -1,
		SampleRate:  8000,
		Channels:    1,
		BufferSize:  256,
	}
}

// SampleCallback is called directly from the audio thread with new mono
// Q15 samples. The slice is only valid for the duration of the call.
// Must be non-blocking and fast.
type SampleCallback func(samples []int16)

// Capture handles real-time signed 16-bit audio sampling from a capture device
type Capture struct {
	config Config
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	mu     sync.Mutex

	running     atomic.Bool
	closed      atomic.Bool
	closeOnce   sync.Once
	callbackPtr atomic.Pointer[SampleCallback]

	// mono is the downmix scratch buffer, touched only by the audio thread
	mono []int16

	// Output channel for mono Q15 sample blocks. Each block is a copy owned
	// by the receiver.
	Samples chan []int16
}

// New creates a new audio capture instance
func New(cfg Config) *Capture {
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}
	return &Capture{
		config:  cfg,
		Samples: make(chan []int16, 64),
	}
}

// SetCallback sets a callback for real-time sample processing.
// The callback is invoked directly from the audio thread - it must be
// non-blocking and fast.
func (c *Capture) SetCallback(cb SampleCallback) {
	if cb == nil {
		c.callbackPtr.Store(nil)
		return
	}
	c.callbackPtr.Store(&cb)
}

// Init initializes the audio backend
func (c *Capture) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return ErrClosed
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	c.ctx = ctx

	return nil
}

// ListDevices returns available capture devices
func (c *Capture) ListDevices() ([]malgo.DeviceInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listDevices()
}

func (c *Capture) listDevices() ([]malgo.DeviceInfo, error) {
	if c.ctx == nil {
		return nil, ErrNotInitialized
	}

	infos, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}

	return infos, nil
}

// Start begins audio capture. Capture stops when ctx is cancelled.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running.Load() {
		return ErrAlreadyRunning
	}
	if c.ctx == nil {
		return ErrNotInitialized
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.SampleRate = c.config.SampleRate
	deviceConfig.PeriodSizeInFrames = c.config.BufferSize
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = c.config.Channels

	// Select specific device if requested
	if c.config.DeviceIndex >= 0 {
		devices, err := c.listDevices()
		if err != nil {
			return err
		}
		if c.config.DeviceIndex >= len(devices) {
			return fmt.Errorf("device index %d out of range (have %d devices)",
				c.config.DeviceIndex, len(devices))
		}
		deviceConfig.Capture.DeviceID = devices[c.config.DeviceIndex].ID.Pointer()
	}

	c.mono = make([]int16, c.config.BufferSize)

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: c.onRecvFrames,
	}

	device, err := malgo.InitDevice(c.ctx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return fmt.Errorf("init device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start device: %w", err)
	}

	c.device = device
	c.running.Store(true)

	// Wait for context cancellation
	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()

	return nil
}

// onRecvFrames runs on the audio thread
func (c *Capture) onRecvFrames(_, inputSamples []byte, _ uint32) {
	interleaved := bytesAsInt16(inputSamples)
	if len(interleaved) == 0 {
		return
	}

	samples := interleaved
	if ch := int(c.config.Channels); ch > 1 {
		if need := len(interleaved) / ch; cap(c.mono) < need {
			c.mono = make([]int16, need)
		}
		n := Downmix(c.mono[:cap(c.mono)], interleaved, ch)
		samples = c.mono[:n]
	}

	if cbPtr := c.callbackPtr.Load(); cbPtr != nil {
		(*cbPtr)(samples)
	}

	c.safeSend(copyInt16Slice(samples))
}

// safeSend delivers a block without blocking the audio thread. Blocks are
// dropped when the consumer is too slow or the capture is closed.
func (c *Capture) safeSend(samples []int16) {
	if c.closed.Load() {
		return
	}
	select {
	case c.Samples <- samples:
	default:
	}
}

// Stop stops audio capture
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running.Load() {
		return ErrNotRunning
	}
	c.stopDevice()
	return nil
}

func (c *Capture) stopDevice() {
	if c.device != nil {
		_ = c.device.Stop()
		c.device.Uninit()
		c.device = nil
	}
	c.running.Store(false)
}

// Close releases all audio resources. It is safe to call more than once.
func (c *Capture) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.running.Load() {
			c.stopDevice()
		}

		if c.ctx != nil {
			if uerr := c.ctx.Uninit(); uerr != nil {
				err = fmt.Errorf("uninit context: %w", uerr)
			}
			c.ctx.Free()
			c.ctx = nil
		}

		// The device is stopped so no more sends can race the close
		c.closed.Store(true)
		close(c.Samples)
	})
	return err
}

// IsRunning returns true if capture is active
func (c *Capture) IsRunning() bool {
	return c.running.Load()
}

// Config returns the capture configuration
func (c *Capture) Config() Config {
	return c.config
}

// bytesAsInt16 reinterprets S16 bytes as samples without copying. The
// result aliases data. malgo delivers native-endian frames.
func bytesAsInt16(data []byte) []int16 {
	if len(data) < 2 {
		return nil
	}
	return unsafe.Slice((*int16)(unsafe.Pointer(&data[0])), len(data)/2)
}

// copyInt16Slice returns an independent copy of s
func copyInt16Slice(s []int16) []int16 {
	if s == nil {
		return nil
	}
	out := make([]int16, len(s))
	copy(out, s)
	return out
}
