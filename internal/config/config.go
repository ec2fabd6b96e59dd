// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ColonelBlimp/cwdsp/internal/audio"
	"github.com/ColonelBlimp/cwdsp/internal/dsp"
	"github.com/ColonelBlimp/cwdsp/internal/filter"
	"github.com/spf13/viper"
)

const (
	AppName       = "cwdsp"
	ConfigType    = "yaml"
	DefaultConfig = `# cwdsp Configuration

# Signal chain
sample_rate: 8000       # Chain sample rate in Hz (8000-192000)
tone_frequency: 600     # Goertzel target and filter centre in Hz
block_size: 128         # Goertzel block size, power of 2 (16-4096)
overlap_pct: 0          # Block overlap percentage (0-99)

# Front-end filter
filter_order: 2         # 1 or 2
filter_type: "bpf"      # lpf, bpf, hpf, apf, bef (bpf and bef need order 2)
filter_q: 0.7071        # Second order quality factor

# Automatic gain control
agc_enabled: true       # Bypass the AGC when false
agc_target: 0.7         # Target output amplitude (0.0-1.0)
agc_max_gain: 20        # Maximum linear gain (below 32)
agc_min_gain: 0.7       # Minimum linear gain
agc_attack_ms: 3        # Attack time constant in ms
agc_release_ms: 5000    # Release time constant in ms

# Envelope smoother (raw Q15, 32768 = 1.0)
smoother_up: 4096       # Rise coefficient
smoother_down: 1024     # Fall coefficient

# Audio device settings
device_index: -1        # -1 for default device
buffer_size: 256        # Capture period in frames

# Output
metrics_addr: ""        # Prometheus listen address for 'listen', e.g. ":9090"
debug: false            # Enable debug output
`
)

// Settings holds all application configuration
type Settings struct {
	// Signal chain
	SampleRate    float64 `mapstructure:"sample_rate"`
	ToneFrequency float64 `mapstructure:"tone_frequency"`
	BlockSize     int     `mapstructure:"block_size"`
	OverlapPct    int     `mapstructure:"overlap_pct"`

	// Front-end filter
	FilterOrder int     `mapstructure:"filter_order"`
	FilterType  string  `mapstructure:"filter_type"`
	FilterQ     float64 `mapstructure:"filter_q"`

	// Automatic gain control
	AGCEnabled   bool    `mapstructure:"agc_enabled"`
	AGCTarget    float64 `mapstructure:"agc_target"`
	AGCMaxGain   float64 `mapstructure:"agc_max_gain"`
	AGCMinGain   float64 `mapstructure:"agc_min_gain"`
	AGCAttackMs  float64 `mapstructure:"agc_attack_ms"`
	AGCReleaseMs float64 `mapstructure:"agc_release_ms"`

	// Envelope smoother
	SmootherUp   int `mapstructure:"smoother_up"`
	SmootherDown int `mapstructure:"smoother_down"`

	// Audio device settings
	DeviceIndex int `mapstructure:"device_index"`
	BufferSize  int `mapstructure:"buffer_size"`

	// Output
	MetricsAddr string `mapstructure:"metrics_addr"`
	Debug       bool   `mapstructure:"debug"`
}

// setDefaults registers the default for every key
func setDefaults() {
	viper.SetDefault("sample_rate", 8000)
	viper.SetDefault("tone_frequency", 600)
	viper.SetDefault("block_size", 128)
	viper.SetDefault("overlap_pct", 0)
	viper.SetDefault("filter_order", 2)
	viper.SetDefault("filter_type", "bpf")
	viper.SetDefault("filter_q", 0.7071)
	viper.SetDefault("agc_enabled", true)
	viper.SetDefault("agc_target", 0.7)
	viper.SetDefault("agc_max_gain", 20)
	viper.SetDefault("agc_min_gain", 0.7)
	viper.SetDefault("agc_attack_ms", 3)
	viper.SetDefault("agc_release_ms", 5000)
	viper.SetDefault("smoother_up", 4096)
	viper.SetDefault("smoother_down", 1024)
	viper.SetDefault("device_index", -1)
	viper.SetDefault("buffer_size", 256)
	viper.SetDefault("metrics_addr", "")
	viper.SetDefault("debug", false)
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/cwdsp/
func Init() error {
	setDefaults()

	// Support both config.yaml and .config.yaml
	viper.SetConfigType(ConfigType)

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	// Read config file - if not found, create default in XDG config dir
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("read config: %w", err)
		}
		xdgConfigPath := filepath.Join(configDir, AppName)
		if err = ensureConfigExists(xdgConfigPath); err != nil {
			return err
		}
		if err = viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Signal chain
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %v", s.SampleRate))
	}
	if s.ToneFrequency <= 0 {
		errs = append(errs, fmt.Errorf("tone_frequency must be positive, got %v", s.ToneFrequency))
	}
	// Nyquist check: tone frequency must be less than half the sample rate
	if s.ToneFrequency >= s.SampleRate/2 {
		errs = append(errs, fmt.Errorf("tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.ToneFrequency, s.SampleRate/2))
	}
	if s.BlockSize < 16 || s.BlockSize > 4096 {
		errs = append(errs, fmt.Errorf("block_size must be between 16 and 4096, got %d", s.BlockSize))
	}
	if s.BlockSize&(s.BlockSize-1) != 0 {
		errs = append(errs, fmt.Errorf("block_size should be a power of 2, got %d", s.BlockSize))
	}
	if s.OverlapPct < 0 || s.OverlapPct > 99 {
		errs = append(errs, fmt.Errorf("overlap_pct must be between 0 and 99, got %d", s.OverlapPct))
	}

	// Front-end filter
	order := filter.Order(s.FilterOrder)
	if order != filter.First && order != filter.Second {
		errs = append(errs, fmt.Errorf("filter_order must be 1 or 2, got %d", s.FilterOrder))
	}
	typ, err := filter.ParseType(s.FilterType)
	if err != nil {
		errs = append(errs, fmt.Errorf("filter_type must be one of lpf, bpf, hpf, apf, bef, got %q", s.FilterType))
	} else if order == filter.First && !order.Supports(typ) {
		errs = append(errs, fmt.Errorf("filter_type %s needs filter_order 2", typ))
	}
	if s.FilterQ <= 0 {
		errs = append(errs, fmt.Errorf("filter_q must be positive, got %v", s.FilterQ))
	}

	// Automatic gain control
	if s.AGCTarget <= 0 || s.AGCTarget > 1 {
		errs = append(errs, fmt.Errorf("agc_target must be in (0, 1], got %v", s.AGCTarget))
	}
	if s.AGCMaxGain <= 0 || s.AGCMaxGain >= 32 {
		errs = append(errs, fmt.Errorf("agc_max_gain must be in (0, 32), got %v", s.AGCMaxGain))
	}
	if s.AGCMinGain <= 0 || s.AGCMinGain > s.AGCMaxGain {
		errs = append(errs, fmt.Errorf("agc_min_gain must be in (0, agc_max_gain], got %v", s.AGCMinGain))
	}
	if s.AGCAttackMs < 0 {
		errs = append(errs, fmt.Errorf("agc_attack_ms must not be negative, got %v", s.AGCAttackMs))
	}
	if s.AGCReleaseMs < 0 {
		errs = append(errs, fmt.Errorf("agc_release_ms must not be negative, got %v", s.AGCReleaseMs))
	}

	// Envelope smoother
	if s.SmootherUp < 1 || s.SmootherUp > 32767 {
		errs = append(errs, fmt.Errorf("smoother_up must be between 1 and 32767, got %d", s.SmootherUp))
	}
	if s.SmootherDown < 1 || s.SmootherDown > 32767 {
		errs = append(errs, fmt.Errorf("smoother_down must be between 1 and 32767, got %d", s.SmootherDown))
	}

	// Audio device settings
	if s.DeviceIndex < -1 {
		errs = append(errs, fmt.Errorf("device_index must be -1 or a device number, got %d", s.DeviceIndex))
	}
	if s.BufferSize < 64 || s.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("buffer_size must be between 64 and 8192, got %d", s.BufferSize))
	}
	if s.BufferSize&(s.BufferSize-1) != 0 {
		errs = append(errs, fmt.Errorf("buffer_size should be a power of 2, got %d", s.BufferSize))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ChainConfig converts validated settings into a signal chain configuration
func (s *Settings) ChainConfig() (dsp.ChainConfig, error) {
	typ, err := filter.ParseType(s.FilterType)
	if err != nil {
		return dsp.ChainConfig{}, err
	}
	return dsp.ChainConfig{
		SampleRate:    s.SampleRate,
		ToneFrequency: s.ToneFrequency,
		BlockSize:     s.BlockSize,
		OverlapPct:    s.OverlapPct,
		FilterOrder:   filter.Order(s.FilterOrder),
		FilterType:    typ,
		FilterQ:       s.FilterQ,
		AGCEnabled:    s.AGCEnabled,
		AGC: dsp.AGCConfig{
			TargetLevel: s.AGCTarget,
			MaxGain:     s.AGCMaxGain,
			MinGain:     s.AGCMinGain,
			AttackMs:    s.AGCAttackMs,
			ReleaseMs:   s.AGCReleaseMs,
			SampleRate:  s.SampleRate,
		},
		SmootherUp:   int16(s.SmootherUp),
		SmootherDown: int16(s.SmootherDown),
	}, nil
}

// AudioConfig converts settings into a mono capture configuration
func (s *Settings) AudioConfig() audio.Config {
	return audio.Config{
		DeviceIndex: s.DeviceIndex,
		SampleRate:  uint32(s.SampleRate),
		Channels:    1,
		BufferSize:  uint32(s.BufferSize),
	}
}
