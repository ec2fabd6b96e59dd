// internal/audio/wav.go
package audio

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	ErrInvalidWAV          = errors.New("invalid WAV file")
	ErrUnsupportedBitDepth = errors.New("unsupported WAV bit depth")
	ErrUnsupportedFormat   = errors.New("unsupported WAV sample format")
)

// WAV format tags accepted by OpenWAV
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// wavFrames is the number of frames decoded per PCMBuffer call
const wavFrames = 4096

// WAVReader streams a PCM WAV file as mono Q15 samples
type WAVReader struct {
	dec      *wav.Decoder
	buf      goaudio.IntBuffer
	data     []int
	channels int
	bitDepth int
	rate     int
}

// OpenWAV validates the WAV header in r and prepares it for reading.
// Only integer PCM is accepted, with bit depths 8, 16, 24 and 32.
func OpenWAV(r io.ReadSeeker) (*WAVReader, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}

	switch dec.WavAudioFormat {
	case wavFormatPCM, wavFormatExtensible:
	default:
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}

	format := dec.Format()
	if format.NumChannels < 1 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidWAV)
	}

	data := make([]int, wavFrames*format.NumChannels)
	return &WAVReader{
		dec:      dec,
		buf:      goaudio.IntBuffer{Format: format, Data: data, SourceBitDepth: bitDepth},
		data:     data,
		channels: format.NumChannels,
		bitDepth: bitDepth,
		rate:     format.SampleRate,
	}, nil
}

// SampleRate returns the file sample rate in Hz
func (w *WAVReader) SampleRate() int { return w.rate }

// Channels returns the file channel count before downmix
func (w *WAVReader) Channels() int { return w.channels }

// BitDepth returns the file sample width in bits
func (w *WAVReader) BitDepth() int { return w.bitDepth }

// Read fills dst with up to len(dst) mono Q15 samples. It returns io.EOF
// when no samples remain.
func (w *WAVReader) Read(dst []int16) (int, error) {
	frames := min(len(dst), wavFrames)
	if frames == 0 {
		return 0, nil
	}

	w.buf.Data = w.data[:frames*w.channels]
	n, err := w.dec.PCMBuffer(&w.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("decode pcm: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	// PCMBuffer may return a short final buffer
	pcm := w.buf.Data[:n-n%w.channels]
	for i, v := range pcm {
		pcm[i] = int(toQ15(v, w.bitDepth))
	}

	out := 0
	for i := 0; i+w.channels <= len(pcm); i += w.channels {
		sum := 0
		for ch := 0; ch < w.channels; ch++ {
			sum += pcm[i+ch]
		}
		dst[out] = int16(sum / w.channels)
		out++
	}
	return out, nil
}

// ReadAll decodes the remainder of the file as mono Q15 samples
func (w *WAVReader) ReadAll() ([]int16, error) {
	var all []int16
	chunk := make([]int16, wavFrames)
	for {
		n, err := w.Read(chunk)
		all = append(all, chunk[:n]...)
		if errors.Is(err, io.EOF) {
			return all, nil
		}
		if err != nil {
			return all, err
		}
	}
}

// toQ15 rescales a decoded PCM value of the given width to 16 bits.
// 8-bit WAV data is unsigned.
func toQ15(v, bitDepth int) int16 {
	switch bitDepth {
	case 8:
		return int16((v - 128) << 8)
	case 16:
		return int16(v)
	default:
		return int16(v >> (bitDepth - 16))
	}
}

// Downmix averages interleaved frames of the given channel count into dst.
// It returns the number of mono samples written.
func Downmix(dst, interleaved []int16, channels int) int {
	if channels <= 1 {
		return copy(dst, interleaved)
	}
	n := min(len(dst), len(interleaved)/channels)
	for i := 0; i < n; i++ {
		sum := 0
		for ch := 0; ch < channels; ch++ {
			sum += int(interleaved[i*channels+ch])
		}
		dst[i] = int16(sum / channels)
	}
	return n
}
