// internal/design/report.go
package design

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/ColonelBlimp/cwdsp/internal/dsp"
	"github.com/ColonelBlimp/cwdsp/internal/filter"
	"github.com/ColonelBlimp/cwdsp/internal/fixed"
	"gopkg.in/yaml.v3"
)

// Report is the configuration-time coefficient set of one signal chain
type Report struct {
	SampleRate    float64        `yaml:"sample_rate"`
	ToneFrequency float64        `yaml:"tone_frequency"`
	BlockSize     int            `yaml:"block_size"`
	HopSize       int            `yaml:"hop_size"`
	Filter        FilterReport   `yaml:"filter"`
	Goertzel      GoertzelReport `yaml:"goertzel"`
	AGC           AGCReport      `yaml:"agc"`
	Smoother      SmootherReport `yaml:"smoother"`
}

// FilterReport describes the quantized front-end filter
type FilterReport struct {
	Order    int              `yaml:"order"`
	Type     string           `yaml:"type"`
	Cutoff   float64          `yaml:"cutoff_hz"`
	Q        float64          `yaml:"q,omitempty"`
	Format   string           `yaml:"format"`
	Raw      RawCoefficients  `yaml:"raw"`
	Real     RealCoefficients `yaml:"real"`
	Response []ResponsePoint  `yaml:"response"`
}

// RawCoefficients are the stored integer coefficients
type RawCoefficients struct {
	B0 int16 `yaml:"b0"`
	B1 int16 `yaml:"b1"`
	B2 int16 `yaml:"b2"`
	A1 int16 `yaml:"a1"`
	A2 int16 `yaml:"a2"`
}

// RealCoefficients are the raw coefficients scaled back to real values
type RealCoefficients struct {
	B0 float64 `yaml:"b0"`
	B1 float64 `yaml:"b1"`
	B2 float64 `yaml:"b2"`
	A1 float64 `yaml:"a1"`
	A2 float64 `yaml:"a2"`
}

// ResponsePoint is the magnitude response of the quantized filter at one
// frequency
type ResponsePoint struct {
	Frequency float64 `yaml:"frequency_hz"`
	Gain      float64 `yaml:"gain"`
	GainDB    float64 `yaml:"gain_db"`
}

// GoertzelReport describes the detector bin
type GoertzelReport struct {
	Bin          int     `yaml:"bin"`
	BinFrequency float64 `yaml:"bin_frequency_hz"`
	Coefficient  int16   `yaml:"coefficient_q14"`
	Attenuation  int16   `yaml:"attenuation_q15"`
}

// AGCReport describes the gain control coefficients
type AGCReport struct {
	Enabled   bool    `yaml:"enabled"`
	Attack    int16   `yaml:"attack_q15"`
	Release   int16   `yaml:"release_q15"`
	Target    int16   `yaml:"target_q15"`
	MaxGain   int16   `yaml:"max_gain_q10"`
	MinGain   int16   `yaml:"min_gain_q10"`
	AttackMs  float64 `yaml:"attack_ms"`
	ReleaseMs float64 `yaml:"release_ms"`
}

// SmootherReport describes the envelope smoother
type SmootherReport struct {
	Up       int16   `yaml:"up_q15"`
	Down     int16   `yaml:"down_q15"`
	UpReal   float64 `yaml:"up"`
	DownReal float64 `yaml:"down"`
}

// Build designs every stage of the chain described by cfg and collects
// the resulting coefficients.
func Build(cfg dsp.ChainConfig) (Report, error) {
	chain, err := dsp.NewChain(cfg)
	if err != nil {
		return Report{}, fmt.Errorf("design chain: %w", err)
	}
	cfg = chain.Config()

	f := chain.Filter()
	c := f.Coefficients()
	v := c.Float(f.Order())

	q := f.Q()
	format := "Q14"
	if f.Order() == filter.First {
		q = 0
		format = "Q15"
	}

	g := chain.Goertzel()
	a := chain.AGC()
	m := chain.Smoother()

	return Report{
		SampleRate:    cfg.SampleRate,
		ToneFrequency: cfg.ToneFrequency,
		BlockSize:     g.BlockSize(),
		HopSize:       chain.HopSize(),
		Filter: FilterReport{
			Order:    int(f.Order()),
			Type:     f.Type().String(),
			Cutoff:   f.Cutoff(),
			Q:        q,
			Format:   format,
			Raw:      RawCoefficients{B0: c.B0, B1: c.B1, B2: c.B2, A1: c.A1, A2: c.A2},
			Real:     RealCoefficients{B0: v[0], B1: v[1], B2: v[2], A1: v[3], A2: v[4]},
			Response: responsePoints(f, cfg.SampleRate),
		},
		Goertzel: GoertzelReport{
			Bin:          g.Bin(),
			BinFrequency: g.BinFrequency(),
			Coefficient:  g.Coefficient(),
			Attenuation:  g.Attenuation(),
		},
		AGC: AGCReport{
			Enabled:   cfg.AGCEnabled,
			Attack:    a.Attack(),
			Release:   a.Release(),
			Target:    a.Target(),
			MaxGain:   a.MaxGainRaw(),
			MinGain:   a.MinGainRaw(),
			AttackMs:  cfg.AGC.AttackMs,
			ReleaseMs: cfg.AGC.ReleaseMs,
		},
		Smoother: SmootherReport{
			Up:       m.Up(),
			Down:     m.Down(),
			UpReal:   fixed.ToFloat(int64(m.Up()), 15),
			DownReal: fixed.ToFloat(int64(m.Down()), 15),
		},
	}, nil
}

// responsePoints samples the filter at DC, half the cutoff, the cutoff and
// twice the cutoff when that is below Nyquist.
func responsePoints(f *filter.Filter, sampleRate float64) []ResponsePoint {
	freqs := []float64{0, f.Cutoff() / 2, f.Cutoff()}
	if 2*f.Cutoff() < sampleRate/2 {
		freqs = append(freqs, 2*f.Cutoff())
	}

	points := make([]ResponsePoint, len(freqs))
	for i, freq := range freqs {
		gain := f.Response(freq, sampleRate)
		db := math.Inf(-1)
		if gain > 0 {
			db = 20 * math.Log10(gain)
		}
		points[i] = ResponsePoint{Frequency: freq, Gain: round(gain, 6), GainDB: round(db, 2)}
	}
	return points
}

func round(v float64, places int) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// YAML marshals the report
func (r Report) YAML() ([]byte, error) {
	return yaml.Marshal(r)
}

// WriteText prints the report as an aligned table
func (r Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "chain\t%.0f Hz\ttone %.1f Hz\tN=%d hop=%d\n", r.SampleRate, r.ToneFrequency, r.BlockSize, r.HopSize)

	fl := r.Filter
	fmt.Fprintf(tw, "filter\torder %d %s\tcutoff %.1f Hz\tQ %.4f (%s)\n", fl.Order, fl.Type, fl.Cutoff, fl.Q, fl.Format)
	fmt.Fprintf(tw, "\tb0 %d\tb1 %d\tb2 %d\n", fl.Raw.B0, fl.Raw.B1, fl.Raw.B2)
	fmt.Fprintf(tw, "\ta1 %d\ta2 %d\t\n", fl.Raw.A1, fl.Raw.A2)
	for _, p := range fl.Response {
		fmt.Fprintf(tw, "\t|H(%.1f Hz)|\t%.6f\t%.2f dB\n", p.Frequency, p.Gain, p.GainDB)
	}

	g := r.Goertzel
	fmt.Fprintf(tw, "goertzel\tbin %d (%.2f Hz)\tcoef %d\tatt %d\n", g.Bin, g.BinFrequency, g.Coefficient, g.Attenuation)

	a := r.AGC
	fmt.Fprintf(tw, "agc\tenabled %t\tattack %d\trelease %d\n", a.Enabled, a.Attack, a.Release)
	fmt.Fprintf(tw, "\ttarget %d\tmax %d\tmin %d\n", a.Target, a.MaxGain, a.MinGain)

	m := r.Smoother
	fmt.Fprintf(tw, "smoother\tup %d (%.4f)\tdown %d (%.4f)\t\n", m.Up, m.UpReal, m.Down, m.DownReal)

	return tw.Flush()
}
