// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/ColonelBlimp/cwdsp/internal/dsp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cwdsp"

// Metrics exports per-block chain results
type Metrics struct {
	magnitude      prometheus.Gauge   // Q15 Goertzel magnitude of the last block
	smoothed       prometheus.Gauge   // Q15 smoothed envelope of the last block
	gain           prometheus.Gauge   // Linear AGC gain at the end of the last block
	blocks         prometheus.Counter // Blocks processed
	overflowBlocks prometheus.Counter // Blocks in which a stage saturated

	gatherer prometheus.Gatherer
}

// New registers the chain metrics with reg. When reg also implements
// prometheus.Gatherer, Handler serves it; otherwise Handler serves the
// default gatherer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	return &Metrics{
		magnitude: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "magnitude",
			Help:      "Goertzel bin magnitude of the last block (Q15).",
		}),
		smoothed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "smoothed_magnitude",
			Help:      "Smoothed envelope of the last block (Q15).",
		}),
		gain: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agc_gain",
			Help:      "Linear AGC gain at the end of the last block.",
		}),
		blocks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_total",
			Help:      "Total number of blocks processed.",
		}),
		overflowBlocks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overflow_blocks_total",
			Help:      "Total number of blocks in which a chain stage saturated.",
		}),
		gatherer: gatherer,
	}
}

// Observe records one block result. It is cheap enough to call from a
// chain callback.
func (m *Metrics) Observe(r dsp.BlockResult) {
	m.magnitude.Set(float64(r.Magnitude))
	m.smoothed.Set(float64(r.Smoothed))
	m.gain.Set(r.Gain)
	m.blocks.Inc()
	if r.Overflow {
		m.overflowBlocks.Inc()
	}
}

// Handler returns an HTTP handler exposing the registered metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
