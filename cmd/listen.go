// cmd/listen.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ColonelBlimp/cwdsp/internal/audio"
	"github.com/ColonelBlimp/cwdsp/internal/config"
	"github.com/ColonelBlimp/cwdsp/internal/dsp"
	"github.com/ColonelBlimp/cwdsp/internal/metrics"
	"github.com/ColonelBlimp/cwdsp/internal/recovery"
	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 2 * time.Second

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run the signal chain on live audio",
	Long: `Capture audio from the configured device and run it through the chain.
Block results are logged at debug level. When metrics_addr is set the
chain gauges are served for Prometheus at /metrics.`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, _ []string) error {
	settings, err := config.Get()
	if err != nil {
		return err
	}
	chainCfg, err := settings.ChainConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	chain, err := dsp.NewChain(chainCfg)
	if err != nil {
		return fmt.Errorf("create chain: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var observe func(dsp.BlockResult)
	if settings.MetricsAddr != "" {
		m := metrics.New(prometheus.NewRegistry())
		srv := startMetricsServer(settings.MetricsAddr, m)
		defer shutdownServer(srv)
		observe = m.Observe
	}
	chain.SetCallback(blockLogger(observe))

	capture := audio.New(settings.AudioConfig())
	if err := capture.Init(); err != nil {
		return fmt.Errorf("audio init: %w", err)
	}
	defer capture.Close()

	if err := capture.Start(ctx); err != nil {
		return fmt.Errorf("audio start: %w", err)
	}
	log.Info("listening",
		"device", settings.DeviceIndex,
		"rate", settings.SampleRate,
		"tone", settings.ToneFrequency,
		"block", settings.BlockSize)

	done := startProcessing(ctx, chain, capture.Samples)

	<-ctx.Done()
	if err := capture.Close(); err != nil {
		log.Warn("close audio", "err", err)
	}
	<-done

	log.Info("stopped", "blocks", chain.Blocks(), "overflow", chain.Overflow())
	return nil
}

// startProcessing runs processSamples on its own goroutine. The returned
// channel is closed when processing ends, including before a panic exit.
func startProcessing(ctx context.Context, chain *dsp.Chain, samples <-chan []int16) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer recovery.HandlePanicFunc(func() { close(done) })
		processSamples(ctx, chain, samples)
		close(done)
	}()
	return done
}

// processSamples drains captured buffers into the chain until ctx is
// cancelled or the channel is closed.
func processSamples(ctx context.Context, chain *dsp.Chain, samples <-chan []int16) {
	for {
		select {
		case <-ctx.Done():
			return
		case buf, ok := <-samples:
			if !ok {
				return
			}
			chain.Process(buf)
		}
	}
}

// blockLogger logs each block at debug level and forwards it to observe
// when set.
func blockLogger(observe func(dsp.BlockResult)) dsp.BlockCallback {
	return func(r dsp.BlockResult) {
		log.Debug("block",
			"index", r.Index,
			"mag", r.Magnitude,
			"smoothed", r.Smoothed,
			"gain", r.Gain,
			"overflow", r.Overflow)
		if observe != nil {
			observe(r)
		}
	}
}

func startMetricsServer(addr string, m *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		defer recovery.HandlePanic()
		log.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", "err", err)
		}
	}()
	return srv
}

func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("metrics server shutdown", "err", err)
	}
}
