// cmd/analyze.go
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ColonelBlimp/cwdsp/internal/audio"
	"github.com/ColonelBlimp/cwdsp/internal/config"
	"github.com/ColonelBlimp/cwdsp/internal/dsp"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

const analyzeChunk = 4096

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.wav>",
	Short: "Run the signal chain over a WAV file",
	Long: `Read a WAV file, downmix it to mono Q15 and run it through the
configured chain. One line is printed per block: index, magnitude,
smoothed envelope and AGC gain. Blocks in which a stage saturated are
marked with '*'.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	settings, err := config.Get()
	if err != nil {
		return err
	}
	chainCfg, err := settings.ChainConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	src, err := audio.OpenWAV(f)
	if err != nil {
		return fmt.Errorf("audio file %s: %w", path, err)
	}

	if rate := float64(src.SampleRate()); rate != chainCfg.SampleRate {
		log.Warn("file sample rate differs from config, using file rate",
			"file", rate, "config", chainCfg.SampleRate)
		chainCfg.SampleRate = rate
	}

	chain, err := dsp.NewChain(chainCfg)
	if err != nil {
		return fmt.Errorf("create chain: %w", err)
	}

	out := bufio.NewWriter(cmd.OutOrStdout())
	fmt.Fprintf(out, "%8s %9s %9s %8s\n", "block", "magnitude", "smoothed", "gain")
	chain.SetCallback(func(r dsp.BlockResult) {
		mark := ""
		if r.Overflow {
			mark = " *"
		}
		fmt.Fprintf(out, "%8d %9d %9d %8.4f%s\n", r.Index, r.Magnitude, r.Smoothed, r.Gain, mark)
	})

	if err := processReader(chain, src); err != nil {
		return err
	}

	log.Info("analysis complete",
		"file", path,
		"channels", src.Channels(),
		"bits", src.BitDepth(),
		"blocks", chain.Blocks(),
		"overflow", chain.Overflow())
	return out.Flush()
}

// processReader feeds the chain from src until it is exhausted
func processReader(chain *dsp.Chain, src *audio.WAVReader) error {
	buf := make([]int16, analyzeChunk)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			chain.Process(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read audio: %w", err)
		}
	}
}
