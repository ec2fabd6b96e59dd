// cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/ColonelBlimp/cwdsp/internal/config"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "cwdsp",
	Short: "Fixed-point CW tone detection toolkit",
	Long: `A fixed-point signal chain for CW tone detection: a bilinear-designed
front-end filter, automatic gain control, a Goertzel detector and an
envelope smoother. Run it over WAV files, live audio, or print the
designed coefficient set.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags (override config file)
	rootCmd.PersistentFlags().IntP("device", "d", -1, "audio device index (-1 for default)")
	rootCmd.PersistentFlags().Float64P("frequency", "f", 600, "CW tone frequency in Hz")
	rootCmd.PersistentFlags().Float64P("rate", "r", 8000, "sample rate in Hz")
	rootCmd.PersistentFlags().IntP("block", "b", 128, "Goertzel block size")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug output")
}

// flagKeys maps persistent flags to config keys
var flagKeys = map[string]string{
	"device":    "device_index",
	"frequency": "tone_frequency",
	"rate":      "sample_rate",
	"block":     "block_size",
	"debug":     "debug",
}

// bindFlags binds the persistent flags to viper. It runs on every
// invocation so a viper reset does not lose the bindings.
func bindFlags(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		if err := viper.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func initConfig(cmd *cobra.Command, _ []string) error {
	if err := bindFlags(cmd); err != nil {
		return err
	}
	if err := config.Init(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	setupLogging(viper.GetBool("debug"))
	return nil
}

func setupLogging(debug bool) {
	log.SetReportTimestamp(true)
	log.SetPrefix(config.AppName)
	if debug {
		log.SetLevel(log.DebugLevel)
		return
	}
	log.SetLevel(log.InfoLevel)
}
