// cmd/design.go
package cmd

import (
	"errors"
	"fmt"

	"github.com/ColonelBlimp/cwdsp/internal/config"
	"github.com/ColonelBlimp/cwdsp/internal/design"
	"github.com/spf13/cobra"
)

var errUnknownFormat = errors.New("unknown output format")

var designCmd = &cobra.Command{
	Use:   "design",
	Short: "Print the designed coefficient set",
	Long: `Design every stage of the configured chain and print the quantized
filter coefficients, their response, the Goertzel bin, the AGC and the
smoother coefficients.`,
	Args: cobra.NoArgs,
	RunE: runDesign,
}

func init() {
	designCmd.Flags().StringP("format", "o", "yaml", "output format (yaml or text)")
	rootCmd.AddCommand(designCmd)
}

func runDesign(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != "yaml" && format != "text" {
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}

	settings, err := config.Get()
	if err != nil {
		return err
	}
	chainCfg, err := settings.ChainConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	report, err := design.Build(chainCfg)
	if err != nil {
		return err
	}

	if format == "text" {
		return report.WriteText(cmd.OutOrStdout())
	}
	out, err := report.YAML()
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
