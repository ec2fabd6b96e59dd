// cmd/devices.go
package cmd

import (
	"fmt"

	"github.com/ColonelBlimp/cwdsp/internal/audio"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio capture devices",
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, _ []string) error {
	capture := audio.New(audio.DefaultConfig())
	if err := capture.Init(); err != nil {
		return fmt.Errorf("audio init: %w", err)
	}
	defer capture.Close()

	infos, err := capture.ListDevices()
	if err != nil {
		return fmt.Errorf("audio devices: %w", err)
	}

	out := cmd.OutOrStdout()
	for i := range infos {
		mark := ""
		if infos[i].IsDefault != 0 {
			mark = " (default)"
		}
		fmt.Fprintf(out, "%3d  %s%s\n", i, infos[i].Name(), mark)
	}
	if len(infos) == 0 {
		fmt.Fprintln(out, "no capture devices found")
	}
	return nil
}
