// Command picow-sim runs the firmware against a simulated Pico W: the
// scheduler, link driver and blink task are the ones flashed onto the
// board, the co-processor is platform.SimChip and diagnostics go to zap.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "picow-sim",
	Short:        "Run the Pico W firmware on the host",
	Long:         "Run the Pico W firmware against a simulated wireless co-processor, with diagnostics on stderr and optionally MQTT.",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(runCmd, boardsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
