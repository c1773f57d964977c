package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"picow-go/platform/boards"
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List the known boards and their pin plans",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		for _, b := range boards.All {
			p := b.Plan
			fmt.Fprintf(out, "%-14s power=%d cs=%d data=%d clock=%d pio=%s diag=%s dma=%d\n",
				b.Name, p.PowerPin, p.CSPin, p.DataPin, p.ClockPin, p.PIO, p.Diag, p.DMA)
		}
	},
}
