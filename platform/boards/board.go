// Package boards describes the boards the firmware runs on. A board names
// the resources the system claims at startup; it carries no operating
// parameters.
package boards

import "picow-go/resources"

type Board struct {
	Name string
	Plan resources.Plan

	// LED is the user LED, when it is a co-processor GPIO (Pico W: 0).
	LED int
}

// PicoW is the Raspberry Pi Pico W with diagnostics over USB CDC.
var PicoW = Board{
	Name: "pico_w",
	Plan: resources.Plan{
		PowerPin: 23, // WL_ON
		CSPin:    25, // WL_CS
		DataPin:  24, // WL_D
		ClockPin: 29, // WL_CLK
		PIO:      "pio0",
		Diag:     "usb",
		DMA:      0,
	},
	LED: 0,
}

// PicoWUART is the Pico W with diagnostics on UART0 (GP0/GP1).
var PicoWUART = Board{
	Name: "pico_w_uart",
	Plan: func() resources.Plan {
		p := PicoW.Plan
		p.Diag = "uart0"
		return p
	}(),
	LED: 0,
}

// All lists the known boards.
var All = []Board{PicoW, PicoWUART}

// ByName looks up a known board.
func ByName(name string) (Board, bool) {
	for _, b := range All {
		if b.Name == name {
			return b, true
		}
	}
	return Board{}, false
}
