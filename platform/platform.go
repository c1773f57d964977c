// Package platform adapts a board to the system: the resource provider, the
// co-processor bus, the diagnostic transport and the idle and halt hooks.
//
// rp2040 builds talk to machine; host builds simulate the board (FakePin,
// SimChip) so the whole system runs under go test and cmd/picow-sim.
package platform

import (
	"tinygo.org/x/drivers"

	"picow-go/diag"
	"picow-go/link"
	"picow-go/resources"
	"picow-go/sched"
	"picow-go/x/timex"
)

// Hardware is everything boot needs from a platform.
type Hardware struct {
	Name     string
	Provider resources.Provider
	Clock    timex.Clock
	Idler    sched.Idler

	Firmware []byte
	CLM      []byte

	// LinkBus builds the co-processor bus from the handles it now owns. wake
	// is the host-wake interrupt handler.
	LinkBus func(pins link.BusPins, wake func()) (drivers.SPI, error)

	// Diag builds the diagnostic transport on port. done is the transport's
	// completion interrupt handler; synchronous transports ignore it.
	Diag func(port *resources.Periph, done func()) (diag.Transport, error)

	// Halt never returns on MCU builds.
	Halt func()
}

// block is a named peripheral controller.
type block string

func (b block) Name() string { return string(b) }

type dmaChannel int

func (c dmaChannel) Channel() int { return int(c) }

// Controllers present on RP2040.
var (
	rp2Blocks = []string{"pio0", "pio1", "usb", "uart0", "uart1"}
)

const (
	rp2GPIOMax = 29
	rp2DMAMax  = 11
)

func lookupBlock(name string) (resources.Block, bool) {
	for _, b := range rp2Blocks {
		if b == name {
			return block(name), true
		}
	}
	return nil, false
}

func lookupDMA(ch int) (resources.DMAChannel, bool) {
	if ch < 0 || ch > rp2DMAMax {
		return nil, false
	}
	return dmaChannel(ch), true
}
