package link

import (
	"go.uber.org/multierr"

	"picow-go/resources"
)

// BusPins are the resources the co-processor bus takes over. The platform
// turns them into a drivers.SPI.
type BusPins struct {
	CS    *resources.Pin
	Data  *resources.Pin // data in/out, doubles as host-wake
	Clock *resources.Pin
	PIO   *resources.Periph
	DMA   *resources.Channel
}

// Owner is the name the link task is recorded under in the ownership table.
const Owner = "link"

// TakeBus moves the bus handles to the link task.
func TakeBus(cs, data, clk *resources.Pin, pio *resources.Periph, dma *resources.Channel) BusPins {
	return BusPins{
		CS:    cs.Move(Owner),
		Data:  data.Move(Owner),
		Clock: clk.Move(Owner),
		PIO:   pio.Move(Owner),
		DMA:   dma.Move(Owner),
	}
}

// Err reports every handle in p that is no longer live.
func (p BusPins) Err() error {
	return multierr.Combine(p.CS.Err(), p.Data.Err(), p.Clock.Err(), p.PIO.Err(), p.DMA.Err())
}
