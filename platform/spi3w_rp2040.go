//go:build rp2040 || rp2350

package platform

import "picow-go/resources"

// spi3w is a bit-banged half-duplex SPI over the co-processor's CS, data
// and clock lines. The data line doubles as host-wake: between
// transactions it is an input with a rising-edge interrupt.
//
// It implements drivers.SPI. Bytes are sent MSB first; data is driven on
// the falling clock edge and sampled on the rising edge.
type spi3w struct {
	cs, dio, clk resources.GPIO
	wake         func()
}

func (b *spi3w) configure() error {
	if err := b.cs.ConfigureOutput(true); err != nil {
		return err
	}
	if err := b.clk.ConfigureOutput(false); err != nil {
		return err
	}
	return b.listen()
}

// listen returns the data line to host-wake duty.
func (b *spi3w) listen() error {
	if err := b.dio.ConfigureInput(resources.PullDown); err != nil {
		return err
	}
	return b.dio.SetIRQ(resources.EdgeRising, b.wake)
}

func (b *spi3w) Tx(w, r []byte) error {
	if err := b.dio.ClearIRQ(); err != nil {
		return err
	}
	b.cs.Set(false)
	if len(w) > 0 {
		if err := b.dio.ConfigureOutput(false); err != nil {
			b.cs.Set(true)
			return err
		}
		for _, v := range w {
			b.writeByte(v)
		}
	}
	if len(r) > 0 {
		if err := b.dio.ConfigureInput(resources.PullDown); err != nil {
			b.cs.Set(true)
			return err
		}
		for i := range r {
			r[i] = b.readByte()
		}
	}
	b.cs.Set(true)
	return b.listen()
}

func (b *spi3w) Transfer(v byte) (byte, error) {
	var r [1]byte
	err := b.Tx([]byte{v}, r[:])
	return r[0], err
}

func (b *spi3w) writeByte(v byte) {
	for i := 7; i >= 0; i-- {
		b.dio.Set(v&(1<<i) != 0)
		b.clk.Set(true)
		b.clk.Set(false)
	}
}

func (b *spi3w) readByte() byte {
	var v byte
	for i := 7; i >= 0; i-- {
		b.clk.Set(true)
		if b.dio.Get() {
			v |= 1 << i
		}
		b.clk.Set(false)
	}
	return v
}
