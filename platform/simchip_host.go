//go:build !rp2040 && !rp2350

package platform

import (
	"encoding/binary"
	"sync"
	"time"

	"picow-go/link"
)

// SimOptions shape the simulated co-processor.
type SimOptions struct {
	ChipID uint16 // reported in the hello ack (default 43439)
	Rev    uint8

	SilentHello bool // never acknowledge the handshake
	BadHello    bool // acknowledge the handshake with a malformed frame
	DropEvery   int  // swallow every Nth command without a response
	FailEvery   int  // answer every Nth command with an error status

	// Latency delays each response frame, and the host-wake interrupt that
	// announces it, after the request is written.
	Latency time.Duration
}

// SimCommand is one command the simulated chip applied.
type SimCommand struct {
	Kind link.Kind
	Seq  uint8
	Arg  [2]byte
}

// SimChip is a simulated co-processor behind a drivers.SPI. Writes are
// parsed as request frames; reads return queued response frames, or zeros
// when nothing is queued. Every queued frame raises the host-wake
// interrupt.
type SimChip struct {
	mu   sync.Mutex
	opts SimOptions

	powered func() bool
	irq     func()

	in      []byte
	out     [][]byte
	delayed [][]byte // waiting out Latency, oldest first
	gen     uint32   // bumped on reset; stale deliveries are ignored
	cur     []byte
	wasOn   bool
	ready   bool
	fwN     int
	clmN    int
	nCmd    int
	pins    uint8
	mode    link.PowerMode
	hellos  int
	hist    []SimCommand
}

func NewSimChip(opts SimOptions) *SimChip {
	if opts.ChipID == 0 {
		opts.ChipID = 43439
	}
	return &SimChip{opts: opts}
}

// Attach wires the chip to its power line and host-wake interrupt. A nil
// powered means always on.
func (c *SimChip) Attach(powered func() bool, irq func()) {
	c.mu.Lock()
	c.powered = powered
	c.irq = irq
	c.mu.Unlock()
}

// Tx implements drivers.SPI. The bus is half duplex: w is consumed first,
// then r is filled.
func (c *SimChip) Tx(w, r []byte) error {
	c.mu.Lock()
	if !c.checkPower() {
		c.mu.Unlock()
		clear(r)
		return nil
	}
	raise := 0
	if len(w) > 0 {
		c.in = append(c.in, w...)
		raise = c.parse()
	}
	c.read(r)
	c.mu.Unlock()

	for ; raise > 0; raise-- {
		c.raise()
	}
	return nil
}

// Transfer implements drivers.SPI.
func (c *SimChip) Transfer(b byte) (byte, error) {
	var r [1]byte
	err := c.Tx([]byte{b}, r[:])
	return r[0], err
}

// RaiseEvent queues an unsolicited event frame.
func (c *SimChip) RaiseEvent(code byte) {
	c.mu.Lock()
	if !c.ready {
		c.mu.Unlock()
		return
	}
	now := c.queue(link.AppendResponse(nil, link.KindEvent, 0, link.StatusOK, []byte{code}))
	c.mu.Unlock()
	if now {
		c.raise()
	}
}

func (c *SimChip) checkPower() bool {
	on := c.powered == nil || c.powered()
	if on && !c.wasOn {
		c.reset()
	}
	c.wasOn = on
	return on
}

func (c *SimChip) reset() {
	c.in, c.out, c.cur, c.delayed = nil, nil, nil, nil
	c.gen++
	c.ready = false
	c.fwN, c.clmN = 0, 0
	c.pins = 0
	c.mode = link.PowerNone
}

// parse consumes complete request frames and reports how many responses
// became readable at once.
func (c *SimChip) parse() int {
	queued := 0
	for len(c.in) >= link.HeaderLen {
		n := int(c.in[2]) | int(c.in[3])<<8
		if len(c.in) < link.HeaderLen+n {
			break
		}
		req, err := link.ParseRequest(c.in[:link.HeaderLen+n])
		c.in = c.in[link.HeaderLen+n:]
		if err != nil {
			continue
		}
		if resp := c.handle(req); resp != nil && c.queue(resp) {
			queued++
		}
	}
	return queued
}

func (c *SimChip) handle(req link.Request) []byte {
	switch req.Kind {
	case link.KindFirmware:
		c.fwN += len(req.Payload)
		return nil
	case link.KindCLM:
		c.clmN += len(req.Payload)
		return nil
	case link.KindHello:
		c.hellos++
		switch {
		case c.opts.SilentHello:
			return nil
		case c.opts.BadHello:
			return link.AppendResponse(nil, link.KindSetPin, req.Seq, link.StatusOK, nil)
		case c.fwN == 0 || len(req.Payload) < 8 || int(binary.LittleEndian.Uint32(req.Payload)) != c.fwN:
			return link.AppendResponse(nil, link.KindHello, req.Seq, link.StatusError, nil)
		}
		c.ready = true
		var p [3]byte
		binary.LittleEndian.PutUint16(p[:], c.opts.ChipID)
		p[2] = c.opts.Rev
		return link.AppendResponse(nil, link.KindHello, req.Seq, link.StatusOK, p[:])
	}

	if !c.ready {
		return link.AppendResponse(nil, req.Kind, req.Seq, link.StatusError, nil)
	}
	c.nCmd++
	if c.opts.DropEvery > 0 && c.nCmd%c.opts.DropEvery == 0 {
		return nil
	}
	if c.opts.FailEvery > 0 && c.nCmd%c.opts.FailEvery == 0 {
		return link.AppendResponse(nil, req.Kind, req.Seq, link.StatusError, nil)
	}

	cmd := SimCommand{Kind: req.Kind, Seq: req.Seq}
	copy(cmd.Arg[:], req.Payload)
	switch req.Kind {
	case link.KindSetPin:
		if len(req.Payload) < 2 || req.Payload[0] >= link.MaxGPIO {
			return link.AppendResponse(nil, req.Kind, req.Seq, link.StatusError, nil)
		}
		bit := uint8(1) << req.Payload[0]
		if req.Payload[1] != 0 {
			c.pins |= bit
		} else {
			c.pins &^= bit
		}
	case link.KindPower:
		if len(req.Payload) < 1 || link.PowerMode(req.Payload[0]) > link.PowerAggressive {
			return link.AppendResponse(nil, req.Kind, req.Seq, link.StatusUnsupported, nil)
		}
		c.mode = link.PowerMode(req.Payload[0])
	default:
		return link.AppendResponse(nil, req.Kind, req.Seq, link.StatusUnsupported, nil)
	}
	c.hist = append(c.hist, cmd)
	return link.AppendResponse(nil, req.Kind, req.Seq, link.StatusOK, nil)
}

// read streams queued frames into r, zero-filling past the last byte.
func (c *SimChip) read(r []byte) {
	for len(r) > 0 {
		if len(c.cur) == 0 {
			if len(c.out) == 0 {
				clear(r)
				return
			}
			c.cur, c.out = c.out[0], c.out[1:]
		}
		n := copy(r, c.cur)
		c.cur = c.cur[n:]
		r = r[n:]
	}
}

// queue makes frame readable now, or after Latency. It reports whether the
// frame is readable now. c.mu is held.
func (c *SimChip) queue(frame []byte) bool {
	if c.opts.Latency <= 0 {
		c.out = append(c.out, frame)
		return true
	}
	c.delayed = append(c.delayed, frame)
	gen := c.gen
	time.AfterFunc(c.opts.Latency, func() { c.deliver(gen) })
	return false
}

// deliver moves the oldest delayed frame to the read queue and raises the
// interrupt. Each call moves one frame, so order is kept whichever timer
// fires first.
func (c *SimChip) deliver(gen uint32) {
	c.mu.Lock()
	if gen != c.gen || len(c.delayed) == 0 {
		c.mu.Unlock()
		return
	}
	c.out = append(c.out, c.delayed[0])
	c.delayed = c.delayed[1:]
	c.mu.Unlock()
	c.raise()
}

func (c *SimChip) raise() {
	c.mu.Lock()
	irq := c.irq
	c.mu.Unlock()
	if irq != nil {
		irq()
	}
}

// ---- inspection ----

// Pins returns the chip's GPIO levels, bit i for GPIO i.
func (c *SimChip) Pins() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pins
}

func (c *SimChip) Mode() link.PowerMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Ready reports whether the handshake completed since the last power-up.
func (c *SimChip) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Images returns the uploaded firmware and CLM byte counts.
func (c *SimChip) Images() (fw, clm int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fwN, c.clmN
}

// History returns the applied commands in order.
func (c *SimChip) History() []SimCommand {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SimCommand(nil), c.hist...)
}
