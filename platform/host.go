//go:build !rp2040 && !rp2350

package platform

import (
	"os"

	"tinygo.org/x/drivers"

	"picow-go/diag"
	"picow-go/errcode"
	"picow-go/firmware"
	"picow-go/link"
	"picow-go/platform/boards"
	"picow-go/resources"
	"picow-go/x/timex"
)

// HostOptions configure the simulated board.
type HostOptions struct {
	Board boards.Board
	Chip  SimOptions
	Clock timex.Clock // nil: monotonic

	// Transport receives diagnostics; nil writes lines to stdout.
	Transport diag.Transport
	// Async delivers diagnostics from a background sender that raises the
	// diagnostic completion interrupt.
	Async bool
}

// Host is a simulated Pico W.
type Host struct {
	Pins *PinBank
	Chip *SimChip

	opts  HostOptions
	async *diag.AsyncTransport
}

func NewHost(opts HostOptions) *Host {
	if opts.Board.Name == "" {
		opts.Board = boards.Selected
	}
	return &Host{Pins: NewPinBank(), Chip: NewSimChip(opts.Chip), opts: opts}
}

// Default is the simulated board with default options.
func Default() Hardware { return NewHost(HostOptions{}).Hardware() }

func (h *Host) Hardware() Hardware {
	fw, clm := firmware.Images()
	return Hardware{
		Name:     h.opts.Board.Name + "-sim",
		Provider: HostProvider{Pins: h.Pins},
		Clock:    h.opts.Clock,
		Firmware: fw,
		CLM:      clm,
		LinkBus:  h.linkBus,
		Diag:     h.diag,
		Halt:     func() { os.Exit(1) },
	}
}

// Close stops background transports.
func (h *Host) Close() {
	if h.async != nil {
		h.async.Close()
	}
}

// PowerPin returns the simulated co-processor power pin.
func (h *Host) PowerPin() *FakePin {
	p, _ := h.Pins.Get(h.opts.Board.Plan.PowerPin)
	return p
}

func (h *Host) linkBus(p link.BusPins, wake func()) (drivers.SPI, error) {
	if err := p.Err(); err != nil {
		return nil, err
	}
	data, ok := p.Data.HW().(*FakePin)
	if !ok {
		return nil, &errcode.E{C: errcode.Unsupported, Op: "platform.link_bus", Msg: "data pin is not simulated"}
	}
	if err := p.CS.HW().ConfigureOutput(true); err != nil {
		return nil, errcode.Wrap("platform.link_bus", err)
	}
	if err := data.ConfigureInput(resources.PullDown); err != nil {
		return nil, errcode.Wrap("platform.link_bus", err)
	}
	if err := data.SetIRQ(resources.EdgeRising, wake); err != nil {
		return nil, errcode.Wrap("platform.link_bus", err)
	}
	pwr := h.PowerPin()
	h.Chip.Attach(pwr.Get, data.Pulse)
	return h.Chip, nil
}

func (h *Host) diag(port *resources.Periph, done func()) (diag.Transport, error) {
	if err := port.Err(); err != nil {
		return nil, err
	}
	t := h.opts.Transport
	if t == nil {
		t = diag.NewWriterTransport(os.Stdout)
	}
	if h.opts.Async {
		h.async = diag.NewAsyncTransport(t, done)
		return h.async, nil
	}
	return t, nil
}
