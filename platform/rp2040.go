//go:build rp2040 || rp2350

package platform

import (
	"machine"
	"time"

	"github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers"

	"picow-go/diag"
	"picow-go/errcode"
	"picow-go/firmware"
	"picow-go/link"
	"picow-go/platform/boards"
	"picow-go/resources"
)

// DiagBaud is the UART rate for boards that log over uart0/uart1.
const DiagBaud = 115200

// Default is the board selected at build time.
func Default() Hardware {
	fw, clm := firmware.Images()
	return Hardware{
		Name:     boards.Selected.Name,
		Provider: rp2Provider{},
		Firmware: fw,
		CLM:      clm,
		LinkBus:  linkBus,
		Diag:     diagTransport,
		Halt:     halt,
	}
}

func halt() {
	for {
		time.Sleep(time.Hour)
	}
}

// ---- provider ----

type rp2Provider struct{}

func (rp2Provider) Pin(n int) (resources.GPIO, bool) {
	if n < 0 || n > rp2GPIOMax {
		return nil, false
	}
	return &rp2Pin{p: machine.Pin(n), n: n}, true
}

func (rp2Provider) Block(name string) (resources.Block, bool) { return lookupBlock(name) }
func (rp2Provider) DMA(ch int) (resources.DMAChannel, bool)   { return lookupDMA(ch) }

type rp2Pin struct {
	p machine.Pin
	n int
}

func (r *rp2Pin) ConfigureInput(pull resources.Pull) error {
	var mode machine.PinMode
	switch pull {
	case resources.PullUp:
		mode = machine.PinInputPullup
	case resources.PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2Pin) Set(level bool) { r.p.Set(level) }
func (r *rp2Pin) Get() bool      { return r.p.Get() }
func (r *rp2Pin) Number() int    { return r.n }

// The handler runs in interrupt context.
func (r *rp2Pin) SetIRQ(edge resources.Edge, handler func()) error {
	return r.p.SetInterrupt(toPinChange(edge), func(machine.Pin) { handler() })
}

func (r *rp2Pin) ClearIRQ() error {
	var zero machine.PinChange
	return r.p.SetInterrupt(zero, nil)
}

func toPinChange(e resources.Edge) machine.PinChange {
	switch e {
	case resources.EdgeRising:
		return machine.PinRising
	case resources.EdgeFalling:
		return machine.PinFalling
	case resources.EdgeBoth:
		return machine.PinToggle
	default:
		var zero machine.PinChange
		return zero
	}
}

// ---- link bus ----

func linkBus(p link.BusPins, wake func()) (drivers.SPI, error) {
	if err := p.Err(); err != nil {
		return nil, err
	}
	b := &spi3w{
		cs:   p.CS.HW(),
		dio:  p.Data.HW(),
		clk:  p.Clock.HW(),
		wake: wake,
	}
	if err := b.configure(); err != nil {
		return nil, errcode.Wrap("platform.link_bus", err)
	}
	return b, nil
}

// ---- diagnostics ----

func diagTransport(port *resources.Periph, _ func()) (diag.Transport, error) {
	if err := port.Err(); err != nil {
		return nil, err
	}
	switch name := port.HW().Name(); name {
	case "usb":
		return diag.NewWriterTransport(machine.Serial), nil
	case "uart0", "uart1":
		u := uartx.UART0
		tx, rx := machine.UART0_TX_PIN, machine.UART0_RX_PIN
		if name == "uart1" {
			u = uartx.UART1
			tx, rx = machine.UART1_TX_PIN, machine.UART1_RX_PIN
		}
		if err := u.Configure(uartx.UARTConfig{BaudRate: DiagBaud, TX: tx, RX: rx}); err != nil {
			return nil, &errcode.E{C: errcode.TransportFailed, Op: "platform.diag", Msg: name, Err: err}
		}
		return diag.NewWriterTransport(u), nil
	default:
		return nil, &errcode.E{C: errcode.Unsupported, Op: "platform.diag", Msg: name}
	}
}
