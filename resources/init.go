// Package resources claims the singleton hardware exactly once at startup and
// turns it into capability handles, each held by exactly one owner.
package resources

import (
	"sync/atomic"

	"go.uber.org/multierr"

	"picow-go/errcode"
	"picow-go/x/conv"
)

// Plan names the physical resources a board provides for the system.
type Plan struct {
	PowerPin int    // WL_ON
	CSPin    int    // WL_CS
	DataPin  int    // WL_D (data in/out + host wake)
	ClockPin int    // WL_CLK
	PIO      string // e.g. "pio0"
	Diag     string // e.g. "usb", "uart0"
	DMA      int    // DMA channel for the PIO SPI
}

// Peripherals is the full set of handles produced at startup. Each field is
// moved into exactly one owner during boot.
type Peripherals struct {
	WLPower *Pin
	WLCS    *Pin
	WLData  *Pin
	WLClock *Pin
	PIO     *Periph
	Diag    *Periph
	DMA     *Channel
}

// bootOwner holds handles between Init and the moves done by boot wiring.
const bootOwner = "boot"

var claimed atomic.Bool

// Init claims every resource in plan. It succeeds at most once per process;
// any failure is a configuration error the caller must treat as fatal.
// Nothing is ever released.
func Init(p Provider, plan Plan) (*Peripherals, error) {
	if !claimed.CompareAndSwap(false, true) {
		return nil, &errcode.E{C: errcode.AlreadyClaimed, Op: "resources.init", Msg: "peripherals already taken"}
	}
	if p == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "resources.init", Msg: "no provider"}
	}

	var errs error
	seen := map[int]ID{}
	pin := func(id ID, n int) *Pin {
		if prev, dup := seen[n]; dup {
			errs = multierr.Append(errs, claimErr(errcode.AlreadyClaimed, id, "pin "+conv.Itoa(n)+" also planned for "+prev.String()))
			return nil
		}
		g, ok := p.Pin(n)
		if !ok {
			errs = multierr.Append(errs, claimErr(errcode.UnknownResource, id, "pin "+conv.Itoa(n)))
			return nil
		}
		seen[n] = id
		return mint(id, g, bootOwner)
	}
	block := func(id ID, name string) *Periph {
		b, ok := p.Block(name)
		if !ok {
			errs = multierr.Append(errs, claimErr(errcode.UnknownResource, id, "block "+name))
			return nil
		}
		return mint(id, b, bootOwner)
	}

	per := &Peripherals{
		WLPower: pin(WLPower, plan.PowerPin),
		WLCS:    pin(WLCS, plan.CSPin),
		WLData:  pin(WLData, plan.DataPin),
		WLClock: pin(WLClock, plan.ClockPin),
		PIO:     block(PIO, plan.PIO),
		Diag:    block(DiagPort, plan.Diag),
	}
	if ch, ok := p.DMA(plan.DMA); ok {
		per.DMA = mint(DMA, ch, bootOwner)
	} else {
		errs = multierr.Append(errs, claimErr(errcode.UnknownResource, DMA, "channel "+conv.Itoa(plan.DMA)))
	}

	if errs != nil {
		return nil, errs
	}
	return per, nil
}

// Errors splits an Init error into its individual claim failures.
func Errors(err error) []error { return multierr.Errors(err) }

func claimErr(c errcode.Code, id ID, msg string) error {
	return &errcode.E{C: c, Op: "resources.claim " + id.String(), Msg: msg}
}
