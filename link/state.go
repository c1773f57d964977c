package link

import "sync/atomic"

// State is the link driver's lifecycle.
type State uint8

const (
	Uninitialized State = iota
	PoweringUp
	Negotiating
	Ready
	Degraded
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case PoweringUp:
		return "powering_up"
	case Negotiating:
		return "negotiating"
	case Ready:
		return "ready"
	case Degraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// PowerMode is the co-processor's power-management mode.
type PowerMode uint8

const (
	PowerNone        PowerMode = iota // no power saving
	PowerPerformance                  // save power, wake fast
	PowerSave                         // default power saving
	PowerAggressive                   // lowest power, slowest wake
)

func (m PowerMode) String() string {
	switch m {
	case PowerNone:
		return "none"
	case PowerPerformance:
		return "performance"
	case PowerSave:
		return "powersave"
	case PowerAggressive:
		return "aggressive"
	default:
		return "unknown"
	}
}

// MaxGPIO is the number of co-processor GPIOs reachable through SetPin.
const MaxGPIO = 3

// Status is the published, read-only view of the link driver.
type Status struct {
	State State
	Mode  PowerMode
	Pins  uint8 // bit i is the last acknowledged level of GPIO i
}

// Pin reports the last acknowledged level of co-processor GPIO i.
func (s Status) Pin(i int) bool { return i >= 0 && i < MaxGPIO && s.Pins&(1<<i) != 0 }

// published packs a Status into one word so readers never see a torn value.
type published struct{ w atomic.Uint32 }

func (p *published) store(s Status) {
	p.w.Store(uint32(s.State) | uint32(s.Mode)<<8 | uint32(s.Pins)<<16)
}

func (p *published) load() Status {
	w := p.w.Load()
	return Status{State: State(w), Mode: PowerMode(w >> 8), Pins: uint8(w >> 16)}
}

// Shared is the driver state owned by the link task.
type Shared struct {
	State    State
	ChipID   uint16
	ChipRev  uint8
	FWSize   int
	CLMSize  int
	Mode     PowerMode
	Pins     uint8
	LastCmd  Kind
	Seq      uint8
	Commands uint32 // completed successfully
	Failures uint32 // error status or malformed response
	Timeouts uint32
	Events   uint32
}

func (s *Shared) status() Status { return Status{State: s.State, Mode: s.Mode, Pins: s.Pins} }
