package resources

// ---- Raw hardware as exposed by a platform provider ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// GPIO is one physical pin.
type GPIO interface {
	Number() int
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(bool)
	Get() bool
	// SetIRQ installs an interrupt handler. The handler runs in interrupt
	// context and must only touch wake sources.
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// Block is a peripheral controller (PIO block, USB, UART).
type Block interface {
	Name() string
}

// DMAChannel is one DMA channel.
type DMAChannel interface {
	Channel() int
}

// Provider resolves plan entries to hardware. It does not track ownership;
// the initializer does.
type Provider interface {
	Pin(n int) (GPIO, bool)
	Block(name string) (Block, bool)
	DMA(ch int) (DMAChannel, bool)
}
