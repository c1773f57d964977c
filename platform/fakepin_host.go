//go:build !rp2040 && !rp2350

package platform

import (
	"sync"

	"picow-go/resources"
)

// FakePin implements resources.GPIO for host builds. Set fires the
// installed interrupt handler on matching edges, as hardware would.
type FakePin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	modeOut bool
	pull    resources.Pull
	irqEdge resources.Edge
	irqFunc func()
	sets    int
}

func NewFakePin(n int) *FakePin { return &FakePin{number: n} }

func (p *FakePin) ConfigureInput(pull resources.Pull) error {
	p.mu.Lock()
	p.modeOut = false
	p.pull = pull
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.level = initial
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	old := p.level
	p.level = level
	p.sets++
	irq := p.irqFunc
	want := irqWanted(p.irqEdge, edgeFrom(old, level))
	p.mu.Unlock()
	if want && irq != nil {
		irq()
	}
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	v := p.level
	p.mu.RUnlock()
	return v
}

func (p *FakePin) Toggle() { p.Set(!p.Get()) }

// Pulse drives a low-high edge, the way a peripheral raises an interrupt.
// The edge is atomic: concurrent pulses each deliver their rising edge.
func (p *FakePin) Pulse() {
	p.mu.Lock()
	fell := p.level && irqWanted(p.irqEdge, resources.EdgeFalling)
	rose := irqWanted(p.irqEdge, resources.EdgeRising)
	p.level = true
	p.sets += 2
	irq := p.irqFunc
	p.mu.Unlock()
	if irq == nil {
		return
	}
	if fell {
		irq()
	}
	if rose {
		irq()
	}
}

func (p *FakePin) Number() int { return p.number }

// IsOutput reports the configured direction.
func (p *FakePin) IsOutput() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modeOut
}

// Sets counts calls to Set.
func (p *FakePin) Sets() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sets
}

func (p *FakePin) SetIRQ(edge resources.Edge, handler func()) error {
	p.mu.Lock()
	p.irqEdge = edge
	p.irqFunc = handler
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ClearIRQ() error {
	p.mu.Lock()
	p.irqEdge = resources.EdgeNone
	p.irqFunc = nil
	p.mu.Unlock()
	return nil
}

func edgeFrom(old, new bool) resources.Edge {
	switch {
	case !old && new:
		return resources.EdgeRising
	case old && !new:
		return resources.EdgeFalling
	default:
		return resources.EdgeNone
	}
}

func irqWanted(cfg, seen resources.Edge) bool {
	switch cfg {
	case resources.EdgeBoth:
		return seen == resources.EdgeRising || seen == resources.EdgeFalling
	case resources.EdgeNone:
		return false
	default:
		return cfg == seen
	}
}

// PinBank returns stable *FakePin instances per number.
type PinBank struct {
	mu   sync.Mutex
	pins map[int]*FakePin
}

func NewPinBank() *PinBank { return &PinBank{pins: make(map[int]*FakePin)} }

// Get returns pin n, creating it on first use. Numbers outside the RP2040
// GPIO range report false.
func (b *PinBank) Get(n int) (*FakePin, bool) {
	if n < 0 || n > rp2GPIOMax {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pins[n]
	if !ok {
		p = NewFakePin(n)
		b.pins[n] = p
	}
	return p, true
}

// HostProvider is a resources.Provider backed by a PinBank.
type HostProvider struct {
	Pins *PinBank
}

func (h HostProvider) Pin(n int) (resources.GPIO, bool) {
	p, ok := h.Pins.Get(n)
	if !ok {
		return nil, false
	}
	return p, true
}

func (HostProvider) Block(name string) (resources.Block, bool) { return lookupBlock(name) }
func (HostProvider) DMA(ch int) (resources.DMAChannel, bool)   { return lookupDMA(ch) }
