package resources

import "picow-go/errcode"

// ID names one physical resource.
type ID uint8

const (
	WLPower ID = iota // co-processor power/reset (WL_ON)
	WLCS              // co-processor chip select
	WLData            // co-processor data line (shared with host-wake)
	WLClock           // co-processor clock
	PIO               // serial-peripheral controller block
	DiagPort          // diagnostic transport controller
	DMA               // DMA channel for the serial-peripheral block

	NumIDs
)

func (id ID) String() string {
	switch id {
	case WLPower:
		return "wl_power"
	case WLCS:
		return "wl_cs"
	case WLData:
		return "wl_data"
	case WLClock:
		return "wl_clock"
	case PIO:
		return "pio"
	case DiagPort:
		return "diag_port"
	case DMA:
		return "dma"
	default:
		return "unknown"
	}
}

// Handle is exclusive ownership of one physical resource.
//
// Handles are used by pointer and must not be copied (go vet copylocks).
// Ownership is transferred with Move, which invalidates the source handle.
// Using an invalidated handle is a programming error and panics.
type Handle[T any] struct {
	noCopy noCopy

	id   ID
	hw   T
	live bool
}

type (
	Pin     = Handle[GPIO]
	Periph  = Handle[Block]
	Channel = Handle[DMAChannel]
)

func (h *Handle[T]) ID() ID { return h.id }

// Live reports whether h still owns its resource.
func (h *Handle[T]) Live() bool { return h != nil && h.live }

// Err reports errcode.ResourceMoved when h no longer owns its resource.
func (h *Handle[T]) Err() error {
	if h.Live() {
		return nil
	}
	id := "nil"
	if h != nil {
		id = h.id.String()
	}
	return &errcode.E{C: errcode.ResourceMoved, Op: "resources.handle", Msg: id}
}

// HW returns the hardware behind h.
func (h *Handle[T]) HW() T {
	if !h.Live() {
		panic("resources: use of moved handle")
	}
	return h.hw
}

// Move hands the resource to owner and returns the new handle. h is dead
// afterwards.
func (h *Handle[T]) Move(owner string) *Handle[T] {
	if !h.Live() {
		panic("resources: move of moved handle")
	}
	n := &Handle[T]{id: h.id, hw: h.hw, live: true}
	var zero T
	h.hw = zero
	h.live = false
	table.transfer(h.id, owner)
	return n
}

func mint[T any](id ID, hw T, owner string) *Handle[T] {
	table.transfer(id, owner)
	return &Handle[T]{id: id, hw: hw, live: true}
}

// ---- Ownership table (startup and task context only) ----

type ownerTable struct {
	owner  [NumIDs]string
	moves  [NumIDs]uint32
	minted [NumIDs]bool
}

var table ownerTable

func (t *ownerTable) transfer(id ID, owner string) {
	t.owner[id] = owner
	if t.minted[id] {
		t.moves[id]++
	}
	t.minted[id] = true
}

// Ownership describes the current holder of one resource.
type Ownership struct {
	ID    ID
	Owner string
	Moves uint32
}

// Owners returns the holder of every claimed resource.
func Owners() []Ownership {
	var out []Ownership
	for id := ID(0); id < NumIDs; id++ {
		if table.minted[id] {
			out = append(out, Ownership{ID: id, Owner: table.owner[id], Moves: table.moves[id]})
		}
	}
	return out
}

// OwnerOf returns the holder of id, or "" when unclaimed.
func OwnerOf(id ID) string {
	if id >= NumIDs {
		return ""
	}
	return table.owner[id]
}

// noCopy may be embedded in structs which must not be copied after first use.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
