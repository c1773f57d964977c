package resources

import (
	"testing"

	"github.com/stretchr/testify/require"

	"picow-go/errcode"
)

type fakePin struct{ n int }

func (p *fakePin) Number() int                { return p.n }
func (p *fakePin) ConfigureInput(Pull) error  { return nil }
func (p *fakePin) ConfigureOutput(bool) error { return nil }
func (p *fakePin) Set(bool)                   {}
func (p *fakePin) Get() bool                  { return false }
func (p *fakePin) SetIRQ(Edge, func()) error  { return nil }
func (p *fakePin) ClearIRQ() error            { return nil }

type fakeBlock string

func (b fakeBlock) Name() string { return string(b) }

type fakeDMA int

func (d fakeDMA) Channel() int { return int(d) }

type fakeProvider struct{ maxPin int }

func (f fakeProvider) Pin(n int) (GPIO, bool) {
	if n < 0 || n > f.maxPin {
		return nil, false
	}
	return &fakePin{n: n}, true
}

func (f fakeProvider) Block(name string) (Block, bool) {
	switch name {
	case "pio0", "usb", "uart0":
		return fakeBlock(name), true
	}
	return nil, false
}

func (f fakeProvider) DMA(ch int) (DMAChannel, bool) {
	if ch < 0 || ch > 11 {
		return nil, false
	}
	return fakeDMA(ch), true
}

var picoW = Plan{PowerPin: 23, CSPin: 25, DataPin: 24, ClockPin: 29, PIO: "pio0", Diag: "usb", DMA: 0}

func resetForTest(t *testing.T) {
	t.Helper()
	claimed.Store(false)
	table = ownerTable{}
	t.Cleanup(func() {
		claimed.Store(false)
		table = ownerTable{}
	})
}

func TestInitClaimsEverythingOnce(t *testing.T) {
	resetForTest(t)

	per, err := Init(fakeProvider{maxPin: 29}, picoW)
	require.NoError(t, err)
	require.Equal(t, 23, per.WLPower.HW().Number())
	require.Equal(t, "pio0", per.PIO.HW().Name())
	require.Equal(t, 0, per.DMA.HW().Channel())

	for _, o := range Owners() {
		require.Equal(t, bootOwner, o.Owner, o.ID.String())
	}
	require.Len(t, Owners(), int(NumIDs))

	_, err = Init(fakeProvider{maxPin: 29}, picoW)
	require.Equal(t, errcode.AlreadyClaimed, errcode.Of(err))
}

func TestInitFailsWholeStartup(t *testing.T) {
	resetForTest(t)

	plan := picoW
	plan.ClockPin = 40 // not on this board
	plan.CSPin = 23    // collides with the power pin
	plan.Diag = "spi9"

	per, err := Init(fakeProvider{maxPin: 29}, plan)
	require.Nil(t, per)
	errs := Errors(err)
	require.Len(t, errs, 3)
	require.Equal(t, errcode.AlreadyClaimed, errcode.Of(errs[0]))
	require.Equal(t, errcode.UnknownResource, errcode.Of(errs[1]))
	require.Equal(t, errcode.UnknownResource, errcode.Of(errs[2]))

	// A failed startup still consumed the one allowed claim.
	_, err = Init(fakeProvider{maxPin: 29}, picoW)
	require.Equal(t, errcode.AlreadyClaimed, errcode.Of(err))
}

func TestMoveTransfersOwnershipExclusively(t *testing.T) {
	resetForTest(t)

	per, err := Init(fakeProvider{maxPin: 29}, picoW)
	require.NoError(t, err)

	pwr := per.WLPower.Move("link")
	require.False(t, per.WLPower.Live())
	require.True(t, pwr.Live())
	require.Equal(t, "link", OwnerOf(WLPower))
	require.Panics(t, func() { per.WLPower.HW() })
	require.Panics(t, func() { per.WLPower.Move("app") })
	require.Equal(t, errcode.ResourceMoved, errcode.Of(per.WLPower.Err()))
	require.NoError(t, pwr.Err())

	var none *Pin
	require.Equal(t, errcode.ResourceMoved, errcode.Of(none.Err()))

	diag := per.Diag.Move("diag")
	require.Equal(t, "usb", diag.HW().Name())

	// Every resource has exactly one owner and each handle's owner is the
	// only live holder.
	owners := map[ID]string{}
	for _, o := range Owners() {
		_, dup := owners[o.ID]
		require.False(t, dup)
		owners[o.ID] = o.Owner
	}
	require.Equal(t, "link", owners[WLPower])
	require.Equal(t, "diag", owners[DiagPort])
	require.Equal(t, bootOwner, owners[WLClock])
}
