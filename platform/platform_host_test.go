//go:build !rp2040 && !rp2350

package platform

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"picow-go/link"
	"picow-go/resources"
)

func TestFakePinFiresOnConfiguredEdge(t *testing.T) {
	p := NewFakePin(24)
	n := 0
	require.NoError(t, p.SetIRQ(resources.EdgeRising, func() { n++ }))

	p.Set(true)
	p.Set(false)
	p.Pulse()
	require.Equal(t, 2, n)

	require.NoError(t, p.ClearIRQ())
	p.Pulse()
	require.Equal(t, 2, n)
}

func TestConcurrentPulsesKeepEveryEdge(t *testing.T) {
	p := NewFakePin(24)
	var n atomic.Int32
	require.NoError(t, p.SetIRQ(resources.EdgeRising, func() { n.Add(1) }))

	const pulses = 200
	var wg sync.WaitGroup
	for i := 0; i < pulses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Pulse()
		}()
	}
	wg.Wait()
	require.Equal(t, int32(pulses), n.Load())
	require.True(t, p.Get())
}

func TestPinBankIsStableAndBounded(t *testing.T) {
	b := NewPinBank()
	a, ok := b.Get(23)
	require.True(t, ok)
	again, _ := b.Get(23)
	require.Same(t, a, again)

	_, ok = b.Get(30)
	require.False(t, ok)

	prov := HostProvider{Pins: b}
	_, ok = prov.Block("pio0")
	require.True(t, ok)
	_, ok = prov.Block("pio9")
	require.False(t, ok)
	_, ok = prov.DMA(12)
	require.False(t, ok)
}

// chipRead reads one frame the way the link driver does.
func chipRead(t *testing.T, c *SimChip) (link.Response, bool) {
	t.Helper()
	hdr := make([]byte, link.HeaderLen)
	require.NoError(t, c.Tx(nil, hdr))
	if hdr[0] == 0 {
		return link.Response{}, false
	}
	n := int(binary.LittleEndian.Uint16(hdr[2:]))
	body := make([]byte, n)
	require.NoError(t, c.Tx(nil, body))
	resp, err := link.ParseResponse(append(hdr, body...))
	require.NoError(t, err)
	return resp, true
}

func hello(fw, clm int) []byte {
	var p [8]byte
	binary.LittleEndian.PutUint32(p[0:], uint32(fw))
	binary.LittleEndian.PutUint32(p[4:], uint32(clm))
	return p[:]
}

func TestSimChipHandshakeAndCommands(t *testing.T) {
	c := NewSimChip(SimOptions{Rev: 1})
	irqs := 0
	c.Attach(nil, func() { irqs++ })

	_, ok := chipRead(t, c)
	require.False(t, ok, "idle chip reads zeros")

	require.NoError(t, c.Tx(link.AppendRequest(nil, link.KindFirmware, 0, make([]byte, 10)), nil))
	require.NoError(t, c.Tx(link.AppendRequest(nil, link.KindCLM, 1, make([]byte, 3)), nil))
	require.NoError(t, c.Tx(link.AppendRequest(nil, link.KindHello, 2, hello(10, 3)), nil))
	require.Equal(t, 1, irqs)

	resp, ok := chipRead(t, c)
	require.True(t, ok)
	require.Equal(t, link.KindHello, resp.Kind)
	require.Equal(t, uint8(2), resp.Seq)
	require.Equal(t, link.StatusOK, resp.Status)
	require.Equal(t, uint16(43439), binary.LittleEndian.Uint16(resp.Payload))
	require.True(t, c.Ready())

	// Split writes are reassembled.
	req := link.AppendRequest(nil, link.KindSetPin, 3, []byte{0, 1})
	require.NoError(t, c.Tx(req[:3], nil))
	require.NoError(t, c.Tx(req[3:], nil))
	resp, ok = chipRead(t, c)
	require.True(t, ok)
	require.Equal(t, link.KindSetPin, resp.Kind)
	require.Equal(t, uint8(1), c.Pins())

	require.NoError(t, c.Tx(link.AppendRequest(nil, link.KindPower, 4, []byte{9}), nil))
	resp, _ = chipRead(t, c)
	require.Equal(t, link.StatusUnsupported, resp.Status)

	fw, clm := c.Images()
	require.Equal(t, 10, fw)
	require.Equal(t, 3, clm)
	require.Len(t, c.History(), 1)
}

func TestSimChipResetsOnPowerCycle(t *testing.T) {
	on := true
	c := NewSimChip(SimOptions{})
	c.Attach(func() bool { return on }, nil)

	require.NoError(t, c.Tx(link.AppendRequest(nil, link.KindFirmware, 0, make([]byte, 4)), nil))
	require.NoError(t, c.Tx(link.AppendRequest(nil, link.KindHello, 1, hello(4, 0)), nil))
	_, ok := chipRead(t, c)
	require.True(t, ok)
	require.True(t, c.Ready())

	on = false
	_, ok = chipRead(t, c)
	require.False(t, ok)
	on = true
	_, ok = chipRead(t, c)
	require.False(t, ok)
	require.False(t, c.Ready())
}

func TestSimChipRejectsCommandsBeforeHandshake(t *testing.T) {
	c := NewSimChip(SimOptions{})
	require.NoError(t, c.Tx(link.AppendRequest(nil, link.KindSetPin, 0, []byte{0, 1}), nil))
	resp, ok := chipRead(t, c)
	require.True(t, ok)
	require.Equal(t, link.StatusError, resp.Status)
	require.Zero(t, c.Pins())
}

func TestSimChipLatencyDelaysResponses(t *testing.T) {
	const lat = 30 * time.Millisecond
	c := NewSimChip(SimOptions{Latency: lat})
	var irqs atomic.Int32
	c.Attach(nil, func() { irqs.Add(1) })

	start := time.Now()
	require.NoError(t, c.Tx(link.AppendRequest(nil, link.KindFirmware, 0, make([]byte, 4)), nil))
	require.NoError(t, c.Tx(link.AppendRequest(nil, link.KindHello, 1, hello(4, 0)), nil))
	_, ok := chipRead(t, c)
	require.False(t, ok, "hello ack readable before the latency passed")
	require.Zero(t, irqs.Load())

	require.Eventually(t, func() bool { return irqs.Load() == 1 }, time.Second, time.Millisecond)
	require.GreaterOrEqual(t, time.Since(start), lat)
	resp, ok := chipRead(t, c)
	require.True(t, ok)
	require.Equal(t, link.KindHello, resp.Kind)

	// Delayed responses keep request order.
	req := link.AppendRequest(nil, link.KindSetPin, 2, []byte{0, 1})
	req = link.AppendRequest(req, link.KindSetPin, 3, []byte{1, 1})
	require.NoError(t, c.Tx(req, nil))
	require.Eventually(t, func() bool { return irqs.Load() == 3 }, time.Second, time.Millisecond)
	for _, seq := range []uint8{2, 3} {
		resp, ok := chipRead(t, c)
		require.True(t, ok)
		require.Equal(t, seq, resp.Seq)
	}
	require.Equal(t, uint8(0b11), c.Pins())
}
