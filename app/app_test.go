package app_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"picow-go/app"
	"picow-go/diag"
	"picow-go/link"
	"picow-go/platform"
	"picow-go/platform/boards"
	"picow-go/resources"
	"picow-go/sched"
	"picow-go/x/timex"
)

var (
	bank *platform.PinBank
	per  *resources.Peripherals
)

func TestMain(m *testing.M) {
	bank = platform.NewPinBank()
	var err error
	per, err = resources.Init(platform.HostProvider{Pins: bank}, boards.PicoW.Plan)
	if err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type rig struct {
	s    *sched.Scheduler
	clk  *timex.Manual
	chip *platform.SimChip
	q    *diag.Queue
	run  *link.Runner
	app  *app.Task
	lcfg link.Config
}

func newRig(t *testing.T, opts platform.SimOptions) *rig {
	t.Helper()
	per.WLPower = per.WLPower.Move(link.Owner)

	r := &rig{clk: &timex.Manual{}, q: diag.NewQueue(256), lcfg: link.DefaultConfig()}
	r.s = sched.New(r.clk, nil)
	r.chip = platform.NewSimChip(opts)
	log := diag.NewLogger(r.q, r.clk, diag.LevelInfo)

	ctl, run := link.New(r.lcfg, per.WLPower, r.chip, make([]byte, 128), make([]byte, 32), log)
	pwr, _ := bank.Get(boards.PicoW.Plan.PowerPin)
	r.chip.Attach(pwr.Get, run.Wake().Notify)
	r.app = app.New(app.DefaultConfig(), ctl, log)
	r.run = run

	_, err := r.s.Register("link", run)
	require.NoError(t, err)
	_, err = r.s.Register("app", r.app)
	require.NoError(t, err)
	return r
}

func (r *rig) advance(t *testing.T, d time.Duration) {
	t.Helper()
	r.clk.Advance(d)
	require.NoError(t, r.s.RunUntilIdle(1000))
}

// messages drains the log queue.
func (r *rig) messages(source string) []string {
	var out []string
	for {
		e, ok := r.q.Pop()
		if !ok {
			return out
		}
		if e.Source == source {
			out = append(out, e.Msg)
		}
	}
}

func TestBlinkSequence(t *testing.T) {
	r := newRig(t, platform.SimOptions{})
	r.advance(t, 0)
	r.advance(t, r.lcfg.PowerOffDelay)
	r.advance(t, r.lcfg.PowerOnDelay)

	require.Equal(t, []string{"power mode set", "led on!"}, r.messages("app"))
	require.Equal(t, link.PowerSave, r.chip.Mode())
	require.Equal(t, uint8(1), r.chip.Pins())

	r.advance(t, time.Second-time.Millisecond)
	require.Empty(t, r.messages("app"))
	require.Equal(t, uint8(1), r.chip.Pins())

	r.advance(t, time.Millisecond)
	require.Equal(t, []string{"led off!"}, r.messages("app"))
	require.Equal(t, uint8(0), r.chip.Pins())

	r.advance(t, time.Second)
	require.Equal(t, []string{"led on!"}, r.messages("app"))
	require.Equal(t, uint8(1), r.chip.Pins())

	hist := r.chip.History()
	require.Len(t, hist, 4)
	require.Equal(t, link.KindPower, hist[0].Kind)
	for i, level := range []byte{1, 0, 1} {
		require.Equal(t, link.KindSetPin, hist[i+1].Kind)
		require.Equal(t, [2]byte{0, level}, hist[i+1].Arg)
	}
	require.Equal(t, uint32(2), r.app.Cycles())
	require.Zero(t, r.app.Failures())
}

// ackLedger records each app message as the sink forwards it, along with
// how many command responses the link had applied by then.
type ackLedger struct {
	run   *link.Runner
	msgs  []string
	acked []uint32
}

func (l *ackLedger) Send(e *diag.Entry) error {
	if e.Source == "app" {
		l.msgs = append(l.msgs, e.Msg)
		l.acked = append(l.acked, l.run.Shared().Commands)
	}
	return nil
}

func TestSinkSeesAlternatingStatesAfterEachAck(t *testing.T) {
	r := newRig(t, platform.SimOptions{})
	led := &ackLedger{run: r.run}
	_, err := r.s.Register("diag", diag.NewSink(r.q, led, 4))
	require.NoError(t, err)

	r.advance(t, 0)
	r.advance(t, r.lcfg.PowerOffDelay)
	r.advance(t, r.lcfg.PowerOnDelay)
	for i := 0; i < 3; i++ {
		r.advance(t, time.Second)
	}

	require.Equal(t, []string{"power mode set", "led on!", "led off!", "led on!", "led off!"}, led.msgs)
	// A state is announced only once the previous command's ack is in.
	for i, n := range led.acked[1:] {
		require.GreaterOrEqual(t, n, uint32(i+1), led.msgs[i+1])
	}
	require.Len(t, r.chip.History(), 5)
	require.Zero(t, r.app.Failures())
}

func TestBlinkContinuesWhenLinkDegraded(t *testing.T) {
	r := newRig(t, platform.SimOptions{SilentHello: true})
	r.advance(t, 0)
	r.advance(t, r.lcfg.PowerOffDelay)
	r.advance(t, r.lcfg.PowerOnDelay)
	r.advance(t, r.lcfg.HandshakeTimeout)

	msgs := r.messages("app")
	require.Equal(t, []string{"set_power_mode failed", "led on!", "set_pin failed"}, msgs)

	r.advance(t, time.Second)
	require.Equal(t, []string{"led off!", "set_pin failed"}, r.messages("app"))
	require.Equal(t, uint32(3), r.app.Failures())
	require.Empty(t, r.chip.History())
}
