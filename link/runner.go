// Package link drives the wireless co-processor: power-up, image upload and
// handshake, then one command at a time over the link bus.
//
// The Runner task is the only code that touches the power pin and the bus.
// Other tasks submit commands through Control and see the driver only as a
// published Status.
package link

import (
	"encoding/binary"

	"tinygo.org/x/drivers"

	"picow-go/diag"
	"picow-go/errcode"
	"picow-go/resources"
	"picow-go/sched"
	"picow-go/x/conv"
)

type phase uint8

const (
	phaseHoldOff phase = iota // power pin low
	phaseSettle               // power pin high
	phaseFirmware
	phaseCLM
	phaseHello
	phaseIdle
)

// maxDrain bounds the frames read in one poll that do not complete what the
// task is waiting for (events, stale responses).
const maxDrain = 8

// Runner is the link driver task.
type Runner struct {
	cfg Config
	pwr *resources.Pin
	bus drivers.SPI
	fw  []byte
	clm []byte
	log diag.Logger

	cmds *sched.Queue[command]
	pub  *published
	sh   Shared

	// wake is the co-processor's host-wake, bound to irq.LineLink.
	wake  sched.Signal
	timer sched.Timer // power-up, handshake and command deadlines
	poll  sched.Timer // idle event polling

	phase  phase
	offset int
	expect uint8
	cur    command
	busy   bool // cur is in flight
	cause  error

	tx []byte
	rx []byte
}

// New builds the facade and the task. pwr must already be owned by the
// link task; bus is the co-processor's serial bus.
func New(cfg Config, pwr *resources.Pin, bus drivers.SPI, fw, clm []byte, log diag.Logger) (*Control, *Runner) {
	cfg = cfg.Sanitize()
	pub := &published{}
	q := sched.NewQueue[command](cfg.QueueSize)
	r := &Runner{
		cfg:  cfg,
		pwr:  pwr,
		bus:  bus,
		fw:   fw,
		clm:  clm,
		log:  log.With("link"),
		cmds: q,
		pub:  pub,
		tx:   make([]byte, 0, HeaderLen+MaxPayload),
		rx:   make([]byte, HeaderLen+MaxPayload+1),
	}
	r.publish()
	return &Control{q: q, pub: pub}, r
}

// Wake is the wake source to bind to the co-processor's interrupt line.
func (r *Runner) Wake() *sched.Signal { return &r.wake }

// Shared returns a copy of the driver state. Task context only.
func (r *Runner) Shared() Shared { return r.sh }

// Cause is the error that degraded the link, if any.
func (r *Runner) Cause() error { return r.cause }

func (r *Runner) Poll(cx *sched.Context) (sched.Status, error) {
	for {
		switch r.sh.State {
		case Uninitialized:
			r.log.Info("powering up")
			if err := r.pwr.HW().ConfigureOutput(false); err != nil {
				return r.degrade(cx, &errcode.E{C: errcode.NegotiationFailed, Op: "link.power", Err: err})
			}
			r.timer.Arm(cx, r.cfg.PowerOffDelay)
			r.phase = phaseHoldOff
			r.setState(PoweringUp)

		case PoweringUp:
			if !r.timer.Expired(cx) {
				return sched.Pending, nil
			}
			if r.phase == phaseHoldOff {
				r.pwr.HW().Set(true)
				r.timer.Arm(cx, r.cfg.PowerOnDelay)
				r.phase = phaseSettle
				continue
			}
			r.wake.Take() // edges seen while the chip was off
			r.phase = phaseFirmware
			r.offset = 0
			r.setState(Negotiating)

		case Negotiating:
			return r.negotiate(cx)

		case Ready:
			return r.serve(cx)

		default:
			return r.park(cx)
		}
	}
}

// ---- negotiation ----

func (r *Runner) negotiate(cx *sched.Context) (sched.Status, error) {
	switch r.phase {
	case phaseFirmware, phaseCLM:
		img, kind := r.fw, KindFirmware
		if r.phase == phaseCLM {
			img, kind = r.clm, KindCLM
		}
		if r.offset < len(img) {
			end := min(r.offset+r.cfg.ChunkSize, len(img))
			if err := r.send(kind, img[r.offset:end]); err != nil {
				return r.degrade(cx, err)
			}
			r.offset = end
			return sched.Ready, nil
		}
		r.offset = 0
		if r.phase == phaseFirmware {
			r.sh.FWSize = len(img)
			r.phase = phaseCLM
			r.log.Debug("firmware uploaded", diag.Int("bytes", len(img)))
			return sched.Ready, nil
		}
		r.sh.CLMSize = len(img)

		var p [8]byte
		binary.LittleEndian.PutUint32(p[0:], uint32(r.sh.FWSize))
		binary.LittleEndian.PutUint32(p[4:], uint32(r.sh.CLMSize))
		if err := r.send(KindHello, p[:]); err != nil {
			return r.degrade(cx, err)
		}
		r.timer.Arm(cx, r.cfg.HandshakeTimeout)
		r.phase = phaseHello
	}

	for skipped := 0; ; {
		resp, ok, err := r.receive()
		if err != nil {
			return r.degrade(cx, err)
		}
		if ok {
			if resp.Kind == KindEvent {
				r.sh.Events++
				if skipped++; skipped >= maxDrain {
					return sched.Ready, nil
				}
				continue
			}
			return r.finishHello(cx, resp)
		}
		if r.timer.Expired(cx) {
			return r.degrade(cx, &errcode.E{C: errcode.Timeout, Op: "link.handshake", Msg: "no hello ack"})
		}
		if !r.wake.Wait(cx) {
			return sched.Pending, nil
		}
	}
}

func (r *Runner) finishHello(cx *sched.Context, resp Response) (sched.Status, error) {
	switch {
	case resp.Kind != KindHello || resp.Seq != r.expect || len(resp.Payload) < 3:
		return r.degrade(cx, &errcode.E{C: errcode.Malformed, Op: "link.handshake", Msg: "bad hello ack"})
	case resp.Status != StatusOK:
		return r.degrade(cx, &errcode.E{C: errcode.NegotiationFailed, Op: "link.handshake", Msg: "status " + conv.Itoa(int(resp.Status))})
	}
	r.timer.Stop()
	r.sh.ChipID = binary.LittleEndian.Uint16(resp.Payload)
	r.sh.ChipRev = resp.Payload[2]
	r.phase = phaseIdle
	r.setState(Ready)
	r.log.Info("ready",
		diag.Int("chip", int(r.sh.ChipID)),
		diag.Int("rev", int(r.sh.ChipRev)),
		diag.Int("fw", r.sh.FWSize),
		diag.Int("clm", r.sh.CLMSize))
	r.poll.Arm(cx, r.cfg.PollInterval)
	return sched.Ready, nil
}

// degrade parks the driver for good. It runs once, on the transition.
func (r *Runner) degrade(cx *sched.Context, err error) (sched.Status, error) {
	r.timer.Stop()
	r.poll.Stop()
	r.cause = err
	r.setState(Degraded)
	r.log.Error("negotiation failed", diag.Err(err))
	return r.park(cx)
}

// park fails every queued command with errcode.Degraded and waits for more.
func (r *Runner) park(cx *sched.Context) (sched.Status, error) {
	for {
		cmd, ok := r.cmds.Recv(cx)
		if !ok {
			return sched.Pending, nil
		}
		cmd.ack.complete(&errcode.E{C: errcode.Degraded, Op: "link." + cmd.kind.String()})
	}
}

// ---- ready ----

func (r *Runner) serve(cx *sched.Context) (sched.Status, error) {
	if r.busy {
		return r.await(cx)
	}
	if cmd, ok := r.cmds.Recv(cx); ok {
		return r.start(cx, cmd)
	}
	polled := r.poll.Expired(cx)
	if r.wake.Wait(cx) || polled {
		r.drainEvents()
		r.poll.Arm(cx, r.cfg.PollInterval)
		return sched.Ready, nil
	}
	return sched.Pending, nil
}

func (r *Runner) start(cx *sched.Context, cmd command) (sched.Status, error) {
	r.cur, r.busy = cmd, true
	r.sh.LastCmd = cmd.kind
	if err := r.send(cmd.kind, cmd.payload()); err != nil {
		r.sh.Failures++
		r.finish(err)
		return sched.Ready, nil
	}
	r.timer.Arm(cx, r.cfg.CommandTimeout)
	return r.await(cx)
}

// await waits for the response to the command in flight. Every exit that
// completes the command yields, and so does reading maxDrain unrelated
// frames.
func (r *Runner) await(cx *sched.Context) (sched.Status, error) {
	for skipped := 0; ; {
		resp, ok, err := r.receive()
		if err != nil {
			r.sh.Failures++
			r.finish(err)
			return sched.Ready, nil
		}
		if ok {
			if resp.Kind == KindEvent || resp.Kind != r.cur.kind || resp.Seq != r.expect {
				if resp.Kind == KindEvent {
					r.event(resp)
				} else {
					r.log.Debug("stale response", diag.Str("kind", resp.Kind.String()), diag.Int("seq", int(resp.Seq)))
				}
				if skipped++; skipped >= maxDrain {
					return sched.Ready, nil
				}
				continue
			}
			r.finish(r.apply(resp))
			return sched.Ready, nil
		}
		if r.timer.Expired(cx) {
			r.sh.Timeouts++
			r.finish(&errcode.E{C: errcode.Timeout, Op: "link." + r.cur.kind.String()})
			return sched.Ready, nil
		}
		if !r.wake.Wait(cx) {
			return sched.Pending, nil
		}
	}
}

func (r *Runner) apply(resp Response) error {
	op := "link." + r.cur.kind.String()
	switch resp.Status {
	case StatusOK:
	case StatusUnsupported:
		r.sh.Failures++
		return &errcode.E{C: errcode.Unsupported, Op: op}
	default:
		r.sh.Failures++
		return &errcode.E{C: errcode.CommandFailed, Op: op, Msg: "status " + conv.Itoa(int(resp.Status))}
	}
	arg := r.cur.payload()
	switch r.cur.kind {
	case KindSetPin:
		bit := uint8(1) << arg[0]
		if arg[1] != 0 {
			r.sh.Pins |= bit
		} else {
			r.sh.Pins &^= bit
		}
	case KindPower:
		r.sh.Mode = PowerMode(arg[0])
	}
	r.sh.Commands++
	r.publish()
	return nil
}

func (r *Runner) finish(err error) {
	r.timer.Stop()
	r.busy = false
	if err != nil {
		r.log.Warn("command failed", diag.Str("cmd", r.cur.kind.String()), diag.Err(err))
	}
	ack := r.cur.ack
	r.cur = command{}
	ack.complete(err)
}

func (r *Runner) drainEvents() {
	for i := 0; i < maxDrain; i++ {
		resp, ok, err := r.receive()
		if err != nil {
			r.log.Warn("event read failed", diag.Err(err))
			return
		}
		if !ok {
			return
		}
		if resp.Kind == KindEvent {
			r.event(resp)
		} else {
			r.log.Debug("stale response", diag.Str("kind", resp.Kind.String()), diag.Int("seq", int(resp.Seq)))
		}
	}
}

func (r *Runner) event(resp Response) {
	r.sh.Events++
	code := -1
	if len(resp.Payload) > 0 {
		code = int(resp.Payload[0])
	}
	r.log.Debug("event", diag.Int("code", code))
}

// ---- bus ----

func (r *Runner) send(kind Kind, payload []byte) error {
	seq := r.sh.Seq
	r.sh.Seq++
	r.expect = seq
	r.tx = AppendRequest(r.tx[:0], kind, seq, payload)
	if err := r.bus.Tx(r.tx, nil); err != nil {
		return &errcode.E{C: errcode.TransportFailed, Op: "link.bus", Msg: "write " + kind.String(), Err: err}
	}
	return nil
}

// receive reads one frame. It reports false when the co-processor has
// nothing queued.
func (r *Runner) receive() (Response, bool, error) {
	hdr := r.rx[:HeaderLen]
	if err := r.bus.Tx(nil, hdr); err != nil {
		return Response{}, false, &errcode.E{C: errcode.TransportFailed, Op: "link.bus", Msg: "read", Err: err}
	}
	if hdr[0] == 0 {
		return Response{}, false, nil
	}
	n := bodyLen(hdr)
	if n < 1 || n > MaxPayload+1 {
		return Response{}, false, malformed("response length")
	}
	if err := r.bus.Tx(nil, r.rx[HeaderLen:HeaderLen+n]); err != nil {
		return Response{}, false, &errcode.E{C: errcode.TransportFailed, Op: "link.bus", Msg: "read", Err: err}
	}
	resp, err := ParseResponse(r.rx[:HeaderLen+n])
	if err != nil {
		return Response{}, false, err
	}
	return resp, true, nil
}

func (r *Runner) setState(s State) {
	r.sh.State = s
	r.publish()
	r.log.Debug("state", diag.Str("to", s.String()))
}

func (r *Runner) publish() { r.pub.store(r.sh.status()) }
