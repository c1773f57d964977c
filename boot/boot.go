// Package boot wires the system together: it claims the hardware once,
// moves every handle to its owning task, binds interrupt lines and starts
// the scheduler. Any startup failure halts.
package boot

import (
	"context"
	"runtime"

	"go.uber.org/multierr"

	"picow-go/app"
	"picow-go/config"
	"picow-go/diag"
	"picow-go/errcode"
	"picow-go/irq"
	"picow-go/link"
	"picow-go/platform"
	"picow-go/resources"
	"picow-go/sched"
	"picow-go/x/timex"
)

// Task and owner names.
const (
	DiagTask = "diag"
	LinkTask = link.Owner
	AppTask  = "app"
)

// System is the running firmware.
type System struct {
	Sched   *sched.Scheduler
	Bridge  *irq.Bridge
	Clock   timex.Clock
	Queue   *diag.Queue
	Log     diag.Logger
	Sink    *diag.Sink
	Control *link.Control
	Link    *link.Runner
	App     *app.Task
}

// Start claims the peripherals and registers every task. It does not run
// the scheduler.
func Start(cfg config.Config, hw platform.Hardware) (*System, error) {
	cfg = cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	per, err := resources.Init(hw.Provider, cfg.Board.Plan)
	if err != nil {
		return nil, err
	}

	clock := hw.Clock
	if clock == nil {
		clock = timex.Monotonic()
	}
	sys := &System{
		Sched:  sched.New(clock, hw.Idler),
		Bridge: irq.New(),
		Clock:  clock,
		Queue:  diag.NewQueue(cfg.Diag.QueueSize),
	}
	sys.Log = diag.NewLogger(sys.Queue, clock, cfg.Diag.Level)

	// Diagnostics first so the other tasks can log from their first poll.
	tr, err := hw.Diag(per.Diag.Move(DiagTask), sys.Bridge.Handler(irq.LineDiag))
	if err != nil {
		return nil, errcode.Wrap("boot.diag", err)
	}
	sys.Sink = diag.NewSink(sys.Queue, tr, cfg.Diag.Burst)
	if err := sys.Bridge.Bind(irq.LineDiag, sys.Sink.Done()); err != nil {
		return nil, err
	}

	pins := link.TakeBus(per.WLCS, per.WLData, per.WLClock, per.PIO, per.DMA)
	bus, err := hw.LinkBus(pins, sys.Bridge.Handler(irq.LineLink))
	if err != nil {
		return nil, errcode.Wrap("boot.link", err)
	}
	sys.Control, sys.Link = link.New(cfg.Link, per.WLPower.Move(LinkTask), bus, hw.Firmware, hw.CLM, sys.Log)
	if err := sys.Bridge.Bind(irq.LineLink, sys.Link.Wake()); err != nil {
		return nil, err
	}

	sys.App = app.New(cfg.App, sys.Control, sys.Log)

	var errs error
	for _, t := range []struct {
		name string
		task sched.Task
	}{
		{DiagTask, sys.Sink},
		{LinkTask, sys.Link},
		{AppTask, sys.App},
	} {
		if _, err := sys.Sched.Register(t.name, t.task); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return nil, errs
	}

	sys.Log.With("boot").Info("started",
		diag.Str("board", hw.Name),
		diag.Int("tasks", sys.Sched.Len()))
	return sys, nil
}

// Run drives the scheduler. It returns only when a task fails or ctx ends.
func (s *System) Run(ctx context.Context) error { return s.Sched.Run(ctx) }

// Main starts the system and runs it until a fatal error, then halts.
func Main(cfg config.Config, hw platform.Hardware) {
	println("[boot] starting on", hw.Name)
	sys, err := Start(cfg, hw)
	if err != nil {
		Halt(hw, err)
		return
	}
	Halt(hw, sys.Run(context.Background()))
}

// Halt prints err and stops the board. It returns only when the platform
// provides no halt hook and err is nil.
func Halt(hw platform.Hardware, err error) {
	if err != nil {
		println("[boot] fatal:", err.Error())
		if errs := multierr.Errors(err); len(errs) > 1 {
			for _, e := range errs {
				println("[boot]   ", e.Error())
			}
		}
	}
	printMem()
	if hw.Halt != nil {
		hw.Halt()
	}
}

// printMem prints a compact snapshot of runtime memory stats without fmt.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"heapSys:", uint32(ms.HeapSys),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}
