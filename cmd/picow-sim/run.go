package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"picow-go/boot"
	"picow-go/config"
	"picow-go/diag"
	"picow-go/errcode"
	"picow-go/platform"
)

var (
	runOpts = struct {
		board            string
		period           time.Duration
		handshakeTimeout time.Duration
		commandTimeout   time.Duration
		level            string
		verbose          bool
		async            bool
		mqtt             string
		duration         time.Duration
		events           time.Duration

		silentHello bool
		badHello    bool
		dropEvery   int
		failEvery   int
		latency     time.Duration
	}{}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Boot the firmware and run it until interrupted",
		Long: "Boot the firmware on a simulated board and run the scheduler until the duration " +
			"passes, the process is interrupted or a task fails. Fault flags make the simulated " +
			"co-processor misbehave.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSim(cmd.Context())
		},
	}
)

func init() {
	def := config.Default()
	f := runCmd.Flags()
	f.StringVarP(&runOpts.board, "board", "b", def.Board.Name, "board to simulate")
	f.DurationVarP(&runOpts.period, "period", "p", def.App.Period, "time spent in each LED state")
	f.DurationVar(&runOpts.handshakeTimeout, "handshake-timeout", def.Link.HandshakeTimeout, "time allowed for the co-processor handshake")
	f.DurationVar(&runOpts.commandTimeout, "command-timeout", def.Link.CommandTimeout, "time allowed for each command response")
	f.StringVarP(&runOpts.level, "level", "l", def.Diag.Level.String(), "minimum diagnostic level (debug, info, warn, error)")
	f.BoolVarP(&runOpts.verbose, "verbose", "v", false, "log simulator internals at debug level")
	f.BoolVar(&runOpts.async, "async", false, "deliver diagnostics from a background sender")
	f.StringVar(&runOpts.mqtt, "mqtt", "", "also publish diagnostics to this broker (mqtt://host:1883/prefix)")
	f.DurationVarP(&runOpts.duration, "duration", "d", 0, "stop after this long (0: run until interrupted)")
	f.DurationVar(&runOpts.events, "events", 0, "raise an unsolicited co-processor event at this interval")

	f.BoolVar(&runOpts.silentHello, "silent-hello", false, "never acknowledge the handshake")
	f.BoolVar(&runOpts.badHello, "bad-hello", false, "acknowledge the handshake with a malformed frame")
	f.IntVar(&runOpts.dropEvery, "drop-every", 0, "swallow every Nth command")
	f.IntVar(&runOpts.failEvery, "fail-every", 0, "answer every Nth command with an error")
	f.DurationVar(&runOpts.latency, "latency", 0, "delay before the co-processor raises its interrupt")
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	zc.DisableStacktrace = true
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return zc.Build()
}

// simConfig applies the flags to the board's default configuration.
func simConfig() (config.Config, error) {
	cfg, err := config.ForBoard(runOpts.board)
	if err != nil {
		return config.Config{}, err
	}
	lv, ok := diag.ParseLevel(runOpts.level)
	if !ok {
		return config.Config{}, &errcode.E{C: errcode.InvalidParams, Op: "picow-sim.level", Msg: runOpts.level}
	}
	cfg.Diag.Level = lv
	cfg.App.Period = runOpts.period
	cfg.Link.HandshakeTimeout = runOpts.handshakeTimeout
	cfg.Link.CommandTimeout = runOpts.commandTimeout
	return cfg, nil
}

func runSim(ctx context.Context) error {
	log, err := newLogger(runOpts.verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := simConfig()
	if err != nil {
		return err
	}

	var tr diag.Transport = diag.NewZapTransport(log.Named("fw"))
	if runOpts.mqtt != "" {
		m, err := diag.DialMQTT(runOpts.mqtt, time.Second)
		if err != nil {
			return err
		}
		defer m.Close()
		log.Info("publishing diagnostics", zap.String("broker", runOpts.mqtt), zap.String("topic", m.Topic(diag.LevelInfo)))
		tr = diag.Tee(tr, m)
	}

	host := platform.NewHost(platform.HostOptions{
		Board: cfg.Board,
		Chip: platform.SimOptions{
			SilentHello: runOpts.silentHello,
			BadHello:    runOpts.badHello,
			DropEvery:   runOpts.dropEvery,
			FailEvery:   runOpts.failEvery,
			Latency:     runOpts.latency,
		},
		Transport: tr,
		// A broker round trip blocks; keep it off the scheduler goroutine.
		Async: runOpts.async || runOpts.mqtt != "",
	})

	sys, err := boot.Start(cfg, host.Hardware())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	if runOpts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runOpts.duration)
		defer cancel()
	}
	if runOpts.events > 0 {
		go raiseEvents(ctx, host.Chip, runOpts.events)
	}

	log.Debug("running", zap.String("board", cfg.Board.Name), zap.Duration("duration", runOpts.duration))
	err = sys.Run(ctx)
	// The scheduler has stopped; nothing sends on the async transport now.
	host.Close()
	report(log, sys, host)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	log.Error("task failed", zap.Error(err))
	return err
}

func raiseEvents(ctx context.Context, chip *platform.SimChip, every time.Duration) {
	tick := time.NewTicker(every)
	defer tick.Stop()
	var code byte
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			code++
			chip.RaiseEvent(code)
		}
	}
}

// report logs the final counters of every part of the system.
func report(log *zap.Logger, sys *boot.System, host *platform.Host) {
	sh := sys.Link.Shared()
	fields := []zap.Field{
		zap.Stringer("state", sh.State),
		zap.Stringer("mode", sh.Mode),
		zap.Uint16("chip", sh.ChipID),
		zap.Uint8("rev", sh.ChipRev),
		zap.Uint32("commands", sh.Commands),
		zap.Uint32("failures", sh.Failures),
		zap.Uint32("timeouts", sh.Timeouts),
		zap.Uint32("events", sh.Events),
	}
	if cause := sys.Link.Cause(); cause != nil {
		fields = append(fields, zap.NamedError("cause", cause))
	}
	log.Info("link", fields...)

	log.Info("app",
		zap.Uint32("cycles", sys.App.Cycles()),
		zap.Uint32("failures", sys.App.Failures()),
		zap.Int("chip_commands", len(host.Chip.History())))

	log.Info("diag",
		zap.Int("capacity", sys.Queue.Cap()),
		zap.Uint32("pushed", sys.Queue.Pushed()),
		zap.Uint32("dropped", sys.Queue.Drops()),
		zap.Uint32("sent", sys.Sink.Sent()),
		zap.Uint32("failed", sys.Sink.Failed()))

	for _, st := range sys.Sched.Stats(nil) {
		log.Debug("task",
			zap.String("name", st.Name),
			zap.Uint32("polls", st.Polls),
			zap.Bool("runnable", st.Runnable),
			zap.Bool("timed", st.Timed))
	}
	log.Debug("sched", zap.Uint32("idles", sys.Sched.Idles()))
}
