package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"picow-go/errcode"
	"picow-go/x/timex"
)

func newTestScheduler() (*Scheduler, *timex.Manual) {
	clk := &timex.Manual{}
	return New(clk, nil), clk
}

func TestRegisterCapacityIsFatal(t *testing.T) {
	s, _ := newTestScheduler()
	idle := TaskFunc(func(*Context) (Status, error) { return Pending, nil })
	for i := 0; i < MaxTasks; i++ {
		id, err := s.Register("t", idle)
		require.NoError(t, err)
		require.Equal(t, TaskID(i), id)
	}
	_, err := s.Register("overflow", idle)
	require.Error(t, err)
	require.Equal(t, errcode.TaskTableFull, errcode.Of(err))
	require.Equal(t, MaxTasks, s.Len())
}

func TestRoundRobinEveryRunnableTaskResumes(t *testing.T) {
	s, _ := newTestScheduler()
	counts := make([]int, 3)
	for i := range counts {
		i := i
		_, err := s.Register("y", TaskFunc(func(*Context) (Status, error) {
			counts[i]++
			return Ready, nil
		}))
		require.NoError(t, err)
	}
	for r := 0; r < 10; r++ {
		ran, err := s.RunOnce()
		require.NoError(t, err)
		require.True(t, ran)
	}
	require.Equal(t, []int{10, 10, 10}, counts)

	err := s.RunUntilIdle(5)
	require.Equal(t, errcode.Busy, errcode.Of(err))
}

func TestPendingTaskIsNotPolledWithoutWake(t *testing.T) {
	s, _ := newTestScheduler()
	polls := 0
	_, err := s.Register("p", TaskFunc(func(*Context) (Status, error) {
		polls++
		return Pending, nil
	}))
	require.NoError(t, err)
	require.NoError(t, s.RunUntilIdle(10))
	require.NoError(t, s.RunUntilIdle(10))
	require.Equal(t, 1, polls)
	require.False(t, s.Runnable())
}

func TestTimerWakesExactlyOnce(t *testing.T) {
	s, clk := newTestScheduler()
	var tm Timer
	polls, fired := 0, 0
	_, err := s.Register("timer", TaskFunc(func(cx *Context) (Status, error) {
		polls++
		if polls == 1 {
			tm.Arm(cx, 10*time.Millisecond)
			return Pending, nil
		}
		if tm.Expired(cx) {
			fired++
		}
		return Pending, nil
	}))
	require.NoError(t, err)

	require.NoError(t, s.RunUntilIdle(10))
	at, ok := s.NextDeadline()
	require.True(t, ok)
	require.Equal(t, 10*time.Millisecond, at)

	clk.Advance(5 * time.Millisecond)
	require.NoError(t, s.RunUntilIdle(10))
	require.Equal(t, 1, polls)

	clk.Advance(5 * time.Millisecond)
	require.NoError(t, s.RunUntilIdle(10))
	require.Equal(t, 2, polls)
	require.Equal(t, 1, fired)

	clk.Advance(time.Second)
	require.NoError(t, s.RunUntilIdle(10))
	require.Equal(t, 2, polls)
	_, ok = s.NextDeadline()
	require.False(t, ok)
}

func TestSignalFromInterruptContext(t *testing.T) {
	s, _ := newTestScheduler()
	var sig Signal
	got := 0
	_, err := s.Register("irq-waiter", TaskFunc(func(cx *Context) (Status, error) {
		for sig.Wait(cx) {
			got++
		}
		return Pending, nil
	}))
	require.NoError(t, err)
	require.NoError(t, s.RunUntilIdle(10))
	require.Equal(t, 0, got)

	done := make(chan struct{})
	go func() { // stands in for an interrupt handler
		sig.Notify()
		close(done)
	}()
	<-done
	require.True(t, s.Runnable())
	require.NoError(t, s.RunUntilIdle(10))
	require.Equal(t, 1, got)
	require.Equal(t, uint32(1), sig.Fired())
}

func TestTaskFailureStopsScheduler(t *testing.T) {
	s, _ := newTestScheduler()
	boom := errors.New("boom")
	_, err := s.Register("bad", TaskFunc(func(*Context) (Status, error) {
		return Pending, &errcode.E{C: errcode.NegotiationFailed, Err: boom}
	}))
	require.NoError(t, err)

	err = s.RunUntilIdle(10)
	require.Error(t, err)
	require.ErrorIs(t, err, boom)
	require.Equal(t, errcode.NegotiationFailed, errcode.Of(err))
	require.Contains(t, err.Error(), "task bad")
}

func TestQueueBackpressurePreservesOrder(t *testing.T) {
	s, _ := newTestScheduler()
	q := NewQueue[int](2)
	const N = 20
	next := 0
	var got []int

	_, err := s.Register("producer", TaskFunc(func(cx *Context) (Status, error) {
		for next < N {
			if !q.WaitSpace(cx) {
				return Pending, nil
			}
			require.True(t, q.TrySend(next))
			next++
		}
		return Pending, nil
	}))
	require.NoError(t, err)
	_, err = s.Register("consumer", TaskFunc(func(cx *Context) (Status, error) {
		v, ok := q.Recv(cx)
		if !ok {
			return Pending, nil
		}
		got = append(got, v)
		return Ready, nil
	}))
	require.NoError(t, err)

	require.NoError(t, s.RunUntilIdle(200))
	require.Len(t, got, N)
	for i, v := range got {
		require.Equal(t, i, v)
	}
	require.True(t, q.TrySend(-1))
	require.True(t, q.TrySend(-2))
	require.False(t, q.TrySend(-3), "bounded queue must reject when full")
}

func TestRunIdlesUntilTimerThenStopsOnCancel(t *testing.T) {
	s := New(timex.Monotonic(), NewChanIdler())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tm Timer
	ticks := 0
	_, err := s.Register("ticker", TaskFunc(func(cx *Context) (Status, error) {
		if !tm.Armed() {
			tm.Arm(cx, 2*time.Millisecond)
			return Pending, nil
		}
		if !tm.Expired(cx) {
			return Pending, nil
		}
		ticks++
		if ticks == 3 {
			cancel()
			return Pending, nil
		}
		tm.Arm(cx, 2*time.Millisecond)
		return Pending, nil
	}))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	require.Equal(t, 3, ticks)
	require.Greater(t, s.Idles(), uint32(0))
}

func TestStatsSnapshot(t *testing.T) {
	s, _ := newTestScheduler()
	_, _ = s.Register("a", TaskFunc(func(*Context) (Status, error) { return Pending, nil }))
	_, _ = s.Register("b", TaskFunc(func(*Context) (Status, error) { return Ready, nil }))
	_, _ = s.RunOnce()

	st := s.Stats(nil)
	require.Len(t, st, 2)
	require.Equal(t, "a", st[0].Name)
	require.Equal(t, uint32(1), st[0].Polls)
	require.False(t, st[0].Runnable)
	require.True(t, st[1].Runnable)
}
