package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testMsg struct {
	val int
}

func (m *testMsg) NewMessage() Message { return &testMsg{} }

func TestLoopTickOrder(t *testing.T) {
	var order []int
	loop := NewLoop()
	for _, lv := range []int{PrLvActuate, PrLvSense, PrLvPostProc, PrLvControl} {
		lv := lv
		loop.AddController(lv, ControlFunc(func(cc ControlContext) error {
			require.Equal(t, lv, cc.PriorityLevel())
			order = append(order, lv)
			return nil
		}))
	}
	loop.Tick(context.Background())
	require.Equal(t, []int{PrLvSense, PrLvControl, PrLvActuate, PrLvPostProc}, order)
}

func TestLoopTickTime(t *testing.T) {
	now := time.Unix(100, 0)
	loop := NewLoop()
	loop.Clock = TimeSourceFunc(func() time.Time { return now })
	var seen time.Time
	loop.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		seen = cc.Time()
		return nil
	}))
	loop.Tick(context.Background())
	require.Equal(t, now, seen)
}

func TestLoopMessages(t *testing.T) {
	loop := NewLoop()
	var taken, left []int
	loop.AddController(PrLvSense, ControlFunc(func(cc ControlContext) error {
		cc.Messages().AddMessages(&testMsg{val: 3})
		return nil
	}))
	loop.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			if m := mc.CurrentMessage().(*testMsg); m.val%2 == 1 {
				taken = append(taken, m.val)
				mc.MessageTaken()
			}
		}))
		return nil
	}))
	loop.AddController(PrLvActuate, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			left = append(left, mc.CurrentMessage().(*testMsg).val)
		}))
		return nil
	}))

	loop.PostMessage(&testMsg{val: 1})
	loop.PostMessage(&testMsg{val: 2})
	loop.Tick(context.Background())
	require.Equal(t, []int{1, 3}, taken)
	require.Equal(t, []int{2}, left)

	// posted messages only live for one tick.
	taken, left = nil, nil
	loop.Tick(context.Background())
	require.Equal(t, []int{3}, taken)
	require.Empty(t, left)
}

func TestLoopStopProcessing(t *testing.T) {
	loop := NewLoop()
	var seen []int
	var remains []int
	loop.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			seen = append(seen, mc.CurrentMessage().(*testMsg).val)
			mc.MessageTaken()
			mc.StopProcessing()
		}))
		return nil
	}))
	loop.AddController(PrLvActuate, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			remains = append(remains, mc.CurrentMessage().(*testMsg).val)
		}))
		return nil
	}))
	for i := 1; i <= 3; i++ {
		loop.PostMessage(&testMsg{val: i})
	}
	loop.Tick(context.Background())
	require.Equal(t, []int{1}, seen)
	require.Equal(t, []int{2, 3}, remains)
}

func TestLoopRunStopsOnCancel(t *testing.T) {
	loop := NewLoop()
	loop.Interval = time.Millisecond
	ticked := make(chan struct{}, 1)
	loop.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		select {
		case ticked <- struct{}{}:
		default:
		}
		return nil
	}))
	started := make(chan struct{})
	loop.AddRunnable(RunFunc(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()
	select {
	case <-ticked:
	case <-time.After(time.Second):
		t.Fatal("loop did not tick")
	}
	<-started
	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	errA, errB := errors.New("a"), errors.New("b")
	err := errs.Add(errA).Aggregate()
	require.EqualError(t, err, "a")
	err = errs.Add(errB).Aggregate()
	require.EqualError(t, err, "multiple errors:\n  a\n  b")
	require.True(t, errors.Is(err, errB))
}
