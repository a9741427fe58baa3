package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/armlink/pkg/framework"
	"github.com/robotalks/armlink/pkg/l0/vision"
)

func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	next:
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if v, ok := labels[lp.GetName()]; ok && v != lp.GetValue() {
					continue next
				}
			}
			return m
		}
	}
	return nil
}

func TestErrorKind(t *testing.T) {
	testCases := []struct {
		err  error
		kind string
	}{
		{vision.ErrTimeout, KindTimeout},
		{vision.ErrOverflow, KindOverflow},
		{&vision.ResponseError{Line: "ERR"}, KindProtocol},
		{vision.ErrBusy, KindBusy},
		{vision.ErrInvalidCommand, KindInvalid},
		{fmt.Errorf("write: %w", io.ErrClosedPipe), KindTransport},
	}
	for _, tc := range testCases {
		t.Run(tc.kind, func(t *testing.T) {
			require.Equal(t, tc.kind, ErrorKind(tc.err))
		})
	}
}

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Observe(&vision.ResultMsg{Command: "SCAN", Values: []int{1, 2, 3}, Latency: 20 * time.Millisecond})
	m.Observe(&vision.ResultMsg{Command: "SCAN", Values: []int{4}, Latency: 30 * time.Millisecond})
	m.Observe(&vision.ResultMsg{Command: "SCAN", Err: vision.ErrTimeout, Latency: 3 * time.Second})
	m.Observe(&vision.ResultMsg{Command: "SCAN", Err: vision.ErrBusy})

	done := findMetric(t, reg, "armlink_vision_requests_total", map[string]string{"command": "SCAN", "status": "done"})
	require.NotNil(t, done)
	require.Equal(t, 2.0, done.GetCounter().GetValue())
	failed := findMetric(t, reg, "armlink_vision_requests_total", map[string]string{"command": "SCAN", "status": "error"})
	require.NotNil(t, failed)
	require.Equal(t, 2.0, failed.GetCounter().GetValue())

	timeouts := findMetric(t, reg, "armlink_vision_failures_total", map[string]string{"kind": KindTimeout})
	require.NotNil(t, timeouts)
	require.Equal(t, 1.0, timeouts.GetCounter().GetValue())

	values := findMetric(t, reg, "armlink_vision_values", map[string]string{"command": "SCAN"})
	require.NotNil(t, values)
	require.Equal(t, 1.0, values.GetGauge().GetValue())

	latency := findMetric(t, reg, "armlink_vision_latency_seconds", map[string]string{"command": "SCAN"})
	require.NotNil(t, latency)
	require.Equal(t, uint64(3), latency.GetHistogram().GetSampleCount())
}

func TestControl(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	loop := fx.NewLoop()
	var seen int
	loop.AddController(fx.PrLvSense, fx.ControlFunc(func(cc fx.ControlContext) error {
		cc.Messages().AddMessages(&vision.ResultMsg{Command: "READ", Values: []int{7}})
		return nil
	}))
	loop.Add(m)
	loop.AddController(fx.PrLvPostProc+1, fx.ControlFunc(func(cc fx.ControlContext) error {
		cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
			if _, ok := mctx.CurrentMessage().(*vision.ResultMsg); ok {
				seen++
			}
		}))
		return nil
	}))
	loop.Tick(context.Background())

	done := findMetric(t, reg, "armlink_vision_requests_total", map[string]string{"command": "READ", "status": "done"})
	require.NotNil(t, done)
	require.Equal(t, 1.0, done.GetCounter().GetValue())
	require.Equal(t, 1, seen)
}

func TestDroppedAndHandler(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)
	dropped := 0
	m.RegisterDropped(func() int { return dropped })
	dropped = 42

	c := findMetric(t, reg, "armlink_port_dropped_bytes_total", nil)
	require.NotNil(t, c)
	require.Equal(t, 42.0, c.GetCounter().GetValue())

	srv := httptest.NewServer((&Server{Registry: reg}).Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "armlink_port_dropped_bytes_total 42")
}

func TestServerRun(t *testing.T) {
	s := &Server{Addr: "127.0.0.1:0", Registry: prometheus.NewRegistry()}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		require.True(t, errors.Is(err, context.Canceled))
	case <-time.After(3 * time.Second):
		t.Fatal("server didn't stop")
	}
}
