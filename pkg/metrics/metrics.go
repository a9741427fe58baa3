// Package metrics exports vision link metrics to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fx "github.com/robotalks/armlink/pkg/framework"
	"github.com/robotalks/armlink/pkg/l0/vision"
)

// Namespace of all metrics.
const Namespace = "armlink"

// Error kinds used as label values.
const (
	KindTimeout   = "timeout"
	KindOverflow  = "overflow"
	KindProtocol  = "protocol"
	KindBusy      = "busy"
	KindInvalid   = "invalid"
	KindTransport = "transport"
)

// Metrics observes vision.ResultMsg in the loop.
type Metrics struct {
	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	values   *prometheus.GaugeVec
	reg      prometheus.Registerer
}

// New creates Metrics registered to reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reg: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "vision", Name: "requests_total",
			Help: "Finished vision requests by command and status."}, []string{"command", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "vision", Name: "failures_total",
			Help: "Failed vision requests by kind."}, []string{"kind"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace, Subsystem: "vision", Name: "latency_seconds",
			Help:    "Time from sending a command to its terminal status.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 3, 5}}, []string{"command"}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace, Subsystem: "vision", Name: "values",
			Help: "Number of values decoded by the last successful request."}, []string{"command"}),
	}
	reg.MustRegister(m.requests, m.failures, m.latency, m.values)
	return m
}

// RegisterDropped exports the bytes lost by the port input queue.
func (m *Metrics) RegisterDropped(fn func() int) {
	m.reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: Namespace, Subsystem: "port", Name: "dropped_bytes_total",
		Help: "Bytes dropped because the input queue was full."},
		func() float64 { return float64(fn()) }))
}

// AddToLoop implements LoopAdder.
func (m *Metrics) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvPostProc, m)
}

// Control implements Controller.
func (m *Metrics) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		if res, ok := mctx.CurrentMessage().(*vision.ResultMsg); ok {
			m.Observe(res)
		}
	}))
	return nil
}

// Observe records one result.
func (m *Metrics) Observe(res *vision.ResultMsg) {
	if res.OK() {
		m.requests.WithLabelValues(res.Command, vision.StatusDone.String()).Inc()
		m.values.WithLabelValues(res.Command).Set(float64(len(res.Values)))
	} else {
		m.requests.WithLabelValues(res.Command, vision.StatusError.String()).Inc()
		m.failures.WithLabelValues(ErrorKind(res.Err)).Inc()
	}
	// rejected requests were never sent.
	if res.Latency > 0 || res.OK() {
		m.latency.WithLabelValues(res.Command).Observe(res.Latency.Seconds())
	}
}

// ErrorKind classifies a request error.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, vision.ErrTimeout):
		return KindTimeout
	case errors.Is(err, vision.ErrOverflow):
		return KindOverflow
	case errors.Is(err, vision.ErrProtocol):
		return KindProtocol
	case errors.Is(err, vision.ErrBusy):
		return KindBusy
	case errors.Is(err, vision.ErrInvalidCommand):
		return KindInvalid
	}
	return KindTransport
}

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Server serves /metrics of Registry.
type Server struct {
	Addr     string
	Registry *prometheus.Registry
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          s.Registry,
	}))
	return mux
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.Addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	glog.Infof("metrics on %s", s.Addr)
	err := fx.RunWithContextCancel(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}, srv.ListenAndServe)
	if errors.Is(err, http.ErrServerClosed) {
		return ctx.Err()
	}
	return err
}
