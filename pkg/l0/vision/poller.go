package vision

import (
	"time"

	"github.com/google/uuid"

	fx "github.com/robotalks/armlink/pkg/framework"
)

// RequestMsg asks the Poller to send a command.
type RequestMsg struct {
	ID      string
	Command string
}

// NewMessage implements Message.
func (m *RequestMsg) NewMessage() fx.Message { return &RequestMsg{} }

// ResultMsg carries the outcome of one exchange to the controllers
// running after the Poller in the same tick.
type ResultMsg struct {
	ID       string
	Command  string
	Values   []int
	Raw      string
	Err      error
	IssuedAt time.Time
	Latency  time.Duration
}

// NewMessage implements Message.
func (m *ResultMsg) NewMessage() fx.Message { return &ResultMsg{} }

// OK reports whether values were decoded.
func (m *ResultMsg) OK() bool { return m.Err == nil }

// DefaultMaxQueued is the default bound of queued RequestMsgs.
const DefaultMaxQueued = 8

// Poller drives a Client from a framework.Loop. It sends Command every
// Interval when there's nothing queued, and RequestMsgs on demand.
type Poller struct {
	Client    *Client
	Command   string
	Interval  time.Duration
	MaxQueued int

	queue   []*RequestMsg
	current *RequestMsg
	nextAt  time.Time
}

// NewPoller creates a Poller.
func NewPoller(c *Client, command string, interval time.Duration) *Poller {
	return &Poller{Client: c, Command: command, Interval: interval, MaxQueued: DefaultMaxQueued}
}

// AddToLoop implements LoopAdder.
func (p *Poller) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvSense, p)
}

// Control implements Controller.
func (p *Poller) Control(cc fx.ControlContext) error {
	now := cc.Time()
	store := cc.Messages()
	store.ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		req, ok := mctx.CurrentMessage().(*RequestMsg)
		if !ok {
			return
		}
		mctx.MessageTaken()
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		max := p.MaxQueued
		if max <= 0 {
			max = DefaultMaxQueued
		}
		if len(p.queue) >= max {
			mctx.AddMessages(&ResultMsg{ID: req.ID, Command: req.Command, Err: ErrBusy, IssuedAt: now})
			return
		}
		p.queue = append(p.queue, req)
	}))

	switch p.Client.Status() {
	case StatusIdle:
		req := p.next(now)
		if req == nil {
			return nil
		}
		if err := p.Client.SendRequest(req.Command); err != nil && !p.Client.Available() {
			store.AddMessages(&ResultMsg{ID: req.ID, Command: req.Command, Err: err, IssuedAt: now})
			return nil
		}
		p.current = req
	case StatusWaiting:
		p.Client.Update()
	}

	if p.Client.Available() {
		store.AddMessages(p.finish(now))
	}
	return nil
}

func (p *Poller) next(now time.Time) *RequestMsg {
	if len(p.queue) > 0 {
		req := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		return req
	}
	if p.Interval <= 0 || p.Command == "" || now.Before(p.nextAt) {
		return nil
	}
	p.nextAt = now.Add(p.Interval)
	return &RequestMsg{ID: uuid.NewString(), Command: p.Command}
}

func (p *Poller) finish(now time.Time) *ResultMsg {
	c := p.Client
	res := &ResultMsg{
		Command:  c.Command(),
		Raw:      c.RawResponse(),
		IssuedAt: c.IssuedAt(),
		Latency:  now.Sub(c.IssuedAt()),
	}
	if p.current != nil {
		res.ID = p.current.ID
	}
	if c.Status() == StatusDone {
		res.Values = c.values.Copy()
	} else {
		res.Err = c.Err()
	}
	c.Reset()
	p.current = nil
	return res
}
