package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/robotalks/armlink/pkg/l1"
	"github.com/robotalks/armlink/pkg/l1/msgs"
)

var (
	// ErrNotRunning indicates the controller loop isn't running yet.
	ErrNotRunning = errors.New("controller not running")
)

// Connector is used by remote tools to find and talk to controllers.
type Connector struct {
	DiscoverTimeout time.Duration

	brokerURL string
}

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	if _, _, err := ClientOptionsFromURL(brokerURL); err != nil {
		return nil, err
	}
	return &Connector{DiscoverTimeout: DefaultDiscoverTimeout, brokerURL: brokerURL}, nil
}

func (c *Connector) newQueue() *Queue {
	q, _ := NewQueueFromURL(c.brokerURL)
	return q
}

// Discover collects the retained meta of registered controllers.
func (c *Connector) Discover(ctx context.Context) (res []l1.ControllerInfo, err error) {
	q := c.newQueue()
	if err = q.ConnectWait(ctx); err != nil {
		return nil, err
	}
	defer q.Close()
	resCh := make(chan l1.ControllerInfo, 16)
	q.Sub("+/+/"+TopicMeta, Handler(func(topic string, payload []byte) {
		if info, ok := parseMeta(topic, payload); ok {
			select {
			case resCh <- info:
			case <-time.After(time.Second):
			}
		}
	}))

	dur := c.DiscoverTimeout
	if dur == 0 {
		dur = DefaultDiscoverTimeout
	}
	timeout := time.After(dur)
	for {
		select {
		case info := <-resCh:
			res = append(res, info)
		case <-timeout:
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}

// parseMeta accepts <type>/<id>/meta with a non-empty payload. An
// empty retained payload means the controller is gone.
func parseMeta(topic string, payload []byte) (info l1.ControllerInfo, ok bool) {
	name := strings.TrimSuffix(topic, "/"+TopicMeta)
	if name == topic || len(payload) == 0 {
		return
	}
	if info.Ref, ok = l1.ParseRef(name); !ok {
		return
	}
	if err := json.Unmarshal(payload, &info.Meta); err != nil {
		glog.Warningf("%s: bad meta: %v", topic, err)
	}
	return info, true
}

// Connect connects to a controller.
func (c *Connector) Connect(ctx context.Context, ref l1.ControllerRef) (*Remote, error) {
	r := newRemote(c.newQueue(), ref)
	if err := r.Queue.ConnectWait(ctx); err != nil {
		r.Queue.Close()
		return nil, err
	}
	// results must be subscribed before the first request goes out.
	if err := WaitToken(ctx, r.Queue.Resubscribe()); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// Remote is the connection to a controller.
type Remote struct {
	Queue *Queue
	Ref   l1.ControllerRef

	sub *Subscription

	lock     sync.Mutex
	pending  map[string]chan msgs.SerializableMessage
	watchers []func(*msgs.VisionResult)
}

func newRemote(q *Queue, ref l1.ControllerRef) *Remote {
	r := &Remote{Queue: q, Ref: ref, pending: make(map[string]chan msgs.SerializableMessage)}
	r.sub = q.Sub(ref.Name()+"/"+TopicMsg, Handler(r.handleMsg))
	return r
}

// Request sends command to the controller and waits for the matching
// VisionResult.
func (r *Remote) Request(ctx context.Context, command string) (*msgs.VisionResult, error) {
	req := &msgs.VisionRequest{ID: uuid.NewString(), Command: command}
	data, err := msgs.Encode(req)
	if err != nil {
		return nil, err
	}
	replyCh := make(chan msgs.SerializableMessage, 1)
	r.lock.Lock()
	r.pending[req.ID] = replyCh
	r.lock.Unlock()
	defer func() {
		r.lock.Lock()
		delete(r.pending, req.ID)
		r.lock.Unlock()
	}()

	if err := WaitToken(ctx, r.Queue.Pub(r.Ref.Name()+"/"+TopicCmd, data)); err != nil {
		return nil, err
	}
	select {
	case reply := <-replyCh:
		if cmdErr, ok := reply.(*msgs.CommandErr); ok {
			return nil, cmdErr
		}
		return reply.(*msgs.VisionResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// MoveJoint sends a JointMove. The controller only replies on failure,
// so this returns once the broker has the command.
func (r *Remote) MoveJoint(ctx context.Context, joint string, angle, overshoot int) error {
	data, err := msgs.Encode(&msgs.JointMove{Joint: joint, Angle: int32(angle), Overshoot: int32(overshoot)})
	if err != nil {
		return err
	}
	return WaitToken(ctx, r.Queue.Pub(r.Ref.Name()+"/"+TopicCmd, data))
}

// Watch calls fn for every VisionResult from the controller.
func (r *Remote) Watch(fn func(*msgs.VisionResult)) {
	r.lock.Lock()
	r.watchers = append(r.watchers, fn)
	r.lock.Unlock()
}

func (r *Remote) handleMsg(topic string, payload []byte) {
	msg, err := msgs.DecodeMessage(payload)
	if err != nil {
		glog.Warningf("%s: %v", topic, err)
		return
	}
	var id string
	switch m := msg.(type) {
	case *msgs.VisionResult:
		id = m.ID
		r.lock.Lock()
		watchers := r.watchers
		r.lock.Unlock()
		for _, fn := range watchers {
			fn(m)
		}
	case *msgs.CommandErr:
		id = m.ID
	default:
		return
	}
	r.lock.Lock()
	replyCh := r.pending[id]
	r.lock.Unlock()
	if replyCh != nil {
		select {
		case replyCh <- msg.(msgs.SerializableMessage):
		default:
		}
	}
}

// Close implements io.Closer.
func (r *Remote) Close() error {
	r.sub.Close()
	return r.Queue.Close()
}
