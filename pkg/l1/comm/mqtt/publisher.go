package mqtt

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/armlink/pkg/framework"
	"github.com/robotalks/armlink/pkg/l0/vision"
	"github.com/robotalks/armlink/pkg/l1"
	"github.com/robotalks/armlink/pkg/l1/msgs"
)

// Publisher makes an arm controller reachable over MQTT. It publishes
// the controller meta (retained) and every vision.ResultMsg as a
// VisionResult event. VisionRequest and JointMove commands are posted
// to the loop as vision.RequestMsg and arm.JointMsg.
type Publisher struct {
	Queue *Queue
	Info  l1.ControllerInfo

	metaJSON []byte

	lock    sync.Mutex
	loopCtl fx.LoopControl
}

// NewPublisher creates a Publisher.
func NewPublisher(brokerURL string, info l1.ControllerInfo) (*Publisher, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+info.Ref.Name()+"/"+TopicMeta, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("armlink:" + info.Ref.Name())
	}
	return newPublisher(NewQueue(opts, topicPrefix), info, meta), nil
}

func newPublisher(q *Queue, info l1.ControllerInfo, meta []byte) *Publisher {
	p := &Publisher{Queue: q, Info: info, metaJSON: meta}
	q.OnConnect = func(*Queue) { p.publishMeta() }
	return p
}

func (p *Publisher) topic(suffix string) string {
	return p.Info.Ref.Name() + "/" + suffix
}

// AddToLoop implements LoopAdder.
func (p *Publisher) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvPostProc, p)
	loop.AddRunnable(p)
}

// Control implements Controller. Results are published without
// waiting for the broker.
func (p *Publisher) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		res, ok := mctx.CurrentMessage().(*vision.ResultMsg)
		if !ok {
			return
		}
		p.publish(msgs.NewVisionResult(res))
	}))
	return nil
}

func (p *Publisher) publish(msg msgs.SerializableMessage) {
	data, err := msgs.Encode(msg)
	if err != nil {
		glog.Errorf("encode %T: %v", msg, err)
		return
	}
	p.Queue.Pub(p.topic(TopicMsg), data)
}

// Run implements Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	p.lock.Lock()
	p.loopCtl = fx.LoopCtlFrom(ctx)
	p.lock.Unlock()

	sub := p.Queue.Sub(p.topic(TopicCmd), Handler(p.handleCmd))
	p.Queue.Connect()
	<-ctx.Done()
	sub.Close()
	p.Queue.PubWith(p.topic(TopicMeta), nil, 1, true).Wait()
	p.Queue.Close()
	return nil
}

func (p *Publisher) publishMeta() {
	p.Queue.PubWith(p.topic(TopicMeta), p.metaJSON, 1, true)
}

func (p *Publisher) handleCmd(_ string, payload []byte) {
	msg, err := msgs.DecodeMessage(payload)
	if err != nil {
		glog.Warningf("bad command: %v", err)
		p.publish(msgs.NewCommandErr("", err))
		return
	}
	var id string
	var post fx.Message
	switch m := msg.(type) {
	case *msgs.VisionRequest:
		id, post = m.ID, m.RequestMsg()
		glog.V(1).Infof("remote request %s: %q", m.ID, m.Command)
	case *msgs.JointMove:
		jm, err := m.JointMsg()
		if err != nil {
			p.publish(msgs.NewCommandErr("", err))
			return
		}
		post = jm
		glog.V(1).Infof("remote joint move: %s", m)
	default:
		p.publish(msgs.NewCommandErr("", msgs.ErrUnsupportedCommand))
		return
	}
	p.lock.Lock()
	loopCtl := p.loopCtl
	p.lock.Unlock()
	if loopCtl == nil {
		p.publish(msgs.NewCommandErr(id, ErrNotRunning))
		return
	}
	loopCtl.PostMessage(post)
	loopCtl.TriggerNext()
}
