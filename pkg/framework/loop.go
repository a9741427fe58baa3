package framework

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultTickInterval is used when Loop.Interval is not set.
const DefaultTickInterval = 10 * time.Millisecond

// Loop is the host scheduler. It runs all registered controllers
// once per tick, ordered by priority level.
type Loop struct {
	Interval time.Duration
	Clock    TimeSource

	controllers [PriorityLevels][]Controller
	runners     []Runnable

	pending messageList
	lock    sync.Mutex

	wakeUpCh chan struct{}
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type loopTick struct {
	*Loop
	ctx           context.Context
	time          time.Time
	priorityLevel int
	messages      messageList
}

type messageList struct {
	head *messageItem
	tail *messageItem
}

type messageItem struct {
	msg  Message
	next *messageItem
}

func (l *messageList) append(item *messageItem) {
	if l.head == nil {
		l.head = item
	} else {
		l.tail.next = item
	}
	l.tail = item
}

func (l *messageList) splice(src *messageList) {
	l.head, l.tail = src.head, src.tail
	src.head, src.tail = nil, nil
}

func (l *messageList) concat(lst *messageList) {
	if lst.head == nil {
		return
	}
	if l.head == nil {
		l.head = lst.head
	} else {
		l.tail.next = lst.head
	}
	l.tail = lst.tail
}

type loopCtxKeyType struct{}

var loopCtxKey loopCtxKeyType

// LoopCtlFrom gets LoopControl from the context passed to runners.
func LoopCtlFrom(ctx context.Context) LoopControl {
	return ctx.Value(loopCtxKey).(LoopControl)
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultTickInterval, Clock: SystemTime}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers to the loop.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.controllers[priorityLevel] = append(l.controllers[priorityLevel], ctls...)
	return l
}

// AddRunnable adds Runnable implementions started by Run.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}

	runner := NewRunnerWith(context.WithValue(ctx, loopCtxKey, LoopControl(l)))
	runner.Go(l.runners...)
	defer runner.Wait()

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Tick(ctx)
		case <-l.wakeUpCh:
			l.Tick(ctx)
		}
	}
}

// RunOrFail is intended to be used in main to simply run the loop.
func (l *Loop) RunOrFail(ctx context.Context) {
	if err := l.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalln(err)
	}
}

// PostMessage implements LoopControl.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.pending.append(&messageItem{msg: msg})
	l.lock.Unlock()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	if l.wakeUpCh == nil {
		return
	}
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// Tick runs all controllers once. Hosts without their own
// scheduler use Run; hosts with one call Tick at their cadence.
func (l *Loop) Tick(ctx context.Context) {
	clock := l.Clock
	if clock == nil {
		clock = SystemTime
	}
	tick := &loopTick{Loop: l, time: clock.Time()}
	l.lock.Lock()
	tick.messages.splice(&l.pending)
	l.lock.Unlock()
	tick.ctx = context.WithValue(ctx, loopCtxKey, LoopControl(l))
	for i := 0; i < PriorityLevels; i++ {
		tick.priorityLevel = i
		for _, ctl := range l.controllers[i] {
			if err := ctl.Control(tick); err != nil {
				glog.Errorf("controller error: %v", err)
			}
		}
	}
}

func (t *loopTick) Context() context.Context {
	return t.ctx
}

func (t *loopTick) Time() time.Time {
	return t.time
}

func (t *loopTick) PriorityLevel() int {
	return t.priorityLevel
}

func (t *loopTick) Messages() MessageStore {
	return t
}

type messageContext struct {
	tick  *loopTick
	item  *messageItem
	taken bool
	stop  bool
}

func (c *messageContext) CurrentMessage() Message     { return c.item.msg }
func (c *messageContext) MessageTaken()               { c.taken = true }
func (c *messageContext) StopProcessing()             { c.stop = true }
func (c *messageContext) AddMessages(msgs ...Message) { c.tick.AddMessages(msgs...) }

func (t *loopTick) ProcessMessages(proc MessageProcessor) {
	var msgs, remains messageList
	msgs.splice(&t.messages)
	for msgs.head != nil {
		mctx := &messageContext{tick: t, item: msgs.head}
		if msgs.head = msgs.head.next; msgs.head == nil {
			msgs.tail = nil
		}
		mctx.item.next = nil
		proc.ProcessMessage(mctx)
		if !mctx.taken {
			remains.append(mctx.item)
		}
		if mctx.stop {
			remains.concat(&msgs)
			break
		}
	}
	remains.concat(&t.messages)
	t.messages = remains
}

func (t *loopTick) AddMessages(msgs ...Message) {
	for _, msg := range msgs {
		t.messages.append(&messageItem{msg: msg})
	}
}
