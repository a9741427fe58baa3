package arm

import (
	"github.com/golang/glog"

	fx "github.com/robotalks/armlink/pkg/framework"
	"github.com/robotalks/armlink/pkg/l0/vision"
)

// Actuator drives the hardware.
type Actuator interface {
	RotateStepper(StepperCommand) error
	MoveServo(Motion) error
}

// LogActuator only logs motions, used when no hardware is attached.
type LogActuator struct{}

// RotateStepper implements Actuator.
func (LogActuator) RotateStepper(cmd StepperCommand) error {
	glog.Infof("stepper %s", cmd)
	return nil
}

// MoveServo implements Actuator.
func (LogActuator) MoveServo(m Motion) error {
	glog.Infof("servo %s %d -> %d (%d steps)", m.Joint, m.From, m.To, len(m.Steps))
	return nil
}

// JointMsg asks the Dispatcher to move a joint.
type JointMsg struct {
	Joint     Joint
	Angle     int
	Overshoot int
}

// NewMessage implements Message.
func (m *JointMsg) NewMessage() fx.Message { return &JointMsg{} }

// Dispatcher drives steppers from successful vision results whose
// command matches Command (all results when empty), and servos from
// JointMsgs.
type Dispatcher struct {
	Actuator Actuator
	Steppers StepperConfig
	Command  string
	Arm      *Arm
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(act Actuator, conf StepperConfig) *Dispatcher {
	return &Dispatcher{Actuator: act, Steppers: conf.WithDefaults(), Arm: NewArm()}
}

// AddToLoop implements LoopAdder.
func (d *Dispatcher) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvActuate, d)
}

// Control implements Controller.
func (d *Dispatcher) Control(cc fx.ControlContext) error {
	var errs fx.AggregatedError
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		switch msg := mctx.CurrentMessage().(type) {
		case *vision.ResultMsg:
			if !msg.OK() || (d.Command != "" && msg.Command != d.Command) {
				return
			}
			for _, cmd := range DecodeSteppers(msg.Values, d.Steppers) {
				errs.Add(d.Actuator.RotateStepper(cmd))
			}
		case *JointMsg:
			mctx.MessageTaken()
			m, err := d.Arm.Plan(msg.Joint, msg.Angle, msg.Overshoot)
			if err != nil {
				errs.Add(err)
				return
			}
			if len(m.Steps) == 0 {
				glog.V(1).Infof("%s is already at %d", m.Joint, m.To)
				return
			}
			errs.Add(d.Actuator.MoveServo(m))
		}
	}))
	return errs.Aggregate()
}
