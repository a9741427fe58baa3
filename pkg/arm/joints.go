package arm

import (
	"errors"
	"fmt"
	"time"
)

// Joint identifies a servo joint by its command letter.
type Joint byte

// Joints
const (
	Base     Joint = 'b'
	Shoulder Joint = 's'
	Elbow    Joint = 'e'
	Wrist    Joint = 'w'
	Grip     Joint = 'g'
)

// Joint limits and defaults.
const (
	MinAngle     = 10
	MaxAngle     = 170
	DefaultAngle = 90

	GripClosed = 80
	GripOpen   = 105

	StepDelay     = 40 * time.Millisecond
	SlowStepDelay = 80 * time.Millisecond
)

// Joints lists all joints in order.
var Joints = []Joint{Base, Shoulder, Elbow, Wrist, Grip}

// ErrUnknownJoint is returned for a letter not naming a joint.
var ErrUnknownJoint = errors.New("unknown joint")

var jointNames = map[Joint]string{
	Base:     "base",
	Shoulder: "shoulder",
	Elbow:    "elbow",
	Wrist:    "wrist",
	Grip:     "grip",
}

// within this many degrees of the target the joint moves slowly.
var slowThresholds = map[Joint]int{
	Base:  20,
	Elbow: 5,
}

// ParseJoint accepts a letter or a name.
func ParseJoint(s string) (Joint, error) {
	if len(s) == 1 {
		if _, ok := jointNames[Joint(s[0])]; ok {
			return Joint(s[0]), nil
		}
	}
	for j, name := range jointNames {
		if name == s {
			return j, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownJoint, s)
}

func (j Joint) String() string {
	if name, ok := jointNames[j]; ok {
		return name
	}
	return fmt.Sprintf("joint(%c)", byte(j))
}

// Clamp limits angle to the safe range of all joints.
func Clamp(angle int) int {
	if angle < MinAngle {
		return MinAngle
	}
	if angle > MaxAngle {
		return MaxAngle
	}
	return angle
}

// ServoStep is one write to a servo followed by a pause.
type ServoStep struct {
	Angle int
	Delay time.Duration
}

// Motion is the planned movement of one joint.
type Motion struct {
	Joint Joint
	From  int
	To    int
	Steps []ServoStep
}

// Arm tracks the current angle of every joint.
type Arm struct {
	angles map[Joint]int
}

// NewArm creates an Arm with all joints at DefaultAngle.
func NewArm() *Arm {
	a := &Arm{angles: make(map[Joint]int)}
	for _, j := range Joints {
		a.angles[j] = DefaultAngle
	}
	return a
}

// Angle returns the current angle of j.
func (a *Arm) Angle(j Joint) int {
	return a.angles[j]
}

// Plan moves j towards angle, clamped, one degree per step. The last
// degrees inside the joint's slow threshold use SlowStepDelay. With
// overshoot > 0 the joint goes past the target and comes back. The
// returned Motion has no steps when the joint is already there.
// The tracked angle is updated to the target.
func (a *Arm) Plan(j Joint, angle, overshoot int) (Motion, error) {
	from, ok := a.angles[j]
	if !ok {
		return Motion{}, fmt.Errorf("%w: %q", ErrUnknownJoint, byte(j))
	}
	to := Clamp(angle)
	m := Motion{Joint: j, From: from, To: to}
	if from == to {
		return m, nil
	}
	step := 1
	if to < from {
		step = -1
	}
	threshold := slowThresholds[j]
	for i := from; i != to+step; i += step {
		delay := StepDelay
		if remaining := abs(to - i); remaining <= threshold {
			delay = SlowStepDelay
		}
		m.Steps = append(m.Steps, ServoStep{Angle: i, Delay: delay})
	}
	if overshoot > 0 {
		for i := to + 1; i <= to+overshoot; i++ {
			m.Steps = append(m.Steps, ServoStep{Angle: i, Delay: StepDelay})
		}
		for i := to + overshoot - 1; i >= to; i-- {
			m.Steps = append(m.Steps, ServoStep{Angle: i, Delay: StepDelay})
		}
	}
	a.angles[j] = to
	return m, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
