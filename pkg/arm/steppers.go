// Package arm turns decoded vision values into arm motions.
package arm

import (
	"fmt"
)

// Stepper defaults of the arm.
const (
	DefaultStepAngle    = 1.8
	DefaultStepperCount = 5
)

// Direction of a stepper rotation.
type Direction int

// Directions
const (
	Reverse Direction = 0
	Forward Direction = 1
)

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "reverse"
}

// StepperCommand rotates one stepper motor.
type StepperCommand struct {
	Motor     int
	Angle     int
	Steps     int
	Direction Direction
}

func (c StepperCommand) String() string {
	return fmt.Sprintf("M%d %d° (%d steps) %s", c.Motor, c.Angle, c.Steps, c.Direction)
}

// StepperConfig describes the stepper bank.
type StepperConfig struct {
	Count     int
	StepAngle float64
}

// WithDefaults fills zero fields.
func (c StepperConfig) WithDefaults() StepperConfig {
	if c.Count <= 0 {
		c.Count = DefaultStepperCount
	}
	if c.StepAngle <= 0 {
		c.StepAngle = DefaultStepAngle
	}
	return c
}

// DecodeSteppers reads values as (angle, direction) pairs, pair i
// addressing motor i. A zero angle leaves the motor alone, a direction
// of 1 is Forward and anything else Reverse. Missing values read as 0.
func DecodeSteppers(values []int, conf StepperConfig) []StepperCommand {
	conf = conf.WithDefaults()
	var cmds []StepperCommand
	for motor := 0; motor < conf.Count; motor++ {
		angle, dir := valueAt(values, motor*2), valueAt(values, motor*2+1)
		if angle == 0 {
			continue
		}
		cmd := StepperCommand{Motor: motor, Angle: angle, Direction: Reverse}
		if dir == 1 {
			cmd.Direction = Forward
		}
		// truncated; a negative angle moves nothing.
		if steps := int(float64(angle) / conf.StepAngle); steps > 0 {
			cmd.Steps = steps
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

func valueAt(values []int, n int) int {
	if n < len(values) {
		return values[n]
	}
	return 0
}
