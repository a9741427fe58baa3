package sh

import (
	"context"
	"errors"
	"time"

	"github.com/robotalks/armlink/pkg/arm"
	"github.com/robotalks/armlink/pkg/config"
	"github.com/robotalks/armlink/pkg/l0/port"
	"github.com/robotalks/armlink/pkg/l0/vision"
	"github.com/robotalks/armlink/pkg/l1/comm/mqtt"
	"github.com/robotalks/armlink/pkg/l1/msgs"
)

// Session is what the shell talks to: a controller over MQTT or a
// vision port opened locally.
type Session interface {
	Name() string
	Request(ctx context.Context, command string) (*msgs.VisionResult, error)
	MoveJoint(ctx context.Context, joint string, angle, overshoot int) error
	Close() error
}

type remoteSession struct {
	*mqtt.Remote
}

func (s *remoteSession) Name() string {
	return s.Ref.Name()
}

// LocalSession drives a vision client directly. Joint moves are planned
// locally and handed to the Actuator.
type LocalSession struct {
	Port     string
	Profile  *config.Profile
	Client   *vision.Client
	Arm      *arm.Arm
	Actuator arm.Actuator

	closer func() error
}

// OpenLocal opens addr (see port.Open) with the vision profile.
func OpenLocal(addr string, profile *config.Profile) (*LocalSession, error) {
	conf, err := profile.VisionConfig()
	if err != nil {
		return nil, err
	}
	stream, err := port.Open(addr)
	if err != nil {
		return nil, err
	}
	s := NewLocalSession(addr, profile, vision.NewClient(stream, conf))
	s.closer = stream.Close
	return s, nil
}

// NewLocalSession creates a LocalSession on an existing client.
func NewLocalSession(name string, profile *config.Profile, client *vision.Client) *LocalSession {
	return &LocalSession{
		Port:     name,
		Profile:  profile,
		Client:   client,
		Arm:      arm.NewArm(),
		Actuator: arm.LogActuator{},
	}
}

// Name implements Session.
func (s *LocalSession) Name() string {
	return s.Port
}

// Request implements Session. Failures of the exchange are reported in
// the result, only ctx errors are returned.
func (s *LocalSession) Request(ctx context.Context, command string) (*msgs.VisionResult, error) {
	start := time.Now()
	values, err := vision.Request(ctx, s.Client, command, 0)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		s.Client.Reset()
		return nil, err
	}
	return msgs.NewVisionResult(&vision.ResultMsg{
		Command:  command,
		Values:   values,
		Err:      err,
		IssuedAt: start,
		Latency:  time.Since(start),
	}), nil
}

// MoveJoint implements Session.
func (s *LocalSession) MoveJoint(_ context.Context, joint string, angle, overshoot int) error {
	j, err := arm.ParseJoint(joint)
	if err != nil {
		return err
	}
	m, err := s.Arm.Plan(j, angle, overshoot)
	if err != nil {
		return err
	}
	return s.Actuator.MoveServo(m)
}

// Close implements Session.
func (s *LocalSession) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}
