package controller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/armlink/pkg/arm"
	"github.com/robotalks/armlink/pkg/config"
	fx "github.com/robotalks/armlink/pkg/framework"
	"github.com/robotalks/armlink/pkg/l0/vision/visiontest"
	"github.com/robotalks/armlink/pkg/l1"
)

type recordingActuator struct {
	steppers []arm.StepperCommand
}

func (a *recordingActuator) RotateStepper(cmd arm.StepperCommand) error {
	a.steppers = append(a.steppers, cmd)
	return nil
}

func (a *recordingActuator) MoveServo(arm.Motion) error {
	return nil
}

func testConfig() *Config {
	return &Config{
		Info:    l1.ControllerInfo{Ref: l1.ControllerRef{Type: "arm", ID: "test"}},
		Profile: config.ProfileStandard,
	}
}

func TestNewEnvErrors(t *testing.T) {
	c := testConfig()
	c.Info.Ref.ID = ""
	_, err := c.NewEnv()
	require.Error(t, err)

	c = testConfig()
	c.Profile = "nope"
	_, err = c.NewEnv()
	require.ErrorIs(t, err, config.ErrProfileNotFound)
}

func TestEnvWiring(t *testing.T) {
	c := testConfig()
	c.MQTTBrokerURL = "mqtt://localhost:1883/armlink/"
	c.MetricsAddr = "127.0.0.1:0"
	c.PollInterval = time.Second
	c.Port = "/dev/ttyACM0"
	profile, err := config.Load("", c.Profile)
	require.NoError(t, err)

	e, err := c.newEnv(profile, &visiontest.Transport{})
	require.NoError(t, err)
	require.Nil(t, e.Stream)
	require.Equal(t, "SCAN", e.Poller.Command)
	require.Equal(t, time.Second, e.Poller.Interval)
	require.Equal(t, "SCAN", e.Dispatcher.Command)
	require.Equal(t, 20, e.Client.Config().MaxValues)
	require.NotNil(t, e.Publisher)
	require.Equal(t, "/dev/ttyACM0", e.Publisher.Info.Meta.Port)
	require.Equal(t, config.ProfileStandard, e.Publisher.Info.Meta.Profile)
	require.NotNil(t, e.Server)

	c.MQTTBrokerURL = "http://broker"
	_, err = c.newEnv(profile, &visiontest.Transport{})
	require.Error(t, err)
}

func TestEnvLoop(t *testing.T) {
	c := testConfig()
	c.PollCommand = "STEP"
	profile, err := config.Load("", c.Profile)
	require.NoError(t, err)

	transport := &visiontest.Transport{OnWrite: visiontest.Reply("90,1,0,0,36,0\n")}
	e, err := c.newEnv(profile, transport)
	require.NoError(t, err)
	require.Nil(t, e.Publisher)
	require.Nil(t, e.Server)

	clock := visiontest.NewClock()
	e.Client.WithClock(clock)
	act := &recordingActuator{}
	e.Dispatcher.Actuator = act

	loop := fx.NewLoop()
	loop.Clock = clock
	loop.Add(e)
	for i := 0; i < 3 && len(act.steppers) == 0; i++ {
		clock.Advance(10 * time.Millisecond)
		loop.Tick(context.Background())
	}
	require.Equal(t, "STEP\n", transport.Written())
	require.Equal(t, []arm.StepperCommand{
		{Motor: 0, Angle: 90, Steps: 50, Direction: arm.Forward},
		{Motor: 2, Angle: 36, Steps: 20, Direction: arm.Reverse},
	}, act.steppers)
}
