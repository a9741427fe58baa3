package controller

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/robotalks/armlink/pkg/arm"
	"github.com/robotalks/armlink/pkg/config"
	fx "github.com/robotalks/armlink/pkg/framework"
	"github.com/robotalks/armlink/pkg/l0/port"
	"github.com/robotalks/armlink/pkg/l0/vision"
	"github.com/robotalks/armlink/pkg/l1"
	"github.com/robotalks/armlink/pkg/l1/comm/mqtt"
	"github.com/robotalks/armlink/pkg/l1/env"
	"github.com/robotalks/armlink/pkg/metrics"
)

// Config provides common options to setup an arm controller.
type Config struct {
	Info l1.ControllerInfo

	// MQTTBrokerURL specifies the MQTT broker to use.
	// e.g. mqtt://host:port/topic-prefix
	// Empty disables remote access.
	MQTTBrokerURL string

	// Port is the address of the vision coprocessor, see port.Open.
	Port string

	// ProfileFile is the HCL profiles file, empty for built-in profiles.
	ProfileFile string
	Profile     string

	// PollCommand and PollInterval override the profile when set.
	PollCommand  string
	PollInterval time.Duration

	// MetricsAddr is the listen address of /metrics, empty disables it.
	MetricsAddr string

	Trace bool
}

var defaultConfig = Config{
	MQTTBrokerURL: "mqtt://localhost:1883/armlink/",
	Port:          "/dev/ttyUSB0",
	Profile:       config.ProfileStandard,
	MetricsAddr:   ":9464",
}

func init() {
	if val := os.Getenv("ARMLINK_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("ARMLINK_PORT"); val != "" {
		defaultConfig.Port = val
	}
	if val := os.Getenv("ARMLINK_PROFILES"); val != "" {
		defaultConfig.ProfileFile = val
	}
	if val := os.Getenv("ARMLINK_PROFILE"); val != "" {
		defaultConfig.Profile = val
	}
	if val := os.Getenv("ARMLINK_METRICS_ADDR"); val != "" {
		defaultConfig.MetricsAddr = val
	}
	defaultConfig.Info.Ref.Type = "arm"
	defaultConfig.Info.Ref.ID = env.MachineID()
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Info.Ref.Type, "type", defaultConfig.Info.Ref.Type, "Controller type")
	flag.StringVar(&defaultConfig.Info.Ref.ID, "id", defaultConfig.Info.Ref.ID, "Controller ID")
	flag.StringVar(&defaultConfig.Info.Meta.Description, "desc", defaultConfig.Info.Meta.Description, "Controller description")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable")
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Vision port, device path or serial:// ws:// URL")
	flag.StringVar(&defaultConfig.ProfileFile, "profiles", defaultConfig.ProfileFile, "Profiles file (HCL)")
	flag.StringVar(&defaultConfig.Profile, "profile", defaultConfig.Profile, "Profile name")
	flag.StringVar(&defaultConfig.PollCommand, "poll", defaultConfig.PollCommand, "Command polled periodically")
	flag.DurationVar(&defaultConfig.PollInterval, "poll-interval", defaultConfig.PollInterval, "Interval of the polled command")
	flag.StringVar(&defaultConfig.MetricsAddr, "metrics", defaultConfig.MetricsAddr, "Metrics listen address, empty to disable")
	flag.BoolVar(&defaultConfig.Trace, "trace", defaultConfig.Trace, "Trace every vision exchange")
}

// SetControllerType should be called in init with basic info about the controller.
func SetControllerType(typ string, meta l1.ControllerMeta) {
	defaultConfig.Info.Ref.Type = typ
	defaultConfig.Info.Meta = meta
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Env is the env of an arm controller.
type Env struct {
	Config     *Config
	Profile    *config.Profile
	Stream     *port.Stream
	Client     *vision.Client
	Poller     *vision.Poller
	Dispatcher *arm.Dispatcher
	Publisher  *mqtt.Publisher
	Metrics    *metrics.Metrics
	Server     *metrics.Server
}

// NewEnv creates Env from config, opening the vision port.
func (c *Config) NewEnv() (*Env, error) {
	if !c.Info.Ref.IsValid() {
		return nil, fmt.Errorf("controller type and id must be specified")
	}
	profile, err := config.Load(c.ProfileFile, c.Profile)
	if err != nil {
		return nil, err
	}
	stream, err := port.Open(c.Port)
	if err != nil {
		return nil, fmt.Errorf("open port %q error: %w", c.Port, err)
	}
	e, err := c.newEnv(profile, stream)
	if err != nil {
		stream.Close()
		return nil, err
	}
	return e, nil
}

func (c *Config) newEnv(profile *config.Profile, t vision.Transport) (*Env, error) {
	conf, err := profile.VisionConfig()
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", profile.Name, err)
	}
	conf.Trace = conf.Trace || c.Trace
	every, err := profile.PollEvery()
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", profile.Name, err)
	}
	command := profile.PollCommand
	if c.PollCommand != "" {
		command = c.PollCommand
	}
	if c.PollInterval > 0 {
		every = c.PollInterval
	}

	e := &Env{Config: c, Profile: profile}
	e.Stream, _ = t.(*port.Stream)
	e.Client = vision.NewClient(t, conf)
	e.Poller = vision.NewPoller(e.Client, command, every)
	e.Dispatcher = arm.NewDispatcher(arm.LogActuator{}, profile.StepperConfig())
	e.Dispatcher.Command = command

	if c.MQTTBrokerURL != "" {
		info := c.Info
		if info.Meta.Port == "" {
			info.Meta.Port = c.Port
		}
		if info.Meta.Profile == "" {
			info.Meta.Profile = profile.Name
		}
		if e.Publisher, err = mqtt.NewPublisher(c.MQTTBrokerURL, info); err != nil {
			return nil, fmt.Errorf("create MQTT publisher error: %w", err)
		}
	}

	if c.MetricsAddr != "" {
		reg := metrics.NewRegistry()
		e.Metrics = metrics.New(reg)
		if e.Stream != nil {
			e.Metrics.RegisterDropped(e.Stream.Dropped)
		}
		e.Server = &metrics.Server{Addr: c.MetricsAddr, Registry: reg}
	} else {
		e.Metrics = metrics.New(prometheus.NewRegistry())
	}
	return e, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	e, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return e
}

// AddToLoop adds controllers/runners to loop.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.Add(e.Poller, e.Dispatcher, e.Metrics)
	if e.Publisher != nil {
		loop.Add(e.Publisher)
	}
	if e.Server != nil {
		loop.AddRunnable(fx.NamedRun("metrics", e.Server))
	}
	if e.Stream != nil {
		loop.AddRunnable(fx.NamedRun("port", fx.RunFunc(e.watchStream)))
	}
}

// watchStream closes the port when ctx is done. A port lost earlier is
// logged; requests keep failing with the read error until restart.
func (e *Env) watchStream(ctx context.Context) error {
	return fx.RunWithContextCloser(ctx, e.Stream, func() error {
		<-e.Stream.Done()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fmt.Errorf("port %s lost", e.Stream.Name)
		glog.Error(err)
		return err
	})
}
