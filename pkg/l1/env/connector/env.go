package connector

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/robotalks/armlink/pkg/l1"
	"github.com/robotalks/armlink/pkg/l1/comm/mqtt"
)

// Config provides common options for remote tools.
type Config struct {
	Ref l1.ControllerRef

	// RegistryURL specifies the MQTT broker controllers register to.
	// e.g. mqtt://host:port/topic-prefix
	RegistryURL string

	// Port talks to a vision coprocessor directly instead of through
	// a controller, see port.Open.
	Port string

	// ProfileFile and Profile select the vision profile of Port.
	ProfileFile string
	Profile     string
}

var defaultConfig = Config{
	RegistryURL: "mqtt://localhost:1883/armlink/",
	Profile:     "standard",
}

func init() {
	if val := os.Getenv("ARMLINK_TYPE"); val != "" {
		defaultConfig.Ref.Type = val
	}
	if val := os.Getenv("ARMLINK_ID"); val != "" {
		defaultConfig.Ref.ID = val
	}
	if val := os.Getenv("ARMLINK_MQTT_URL"); val != "" {
		defaultConfig.RegistryURL = val
	}
	if val := os.Getenv("ARMLINK_PROFILES"); val != "" {
		defaultConfig.ProfileFile = val
	}
	if val := os.Getenv("ARMLINK_PROFILE"); val != "" {
		defaultConfig.Profile = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Ref.Type, "arm-type", defaultConfig.Ref.Type, "Controller type to connect.")
	flag.StringVar(&defaultConfig.Ref.ID, "arm-id", defaultConfig.Ref.ID, "Controller ID to connect.")
	flag.StringVar(&defaultConfig.RegistryURL, "mqtt", defaultConfig.RegistryURL, "MQTT broker URL.")
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Talk to a vision port directly.")
	flag.StringVar(&defaultConfig.ProfileFile, "profiles", defaultConfig.ProfileFile, "Profiles file (HCL).")
	flag.StringVar(&defaultConfig.Profile, "profile", defaultConfig.Profile, "Profile name.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewConnector creates a Connector using current config.
func (c *Config) NewConnector() (*mqtt.Connector, error) {
	conn, err := mqtt.NewConnector(c.RegistryURL)
	if err != nil {
		return nil, fmt.Errorf("invalid registry URL: %w", err)
	}
	return conn, nil
}

// MustNewConnector creates a Connector and fails on error.
func (c *Config) MustNewConnector() *mqtt.Connector {
	conn, err := c.NewConnector()
	if err != nil {
		log.Fatalln(err)
	}
	return conn
}

// Connect directly connects to the controller in Ref.
func (c *Config) Connect(ctx context.Context) (*mqtt.Remote, error) {
	if !c.Ref.IsValid() {
		return nil, fmt.Errorf("controller type and id must be specified")
	}
	connector, err := c.NewConnector()
	if err != nil {
		return nil, err
	}
	return connector.Connect(ctx, c.Ref)
}

// MustConnect connects to the controller or fails.
func (c *Config) MustConnect(ctx context.Context) *mqtt.Remote {
	conn, err := c.Connect(ctx)
	if err != nil {
		log.Fatalln(err)
	}
	return conn
}
